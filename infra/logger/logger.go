package logger

import corelogger "github.com/kilianp07/walletfactory/core/logger"

// Logger mirrors the core logger interface.
type Logger = corelogger.Logger

// NopLogger mirrors the core no-op logger.
type NopLogger = corelogger.NopLogger

// New returns a Logger for the given component. The output format is
// selected via the APP_ENV variable and the level via SetLevel.
func New(component string) Logger {
	return NewZerologLogger(component)
}
