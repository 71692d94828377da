package monitoring

import (
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/kilianp07/walletfactory/config"
	"github.com/kilianp07/walletfactory/core/model"
	coremon "github.com/kilianp07/walletfactory/core/monitoring"
)

const serviceName = "walletfactory"

// NewSentryMonitor initializes Sentry for the factory at addr. An empty DSN
// yields a NopMonitor.
func NewSentryMonitor(cfg config.SentryConfig, addr model.Address) (coremon.Monitor, error) {
	if cfg.DSN == "" {
		return coremon.NopMonitor{}, nil
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		Release:          cfg.Release,
		TracesSampleRate: cfg.TracesSampleRate,
		AttachStacktrace: cfg.AttachStacktrace,
		ServerName:       serviceName,
	})
	if err != nil {
		return nil, err
	}
	return newSentryMonitor(sentry.CurrentHub(), addr), nil
}

type sentryMonitor struct {
	hub     *sentry.Hub
	factory string
}

func newSentryMonitor(hub *sentry.Hub, addr model.Address) *sentryMonitor {
	return &sentryMonitor{hub: hub, factory: addr.String()}
}

// CaptureException groups events by operation and rejection reason so that
// distinct wallets failing the same way land in one issue.
func (s *sentryMonitor) CaptureException(err error, tags map[string]string) {
	if err == nil {
		return
	}
	s.hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("service", serviceName)
		scope.SetTag("factory", s.factory)
		scope.SetContext("factory", sentry.Context{"address": s.factory})
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		if op, ok := tags[coremon.TagOperation]; ok {
			scope.SetFingerprint([]string{op, tags[coremon.TagReason]})
		}
		s.hub.CaptureException(err)
	})
}

func (s *sentryMonitor) Flush(timeout time.Duration) { s.hub.Flush(timeout) }
