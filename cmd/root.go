// Package cmd holds the walletfactory command line.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kilianp07/walletfactory/app"
	"github.com/kilianp07/walletfactory/config"
	"github.com/kilianp07/walletfactory/infra/logger"
)

var cfgPath string

var serveFlags struct {
	addr     string
	logLevel string
}

var rootCmd = &cobra.Command{
	Use:          "walletfactory",
	Short:        "Deterministic wallet factory",
	SilenceUsage: true,
	RunE:         serve,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Restore the factory from its registry and serve the HTTP API",
	RunE:  serve,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "config.yaml", "configuration file")
	for _, c := range []*cobra.Command{rootCmd, serveCmd} {
		c.Flags().StringVar(&serveFlags.addr, "addr", "", "HTTP listen address, overrides http.addr")
		c.Flags().StringVar(&serveFlags.logLevel, "log-level", "", "log level, overrides logging.level")
	}
	rootCmd.AddCommand(serveCmd)
}

// Execute runs the CLI until it finishes or the process is interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func serve(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := applyServeFlags(cfg); err != nil {
		return err
	}
	svc, err := app.New(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.New("main").Errorf("service close: %v", err)
		}
	}()
	return svc.Run(cmd.Context())
}

func applyServeFlags(cfg *config.Config) error {
	if serveFlags.addr != "" {
		cfg.HTTP.Addr = serveFlags.addr
	}
	if serveFlags.logLevel != "" {
		cfg.Logging.Level = serveFlags.logLevel
		if err := cfg.Logging.Validate(); err != nil {
			return fmt.Errorf("--log-level: %w", err)
		}
	}
	return nil
}
