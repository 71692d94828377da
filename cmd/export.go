package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	_ "github.com/kilianp07/walletfactory/app/plugins"
	"github.com/kilianp07/walletfactory/config"
	"github.com/kilianp07/walletfactory/core/registry"
	"github.com/kilianp07/walletfactory/pkg/export"
)

func newExportCmd() *cobra.Command {
	var format, out string
	c := &cobra.Command{
		Use:   "export",
		Short: "Export the registry as JSON, CSV or CBOR",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			write := func(w io.Writer) error { return exportRegistry(cmd.Context(), cfg, format, w) }
			if out == "" || out == "-" {
				return write(cmd.OutOrStdout())
			}
			f, err := os.Create(out)
			if err != nil {
				return err
			}
			return writeAndClose(f, write)
		},
	}
	c.Flags().StringVarP(&format, "format", "f", export.FormatJSON, "json, csv or cbor")
	c.Flags().StringVarP(&out, "out", "o", "-", "output file, - for stdout")
	return c
}

func exportRegistry(ctx context.Context, cfg *config.Config, format string, w io.Writer) error {
	store, err := registry.Backends.Create(cfg.Registry)
	if err != nil {
		return fmt.Errorf("registry store: %w", err)
	}
	defer store.Close()
	factory, err := cfg.Factory.FactoryAddress()
	if err != nil {
		return err
	}
	snap := export.Snapshot{Factory: factory}
	if snap.Implementations, err = store.Implementations(ctx); err != nil {
		return err
	}
	if snap.Entries, err = store.List(ctx); err != nil {
		return err
	}
	return export.Write(w, format, snap)
}

// writeAndClose runs write against wc and closes it. A close failure is
// returned when write succeeded, since it can mean the export never hit disk.
func writeAndClose(wc io.WriteCloser, write func(io.Writer) error) (err error) {
	defer func() {
		if cerr := wc.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close export: %w", cerr)
		}
	}()
	return write(wc)
}

func init() {
	rootCmd.AddCommand(newExportCmd())
}
