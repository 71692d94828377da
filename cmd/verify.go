package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	_ "github.com/kilianp07/walletfactory/app/plugins"
	"github.com/kilianp07/walletfactory/config"
	"github.com/kilianp07/walletfactory/core/model"
	"github.com/kilianp07/walletfactory/core/registry"
	"github.com/kilianp07/walletfactory/core/wallet"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check every registered wallet against its derived address",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		return verifyRegistry(cmd.Context(), cfg, cmd.OutOrStdout())
	},
}

func verifyRegistry(ctx context.Context, cfg *config.Config, w io.Writer) error {
	store, err := registry.Backends.Create(cfg.Registry)
	if err != nil {
		return fmt.Errorf("registry store: %w", err)
	}
	defer store.Close()
	factory, err := cfg.Factory.FactoryAddress()
	if err != nil {
		return err
	}
	mismatches, err := wallet.Verify(ctx, store, factory)
	if err != nil {
		return err
	}
	for _, m := range mismatches {
		fmt.Fprintf(w, "%s\texpected %s\n", m.Error(), m.Expected)
	}
	if len(mismatches) > 0 {
		return fmt.Errorf("%w: %d wallet(s)", model.ErrInconsistent, len(mismatches))
	}
	fmt.Fprintln(w, "registry consistent")
	return nil
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}
