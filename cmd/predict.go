package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kilianp07/walletfactory/core/derive"
	"github.com/kilianp07/walletfactory/core/logic"
	"github.com/kilianp07/walletfactory/core/model"
	"github.com/kilianp07/walletfactory/core/module"
)

type predictOptions struct {
	factory string
	logic   string
	version uint64
	salts   []string
	output  string
}

// Prediction is one derived wallet address.
type Prediction struct {
	Factory        model.Address `json:"factory" yaml:"factory"`
	Implementation model.Address `json:"implementation" yaml:"implementation"`
	Version        uint64        `json:"version" yaml:"version"`
	Salt           model.Salt    `json:"salt" yaml:"salt"`
	Wallet         model.Address `json:"wallet" yaml:"wallet"`
}

func newPredictCmd() *cobra.Command {
	var o predictOptions
	c := &cobra.Command{
		Use:   "predict",
		Short: "Derive wallet addresses offline",
		Long: "Derive the address a factory would give a wallet for each salt. " +
			"No service or store is needed; the implementation address is derived from the logic and version.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			preds, err := predict(o)
			if err != nil {
				return err
			}
			return writePredictions(cmd.OutOrStdout(), o.output, preds)
		},
	}
	c.Flags().StringVar(&o.factory, "factory", "", "factory address (hex)")
	c.Flags().StringVar(&o.logic, "logic", logic.OwnedWalletName, "shared logic name")
	c.Flags().Uint64Var(&o.version, "version", 0, "implementation version")
	c.Flags().StringSliceVar(&o.salts, "salt", nil, "salt (hex), repeatable")
	c.Flags().StringVarP(&o.output, "output", "o", "json", "output format: json or yaml")
	_ = c.MarkFlagRequired("factory")
	_ = c.MarkFlagRequired("salt")
	return c
}

func predict(o predictOptions) ([]Prediction, error) {
	factory, err := model.ParseAddress(o.factory)
	if err != nil {
		return nil, err
	}
	l, err := logic.Catalog.Create(module.Config{Type: o.logic})
	if err != nil {
		return nil, err
	}
	impl := derive.ImplementationAddress(factory, l.Code(), o.version)
	out := make([]Prediction, 0, len(o.salts))
	for _, s := range o.salts {
		salt, err := model.ParseSalt(s)
		if err != nil {
			return nil, err
		}
		out = append(out, Prediction{
			Factory:        factory,
			Implementation: impl,
			Version:        o.version,
			Salt:           salt,
			Wallet:         derive.WalletAddress(factory, impl, salt),
		})
	}
	return out, nil
}

func writePredictions(w io.Writer, format string, preds []Prediction) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(preds)
	case "yaml":
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(preds)
	default:
		return fmt.Errorf("%w: unknown output %q", model.ErrInvalidInput, format)
	}
}

func init() {
	rootCmd.AddCommand(newPredictCmd())
}
