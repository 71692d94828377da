package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/walletfactory/qa/scenarios"
)

var scenarioCmd = &cobra.Command{
	Use:   "scenario [file...]",
	Short: "Replay YAML call scenarios against an in-memory factory",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, path := range args {
			sc, err := scenarios.Load(path)
			if err != nil {
				return err
			}
			if err := scenarios.Run(cmd.Context(), sc); err != nil {
				return fmt.Errorf("%s: %w", sc.Name, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d steps ok\n", sc.Name, len(sc.Steps))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scenarioCmd)
}
