package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kilianp07/walletfactory/app/plugins"
)

var modulesCmd = &cobra.Command{
	Use:   "modules",
	Short: "List the built-in modules selectable from configuration",
	Run: func(cmd *cobra.Command, _ []string) {
		for _, f := range plugins.Families() {
			fmt.Fprintf(cmd.OutOrStdout(), "%-16s %-22s %s\n", f.Name, f.Key, strings.Join(f.Modules, ", "))
		}
	},
}

func init() {
	rootCmd.AddCommand(modulesCmd)
}
