package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kilianp07/roadside/app/plugins"
)

var pluginsCmd = &cobra.Command{
	Use:   "plugins",
	Short: "List the backends available to each configuration section",
	RunE: func(cmd *cobra.Command, args []string) error {
		catalog := plugins.Catalog()
		concerns := make([]string, 0, len(catalog))
		for c := range catalog {
			concerns = append(concerns, c)
		}
		sort.Strings(concerns)
		for _, c := range concerns {
			if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%-10s %s\n", c, strings.Join(catalog[c], ", ")); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(pluginsCmd)
}
