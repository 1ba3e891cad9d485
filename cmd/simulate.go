package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/kilianp07/roadside/qa/scenarios"
)

var quiet bool

var simulateCmd = &cobra.Command{
	Use:   "simulate [scenario.yaml...]",
	Short: "Replay negotiation scenarios on a simulated clock",
	Long: "Runs each scenario against an in-memory engine and prints its events. " +
		"Without arguments the bundled scenarios are used.",
	RunE: runSimulate,
}

func init() {
	simulateCmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "print only the summary")
	rootCmd.AddCommand(simulateCmd)
}

func runSimulate(cmd *cobra.Command, args []string) error {
	var all []*scenarios.Scenario
	if len(args) == 0 {
		b, err := scenarios.Bundled()
		if err != nil {
			return err
		}
		all = b
	}
	for _, path := range args {
		sc, err := scenarios.Load(path)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		all = append(all, sc)
	}

	out := cmd.OutOrStdout()
	failed := 0
	for _, sc := range all {
		fmt.Fprintf(out, "== %s\n", sc.Name)
		var events io.Writer
		if !quiet {
			events = out
		}
		rep, err := scenarios.Run(cmd.Context(), sc, scenarios.Options{Out: events})
		if err != nil {
			return fmt.Errorf("%s: %w", sc.Name, err)
		}
		if rep.Passed() {
			fmt.Fprintf(out, "PASS %s (final status %s)\n", sc.Name, rep.Request.Status)
			continue
		}
		failed++
		fmt.Fprintf(out, "FAIL %s\n", sc.Name)
		for _, f := range rep.Failures {
			fmt.Fprintf(out, "  %s\n", f)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d scenarios failed", failed, len(all))
	}
	return nil
}
