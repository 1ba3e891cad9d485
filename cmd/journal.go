package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/roadside/infra/journal"
	"github.com/kilianp07/roadside/pkg/export"
)

var journalOpts struct {
	requestID string
	kind      string
	format    string
}

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Export recorded request events",
	RunE:  runJournal,
}

func init() {
	journalCmd.Flags().StringVar(&journalOpts.requestID, "request", "", "only events of this request")
	journalCmd.Flags().StringVar(&journalOpts.kind, "kind", "", "only events of this kind")
	journalCmd.Flags().StringVarP(&journalOpts.format, "format", "f", "json", "output format: json or csv")
	rootCmd.AddCommand(journalCmd)
}

func runJournal(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Journal.Path == "" {
		return errors.New("journal.path is not configured")
	}
	j, err := journal.New(cfg.Journal)
	if err != nil {
		return err
	}
	defer func() { _ = j.Close() }()
	recs, err := j.Query(cmd.Context(), journal.Query{RequestID: journalOpts.requestID, Kind: journalOpts.kind})
	if err != nil {
		return err
	}
	switch journalOpts.format {
	case "json":
		return export.WriteJSON(cmd.OutOrStdout(), recs)
	case "csv":
		return export.WriteCSV(cmd.OutOrStdout(), recs)
	}
	return fmt.Errorf("unknown format %q", journalOpts.format)
}
