package main

import (
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"slnlint/internal/progress"
	"slnlint/internal/report"
	"slnlint/internal/storage"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded analysis runs",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

var (
	historyLimit int
	historyRun   string
)

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of runs to show (0 for all)")
	historyCmd.Flags().StringVar(&historyRun, "run", "", "print the diagnostics of one run")
	historyCmd.Flags().String("database", "", "history database path")
}

func runHistory(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	path, err := configFrom(ctx).HistoryPath()
	if err != nil {
		return err
	}
	store, err := storage.NewSQLiteStore(path)
	if err != nil {
		return err
	}
	defer store.Close()

	if historyRun != "" {
		ds, err := store.RunDiagnostics(ctx, historyRun)
		if err != nil {
			return err
		}
		return report.Write(cmd.OutOrStdout(), report.FormatText, ds, report.Options{})
	}

	runs, err := store.ListRuns(ctx, historyLimit)
	if err != nil {
		return err
	}
	t := report.NewTable(cmd.OutOrStdout(), "Run", "Started", "Solution", "State", "Took", "Errors", "Warnings", "Exit")
	for _, r := range runs {
		t.AppendRow([]any{
			r.ID,
			r.Started.Local().Format(time.DateTime),
			filepath.Base(r.Solution),
			r.State,
			progress.FormatElapsed(r.Duration),
			r.Errors,
			r.Warnings,
			r.ExitCode,
		})
	}
	t.Render()
	return nil
}
