package main

import (
	"github.com/spf13/cobra"

	"slnlint/internal/report"
	"slnlint/internal/rules"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "List the registered rules",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		t := report.NewTable(cmd.OutOrStdout(), "ID", "Group", "Severity", "Description")
		for _, r := range rules.GetAll() {
			t.AppendRow([]any{r.ID(), r.Group(), r.DefaultSeverity(), r.Description()})
		}
		t.Render()
		return nil
	},
}
