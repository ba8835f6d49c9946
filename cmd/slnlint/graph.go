package main

import (
	"github.com/spf13/cobra"

	"slnlint/internal/loader"
	"slnlint/internal/report"
)

var graphCmd = &cobra.Command{
	Use:   "graph [descriptor]",
	Short: "Show the project dependency graph in build order",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		desc, err := loadSolution(configFrom(cmd.Context()), args)
		if err != nil {
			return err
		}
		g, err := loader.BuildGraph(desc)
		if err != nil {
			return err
		}

		t := report.NewTable(cmd.OutOrStdout(), "Level", "Project", "Depends on", "Fan-in", "Fan-out")
		for _, m := range g.Metrics() {
			deps := g.DependsOn(m.ID)
			t.AppendRow([]any{m.Level, m.ID, joinOrDash(deps), m.FanIn, m.FanOut})
		}
		t.Render()
		return nil
	},
}
