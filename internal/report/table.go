package report

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"

	"slnlint/internal/diag"
)

// NewTable returns a table writer in the style every slnlint table uses.
func NewTable(w io.Writer, header ...any) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	if len(header) > 0 {
		t.AppendHeader(table.Row(header))
	}
	return t
}

func writeTable(w io.Writer, diags []diag.Diagnostic, opts Options) error {
	if len(diags) == 0 {
		_, err := fmt.Fprintln(w, "(no diagnostics)")
		return err
	}
	t := NewTable(w, "Severity", "Location", "Rule", "Message")
	for _, d := range diags {
		t.AppendRow(table.Row{d.Severity, opts.relative(d.Location), d.RuleID, d.Message})
	}
	t.Render()
	return nil
}
