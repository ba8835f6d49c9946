package report

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"slnlint/internal/diag"
)

type palette struct {
	sev  map[diag.Severity]*color.Color
	loc  *color.Color
	rule *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		sev: map[diag.Severity]*color.Color{
			diag.SevError:   color.New(color.FgRed, color.Bold),
			diag.SevWarning: color.New(color.FgYellow, color.Bold),
			diag.SevInfo:    color.New(color.FgCyan),
		},
		loc:  color.New(color.Bold),
		rule: color.New(color.Faint),
	}
	for _, c := range []*color.Color{p.sev[diag.SevError], p.sev[diag.SevWarning], p.sev[diag.SevInfo], p.loc, p.rule} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p palette) severity(s diag.Severity) *color.Color {
	if c, ok := p.sev[s]; ok {
		return c
	}
	return p.sev[diag.SevInfo]
}

// writeText prints file:line:col: severity: message [rule].
func writeText(w io.Writer, diags []diag.Diagnostic, opts Options) error {
	p := newPalette(opts.Color)
	for _, d := range diags {
		_, err := fmt.Fprintf(w, "%s: %s: %s %s\n",
			p.loc.Sprint(opts.relative(d.Location)),
			p.severity(d.Severity).Sprint(d.Severity),
			d.Message,
			p.rule.Sprintf("[%s]", d.RuleID))
		if err != nil {
			return err
		}
	}
	return nil
}
