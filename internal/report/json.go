package report

import (
	"encoding/json"
	"io"

	"slnlint/internal/diag"
)

// writeJSON emits JSON Lines, one diagnostic per line.
func writeJSON(w io.Writer, diags []diag.Diagnostic, opts Options) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for _, d := range diags {
		d.Location = opts.relative(d.Location)
		if err := enc.Encode(d); err != nil {
			return err
		}
	}
	return nil
}
