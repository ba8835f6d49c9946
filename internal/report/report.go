// Package report renders diagnostics for people and tools.
package report

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"slnlint/internal/diag"
	"slnlint/internal/rules"
)

type Format string

const (
	FormatText  Format = "text"
	FormatJSON  Format = "json"
	FormatSARIF Format = "sarif"
	FormatTable Format = "table"
)

var Formats = []Format{FormatText, FormatJSON, FormatSARIF, FormatTable}

func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown format %q (want text, json, sarif or table)", s)
}

// Options tune the output.
type Options struct {
	// Color enables ANSI colors in the text format.
	Color bool
	// BaseDir makes file paths relative when set.
	BaseDir string
	// Rules describes the rules that ran, for formats that list them.
	Rules   []rules.Rule
	Tool    string
	Version string
}

// Write renders diags, which are expected in diag.Sort order.
func Write(w io.Writer, format Format, diags []diag.Diagnostic, opts Options) error {
	switch format {
	case FormatText, "":
		return writeText(w, diags, opts)
	case FormatJSON:
		return writeJSON(w, diags, opts)
	case FormatSARIF:
		return writeSARIF(w, diags, opts)
	case FormatTable:
		return writeTable(w, diags, opts)
	}
	return fmt.Errorf("unknown format %q", format)
}

func (o Options) tool() string {
	if o.Tool == "" {
		return "slnlint"
	}
	return o.Tool
}

// relative rewrites the location file against BaseDir.
func (o Options) relative(loc diag.Location) diag.Location {
	if o.BaseDir == "" || loc.File == "" || !filepath.IsAbs(loc.File) {
		return loc
	}
	if rel, err := filepath.Rel(o.BaseDir, loc.File); err == nil && !strings.HasPrefix(rel, "..") {
		loc.File = rel
	}
	return loc
}
