// Package builtin registers the rules that ship with slnlint. Import it
// for its side effects.
package builtin

import (
	"slnlint/internal/extractor"
	"slnlint/internal/index"
)

// Rule groups.
const (
	GroupUsage      = "usage"
	GroupStructure  = "structure"
	GroupStyle      = "style"
	GroupResolution = "resolution"
)

// symbol returns the stable id reported with findings about d.
func symbol(d index.Decl) string {
	return extractor.StableSymbolID(d.Project, d.Declaration)
}

func describe(d index.Decl) string {
	return string(d.Kind) + " " + d.Qualified
}
