// Package analysis maps source changes onto the projects and
// declarations they affect.
package analysis

import (
	"path/filepath"
	"slices"
	"strings"

	"slnlint/internal/diag"
	"slnlint/internal/git"
	"slnlint/internal/graph"
	"slnlint/internal/index"
	"slnlint/internal/solution"
)

// ImpactReport summarizes what the changes affect.
type ImpactReport struct {
	// Direct lists projects owning a changed file, in topological order.
	Direct []string
	// Indirect lists projects that transitively depend on a direct one.
	Indirect []string
	// Unowned lists changed files no project claims.
	Unowned []string

	// Declarations whose span contains a changed line.
	Declarations []index.DeclID
	// Callers are declarations elsewhere that refer to a changed one.
	Callers []index.DeclID
}

// Analyzer performs impact analysis on a solution.
type Analyzer struct {
	desc *solution.Descriptor
	g    *graph.Graph
	ix   *index.Index
}

// NewAnalyzer creates an analyzer. ix may be nil, in which case only
// project impact is computed.
func NewAnalyzer(desc *solution.Descriptor, g *graph.Graph, ix *index.Index) *Analyzer {
	return &Analyzer{desc: desc, g: g, ix: ix}
}

// Owner returns the project a file belongs to. Explicit source lists win;
// otherwise the project with the deepest root containing the file.
func (a *Analyzer) Owner(file string) (string, bool) {
	file = filepath.Clean(file)
	for _, p := range a.desc.Projects {
		if slices.Contains(p.Sources, file) {
			return p.ID, true
		}
	}
	best, depth := "", -1
	for _, p := range a.desc.Projects {
		if p.Root == "" {
			continue
		}
		root := filepath.Clean(p.Root)
		if !within(root, file) {
			continue
		}
		if d := strings.Count(root, string(filepath.Separator)); d > depth {
			best, depth = p.ID, d
		}
	}
	return best, depth >= 0
}

func within(root, file string) bool {
	rel, err := filepath.Rel(root, file)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// AnalyzeImpact identifies which projects and declarations the changes affect.
func (a *Analyzer) AnalyzeImpact(changes []git.ChangedFile) *ImpactReport {
	report := &ImpactReport{}

	direct := make(map[string]bool)
	for _, change := range changes {
		if id, ok := a.Owner(change.Path); ok {
			direct[id] = true
		} else {
			report.Unowned = append(report.Unowned, change.Path)
		}
	}

	indirect := make(map[string]bool)
	for id := range direct {
		for _, dep := range a.g.TransitiveDependents(id) {
			if !direct[dep] {
				indirect[dep] = true
			}
		}
	}
	for _, id := range a.g.TopologicalOrder() {
		switch {
		case direct[id]:
			report.Direct = append(report.Direct, id)
		case indirect[id]:
			report.Indirect = append(report.Indirect, id)
		}
	}
	slices.Sort(report.Unowned)

	if a.ix != nil {
		report.Declarations, report.Callers = a.symbols(git.NewChanges(changes))
	}
	return report
}

func (a *Analyzer) symbols(changes git.Changes) (affected, callers []index.DeclID) {
	byFile := make(map[string][]index.DeclID)
	hit := make(map[index.DeclID]bool)
	for id, d := range a.ix.AllDeclarations() {
		byFile[d.Span.File] = append(byFile[d.Span.File], id)
		if changes.Overlaps(d.Span.File, d.Span.Line, max(d.Span.Line, d.Span.EndLine)) {
			affected = append(affected, id)
			hit[id] = true
		}
	}

	seen := make(map[index.DeclID]bool)
	for _, id := range affected {
		for ref := range a.ix.ReferencesTo(id) {
			r, _ := a.ix.Ref(ref)
			caller := enclosing(a.ix, byFile[r.Span.File], r.Span.Line)
			if caller.IsValid() && !hit[caller] && !seen[caller] {
				seen[caller] = true
				callers = append(callers, caller)
			}
		}
	}
	slices.Sort(callers)
	return affected, callers
}

// enclosing returns the innermost declaration of the file spanning line.
func enclosing(ix *index.Index, decls []index.DeclID, line int) index.DeclID {
	best, size := index.NoDecl, -1
	for _, id := range decls {
		d, _ := ix.Decl(id)
		end := max(d.Span.Line, d.Span.EndLine)
		if line < d.Span.Line || line > end {
			continue
		}
		if s := end - d.Span.Line; size < 0 || s < size {
			best, size = id, s
		}
	}
	return best
}

// FilterDiagnostics keeps the diagnostics that sit on changed lines.
// Findings without a position are kept when their file changed, and
// findings about the whole solution are always kept.
func FilterDiagnostics(ds []diag.Diagnostic, changes git.Changes) []diag.Diagnostic {
	var out []diag.Diagnostic
	for _, d := range ds {
		loc := d.Location
		switch {
		case loc.File == "":
		case loc.Line == 0:
			if !changes.Touches(loc.File) {
				continue
			}
		case !changes.Overlaps(loc.File, loc.Line, loc.Line):
			continue
		}
		out = append(out, d)
	}
	return out
}
