package builtin

import (
	"context"

	"slnlint/internal/diag"
	"slnlint/internal/index"
	"slnlint/internal/rules"
)

func init() {
	rules.RegisterDef(rules.RuleDef{
		ID:          "unused-declaration",
		Name:        "Unused declaration",
		Group:       GroupUsage,
		Description: "Non-public declaration that nothing references",
		Severity:    diag.SevWarning,
		ConfigKeys:  []string{"include_public"},
		Check:       checkUnusedDeclaration,
	})
}

var entryPoints = map[string]bool{"main": true, "Main": true, "init": true}

func checkUnusedDeclaration(ctx context.Context, p *rules.Pass) ([]diag.Diagnostic, error) {
	includePublic := rules.GetBoolOption(p.Options, "include_public", false)

	var out []diag.Diagnostic
	for id, d := range p.Index.AllDeclarations() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !includePublic && d.Visibility.Exported() {
			continue
		}
		if entryPoints[d.Name] || d.Name == "_" || !unused(p.Index, id) {
			continue
		}
		dg := p.Diag(rules.At(d.Span), "%s is never used", describe(d))
		dg.Symbol = symbol(d)
		out = append(out, dg)
	}
	return out, nil
}

// unused is true when no reference resolved to id. A reference from the
// declaration's own span (recursion) does not count.
func unused(ix *index.Index, id index.DeclID) bool {
	d, _ := ix.Decl(id)
	for rid := range ix.ReferencesTo(id) {
		r, _ := ix.Ref(rid)
		if !within(r.Span.File, r.Span.Line, d) {
			return false
		}
	}
	return true
}

func within(file string, line int, d index.Decl) bool {
	return file == d.Span.File && line >= d.Span.Line && line <= d.Span.EndLine
}
