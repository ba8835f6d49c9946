package builtin

import (
	"context"

	"slnlint/internal/diag"
	"slnlint/internal/index"
	"slnlint/internal/rules"
)

func init() {
	rules.RegisterDef(rules.RuleDef{
		ID:          "duplicate-declaration",
		Name:        "Duplicate declaration",
		Group:       GroupStructure,
		Description: "Type declared more than once in one project",
		Severity:    diag.SevError,
		Check:       checkDuplicateDeclaration,
	})
}

// A repeat is allowed only when both declarations are C# partial types,
// in the same file or not.
func checkDuplicateDeclaration(ctx context.Context, p *rules.Pass) ([]diag.Diagnostic, error) {
	type key struct{ project, qualified string }
	first := make(map[key]index.Decl)

	var out []diag.Diagnostic
	for _, d := range p.Index.AllDeclarations() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !d.Kind.IsType() {
			continue
		}
		k := key{project: d.Project, qualified: d.Qualified}
		prev, seen := first[k]
		if !seen {
			first[k] = d
			continue
		}
		if d.Partial && prev.Partial {
			continue
		}
		dg := p.Diag(rules.At(d.Span), "%s is already declared at %s", describe(d), rules.At(prev.Span))
		dg.Symbol = symbol(d)
		out = append(out, dg)
	}
	return out, nil
}
