package builtin

import (
	"context"
	"strings"

	"slnlint/internal/diag"
	"slnlint/internal/index"
	"slnlint/internal/rules"
)

func init() {
	rules.RegisterDef(rules.RuleDef{
		ID:          "illegal-dependency",
		Name:        "Illegal dependency",
		Group:       GroupStructure,
		Description: "Reference to a project the referencing project does not depend on",
		Severity:    diag.SevError,
		Check:       checkIllegalDependency,
	})
}

func checkIllegalDependency(ctx context.Context, p *rules.Pass) ([]diag.Diagnostic, error) {
	var out []diag.Diagnostic
	for _, id := range p.Index.Unresolved() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r, _ := p.Index.Ref(id)
		if r.Reason != index.ReasonNotVisible {
			continue
		}
		var owners []string
		illegal := true
		for _, c := range r.Candidates {
			d, _ := p.Index.Decl(c)
			if d.Project == r.Project || p.Graph.Reaches(r.Project, d.Project) {
				illegal = false
				break
			}
			owners = appendUnique(owners, d.Project)
		}
		if !illegal || len(owners) == 0 {
			continue
		}
		first, _ := p.Index.Decl(r.Candidates[0])
		out = append(out, p.Diag(rules.At(r.Span),
			"%s refers to %s in project %s, which %s does not depend on",
			r.Project, first.Qualified, strings.Join(owners, ", "), r.Project))
	}
	return out, nil
}

func appendUnique(list []string, s string) []string {
	for _, x := range list {
		if x == s {
			return list
		}
	}
	return append(list, s)
}
