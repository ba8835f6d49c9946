package builtin

import (
	"context"

	"slnlint/internal/diag"
	"slnlint/internal/rules"
)

func init() {
	rules.RegisterDef(rules.RuleDef{
		ID:          "unused-project-dependency",
		Name:        "Unused project dependency",
		Group:       GroupStructure,
		Description: "Declared project dependency that no reference uses",
		Severity:    diag.SevWarning,
		Check:       checkUnusedProjectDependency,
	})
}

func checkUnusedProjectDependency(ctx context.Context, p *rules.Pass) ([]diag.Diagnostic, error) {
	indexed := make(map[string]bool)
	for _, id := range p.Index.Projects() {
		indexed[id] = true
	}

	var out []diag.Diagnostic
	for _, pr := range p.Projects {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !indexed[pr.ID] {
			continue
		}

		// projects whose declarations the references of pr resolved to
		used := make(map[string]bool)
		if ps, ok := p.Index.Project(pr.ID); ok {
			for _, rid := range ps.References {
				if t := p.Index.Target(rid); t.IsValid() {
					d, _ := p.Index.Decl(t)
					used[d.Project] = true
				}
			}
		}

		for _, dep := range p.Graph.DependsOn(pr.ID) {
			if !indexed[dep] || used[dep] {
				continue
			}
			through := false
			for _, sub := range p.Graph.TransitiveDependencies(dep) {
				if used[sub] {
					through = true
					break
				}
			}
			if through {
				continue
			}
			out = append(out, p.Diag(diag.Location{File: pr.Descriptor},
				"project %s depends on %s but never uses it", pr.ID, dep))
		}
	}
	return out, nil
}
