package builtin

import (
	"context"
	"slices"

	"slnlint/internal/diag"
	"slnlint/internal/index"
	"slnlint/internal/rules"
)

func init() {
	rules.RegisterDef(rules.RuleDef{
		ID:          "unresolved-reference",
		Name:        "Unresolved reference",
		Group:       GroupResolution,
		Description: "Reference that matches no declaration or several unrelated ones",
		Severity:    diag.SevInfo,
		ConfigKeys:  []string{"ignore_qualifiers", "include_members"},
		Check:       checkUnresolvedReference,
	})
}

func checkUnresolvedReference(ctx context.Context, p *rules.Pass) ([]diag.Diagnostic, error) {
	ignore := rules.GetStringSliceOption(p.Options, "ignore_qualifiers", nil)
	members := rules.GetBoolOption(p.Options, "include_members", false)

	var out []diag.Diagnostic
	for _, id := range p.Index.Unresolved() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r, _ := p.Index.Ref(id)
		if r.Qualifier != "" && slices.Contains(ignore, r.Qualifier) {
			continue
		}
		name := r.Name
		if r.Qualifier != "" {
			name = r.Qualifier + "." + r.Name
		}
		switch r.Reason {
		case index.ReasonAmbiguous:
			out = append(out, p.Diag(rules.At(r.Span), "%s is ambiguous: %d candidates", name, len(r.Candidates)))
		case index.ReasonNoCandidate:
			if r.Member && !members {
				continue
			}
			out = append(out, p.Diag(rules.At(r.Span), "cannot resolve %s", name))
		}
	}
	return out, nil
}
