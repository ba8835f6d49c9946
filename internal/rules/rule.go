// Package rules runs independently registered analysis rules over the
// symbol index and the project graph.
package rules

import (
	"context"
	"fmt"

	"slnlint/internal/diag"
	"slnlint/internal/extractor"
	"slnlint/internal/graph"
	"slnlint/internal/index"
	"slnlint/internal/solution"
)

// Rule is one analysis. Check must not modify the pass inputs and must
// not depend on other rules.
type Rule interface {
	ID() string
	Name() string
	Group() string
	Description() string
	DefaultSeverity() diag.Severity
	ConfigKeys() []string
	Check(ctx context.Context, p *Pass) ([]diag.Diagnostic, error)
}

// CheckFunc is the body of a RuleDef.
type CheckFunc func(ctx context.Context, p *Pass) ([]diag.Diagnostic, error)

// RuleDef is a data-driven rule definition. Wrap turns it into a Rule.
type RuleDef struct {
	ID          string
	Name        string
	Group       string
	Description string
	Severity    diag.Severity
	ConfigKeys  []string
	Check       CheckFunc
}

type defRule struct {
	def RuleDef
}

// Wrap adapts a RuleDef to the Rule interface.
func Wrap(def RuleDef) Rule {
	return &defRule{def: def}
}

func (r *defRule) ID() string                     { return r.def.ID }
func (r *defRule) Name() string                   { return r.def.Name }
func (r *defRule) Group() string                  { return r.def.Group }
func (r *defRule) Description() string            { return r.def.Description }
func (r *defRule) DefaultSeverity() diag.Severity { return r.def.Severity }
func (r *defRule) ConfigKeys() []string           { return r.def.ConfigKeys }

func (r *defRule) Check(ctx context.Context, p *Pass) ([]diag.Diagnostic, error) {
	if r.def.Check == nil {
		return nil, fmt.Errorf("rule %s has no check function", r.def.ID)
	}
	return r.def.Check(ctx, p)
}

// Unwrap returns the definition behind a wrapped rule.
func (r *defRule) Unwrap() RuleDef { return r.def }

// Input is what every rule reads.
type Input struct {
	Index    *index.Index
	Graph    *graph.Graph
	Projects []solution.Project
}

// Pass is the read-only view one rule gets.
type Pass struct {
	Input
	Rule     Rule
	Severity diag.Severity
	Options  map[string]any
}

// Project looks up a project by id.
func (p *Pass) Project(id string) (solution.Project, bool) {
	for _, pr := range p.Projects {
		if pr.ID == id {
			return pr, true
		}
	}
	return solution.Project{}, false
}

// Diag builds a diagnostic for the running rule at the effective severity.
func (p *Pass) Diag(loc diag.Location, format string, args ...any) diag.Diagnostic {
	return diag.Diagnostic{
		RuleID:   p.Rule.ID(),
		Severity: p.Severity,
		Message:  fmt.Sprintf(format, args...),
		Location: loc,
	}
}

// At converts a source span into a diagnostic location.
func At(s extractor.Span) diag.Location {
	return diag.Location{File: s.File, Line: s.Line, Column: s.Column}
}
