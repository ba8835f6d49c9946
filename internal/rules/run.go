package rules

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"slnlint/internal/diag"
)

// Run executes every rule against in with at most jobs rules at a time.
// A rule that returns an error or panics contributes exactly one error
// diagnostic instead of its findings. The result is sorted and does not
// depend on completion order. If ctx is cancelled, Run returns ctx.Err()
// and no diagnostics.
func Run(ctx context.Context, rs []Rule, in Input, cfg *Config, jobs int) ([]diag.Diagnostic, error) {
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	col := diag.NewCollector()

	grp := new(errgroup.Group)
	grp.SetLimit(jobs)
	for _, r := range rs {
		grp.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			col.Add(runOne(ctx, r, in, cfg)...)
			return nil
		})
	}
	_ = grp.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return col.Sorted(), nil
}

func runOne(ctx context.Context, r Rule, in Input, cfg *Config) (out []diag.Diagnostic) {
	defer func() {
		if v := recover(); v != nil {
			out = []diag.Diagnostic{failure(r, fmt.Errorf("panic: %v", v))}
		}
	}()

	sev := cfg.SeverityFor(r)
	pass := &Pass{
		Input:    in,
		Rule:     r,
		Severity: sev,
		Options:  cfg.OptionsFor(r.ID()),
	}
	ds, err := r.Check(ctx, pass)
	if err != nil {
		return []diag.Diagnostic{failure(r, err)}
	}
	_, overridden := cfg.severity(r.ID())
	for i := range ds {
		ds[i].RuleID = r.ID()
		if overridden {
			ds[i].Severity = sev
		}
	}
	return ds
}

// failure is the diagnostic reported for a rule that could not finish.
func failure(r Rule, cause error) diag.Diagnostic {
	return diag.Diagnostic{
		RuleID:   r.ID(),
		Severity: diag.SevError,
		Message:  fmt.Sprintf("rule %s failed: %v", r.ID(), cause),
	}
}
