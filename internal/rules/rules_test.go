package rules

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slnlint/internal/diag"
	"slnlint/internal/graph"
	"slnlint/internal/index"
)

func emit(id string, group string, sev diag.Severity, locs ...diag.Location) Rule {
	return Wrap(RuleDef{
		ID: id, Name: id, Group: group, Severity: sev,
		Check: func(ctx context.Context, p *Pass) ([]diag.Diagnostic, error) {
			var out []diag.Diagnostic
			for _, l := range locs {
				out = append(out, p.Diag(l, "found at line %d", l.Line))
			}
			return out, nil
		},
	})
}

func input() Input {
	g := graph.New()
	return Input{Index: index.Build(g, nil), Graph: g}
}

func TestRun_SortedAndDeterministic(t *testing.T) {
	rs := []Rule{
		emit("zz", "style", diag.SevWarning, diag.Location{File: "a.go", Line: 3, Column: 1}, diag.Location{File: "b.go", Line: 1, Column: 1}),
		emit("aa", "style", diag.SevError, diag.Location{File: "a.go", Line: 3, Column: 1}, diag.Location{File: "a.go", Line: 1, Column: 9}),
	}

	first, err := Run(context.Background(), rs, input(), nil, 4)
	require.NoError(t, err)

	var got []string
	for _, d := range first {
		got = append(got, d.String())
	}
	assert.Equal(t, []string{
		"a.go:1:9: error: found at line 1 [aa]",
		"a.go:3:1: error: found at line 3 [aa]",
		"a.go:3:1: warning: found at line 3 [zz]",
		"b.go:1:1: warning: found at line 1 [zz]",
	}, got)

	for range 10 {
		again, err := Run(context.Background(), rs, input(), nil, 3)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestRun_FailingRules(t *testing.T) {
	rs := []Rule{
		emit("ok", "g", diag.SevWarning, diag.Location{File: "x.go", Line: 2, Column: 1}),
		Wrap(RuleDef{ID: "boom", Group: "g", Check: func(context.Context, *Pass) ([]diag.Diagnostic, error) {
			panic("index out of range")
		}}),
		Wrap(RuleDef{ID: "broken", Group: "g", Check: func(_ context.Context, p *Pass) ([]diag.Diagnostic, error) {
			return []diag.Diagnostic{p.Diag(diag.Location{File: "x.go", Line: 1}, "partial")}, errors.New("no data")
		}}),
		Wrap(RuleDef{ID: "empty", Group: "g"}),
	}

	ds, err := Run(context.Background(), rs, input(), nil, 2)
	require.NoError(t, err)

	byRule := map[string][]diag.Diagnostic{}
	for _, d := range ds {
		byRule[d.RuleID] = append(byRule[d.RuleID], d)
	}
	require.Len(t, byRule["boom"], 1)
	assert.Equal(t, diag.SevError, byRule["boom"][0].Severity)
	assert.Equal(t, "rule boom failed: panic: index out of range", byRule["boom"][0].Message)

	require.Len(t, byRule["broken"], 1)
	assert.Equal(t, "rule broken failed: no data", byRule["broken"][0].Message)

	require.Len(t, byRule["empty"], 1)
	assert.Contains(t, byRule["empty"][0].Message, "no check function")

	require.Len(t, byRule["ok"], 1)
	assert.True(t, diag.HasErrors(ds))
}

func TestRun_SeverityOverride(t *testing.T) {
	rs := []Rule{emit("r1", "g", diag.SevWarning, diag.Location{File: "a.go", Line: 1, Column: 1})}
	cfg := &Config{Severity: map[string]diag.Severity{"r1": diag.SevInfo}}

	ds, err := Run(context.Background(), rs, input(), cfg, 1)
	require.NoError(t, err)
	require.Len(t, ds, 1)
	assert.Equal(t, diag.SevInfo, ds[0].Severity)
}

func TestRun_Options(t *testing.T) {
	var seen map[string]any
	r := Wrap(RuleDef{ID: "opt", Group: "g", Check: func(_ context.Context, p *Pass) ([]diag.Diagnostic, error) {
		seen = p.Options
		return nil, nil
	}})
	cfg := &Config{Options: map[string]map[string]any{"opt": {"limit": 3.0, "strict": "true", "names": []any{"a", "b"}}}}

	_, err := Run(context.Background(), []Rule{r}, input(), cfg, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, GetIntOption(seen, "limit", 0))
	assert.True(t, GetBoolOption(seen, "strict", false))
	assert.Equal(t, []string{"a", "b"}, GetStringSliceOption(seen, "names", nil))
	assert.Equal(t, "x", GetOption(seen, "missing", "x"))
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var ran atomic.Int32
	slow := func(id string) Rule {
		return Wrap(RuleDef{ID: id, Group: "g", Check: func(ctx context.Context, p *Pass) ([]diag.Diagnostic, error) {
			ran.Add(1)
			cancel()
			return []diag.Diagnostic{p.Diag(diag.Location{}, "x")}, nil
		}})
	}

	ds, err := Run(ctx, []Rule{slow("a"), slow("b"), slow("c")}, input(), nil, 1)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, ds)
	assert.Equal(t, int32(1), ran.Load())
}

func TestRun_Bounded(t *testing.T) {
	var inflight, peak atomic.Int32
	var rs []Rule
	for _, id := range []string{"r1", "r2", "r3", "r4", "r5"} {
		rs = append(rs, Wrap(RuleDef{ID: id, Group: "g", Check: func(context.Context, *Pass) ([]diag.Diagnostic, error) {
			n := inflight.Add(1)
			defer inflight.Add(-1)
			for {
				old := peak.Load()
				if n <= old || peak.CompareAndSwap(old, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			return nil, nil
		}}))
	}
	_, err := Run(context.Background(), rs, input(), nil, 2)
	require.NoError(t, err)
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestConfig_Select(t *testing.T) {
	all := []Rule{
		emit("unused", "usage", diag.SevWarning),
		emit("naming", "style", diag.SevWarning),
		emit("cycles", "structure", diag.SevError),
	}
	ids := func(rs []Rule) []string {
		var out []string
		for _, r := range rs {
			out = append(out, r.ID())
		}
		return out
	}

	tests := []struct {
		name    string
		cfg     *Config
		want    []string
		wantErr bool
	}{
		{"nil config", nil, []string{"cycles", "naming", "unused"}, false},
		{"enable by id", &Config{Enable: []string{"naming"}}, []string{"naming"}, false},
		{"enable by group", &Config{Enable: []string{"usage", "structure"}}, []string{"cycles", "unused"}, false},
		{"disable wins", &Config{Enable: []string{"style"}, Disable: []string{"naming"}}, nil, false},
		{"unknown id", &Config{Disable: []string{"ghost"}}, nil, true},
		{"unknown severity key", &Config{Severity: map[string]diag.Severity{"ghost": diag.SevInfo}}, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.cfg.Select(all)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownRule)
				assert.Contains(t, err.Error(), "ghost")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestRegistry(t *testing.T) {
	Clear()
	t.Cleanup(Clear)

	RegisterDef(RuleDef{ID: "b", Group: "g1"})
	RegisterDef(RuleDef{ID: "a", Group: "g2"})
	Register(emit("c", "g1", diag.SevInfo))

	var ids []string
	for _, r := range GetAll() {
		ids = append(ids, r.ID())
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids)

	r, ok := GetByID("a")
	require.True(t, ok)
	assert.Equal(t, "g2", r.Group())
	assert.Equal(t, RuleDef{ID: "a", Group: "g2"}, r.(interface{ Unwrap() RuleDef }).Unwrap())

	assert.Len(t, GetByGroup("g1"), 2)
	assert.Panics(t, func() { RegisterDef(RuleDef{}) })
}
