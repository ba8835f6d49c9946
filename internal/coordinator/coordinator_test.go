package coordinator

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slnlint/internal/diag"
	"slnlint/internal/extractor"
	"slnlint/internal/graph"
	"slnlint/internal/index"
	"slnlint/internal/progress"
	"slnlint/internal/rules"
	_ "slnlint/internal/rules/builtin"
	"slnlint/internal/solution"
	"slnlint/internal/testutil"
)

var abcTree = map[string]string{
	"slnlint.toml": `name = "abc"

[[project]]
id = "a"
language = "go"

[[project]]
id = "b"
language = "go"
depends_on = ["a"]

[[project]]
id = "c"
language = "go"
depends_on = ["b"]
`,
	"a/a.go": `package a

import "example.com/c"

func Base() int { return 1 }

func Reach() int { return c.Top() }
`,
	"b/b.go": `package b

import "example.com/a"

func Mid() int { return a.Base() }
`,
	"c/c.go": `package c

import "example.com/a"

func Top() int { return a.Base() + 1 }
`,
}

func loadABC(t *testing.T) *solution.Descriptor {
	t.Helper()
	dir := t.TempDir()
	testutil.WriteTree(t, dir, abcTree)
	desc, err := solution.Load(dir)
	require.NoError(t, err)
	return desc
}

func findRef(t *testing.T, ix *index.Index, project, name string) index.Ref {
	t.Helper()
	for _, r := range ix.AllReferences() {
		if r.Project == project && r.Name == name {
			return r
		}
	}
	t.Fatalf("no reference to %s in %s", name, project)
	return index.Ref{}
}

func TestCoordinator_AnalyzesSolution(t *testing.T) {
	desc := loadABC(t)
	c := New(extractor.New(), WithLogger(testutil.NewTestLogger(t)))

	run, err := c.Run(context.Background(), desc)
	require.NoError(t, err)
	assert.Equal(t, Done, run.State)
	assert.NotEmpty(t, run.ID)
	assert.Empty(t, run.LoadErrors)
	assert.Len(t, run.Load.Loaded(), 3)

	t.Run("Transitive resolution", func(t *testing.T) {
		ref := findRef(t, run.Index, "c", "Base")
		require.True(t, ref.Target.IsValid())
		target, _ := run.Index.Decl(ref.Target)
		assert.Equal(t, "a", target.Project)
	})

	t.Run("Reference against the dependency direction", func(t *testing.T) {
		ref := findRef(t, run.Index, "a", "Top")
		assert.False(t, ref.Target.IsValid())
		assert.Equal(t, index.ReasonNotVisible, ref.Reason)
	})

	t.Run("Diagnostics", func(t *testing.T) {
		require.Len(t, run.Diagnostics, 1)
		d := run.Diagnostics[0]
		assert.Equal(t, "illegal-dependency", d.RuleID)
		assert.Equal(t, diag.SevError, d.Severity)
		assert.Equal(t, filepath.Join(desc.Dir, "a", "a.go"), d.Location.File)
		assert.Equal(t, 1, run.ExitCode())
	})

	t.Run("Repeatable", func(t *testing.T) {
		again, err := c.Run(context.Background(), loadABC(t))
		require.NoError(t, err)
		require.Len(t, again.Diagnostics, 1)
		assert.Equal(t, run.Diagnostics[0].Message, again.Diagnostics[0].Message)
		assert.NotEqual(t, run.ID, again.ID)
	})
}

// fakeFrontend declares one exported function per file, named after the
// file's base name.
type fakeFrontend struct {
	fail map[string]error
	hook func(ctx context.Context, path string) error
}

func (f *fakeFrontend) ParseFile(ctx context.Context, path string) (*extractor.FileSymbols, error) {
	if f.hook != nil {
		if err := f.hook(ctx, path); err != nil {
			return nil, err
		}
	}
	if err := f.fail[path]; err != nil {
		return nil, err
	}
	name := filepath.Base(path)
	return &extractor.FileSymbols{
		Path:      path,
		Language:  "go",
		Namespace: filepath.Dir(path),
		Declarations: []extractor.Declaration{{
			Name: name, Qualified: name, Namespace: filepath.Dir(path), Kind: extractor.KindFunction,
			Visibility: extractor.Public, Language: "go", Span: extractor.Span{File: path, Line: 1, Column: 1},
		}},
	}, nil
}

func project(id string, deps ...string) solution.Project {
	return solution.Project{ID: id, Sources: []string{id + "/Main"}, DependsOn: deps}
}

// perDecl reports every declaration it sees.
var perDecl = rules.Wrap(rules.RuleDef{
	ID:       "per-decl",
	Name:     "Per declaration",
	Group:    "test",
	Severity: diag.SevInfo,
	Check: func(ctx context.Context, p *rules.Pass) ([]diag.Diagnostic, error) {
		var out []diag.Diagnostic
		for _, d := range p.Index.AllDeclarations() {
			out = append(out, p.Diag(rules.At(d.Span), "%s in %s", d.Name, d.Project))
		}
		return out, nil
	},
})

func TestCoordinator_FailedProjectDoesNotStopOthers(t *testing.T) {
	fe := &fakeFrontend{fail: map[string]error{"b/Main": errors.New("boom")}}
	desc := &solution.Descriptor{Name: "sln", Projects: []solution.Project{
		project("a"), project("b", "a"), project("c", "b"), project("d", "a"),
	}}

	run, err := New(fe, WithRules(perDecl)).Run(context.Background(), desc)
	require.NoError(t, err)
	assert.Equal(t, Done, run.State)
	assert.Equal(t, []string{"c"}, run.Unresolved())
	require.Len(t, run.LoadErrors, 1)
	assert.Equal(t, "b", run.LoadErrors[0].ProjectID)

	var msgs []string
	for _, d := range run.Diagnostics {
		msgs = append(msgs, d.Message)
	}
	assert.Equal(t, []string{"Main in a", "Main in d"}, msgs)
	assert.Equal(t, 1, run.ExitCode())
}

func TestCoordinator_Cycle(t *testing.T) {
	desc := &solution.Descriptor{Name: "sln", Projects: []solution.Project{
		project("a", "b"), project("b", "a"),
	}}
	run, err := New(&fakeFrontend{}, WithRules(perDecl)).Run(context.Background(), desc)

	var cycle *graph.CycleError
	require.ErrorAs(t, err, &cycle)
	assert.Equal(t, Failed, run.State)
	assert.Nil(t, run.Diagnostics)
	assert.Equal(t, 2, run.ExitCode())
}

func TestCoordinator_InvalidDescriptor(t *testing.T) {
	desc := &solution.Descriptor{Name: "sln", Projects: []solution.Project{project("a", "ghost")}}
	run, err := New(&fakeFrontend{}, WithRules(perDecl)).Run(context.Background(), desc)
	require.NoError(t, err)
	assert.Equal(t, Done, run.State)
	require.Len(t, run.LoadErrors, 1)
	assert.ErrorIs(t, run.LoadErrors[0], solution.ErrUnknownDependency)
	assert.Empty(t, run.Diagnostics)
	assert.Equal(t, 1, run.ExitCode())
}

func TestCoordinator_CancelDuringLoad(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	fe := &fakeFrontend{hook: func(ctx context.Context, path string) error {
		if path == "b/Main" {
			cancel()
			return ctx.Err()
		}
		return nil
	}}
	desc := &solution.Descriptor{Name: "sln", Projects: []solution.Project{
		project("a"), project("b", "a"), project("c", "b"),
	}}

	run, err := New(fe, WithRules(perDecl), WithJobs(1)).Run(ctx, desc)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, Cancelled, run.State)
	assert.Nil(t, run.Diagnostics)
	assert.Equal(t, 2, run.ExitCode())

	var got []string
	for _, p := range run.Load.Projects {
		got = append(got, p.Project.ID)
	}
	assert.Equal(t, []string{"a"}, got)
}

func TestCoordinator_CancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	run, err := New(&fakeFrontend{}).Run(ctx, &solution.Descriptor{Projects: []solution.Project{project("a")}})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, Cancelled, run.State)
	assert.Nil(t, run.Load)
}

func TestCoordinator_RuleFailureIsIsolated(t *testing.T) {
	broken := rules.Wrap(rules.RuleDef{
		ID: "broken", Name: "Broken", Group: "test", Severity: diag.SevWarning,
		Check: func(context.Context, *rules.Pass) ([]diag.Diagnostic, error) { panic("bad state") },
	})
	desc := &solution.Descriptor{Name: "sln", Projects: []solution.Project{project("a")}}

	run, err := New(&fakeFrontend{}, WithRules(broken, perDecl)).Run(context.Background(), desc)
	require.NoError(t, err)
	require.Len(t, run.Diagnostics, 2)
	assert.Equal(t, "broken", run.Diagnostics[0].RuleID)
	assert.Equal(t, "rule broken failed: panic: bad state", run.Diagnostics[0].Message)
	assert.Equal(t, "per-decl", run.Diagnostics[1].RuleID)
	assert.Equal(t, []string{"broken", "per-decl"}, run.Rules)
}

func TestCoordinator_UnknownRuleIsRejected(t *testing.T) {
	cfg := &rules.Config{Enable: []string{"nope"}}
	run, err := New(&fakeFrontend{}, WithRules(perDecl), WithRuleConfig(cfg)).Run(context.Background(), &solution.Descriptor{})
	assert.ErrorIs(t, err, rules.ErrUnknownRule)
	assert.Nil(t, run)
}

func TestCoordinator_StateEvents(t *testing.T) {
	var mu sync.Mutex
	var states []string
	sink := progress.Func(func(e progress.Event) {
		if e.Phase != progress.PhaseState {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		states = append(states, e.Message)
	})
	desc := &solution.Descriptor{Name: "sln", Projects: []solution.Project{project("a")}}
	_, err := New(&fakeFrontend{}, WithRules(perDecl), WithSink(sink)).Run(context.Background(), desc)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"idle -> loading",
		"loading -> indexing",
		"indexing -> analyzing",
		"analyzing -> done",
	}, states)
}

func TestState_Transitions(t *testing.T) {
	tests := []struct {
		from, to State
		ok       bool
	}{
		{Idle, Loading, true},
		{Loading, Failed, true},
		{Analyzing, Done, true},
		{Indexing, Cancelled, true},
		{Idle, Done, false},
		{Indexing, Failed, false},
		{Done, Loading, false},
		{Cancelled, Idle, false},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s->%s", tt.from, tt.to), func(t *testing.T) {
			assert.Equal(t, tt.ok, CanTransition(tt.from, tt.to))
		})
	}

	run := &Run{State: Done, sink: progress.Discard}
	assert.Panics(t, func() { run.transition(Loading) })
	assert.True(t, Done.Terminal())
	assert.False(t, Analyzing.Terminal())
	assert.Equal(t, "state(42)", State(42).String())
}
