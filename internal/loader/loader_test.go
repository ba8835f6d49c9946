package loader

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slnlint/internal/cache"
	"slnlint/internal/extractor"
	"slnlint/internal/graph"
	"slnlint/internal/progress"
	"slnlint/internal/solution"
	"slnlint/internal/testutil"
)

// fakeFrontend returns one declaration per file named after the file.
type fakeFrontend struct {
	mu    sync.Mutex
	calls []string
	fail  map[string]error
	hook  func(ctx context.Context, path string) error
}

func (f *fakeFrontend) ParseFile(ctx context.Context, path string) (*extractor.FileSymbols, error) {
	f.mu.Lock()
	f.calls = append(f.calls, path)
	f.mu.Unlock()

	if f.hook != nil {
		if err := f.hook(ctx, path); err != nil {
			return nil, err
		}
	}
	if err := f.fail[path]; err != nil {
		return nil, err
	}
	return &extractor.FileSymbols{
		Path:     path,
		Language: "go",
		Declarations: []extractor.Declaration{{
			Name: filepath.Base(path), Qualified: filepath.Base(path), Kind: extractor.KindFunction,
			Visibility: extractor.Public, Span: extractor.Span{File: path, Line: 1, Column: 1},
		}},
	}, nil
}

func (f *fakeFrontend) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func project(id string, deps ...string) solution.Project {
	return solution.Project{ID: id, Platform: "test", Sources: []string{id + "/main"}, DependsOn: deps}
}

func ids(prs []*ProjectResult) []string {
	var out []string
	for _, p := range prs {
		out = append(out, p.Project.ID)
	}
	return out
}

func TestLoader_LoadsAlongDependencies(t *testing.T) {
	fe := &fakeFrontend{}
	var events []progress.Event
	var mu sync.Mutex
	sink := progress.Func(func(e progress.Event) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, e)
	})

	desc := &solution.Descriptor{Name: "abc", Projects: []solution.Project{
		project("c", "b"), project("b", "a"), project("a"),
	}}
	l := New(fe, WithJobs(4), WithSink(sink), WithLogger(testutil.NewTestLogger(t)))
	res, err := l.Load(context.Background(), desc)
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b", "c"}, ids(res.Projects))
	assert.Equal(t, []string{"a/main", "b/main", "c/main"}, fe.Calls())
	assert.Empty(t, res.Errors)
	assert.Empty(t, res.Unresolved())
	require.Len(t, res.Tables(), 3)
	assert.Equal(t, "b", res.Tables()[1].Project)

	pr, ok := res.Project("c")
	require.True(t, ok)
	assert.Equal(t, StatusLoaded, pr.Status)
	assert.Equal(t, []string{"c/main"}, pr.Files)

	finished := map[string]bool{}
	for _, e := range events {
		if e.Phase == progress.PhaseParse && e.Status == progress.StatusFinished {
			finished[e.Subject] = true
		}
	}
	assert.Equal(t, map[string]bool{"a (test)": true, "b (test)": true, "c (test)": true}, finished)
	assert.Equal(t, progress.PhaseResolve, events[0].Phase)
	assert.Equal(t, progress.Event{Phase: progress.PhaseLoad, Subject: "abc", Status: progress.StatusFinished, Elapsed: events[len(events)-1].Elapsed}, events[len(events)-1])
}

func TestLoader_FailurePropagates(t *testing.T) {
	boom := &extractor.ParseError{Path: "b/main", Line: 3, Column: 1, Err: errors.New("syntax error")}
	fe := &fakeFrontend{fail: map[string]error{"b/main": boom}}

	desc := &solution.Descriptor{Projects: []solution.Project{
		project("a"),
		project("b", "a"),
		project("d", "a"),
		project("c", "b"),
		project("e", "c", "d"),
	}}
	res, err := New(fe).Load(context.Background(), desc)
	require.NoError(t, err)

	statuses := map[string]Status{}
	for _, p := range res.Projects {
		statuses[p.Project.ID] = p.Status
	}
	assert.Equal(t, map[string]Status{
		"a": StatusLoaded,
		"b": StatusFailed,
		"c": StatusUnresolved,
		"d": StatusLoaded,
		"e": StatusUnresolved,
	}, statuses)

	require.Len(t, res.Errors, 1)
	assert.Equal(t, "b", res.Errors[0].ProjectID)
	var pe *extractor.ParseError
	assert.ErrorAs(t, res.Errors[0], &pe)

	assert.Equal(t, []string{"c", "e"}, res.Unresolved())
	c, _ := res.Project("c")
	assert.Equal(t, []string{"b"}, c.BlockedBy)
	e, _ := res.Project("e")
	assert.Equal(t, []string{"c"}, e.BlockedBy)

	assert.NotContains(t, fe.Calls(), "c/main")
	assert.NotContains(t, fe.Calls(), "e/main")
	assert.Equal(t, []string{"a", "d"}, ids(res.Loaded()))
}

func TestLoader_RejectsBadDescriptors(t *testing.T) {
	tests := []struct {
		name    string
		desc    *solution.Descriptor
		wantErr error
	}{
		{
			name:    "duplicate id",
			desc:    &solution.Descriptor{Projects: []solution.Project{project("a"), project("a")}},
			wantErr: solution.ErrDuplicateProject,
		},
		{
			name:    "unknown dependency",
			desc:    &solution.Descriptor{Projects: []solution.Project{project("a", "ghost")}},
			wantErr: solution.ErrUnknownDependency,
		},
		{
			name:    "padded id",
			desc:    &solution.Descriptor{Projects: []solution.Project{project(" a"), project("b", "a")}},
			wantErr: solution.ErrInvalidID,
		},
		{
			name:    "missing id",
			desc:    &solution.Descriptor{Projects: []solution.Project{{Sources: []string{"x"}}}},
			wantErr: solution.ErrMissingID,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fe := &fakeFrontend{}
			res, err := New(fe).Load(context.Background(), tt.desc)
			assert.Nil(t, res)
			var le *solution.LoadError
			require.ErrorAs(t, err, &le)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, fe.Calls())
		})
	}
}

func TestLoader_Cycle(t *testing.T) {
	fe := &fakeFrontend{}
	desc := &solution.Descriptor{Projects: []solution.Project{
		project("a", "c"), project("b", "a"), project("c", "b"),
	}}
	res, err := New(fe).Load(context.Background(), desc)
	assert.Nil(t, res)

	var cycle *graph.CycleError
	require.ErrorAs(t, err, &cycle)
	assert.Equal(t, []string{"a", "c", "b"}, cycle.Members)
	assert.Empty(t, fe.Calls())
}

func TestLoader_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fe := &fakeFrontend{hook: func(ctx context.Context, path string) error {
		if path == "b/main" {
			cancel()
			return ctx.Err()
		}
		return nil
	}}
	desc := &solution.Descriptor{Projects: []solution.Project{
		project("a"), project("b", "a"), project("c", "b"),
	}}
	res, err := New(fe).Load(ctx, desc)
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, res)

	assert.Equal(t, []string{"a"}, ids(res.Projects))
	assert.Empty(t, res.Errors)
	assert.NotContains(t, fe.Calls(), "c/main")
}

func TestLoader_BoundedConcurrency(t *testing.T) {
	var inflight, peak atomic.Int32
	fe := &fakeFrontend{hook: func(ctx context.Context, path string) error {
		n := inflight.Add(1)
		defer inflight.Add(-1)
		for {
			old := peak.Load()
			if n <= old || peak.CompareAndSwap(old, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		return nil
	}}

	var projects []solution.Project
	for _, id := range []string{"p1", "p2", "p3", "p4", "p5", "p6"} {
		projects = append(projects, project(id))
	}
	res, err := New(fe, WithJobs(2)).Load(context.Background(), &solution.Descriptor{Projects: projects})
	require.NoError(t, err)
	assert.Len(t, res.Loaded(), 6)
	assert.LessOrEqual(t, peak.Load(), int32(2))
	assert.Equal(t, []string{"p1", "p2", "p3", "p4", "p5", "p6"}, ids(res.Projects))
}

func TestLoader_RealFrontendAndCache(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteTree(t, dir, map[string]string{
		"core/core.go":      "package core\n\nfunc Helper() int { return 1 }\n",
		"core/core_test.go": "package core\n",
		"app/main.go":       "package main\n\nimport \"example.com/core\"\n\nfunc main() { core.Helper() }\n",
	})
	desc := &solution.Descriptor{Dir: dir, Projects: []solution.Project{
		{ID: "core", Root: filepath.Join(dir, "core")},
		{ID: "app", Root: filepath.Join(dir, "app"), DependsOn: []string{"core"}},
	}}

	c, err := cache.OpenDir(filepath.Join(dir, ".cache"))
	require.NoError(t, err)

	fe := &countingFrontend{Frontend: extractor.New()}
	l := New(fe, WithCache(c), WithLogger(testutil.NewTestLogger(t)))

	res, err := l.Load(context.Background(), desc)
	require.NoError(t, err)
	require.Len(t, res.Loaded(), 2)

	core, _ := res.Project("core")
	assert.Equal(t, "go", core.Project.Language)
	assert.Equal(t, []string{filepath.Join(dir, "core", "core.go")}, core.Files)
	assert.False(t, core.Cached)
	require.Len(t, core.Table.Declarations, 1)
	assert.Equal(t, "core.Helper", core.Table.Declarations[0].Qualified)
	assert.Equal(t, int32(2), fe.n.Load())

	res, err = l.Load(context.Background(), desc)
	require.NoError(t, err)
	for _, p := range res.Projects {
		assert.True(t, p.Cached, p.Project.ID)
	}
	assert.Equal(t, int32(2), fe.n.Load())
}

func TestLoader_NoSources(t *testing.T) {
	desc := &solution.Descriptor{Projects: []solution.Project{{ID: "bare", Root: t.TempDir()}}}
	res, err := New(&fakeFrontend{}).Load(context.Background(), desc)
	require.NoError(t, err)
	require.Len(t, res.Errors, 1)
	assert.ErrorIs(t, res.Errors[0], ErrNoSources)
}

type countingFrontend struct {
	extractor.Frontend
	n atomic.Int32
}

func (c *countingFrontend) ParseFile(ctx context.Context, path string) (*extractor.FileSymbols, error) {
	c.n.Add(1)
	return c.Frontend.ParseFile(ctx, path)
}

func (c *countingFrontend) Extensions() []string {
	if l, ok := c.Frontend.(languages); ok {
		return l.Extensions()
	}
	return nil
}

func (c *countingFrontend) ExtensionsFor(lang string) []string {
	if l, ok := c.Frontend.(languages); ok {
		return l.ExtensionsFor(lang)
	}
	return nil
}

func (c *countingFrontend) LanguageOf(path string) (string, bool) {
	if l, ok := c.Frontend.(languages); ok {
		return l.LanguageOf(path)
	}
	return "", false
}
