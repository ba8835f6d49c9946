package index

import (
	"path/filepath"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slnlint/internal/extractor"
	"slnlint/internal/graph"
)

func decl(lang, ns, container, name string, kind extractor.Kind, vis extractor.Visibility, file string, line int) extractor.Declaration {
	q := name
	if container != "" {
		q = container + "." + q
	}
	if ns != "" {
		q = ns + "." + q
	}
	return extractor.Declaration{
		Name: name, Qualified: q, Namespace: ns, Container: container,
		Kind: kind, Visibility: vis, Language: lang,
		Span: extractor.Span{File: file, Line: line, Column: 1},
	}
}

func ref(lang, ns, name, qualifier string, member bool, file string, line int) extractor.Reference {
	return extractor.Reference{
		Name: name, Qualifier: qualifier, Member: member, Namespace: ns, Language: lang,
		Imported: qualifier != "" && !member && lang == "go",
		Span:     extractor.Span{File: file, Line: line, Column: 5},
	}
}

func abcGraph(t *testing.T) *graph.Graph {
	t.Helper()
	g := graph.New()
	require.NoError(t, g.AddProject("a"))
	require.NoError(t, g.AddProject("b", "a"))
	require.NoError(t, g.AddProject("c", "b"))
	return g
}

func abcTables() []*extractor.SymbolTable {
	return []*extractor.SymbolTable{
		{
			Project: "c",
			Declarations: []extractor.Declaration{
				decl("go", "c", "", "Top", extractor.KindFunction, extractor.Public, "c/c.go", 3),
			},
			References: []extractor.Reference{
				ref("go", "c", "Base", "a", false, "c/c.go", 4),
				ref("go", "c", "hidden", "a", false, "c/c.go", 5),
				ref("go", "c", "Println", "fmt", false, "c/c.go", 6),
			},
		},
		{
			Project: "a",
			Declarations: []extractor.Declaration{
				decl("go", "a", "", "hidden", extractor.KindFunction, extractor.Internal, "a/a.go", 7),
				decl("go", "a", "", "Base", extractor.KindFunction, extractor.Public, "a/a.go", 3),
			},
			References: []extractor.Reference{
				ref("go", "a", "Top", "c", false, "a/a.go", 8),
				ref("go", "a", "Base", "", false, "a/a.go", 9),
				ref("go", "a", "Nothing", "", false, "a/a.go", 10),
			},
		},
		{
			Project: "b",
			References: []extractor.Reference{
				ref("go", "b", "Base", "a", false, "b/b.go", 4),
			},
		},
	}
}

// find returns the handle of the only reference matching name in project.
func find(t *testing.T, ix *Index, project, name string) RefID {
	t.Helper()
	var found []RefID
	for id, r := range ix.AllReferences() {
		if r.Project == project && r.Name == name {
			found = append(found, id)
		}
	}
	require.Len(t, found, 1, "%s in %s", name, project)
	return found[0]
}

func TestBuild_Resolution(t *testing.T) {
	ix := Build(abcGraph(t), abcTables())

	base := ix.Declarations("a.Base")
	require.Len(t, base, 1)
	d, ok := ix.Decl(base[0])
	require.True(t, ok)
	assert.Equal(t, "a", d.Project)

	tests := []struct {
		name    string
		project string
		ref     string
		target  string
		reason  UnresolvedReason
	}{
		{"transitive dependency", "c", "Base", "a.Base", ReasonNone},
		{"direct dependency", "b", "Base", "a.Base", ReasonNone},
		{"own project", "a", "Base", "a.Base", ReasonNone},
		{"dependent project is not visible", "a", "Top", "", ReasonNotVisible},
		{"unexported", "c", "hidden", "", ReasonNotVisible},
		{"outside the solution", "c", "Println", "", ReasonExternal},
		{"unknown name", "a", "Nothing", "", ReasonNoCandidate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := find(t, ix, tt.project, tt.ref)
			assert.Equal(t, tt.reason, ix.Reason(id))
			if tt.target == "" {
				assert.False(t, ix.IsResolved(id))
				assert.Equal(t, NoDecl, ix.Target(id))
				return
			}
			require.True(t, ix.IsResolved(id))
			target, _ := ix.Decl(ix.Target(id))
			assert.Equal(t, tt.target, target.Qualified)
		})
	}

	top := find(t, ix, "a", "Top")
	r, _ := ix.Ref(top)
	assert.Equal(t, ix.Declarations("c.Top"), r.Candidates)
}

func TestBuild_ReferencesTo(t *testing.T) {
	ix := Build(abcGraph(t), abcTables())
	base := ix.Declarations("a.Base")[0]

	seq := ix.ReferencesTo(base)
	first := slices.Collect(seq)
	second := slices.Collect(seq)
	require.Len(t, first, 3)
	assert.Equal(t, first, second)
	assert.True(t, slices.IsSorted(first))
	assert.Equal(t, 3, ix.ReferenceCount(base))

	var projects []string
	for id := range seq {
		r, _ := ix.Ref(id)
		projects = append(projects, r.Project)
	}
	assert.Equal(t, []string{"a", "b", "c"}, projects)

	// early exit
	n := 0
	for range seq {
		n++
		break
	}
	assert.Equal(t, 1, n)

	assert.Empty(t, slices.Collect(ix.ReferencesTo(ix.Declarations("a.hidden")[0])))
}

func TestBuild_Deterministic(t *testing.T) {
	tables := abcTables()
	a := Build(abcGraph(t), tables)

	reversed := slices.Clone(tables)
	slices.Reverse(reversed)
	b := Build(abcGraph(t), reversed)

	assert.Equal(t, a.Snapshot(), b.Snapshot())
	assert.Equal(t, []string{"a", "b", "c"}, a.Projects())

	// handles follow project then span order
	var names []string
	for _, d := range a.AllDeclarations() {
		names = append(names, d.Project+":"+d.Name)
	}
	assert.Equal(t, []string{"a:Base", "a:hidden", "c:Top"}, names)
}

func TestBuild_Stages(t *testing.T) {
	ix := Build(abcGraph(t), abcTables())
	stages := ix.Stages()
	require.Len(t, stages, 3)

	assert.Equal(t, "project", stages[0].Stage)
	assert.Equal(t, 7, stages[0].UnresolvedBefore)
	assert.Equal(t, 6, stages[0].UnresolvedAfter)
	assert.Equal(t, 1, stages[0].Stats.Resolved)

	assert.Equal(t, "dependencies", stages[1].Stage)
	assert.Equal(t, 6, stages[1].UnresolvedBefore)
	assert.Equal(t, 4, stages[1].UnresolvedAfter)

	assert.Equal(t, "visibility", stages[2].Stage)
	assert.Equal(t, stages[2].UnresolvedBefore, stages[2].UnresolvedAfter)
	assert.Equal(t, 4, stages[2].Stats.Classified)
	assert.Len(t, ix.Unresolved(), 4)
}

func TestBuild_DuplicateNames(t *testing.T) {
	g := graph.New()
	require.NoError(t, g.AddProject("zeta"))
	require.NoError(t, g.AddProject("alpha"))
	ix := Build(g, []*extractor.SymbolTable{
		{Project: "zeta", Declarations: []extractor.Declaration{
			decl("go", "shared", "", "X", extractor.KindType, extractor.Public, "z.go", 1),
		}},
		{Project: "alpha", Declarations: []extractor.Declaration{
			decl("go", "shared", "", "X", extractor.KindType, extractor.Public, "b.go", 9),
			decl("go", "shared", "", "X", extractor.KindType, extractor.Public, "a.go", 2),
		}},
	})

	var got []string
	for _, id := range ix.Declarations("shared.X") {
		d, _ := ix.Decl(id)
		got = append(got, d.Project+":"+d.Span.File)
	}
	assert.Equal(t, []string{"alpha:a.go", "alpha:b.go", "zeta:z.go"}, got)
	assert.Equal(t, ix.Declarations("shared.X"), ix.Named("X"))
}

func TestBuild_Members(t *testing.T) {
	g := graph.New()
	require.NoError(t, g.AddProject("cs"))
	ix := Build(g, []*extractor.SymbolTable{{
		Project: "cs",
		Declarations: []extractor.Declaration{
			decl("csharp", "N", "Svc", "Run", extractor.KindMethod, extractor.Public, "Svc.cs", 5),
			decl("csharp", "N", "Svc", "Run", extractor.KindMethod, extractor.Public, "Svc.cs", 9),
			decl("csharp", "N", "User", "name", extractor.KindField, extractor.Private, "User.cs", 3),
			decl("csharp", "N", "Order", "name", extractor.KindField, extractor.Private, "Order.cs", 3),
		},
		References: []extractor.Reference{
			ref("csharp", "N", "Run", "", true, "Main.cs", 2),
			ref("csharp", "N", "name", "", true, "Main.cs", 3),
			ref("csharp", "N", "name", "", true, "User.cs", 8),
		},
	}})

	t.Run("overloads resolve to the first", func(t *testing.T) {
		id := find(t, ix, "cs", "Run")
		target, _ := ix.Decl(ix.Target(id))
		assert.Equal(t, 5, target.Span.Line)
	})

	t.Run("unrelated containers are ambiguous", func(t *testing.T) {
		var ambiguous, resolved []RefID
		for id, r := range ix.AllReferences() {
			if r.Name != "name" {
				continue
			}
			if r.Target.IsValid() {
				resolved = append(resolved, id)
			} else {
				ambiguous = append(ambiguous, id)
			}
		}
		require.Len(t, ambiguous, 1)
		assert.Equal(t, ReasonAmbiguous, ix.Reason(ambiguous[0]))
		r, _ := ix.Ref(ambiguous[0])
		assert.Len(t, r.Candidates, 2)

		// a candidate in the reference's own file wins
		require.Len(t, resolved, 1)
		target, _ := ix.Decl(ix.Target(resolved[0]))
		assert.Equal(t, "User", target.Container)
	})
}

func TestBuild_CSharpNamespaces(t *testing.T) {
	g := graph.New()
	require.NoError(t, g.AddProject("lib"))
	require.NoError(t, g.AddProject("app", "lib"))
	ix := Build(g, []*extractor.SymbolTable{
		{Project: "lib", Declarations: []extractor.Declaration{
			decl("csharp", "Lib.Util", "", "Clock", extractor.KindType, extractor.Public, "Clock.cs", 3),
			decl("csharp", "Lib.Util", "", "Secret", extractor.KindType, extractor.Internal, "Secret.cs", 3),
		}},
		{Project: "app", References: []extractor.Reference{
			func() extractor.Reference {
				r := ref("csharp", "App", "Clock", "", false, "Program.cs", 4)
				r.Uses = []string{"Lib.Util"}
				return r
			}(),
			ref("csharp", "App", "Clock", "Util", false, "Program.cs", 5),
			ref("csharp", "App", "Secret", "Lib.Util", false, "Program.cs", 6),
			ref("csharp", "App", "WriteLine", "Console", false, "Program.cs", 7),
		}},
	})

	ps, ok := ix.Project("app")
	require.True(t, ok)
	require.Len(t, ps.References, 4)
	assert.Empty(t, ps.Declarations)

	clock := ix.Declarations("Lib.Util.Clock")[0]
	assert.Equal(t, clock, ix.Target(ps.References[0]))
	assert.Equal(t, clock, ix.Target(ps.References[1]))
	assert.Equal(t, ReasonNotVisible, ix.Reason(ps.References[2]))
	assert.Equal(t, ReasonExternal, ix.Reason(ps.References[3]))
}

func TestSnapshot_RoundTrip(t *testing.T) {
	ix := Build(abcGraph(t), abcTables())
	path := filepath.Join(t.TempDir(), "index.json")
	require.NoError(t, WriteJSON(path, ix))

	back, err := ReadJSON(path)
	require.NoError(t, err)
	assert.Equal(t, ix.Snapshot(), back.Snapshot())

	base := ix.Declarations("a.Base")[0]
	assert.Equal(t, slices.Collect(ix.ReferencesTo(base)), slices.Collect(back.ReferencesTo(base)))
	assert.Equal(t, ix.Unresolved(), back.Unresolved())
	assert.True(t, back.Graph().Reaches("c", "a"))

	ps, ok := back.Project("c")
	require.True(t, ok)
	assert.Len(t, ps.References, 3)
	assert.Len(t, ps.Declarations, 1)
}

func TestIndex_InvalidHandles(t *testing.T) {
	ix := Build(nil, nil)
	_, ok := ix.Decl(NoDecl)
	assert.False(t, ok)
	_, ok = ix.Ref(RefID(42))
	assert.False(t, ok)
	assert.False(t, ix.IsResolved(NoRef))
	assert.Equal(t, ReasonNone, ix.Reason(RefID(7)))
	assert.Empty(t, ix.Projects())
	assert.Empty(t, ix.Declarations("nope"))
}
