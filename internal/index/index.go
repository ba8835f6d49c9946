// Package index merges per-project symbol tables into one cross-project
// index and resolves references along the project dependency graph.
//
// Declarations and references live in flat arenas addressed by integer
// handles. Handles are assigned in project id order, then source order,
// so two builds over the same input produce the same index.
package index

import (
	"cmp"
	"iter"
	"slices"

	"golang.org/x/text/unicode/norm"

	"slnlint/internal/extractor"
	"slnlint/internal/graph"
)

type projectRange struct {
	firstDecl, endDecl DeclID
	firstRef, endRef   RefID
}

// Index is read-only once built and safe for concurrent queries.
type Index struct {
	graph *graph.Graph
	decls declArena
	refs  refArena

	byQualified map[string][]DeclID
	byName      map[string][]DeclID
	incoming    map[DeclID][]RefID

	projects []string
	ranges   map[string]projectRange
	// qualifiers holds every namespace, namespace suffix and container
	// name declared in the solution.
	qualifiers map[string]bool
	stages     []StageResult
}

// Build indexes tables and resolves every reference. A nil graph means
// no project depends on another.
func Build(g *graph.Graph, tables []*extractor.SymbolTable) *Index {
	if g == nil {
		g = graph.New()
	}
	sorted := slices.Clone(tables)
	sorted = slices.DeleteFunc(sorted, func(t *extractor.SymbolTable) bool { return t == nil })
	slices.SortStableFunc(sorted, func(a, b *extractor.SymbolTable) int {
		return cmp.Compare(a.Project, b.Project)
	})

	var nd, nr int
	for _, t := range sorted {
		nd += len(t.Declarations)
		nr += len(t.References)
	}
	ix := &Index{
		graph:  g,
		decls:  newDeclArena(nd),
		refs:   newRefArena(nr),
		ranges: make(map[string]projectRange, len(sorted)),
	}

	for _, t := range sorted {
		r := projectRange{firstDecl: DeclID(ix.decls.len() + 1), firstRef: RefID(ix.refs.len() + 1)}

		decls := slices.Clone(t.Declarations)
		slices.SortStableFunc(decls, func(a, b extractor.Declaration) int { return compareSpan(a.Span, b.Span) })
		for _, d := range decls {
			d.Name = norm.NFC.String(d.Name)
			d.Qualified = norm.NFC.String(d.Qualified)
			d.Namespace = norm.NFC.String(d.Namespace)
			d.Container = norm.NFC.String(d.Container)
			ix.decls.add(Decl{Declaration: d, Project: t.Project})
		}

		refs := slices.Clone(t.References)
		slices.SortStableFunc(refs, func(a, b extractor.Reference) int { return compareSpan(a.Span, b.Span) })
		for _, ref := range refs {
			ref.Name = norm.NFC.String(ref.Name)
			ref.Qualifier = norm.NFC.String(ref.Qualifier)
			ref.Namespace = norm.NFC.String(ref.Namespace)
			ix.refs.add(Ref{Reference: ref, Project: t.Project})
		}

		r.endDecl = DeclID(ix.decls.len() + 1)
		r.endRef = RefID(ix.refs.len() + 1)
		if _, dup := ix.ranges[t.Project]; !dup {
			ix.projects = append(ix.projects, t.Project)
		}
		ix.ranges[t.Project] = r
	}

	ix.buildLookups()
	ix.stages = newChain(ix).run()
	ix.buildIncoming()
	return ix
}

func compareSpan(a, b extractor.Span) int {
	return cmp.Or(
		cmp.Compare(a.File, b.File),
		cmp.Compare(a.Line, b.Line),
		cmp.Compare(a.Column, b.Column),
	)
}

func (ix *Index) buildLookups() {
	ix.byQualified = make(map[string][]DeclID, ix.decls.len())
	ix.byName = make(map[string][]DeclID, ix.decls.len())
	ix.qualifiers = make(map[string]bool)
	for i := 1; i < len(ix.decls.data); i++ {
		id := DeclID(i)
		d := &ix.decls.data[i]
		ix.byQualified[d.Qualified] = append(ix.byQualified[d.Qualified], id)
		ix.byName[d.Name] = append(ix.byName[d.Name], id)
		for _, q := range suffixes(d.Namespace) {
			ix.qualifiers[q] = true
		}
		for _, q := range suffixes(d.Container) {
			ix.qualifiers[q] = true
		}
		if d.Kind.IsType() {
			ix.qualifiers[d.Name] = true
		}
	}
}

func (ix *Index) buildIncoming() {
	ix.incoming = make(map[DeclID][]RefID)
	for i := 1; i < len(ix.refs.data); i++ {
		if t := ix.refs.data[i].Target; t.IsValid() {
			ix.incoming[t] = append(ix.incoming[t], RefID(i))
		}
	}
}

// Graph returns the project graph the index was resolved against.
func (ix *Index) Graph() *graph.Graph { return ix.graph }

// Declarations returns every declaration with the qualified name, ordered
// by project id then source span.
func (ix *Index) Declarations(qualified string) []DeclID {
	return slices.Clone(ix.byQualified[norm.NFC.String(qualified)])
}

// Named returns every declaration with the simple name.
func (ix *Index) Named(name string) []DeclID {
	return slices.Clone(ix.byName[norm.NFC.String(name)])
}

// ReferencesTo yields the references resolved to id in handle order.
// The sequence can be ranged over any number of times.
func (ix *Index) ReferencesTo(id DeclID) iter.Seq[RefID] {
	return func(yield func(RefID) bool) {
		for _, r := range ix.incoming[id] {
			if !yield(r) {
				return
			}
		}
	}
}

// ReferenceCount is the number of references resolved to id.
func (ix *Index) ReferenceCount(id DeclID) int { return len(ix.incoming[id]) }

func (ix *Index) IsResolved(id RefID) bool {
	r := ix.refs.get(id)
	return r != nil && r.Target.IsValid()
}

func (ix *Index) Decl(id DeclID) (Decl, bool) {
	d := ix.decls.get(id)
	if d == nil {
		return Decl{}, false
	}
	return *d, true
}

func (ix *Index) Ref(id RefID) (Ref, bool) {
	r := ix.refs.get(id)
	if r == nil {
		return Ref{}, false
	}
	return *r, true
}

// Target returns the declaration a reference resolved to, or NoDecl.
func (ix *Index) Target(id RefID) DeclID {
	if r := ix.refs.get(id); r != nil {
		return r.Target
	}
	return NoDecl
}

// Reason returns why a reference is unresolved. Resolved references
// report ReasonNone.
func (ix *Index) Reason(id RefID) UnresolvedReason {
	if r := ix.refs.get(id); r != nil {
		return r.Reason
	}
	return ReasonNone
}

func (ix *Index) NumDeclarations() int { return ix.decls.len() }
func (ix *Index) NumReferences() int   { return ix.refs.len() }

// AllDeclarations yields every declaration in handle order.
func (ix *Index) AllDeclarations() iter.Seq2[DeclID, Decl] {
	return func(yield func(DeclID, Decl) bool) {
		for i := 1; i < len(ix.decls.data); i++ {
			if !yield(DeclID(i), ix.decls.data[i]) {
				return
			}
		}
	}
}

// AllReferences yields every reference in handle order.
func (ix *Index) AllReferences() iter.Seq2[RefID, Ref] {
	return func(yield func(RefID, Ref) bool) {
		for i := 1; i < len(ix.refs.data); i++ {
			if !yield(RefID(i), ix.refs.data[i]) {
				return
			}
		}
	}
}

// Unresolved lists references without a target.
func (ix *Index) Unresolved() []RefID {
	var out []RefID
	for i := 1; i < len(ix.refs.data); i++ {
		if !ix.refs.data[i].Target.IsValid() {
			out = append(out, RefID(i))
		}
	}
	return out
}

// Stages reports what each resolver stage did.
func (ix *Index) Stages() []StageResult { return slices.Clone(ix.stages) }

// Projects lists the indexed projects by id.
func (ix *Index) Projects() []string { return slices.Clone(ix.projects) }

// Project returns the handles owned by a project.
func (ix *Index) Project(id string) (ProjectSymbols, bool) {
	r, ok := ix.ranges[id]
	if !ok {
		return ProjectSymbols{}, false
	}
	ps := ProjectSymbols{ID: id}
	for d := r.firstDecl; d < r.endDecl; d++ {
		ps.Declarations = append(ps.Declarations, d)
	}
	for ref := r.firstRef; ref < r.endRef; ref++ {
		ps.References = append(ps.References, ref)
	}
	return ps, true
}
