package index

import (
	"slices"
	"strings"
)

// stage is one step of reference resolution. Each stage only looks at
// references no earlier stage settled.
type stage interface {
	name() string
	resolve(ix *Index, pending []RefID) ResolveStats
}

type chain struct {
	ix     *Index
	stages []stage
	// candidates caches the name matches of each reference.
	candidates map[RefID][]DeclID
}

func newChain(ix *Index) *chain {
	c := &chain{ix: ix, candidates: make(map[RefID][]DeclID)}
	c.stages = []stage{
		projectStage{c},
		dependencyStage{c},
		visibilityStage{c},
	}
	return c
}

func (c *chain) run() []StageResult {
	out := make([]StageResult, 0, len(c.stages))
	for _, s := range c.stages {
		pending := c.pending()
		before := c.unresolved()
		stats := s.resolve(c.ix, pending)
		out = append(out, StageResult{
			Stage:            s.name(),
			Stats:            stats,
			UnresolvedBefore: before,
			UnresolvedAfter:  c.unresolved(),
		})
	}
	return out
}

// pending lists references that are neither resolved nor classified.
func (c *chain) pending() []RefID {
	var out []RefID
	for i := 1; i < len(c.ix.refs.data); i++ {
		r := &c.ix.refs.data[i]
		if !r.Target.IsValid() && r.Reason == ReasonNone {
			out = append(out, RefID(i))
		}
	}
	return out
}

func (c *chain) unresolved() int {
	n := 0
	for i := 1; i < len(c.ix.refs.data); i++ {
		if !c.ix.refs.data[i].Target.IsValid() {
			n++
		}
	}
	return n
}

// matches returns the declarations a reference could name, ignoring
// project boundaries.
func (c *chain) matches(id RefID) []DeclID {
	if m, ok := c.candidates[id]; ok {
		return m
	}
	ix := c.ix
	r := ix.refs.get(id)
	named := ix.byName[r.Name]

	var m []DeclID
	switch {
	case r.Member:
		m = filter(ix, named, func(d *Decl) bool { return d.Container != "" })
		if r.Qualifier != "" {
			if narrowed := filter(ix, m, func(d *Decl) bool { return lastSegment(d.Container) == r.Qualifier }); len(narrowed) > 0 {
				m = narrowed
			}
		}
	case r.Qualifier != "":
		m = filter(ix, named, func(d *Decl) bool { return matchesQualifier(d, r.Qualifier) })
	default:
		m = filter(ix, named, func(d *Decl) bool { return inScope(d, r) })
		if len(m) == 0 && r.Language != "go" {
			// Outside Go an unqualified name may come from a namespace the
			// extractor could not see, such as a global using.
			m = named
		}
	}
	c.candidates[id] = m
	return m
}

func filter(ix *Index, ids []DeclID, keep func(*Decl) bool) []DeclID {
	var out []DeclID
	for _, id := range ids {
		if keep(ix.decls.get(id)) {
			out = append(out, id)
		}
	}
	return out
}

// matchesQualifier reports whether q can select d: a package or namespace
// name, or the type that contains d.
func matchesQualifier(d *Decl, q string) bool {
	if d.Namespace == q || lastSegment(d.Namespace) == q || strings.HasSuffix(d.Namespace, "."+q) {
		return true
	}
	if d.Container != "" {
		full := d.Container
		if d.Namespace != "" {
			full = d.Namespace + "." + d.Container
		}
		return d.Container == q || lastSegment(d.Container) == q || strings.HasSuffix(full, "."+q)
	}
	return false
}

// inScope reports whether d is reachable by simple name from r: the same
// namespace, an enclosing namespace, or one brought in by a using.
func inScope(d *Decl, r *Ref) bool {
	switch {
	case d.Namespace == r.Namespace:
		return true
	case r.Language == "go":
		return false
	case d.Namespace == "":
		return true
	case strings.HasPrefix(r.Namespace, d.Namespace+"."):
		return true
	}
	return slices.Contains(r.Uses, d.Namespace)
}

func lastSegment(s string) string {
	if i := strings.LastIndexByte(s, '.'); i >= 0 {
		return s[i+1:]
	}
	return s
}

// suffixes returns every dotted suffix of s: "a.b.c" gives c, b.c, a.b.c
// and also the prefixes a, a.b so partial qualifiers are recognised.
func suffixes(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ".")
	out := make([]string, 0, 2*len(parts))
	for i := range parts {
		out = append(out, strings.Join(parts[i:], "."))
		out = append(out, strings.Join(parts[:i+1], "."))
	}
	return out
}

// settle resolves r to the single candidate or marks it ambiguous. Overloads
// (same namespace and container) count as one candidate and the first wins.
// Candidates in the reference's own file are preferred.
func settle(ix *Index, r *Ref, candidates []DeclID) bool {
	if len(candidates) == 0 {
		return false
	}
	if !oneContainer(ix, candidates) {
		local := filter(ix, candidates, func(d *Decl) bool { return d.Span.File == r.Span.File })
		if len(local) == 0 || !oneContainer(ix, local) {
			r.Reason = ReasonAmbiguous
			r.Candidates = slices.Clone(candidates)
			return false
		}
		candidates = local
	}
	r.Target = candidates[0]
	r.Reason = ReasonNone
	return true
}

func oneContainer(ix *Index, ids []DeclID) bool {
	first := ix.decls.get(ids[0])
	for _, id := range ids[1:] {
		d := ix.decls.get(id)
		if d.Project != first.Project || d.Namespace != first.Namespace || d.Container != first.Container || d.Kind.IsType() != first.Kind.IsType() {
			return false
		}
	}
	return true
}

// projectStage resolves references to declarations of their own project.
type projectStage struct{ c *chain }

func (projectStage) name() string { return "project" }

func (s projectStage) resolve(ix *Index, pending []RefID) ResolveStats {
	var st ResolveStats
	for _, id := range pending {
		r := ix.refs.get(id)
		own := filter(ix, s.c.matches(id), func(d *Decl) bool { return d.Project == r.Project })
		if len(own) == 0 {
			continue
		}
		st.Attempted++
		if settle(ix, r, own) {
			st.Resolved++
		} else {
			st.Classified++
		}
	}
	return st
}

// dependencyStage resolves references to exported declarations of the
// projects the referencing project transitively depends on.
type dependencyStage struct{ c *chain }

func (dependencyStage) name() string { return "dependencies" }

func (s dependencyStage) resolve(ix *Index, pending []RefID) ResolveStats {
	var st ResolveStats
	closure := make(map[string]map[string]bool)
	for _, id := range pending {
		r := ix.refs.get(id)
		deps, ok := closure[r.Project]
		if !ok {
			deps = make(map[string]bool)
			for _, p := range ix.graph.TransitiveDependencies(r.Project) {
				deps[p] = true
			}
			closure[r.Project] = deps
		}
		visible := filter(ix, s.c.matches(id), func(d *Decl) bool {
			return deps[d.Project] && d.Visibility.Exported()
		})
		if len(visible) == 0 {
			continue
		}
		st.Attempted++
		if settle(ix, r, visible) {
			st.Resolved++
		} else {
			st.Classified++
		}
	}
	return st
}

// visibilityStage resolves nothing. It records why what is left failed.
type visibilityStage struct{ c *chain }

func (visibilityStage) name() string { return "visibility" }

func (s visibilityStage) resolve(ix *Index, pending []RefID) ResolveStats {
	var st ResolveStats
	for _, id := range pending {
		r := ix.refs.get(id)
		st.Attempted++
		st.Classified++
		switch m := s.c.matches(id); {
		case len(m) > 0:
			r.Reason = ReasonNotVisible
			r.Candidates = slices.Clone(m)
		case r.Qualifier != "" && !r.Member && !ix.qualifiers[r.Qualifier]:
			r.Reason = ReasonExternal
		default:
			r.Reason = ReasonNoCandidate
		}
	}
	return st
}
