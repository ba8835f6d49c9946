package graph

import (
	"container/heap"
	"slices"
	"sort"
)

// Graph is the dependency relation between the projects of a solution.
// Edges point from a project to the projects it depends on.
type Graph struct {
	deps       map[string][]string
	dependents map[string][]string
	declared   map[string]bool
}

// New creates an empty project graph.
func New() *Graph {
	return &Graph{
		deps:       make(map[string][]string),
		dependents: make(map[string][]string),
		declared:   make(map[string]bool),
	}
}

// AddProject registers a project and its dependency edges.
// Dependencies that were not added yet appear as placeholder nodes until
// they are added themselves. If the new edges close a cycle the graph is
// left untouched and a *CycleError is returned.
func (g *Graph) AddProject(id string, dependsOn ...string) error {
	added := make([]string, 0, len(dependsOn))
	seen := make(map[string]bool, len(dependsOn))
	for _, dep := range g.deps[id] {
		seen[dep] = true
	}
	for _, dep := range dependsOn {
		if seen[dep] {
			continue
		}
		seen[dep] = true
		added = append(added, dep)
	}

	_, existed := g.deps[id]
	wasDeclared := g.declared[id]
	var placeholders []string

	g.ensure(id)
	for _, dep := range added {
		if _, ok := g.deps[dep]; !ok {
			placeholders = append(placeholders, dep)
		}
		g.ensure(dep)
		g.deps[id] = append(g.deps[id], dep)
		g.dependents[dep] = append(g.dependents[dep], id)
	}
	g.declared[id] = true

	if members := g.findCycle(id); members != nil {
		g.rollback(id, added, placeholders, existed, wasDeclared)
		return &CycleError{Members: members}
	}

	sort.Strings(g.deps[id])
	for _, dep := range added {
		sort.Strings(g.dependents[dep])
	}
	return nil
}

func (g *Graph) ensure(id string) {
	if _, ok := g.deps[id]; !ok {
		g.deps[id] = nil
	}
}

func (g *Graph) rollback(id string, added, placeholders []string, existed, wasDeclared bool) {
	g.deps[id] = g.deps[id][:len(g.deps[id])-len(added)]
	for _, dep := range added {
		ds := g.dependents[dep]
		if i := slices.Index(ds, id); i >= 0 {
			g.dependents[dep] = slices.Delete(ds, i, i+1)
		}
	}
	for _, p := range placeholders {
		delete(g.deps, p)
		delete(g.dependents, p)
	}
	if !existed {
		delete(g.deps, id)
		delete(g.dependents, id)
	}
	if !wasDeclared {
		delete(g.declared, id)
	}
}

type color uint8

const (
	white color = iota
	gray
	black
)

// findCycle runs a three-color DFS from start and returns the members of
// the first cycle it meets, or nil.
func (g *Graph) findCycle(start string) []string {
	marks := make(map[string]color, len(g.deps))
	var stack []string

	var visit func(id string) []string
	visit = func(id string) []string {
		marks[id] = gray
		stack = append(stack, id)
		for _, dep := range g.deps[id] {
			switch marks[dep] {
			case gray:
				i := slices.Index(stack, dep)
				return canonicalCycle(slices.Clone(stack[i:]))
			case white:
				if c := visit(dep); c != nil {
					return c
				}
			}
		}
		stack = stack[:len(stack)-1]
		marks[id] = black
		return nil
	}
	return visit(start)
}

// canonicalCycle rotates the cycle so the smallest id comes first.
func canonicalCycle(members []string) []string {
	if len(members) == 0 {
		return members
	}
	lo := 0
	for i, m := range members {
		if m < members[lo] {
			lo = i
		}
	}
	return append(members[lo:], members[:lo]...)
}

// Has reports whether id was added with AddProject.
func (g *Graph) Has(id string) bool {
	return g.declared[id]
}

// Projects returns every node, including placeholders, in ascending order.
func (g *Graph) Projects() []string {
	ids := make([]string, 0, len(g.deps))
	for id := range g.deps {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Missing returns dependency ids that were referenced but never added.
func (g *Graph) Missing() []string {
	var out []string
	for id := range g.deps {
		if !g.declared[id] {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// DependsOn returns the direct dependencies of id.
func (g *Graph) DependsOn(id string) []string {
	return slices.Clone(g.deps[id])
}

// Dependents returns the projects that directly depend on id.
func (g *Graph) Dependents(id string) []string {
	return slices.Clone(g.dependents[id])
}

// TransitiveDependencies returns every project reachable from id, sorted.
func (g *Graph) TransitiveDependencies(id string) []string {
	return g.closure(id, g.deps)
}

// TransitiveDependents returns every project that reaches id, sorted.
func (g *Graph) TransitiveDependents(id string) []string {
	return g.closure(id, g.dependents)
}

// Reaches reports whether from depends on to, directly or transitively.
func (g *Graph) Reaches(from, to string) bool {
	if from == to {
		return false
	}
	seen := map[string]bool{from: true}
	queue := []string{from}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range g.deps[cur] {
			if next == to {
				return true
			}
			if !seen[next] {
				seen[next] = true
				queue = append(queue, next)
			}
		}
	}
	return false
}

func (g *Graph) closure(id string, edges map[string][]string) []string {
	seen := map[string]bool{id: true}
	queue := []string{id}
	var out []string
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range edges[cur] {
			if seen[next] {
				continue
			}
			seen[next] = true
			out = append(out, next)
			queue = append(queue, next)
		}
	}
	sort.Strings(out)
	return out
}

// TopologicalOrder returns all projects so that each one follows every
// project it depends on. Ties are broken by ascending id.
func (g *Graph) TopologicalOrder() []string {
	indeg := make(map[string]int, len(g.deps))
	for id, deps := range g.deps {
		indeg[id] = len(deps)
	}

	ready := &idHeap{}
	for id, d := range indeg {
		if d == 0 {
			*ready = append(*ready, id)
		}
	}
	heap.Init(ready)

	order := make([]string, 0, len(g.deps))
	for ready.Len() > 0 {
		id := heap.Pop(ready).(string)
		order = append(order, id)
		for _, dependent := range g.dependents[id] {
			indeg[dependent]--
			if indeg[dependent] == 0 {
				heap.Push(ready, dependent)
			}
		}
	}
	return order
}

// Levels groups projects by topological depth. Level 0 holds projects
// without dependencies; a project sits one level above its deepest
// dependency. Each level is sorted.
func (g *Graph) Levels() [][]string {
	depth := g.depths()
	var levels [][]string
	for _, id := range g.TopologicalOrder() {
		d := depth[id]
		for len(levels) <= d {
			levels = append(levels, nil)
		}
		levels[d] = append(levels[d], id)
	}
	for _, lvl := range levels {
		sort.Strings(lvl)
	}
	return levels
}

func (g *Graph) depths() map[string]int {
	depth := make(map[string]int, len(g.deps))
	for _, id := range g.TopologicalOrder() {
		d := 0
		for _, dep := range g.deps[id] {
			if depth[dep]+1 > d {
				d = depth[dep] + 1
			}
		}
		depth[id] = d
	}
	return depth
}

type idHeap []string

func (h idHeap) Len() int           { return len(h) }
func (h idHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h idHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *idHeap) Push(x any)        { *h = append(*h, x.(string)) }
func (h *idHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
