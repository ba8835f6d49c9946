package index

import (
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"slices"

	"slnlint/internal/graph"
)

// Snapshot is the serialisable form of an Index.
type Snapshot struct {
	Projects     []string            `json:"projects"`
	Dependencies map[string][]string `json:"dependencies"`
	Declarations []Decl              `json:"declarations"`
	References   []Ref               `json:"references"`
	Stages       []StageResult       `json:"stages"`
}

// Snapshot copies the index contents. Handle N is element N-1.
func (ix *Index) Snapshot() *Snapshot {
	s := &Snapshot{
		Projects:     ix.Projects(),
		Dependencies: make(map[string][]string),
		Declarations: append([]Decl(nil), ix.decls.data[1:]...),
		References:   append([]Ref(nil), ix.refs.data[1:]...),
		Stages:       ix.Stages(),
	}
	for _, id := range ix.graph.Projects() {
		s.Dependencies[id] = ix.graph.DependsOn(id)
	}
	return s
}

// FromSnapshot rebuilds an index without resolving again.
func FromSnapshot(s *Snapshot) (*Index, error) {
	g := graph.New()
	for _, id := range slices.Sorted(maps.Keys(s.Dependencies)) {
		if err := g.AddProject(id, s.Dependencies[id]...); err != nil {
			return nil, fmt.Errorf("snapshot graph: %w", err)
		}
	}

	ix := &Index{
		graph:  g,
		decls:  newDeclArena(len(s.Declarations)),
		refs:   newRefArena(len(s.References)),
		ranges: make(map[string]projectRange),
		stages: s.Stages,
	}
	for _, d := range s.Declarations {
		ix.decls.add(d)
	}
	for _, r := range s.References {
		if r.Target.IsValid() && ix.decls.get(r.Target) == nil {
			return nil, fmt.Errorf("snapshot reference %s targets missing declaration %d", r.Span, r.Target)
		}
		ix.refs.add(r)
	}
	for _, p := range s.Projects {
		ix.projects = append(ix.projects, p)
		ix.ranges[p] = projectRange{}
	}
	for i := 1; i < len(ix.decls.data); i++ {
		p := ix.decls.data[i].Project
		r := ix.ranges[p]
		if !r.firstDecl.IsValid() {
			r.firstDecl = DeclID(i)
		}
		r.endDecl = DeclID(i + 1)
		ix.ranges[p] = r
	}
	for i := 1; i < len(ix.refs.data); i++ {
		p := ix.refs.data[i].Project
		r := ix.ranges[p]
		if !r.firstRef.IsValid() {
			r.firstRef = RefID(i)
		}
		r.endRef = RefID(i + 1)
		ix.ranges[p] = r
	}
	ix.buildLookups()
	ix.buildIncoming()
	return ix, nil
}

// WriteJSON persists the index to a JSON file.
func WriteJSON(path string, ix *Index) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create index file: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(ix.Snapshot()); err != nil {
		return fmt.Errorf("failed to encode index: %w", err)
	}
	return nil
}

// ReadJSON loads an index written by WriteJSON.
func ReadJSON(path string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open index file: %w", err)
	}
	defer f.Close()

	var s Snapshot
	if err := json.NewDecoder(f).Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to decode index: %w", err)
	}
	return FromSnapshot(&s)
}
