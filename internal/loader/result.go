package loader

import (
	"slices"
	"time"

	"slnlint/internal/extractor"
	"slnlint/internal/graph"
	"slnlint/internal/solution"
)

// Status is the outcome of one project load.
type Status string

const (
	StatusLoaded Status = "loaded"
	StatusFailed Status = "failed"
	// StatusUnresolved marks a project that was not attempted because a
	// dependency did not load.
	StatusUnresolved Status = "unresolved"
)

// ProjectResult is the published outcome of one project.
type ProjectResult struct {
	Project solution.Project
	Status  Status
	Files   []string
	Table   *extractor.SymbolTable
	Err     *solution.LoadError
	// BlockedBy lists the dependencies that kept an unresolved project
	// from loading.
	BlockedBy []string
	Cached    bool
	Elapsed   time.Duration
}

// Result is the populated solution.
type Result struct {
	Graph *graph.Graph
	// Projects holds every project that reached a final status, in
	// topological order.
	Projects []*ProjectResult
	Errors   []*solution.LoadError
}

// Project returns the result for id.
func (r *Result) Project(id string) (*ProjectResult, bool) {
	if r == nil {
		return nil, false
	}
	for _, p := range r.Projects {
		if p.Project.ID == id {
			return p, true
		}
	}
	return nil, false
}

// Loaded returns the successfully loaded projects.
func (r *Result) Loaded() []*ProjectResult {
	return r.withStatus(StatusLoaded)
}

// Unresolved returns the ids of projects skipped because of a failed
// dependency.
func (r *Result) Unresolved() []string {
	var ids []string
	for _, p := range r.withStatus(StatusUnresolved) {
		ids = append(ids, p.Project.ID)
	}
	return ids
}

// Tables returns the symbol tables of loaded projects.
func (r *Result) Tables() []*extractor.SymbolTable {
	var out []*extractor.SymbolTable
	for _, p := range r.Loaded() {
		out = append(out, p.Table)
	}
	return out
}

func (r *Result) withStatus(s Status) []*ProjectResult {
	if r == nil {
		return nil
	}
	var out []*ProjectResult
	for _, p := range r.Projects {
		if p.Status == s {
			out = append(out, p)
		}
	}
	return out
}

// sortByOrder puts projects and errors in topological order.
func (r *Result) sortByOrder() {
	pos := make(map[string]int)
	for i, id := range r.Graph.TopologicalOrder() {
		pos[id] = i
	}
	slices.SortFunc(r.Projects, func(a, b *ProjectResult) int {
		return pos[a.Project.ID] - pos[b.Project.ID]
	})
	slices.SortFunc(r.Errors, func(a, b *solution.LoadError) int {
		return pos[a.ProjectID] - pos[b.ProjectID]
	})
}
