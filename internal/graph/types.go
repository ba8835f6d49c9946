package graph

import (
	"fmt"
	"strings"
)

// CycleError is returned when the project dependency relation is not acyclic.
// Members lists the projects on the cycle in edge order, starting at the
// smallest id.
type CycleError struct {
	Members []string
}

func (e *CycleError) Error() string {
	if len(e.Members) == 0 {
		return "dependency cycle"
	}
	path := append(append([]string{}, e.Members...), e.Members[0])
	return fmt.Sprintf("dependency cycle: %s", strings.Join(path, " -> "))
}

// ProjectMetrics summarizes a project's position in the graph.
type ProjectMetrics struct {
	ID     string `json:"id"`
	Level  int    `json:"level"`
	FanIn  int    `json:"fan_in"`
	FanOut int    `json:"fan_out"`
}
