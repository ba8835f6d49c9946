package graph

// Metrics returns one entry per project in topological order.
func (g *Graph) Metrics() []ProjectMetrics {
	if g == nil {
		return nil
	}
	depth := g.depths()
	order := g.TopologicalOrder()
	out := make([]ProjectMetrics, 0, len(order))
	for _, id := range order {
		out = append(out, ProjectMetrics{
			ID:     id,
			Level:  depth[id],
			FanIn:  len(g.dependents[id]),
			FanOut: len(g.deps[id]),
		})
	}
	return out
}
