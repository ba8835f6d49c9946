package diag

import (
	"sort"
	"sync"
)

// Collector gathers diagnostics from concurrent producers. Order of
// insertion is irrelevant: Sorted always returns the canonical order.
type Collector struct {
	mu    sync.Mutex
	items []Diagnostic
}

func NewCollector() *Collector {
	return &Collector{}
}

func (c *Collector) Add(d ...Diagnostic) {
	c.mu.Lock()
	c.items = append(c.items, d...)
	c.mu.Unlock()
}

func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Sorted returns a sorted copy of everything collected so far.
func (c *Collector) Sorted() []Diagnostic {
	c.mu.Lock()
	out := make([]Diagnostic, len(c.items))
	copy(out, c.items)
	c.mu.Unlock()
	Sort(out)
	return out
}

// Sort orders diagnostics in place using Less.
func Sort(ds []Diagnostic) {
	sort.SliceStable(ds, func(i, j int) bool { return Less(ds[i], ds[j]) })
}

// HasErrors reports whether any diagnostic has error severity.
func HasErrors(ds []Diagnostic) bool {
	for i := range ds {
		if ds[i].Severity >= SevError {
			return true
		}
	}
	return false
}

// Counts tallies diagnostics per severity.
func Counts(ds []Diagnostic) map[Severity]int {
	out := make(map[Severity]int, 3)
	for i := range ds {
		out[ds[i].Severity]++
	}
	return out
}
