package rules

import (
	"sort"
	"sync"
)

var registry = struct {
	mu    sync.RWMutex
	rules map[string]Rule
}{rules: make(map[string]Rule)}

// Register adds a rule to the global registry. Call it from init.
// A later registration with the same id replaces the earlier one.
func Register(r Rule) {
	if r == nil || r.ID() == "" {
		panic("rules: Register with empty rule id")
	}
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.rules[r.ID()] = r
}

// RegisterDef registers a data-driven rule.
func RegisterDef(def RuleDef) {
	Register(Wrap(def))
}

// GetAll returns every registered rule sorted by id.
func GetAll() []Rule {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	out := make([]Rule, 0, len(registry.rules))
	for _, r := range registry.rules {
		out = append(out, r)
	}
	sortRules(out)
	return out
}

func GetByID(id string) (Rule, bool) {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	r, ok := registry.rules[id]
	return r, ok
}

// GetByGroup returns the rules of one group sorted by id.
func GetByGroup(group string) []Rule {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	var out []Rule
	for _, r := range registry.rules {
		if r.Group() == group {
			out = append(out, r)
		}
	}
	sortRules(out)
	return out
}

// Clear empties the registry. Used by tests.
func Clear() {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.rules = make(map[string]Rule)
}

func sortRules(rs []Rule) {
	sort.Slice(rs, func(i, j int) bool { return rs[i].ID() < rs[j].ID() })
}
