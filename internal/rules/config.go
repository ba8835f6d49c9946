package rules

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"

	"slnlint/internal/diag"
)

var ErrUnknownRule = errors.New("unknown rule")

// Config selects rules and adjusts them. Enable and Disable accept rule
// ids or group names. An empty Enable list means every rule.
type Config struct {
	Enable   []string
	Disable  []string
	Severity map[string]diag.Severity
	Options  map[string]map[string]any
}

// Select returns the rules of all that the config enables, sorted by id.
// Naming a rule or group that does not exist is an error.
func (c *Config) Select(all []Rule) ([]Rule, error) {
	all = slices.Clone(all)
	sortRules(all)
	if c == nil {
		return all, nil
	}

	known := make(map[string]bool)
	for _, r := range all {
		known[r.ID()] = true
		known[r.Group()] = true
	}
	var unknown []string
	check := func(names ...string) {
		for _, n := range names {
			if !known[n] {
				unknown = append(unknown, n)
			}
		}
	}
	check(c.Enable...)
	check(c.Disable...)
	for id := range c.Severity {
		check(id)
	}
	for id := range c.Options {
		check(id)
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		unknown = slices.Compact(unknown)
		return nil, fmt.Errorf("%w: %s", ErrUnknownRule, strings.Join(unknown, ", "))
	}

	matches := func(r Rule, names []string) bool {
		return slices.Contains(names, r.ID()) || slices.Contains(names, r.Group())
	}
	var out []Rule
	for _, r := range all {
		if len(c.Enable) > 0 && !matches(r, c.Enable) {
			continue
		}
		if matches(r, c.Disable) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// SeverityFor returns the effective severity of r.
func (c *Config) SeverityFor(r Rule) diag.Severity {
	if s, ok := c.severity(r.ID()); ok {
		return s
	}
	return r.DefaultSeverity()
}

func (c *Config) severity(id string) (diag.Severity, bool) {
	if c == nil {
		return 0, false
	}
	s, ok := c.Severity[id]
	return s, ok
}

// OptionsFor returns the options configured for a rule, never nil.
func (c *Config) OptionsFor(id string) map[string]any {
	if c == nil || c.Options[id] == nil {
		return map[string]any{}
	}
	return c.Options[id]
}

// GetOption extracts a typed option with a default value.
func GetOption[T any](opts map[string]any, key string, def T) T {
	if v, ok := opts[key].(T); ok {
		return v
	}
	return def
}

// GetBoolOption also accepts strings such as "true" from the environment.
func GetBoolOption(opts map[string]any, key string, def bool) bool {
	switch v := opts[key].(type) {
	case bool:
		return v
	case string:
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

// GetIntOption also accepts the float64 and int64 that decoders produce.
func GetIntOption(opts map[string]any, key string, def int) int {
	switch n := opts[key].(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return def
}

// GetStringSliceOption accepts []string, []any of strings, or a comma
// separated string.
func GetStringSliceOption(opts map[string]any, key string, def []string) []string {
	switch v := opts[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, x := range v {
			if s, ok := x.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		var out []string
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return def
}
