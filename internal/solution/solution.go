// Package solution describes the projects of a solution and how they depend
// on each other. Descriptors are decoded from slnlint.toml or slnlint.yaml.
package solution

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Descriptor is an ordered set of projects analysed as one unit.
type Descriptor struct {
	Name     string    `toml:"name" yaml:"name"`
	Projects []Project `toml:"project" yaml:"projects"`

	// Path is the file the descriptor was read from, if any.
	Path string `toml:"-" yaml:"-"`
	// Dir anchors relative project roots.
	Dir string `toml:"-" yaml:"-"`
}

// Project is a compilable unit with its sources and dependencies.
type Project struct {
	ID        string   `toml:"id" yaml:"id"`
	Platform  string   `toml:"platform" yaml:"platform"`
	Language  string   `toml:"language" yaml:"language"`
	Root      string   `toml:"root" yaml:"root"`
	Sources   []string `toml:"sources" yaml:"sources"`
	DependsOn []string `toml:"depends_on" yaml:"depends_on"`

	// Descriptor is the file that declared the project.
	Descriptor string `toml:"-" yaml:"-"`
}

// Label renders the project the way progress output shows it.
func (p Project) Label() string {
	if p.Platform == "" {
		return p.ID
	}
	return fmt.Sprintf("%s (%s)", p.ID, p.Platform)
}

// Project looks a project up by id.
func (d *Descriptor) Project(id string) (Project, bool) {
	for _, p := range d.Projects {
		if p.ID == id {
			return p, true
		}
	}
	return Project{}, false
}

// Validate checks the descriptor before any loading starts. The first
// problem found is returned as a *LoadError.
func (d *Descriptor) Validate() error {
	if d == nil {
		return &LoadError{Cause: ErrEmptySolution}
	}
	seen := make(map[string]bool, len(d.Projects))
	for i, p := range d.Projects {
		id := p.ID
		if strings.TrimSpace(id) == "" {
			return &LoadError{Cause: fmt.Errorf("project #%d: %w", i+1, ErrMissingID)}
		}
		if id != strings.TrimSpace(id) {
			return &LoadError{ProjectID: id, Cause: fmt.Errorf("%w %q: surrounding whitespace", ErrInvalidID, id)}
		}
		if seen[id] {
			return &LoadError{ProjectID: id, Cause: ErrDuplicateProject}
		}
		seen[id] = true
	}
	for _, p := range d.Projects {
		for _, dep := range p.DependsOn {
			if !seen[dep] {
				return &LoadError{ProjectID: p.ID, Cause: fmt.Errorf("%w %q", ErrUnknownDependency, dep)}
			}
		}
	}
	return nil
}

// normalize makes roots and explicit sources absolute against the
// descriptor directory.
func (d *Descriptor) normalize() {
	for i := range d.Projects {
		p := &d.Projects[i]
		p.ID = strings.TrimSpace(p.ID)
		p.Language = strings.ToLower(strings.TrimSpace(p.Language))
		if p.Root == "" {
			p.Root = p.ID
		}
		if !filepath.IsAbs(p.Root) && d.Dir != "" {
			p.Root = filepath.Join(d.Dir, filepath.FromSlash(p.Root))
		}
		for j, src := range p.Sources {
			if !filepath.IsAbs(src) {
				p.Sources[j] = filepath.Join(p.Root, filepath.FromSlash(src))
			}
		}
		if p.Descriptor == "" {
			p.Descriptor = d.Path
		}
	}
}
