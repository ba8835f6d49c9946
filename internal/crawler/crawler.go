package crawler

import (
	"context"
	"io/fs"
	"path/filepath"
	"slices"
	"sort"
	"strings"
)

// Crawler finds the source files of a project directory.
type Crawler struct {
	extensions []string
	ignored    []string
}

// NewCrawler creates a crawler accepting files with the given extensions.
func NewCrawler(extensions ...string) *Crawler {
	return &Crawler{
		extensions: extensions,
		ignored:    []string{".git", "vendor", "node_modules", "testdata", "bin", "obj"},
	}
}

// Ignore adds directory names that are never descended into.
func (c *Crawler) Ignore(names ...string) {
	c.ignored = append(c.ignored, names...)
}

// Sources walks root and returns matching files in lexical order.
func (c *Crawler) Sources(ctx context.Context, root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		if d.IsDir() {
			if path != root && slices.Contains(c.ignored, d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}

		if c.accepts(d.Name()) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

func (c *Crawler) accepts(name string) bool {
	// Go test files belong to the test binary, not the project.
	if strings.HasSuffix(name, "_test.go") {
		return false
	}
	ext := filepath.Ext(name)
	return slices.Contains(c.extensions, ext)
}
