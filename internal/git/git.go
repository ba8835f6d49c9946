// Package git reads the lines changed since a revision.
package git

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

type ChangedFile struct {
	Path string
	// Lines holds the changed line numbers of the new version. A file
	// with only deletions has none.
	Lines []int
}

// ChangedFiles runs git diff in dir against baseRef. Paths are made
// absolute against the repository root.
func ChangedFiles(ctx context.Context, dir, baseRef string) ([]ChangedFile, error) {
	top, err := run(ctx, dir, "rev-parse", "--show-toplevel")
	if err != nil {
		return nil, err
	}
	root := strings.TrimSpace(string(top))

	out, err := run(ctx, dir, "diff", "-U0", "--no-color", "--no-ext-diff", baseRef, "--")
	if err != nil {
		return nil, err
	}
	changes, err := ParseDiff(bytes.NewReader(out))
	if err != nil {
		return nil, err
	}
	for i := range changes {
		changes[i].Path = filepath.Join(root, filepath.FromSlash(changes[i].Path))
	}
	return changes, nil
}

func run(ctx context.Context, dir string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "git", append([]string{"-C", dir}, args...)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("git %s failed: %w: %s", args[0], err, strings.TrimSpace(stderr.String()))
	}
	return out, nil
}

// @@ -oldStart,oldLen +newStart,newLen @@
var chunkHeader = regexp.MustCompile(`^@@ -\d+(?:,\d+)? \+(\d+)(?:,(\d+))? @@`)

// ParseDiff reads unified diff output with zero context lines.
func ParseDiff(r io.Reader) ([]ChangedFile, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	var changes []ChangedFile
	var current *ChangedFile

	flush := func() {
		if current != nil {
			changes = append(changes, *current)
			current = nil
		}
	}

	for scanner.Scan() {
		line := scanner.Text()

		switch {
		case strings.HasPrefix(line, "diff --git "):
			flush()
			parts := strings.Fields(line)
			if len(parts) >= 4 {
				current = &ChangedFile{Path: strings.TrimPrefix(parts[3], "b/")}
			}
			continue
		case current == nil:
			continue
		case strings.HasPrefix(line, "+++ "):
			// the new name wins over the header for renames
			if target := strings.TrimPrefix(line, "+++ "); target != "/dev/null" {
				current.Path = strings.TrimPrefix(target, "b/")
			}
			continue
		}

		if m := chunkHeader.FindStringSubmatch(line); m != nil {
			start, _ := strconv.Atoi(m[1])
			count := 1
			if m[2] != "" {
				count, _ = strconv.Atoi(m[2])
			}
			for i := 0; i < count; i++ {
				current.Lines = append(current.Lines, start+i)
			}
		}
	}
	flush()
	return changes, scanner.Err()
}

// Changes indexes changed lines by file.
type Changes map[string][]int

func NewChanges(files []ChangedFile) Changes {
	c := make(Changes, len(files))
	for _, f := range files {
		lines := append(c[f.Path], f.Lines...)
		slices.Sort(lines)
		c[f.Path] = slices.Compact(lines)
	}
	return c
}

// Touches reports whether file changed at all.
func (c Changes) Touches(file string) bool {
	_, ok := c[file]
	return ok
}

// Overlaps reports whether any changed line of file lies in [from, to].
func (c Changes) Overlaps(file string, from, to int) bool {
	lines := c[file]
	i, _ := slices.BinarySearch(lines, from)
	return i < len(lines) && lines[i] <= to
}

// Files returns the changed paths, sorted.
func (c Changes) Files() []string {
	out := make([]string, 0, len(c))
	for f := range c {
		out = append(out, f)
	}
	slices.Sort(out)
	return out
}
