// Package testutil holds helpers shared by package tests.
package testutil

import (
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"testing"
)

// NewTestLogger returns a debug logger that writes through t.Log, so
// output only shows for failing tests or with -v.
func NewTestLogger(t testing.TB) *slog.Logger {
	t.Helper()
	return slog.New(slog.NewTextHandler(logWriter{t}, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

type logWriter struct{ t testing.TB }

func (w logWriter) Write(p []byte) (int, error) {
	w.t.Helper()
	w.t.Log(string(p))
	return len(p), nil
}

// WriteTree creates files under dir. Keys are slash-separated relative
// paths. It returns the absolute paths written, sorted.
func WriteTree(t testing.TB, dir string, files map[string]string) []string {
	t.Helper()
	var out []string
	for rel, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", p, err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", p, err)
		}
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
