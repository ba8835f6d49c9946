package crawler

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCrawler_Sources(t *testing.T) {
	root := filepath.Join("testdata", "tree")

	t.Run("go only", func(t *testing.T) {
		files, err := NewCrawler(".go").Sources(context.Background(), root)
		require.NoError(t, err)
		assert.Equal(t, []string{
			filepath.Join(root, "main.go"),
			filepath.Join(root, "pkg", "util.go"),
		}, files)
	})

	t.Run("mixed languages skip build output", func(t *testing.T) {
		files, err := NewCrawler(".go", ".cs").Sources(context.Background(), root)
		require.NoError(t, err)
		assert.Equal(t, []string{
			filepath.Join(root, "main.go"),
			filepath.Join(root, "pkg", "Util.cs"),
			filepath.Join(root, "pkg", "util.go"),
		}, files)
	})

	t.Run("extra ignores", func(t *testing.T) {
		c := NewCrawler(".go")
		c.Ignore("pkg")
		files, err := c.Sources(context.Background(), root)
		require.NoError(t, err)
		assert.Equal(t, []string{filepath.Join(root, "main.go")}, files)
	})
}

func TestCrawler_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewCrawler(".go").Sources(ctx, filepath.Join("testdata", "tree"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCrawler_MissingRoot(t *testing.T) {
	_, err := NewCrawler(".go").Sources(context.Background(), filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}
