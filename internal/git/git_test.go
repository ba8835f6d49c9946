package git

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDiff = `diff --git a/core/util.go b/core/util.go
index 3b18e51..a2c4f1d 100644
--- a/core/util.go
+++ b/core/util.go
@@ -3,0 +4,2 @@ package core
+func added() {}
+
@@ -10 +12 @@ func Helper() {
-	return 1
+	return 2
diff --git a/api/old.go b/api/new.go
similarity index 90%
rename from api/old.go
rename to api/new.go
--- a/api/old.go
+++ b/api/new.go
@@ -1,3 +1,3 @@
diff --git a/web/gone.go b/web/gone.go
deleted file mode 100644
--- a/web/gone.go
+++ /dev/null
@@ -1,4 +0,0 @@
-package web
`

func TestParseDiff(t *testing.T) {
	changes, err := ParseDiff(strings.NewReader(sampleDiff))
	require.NoError(t, err)
	assert.Equal(t, []ChangedFile{
		{Path: "core/util.go", Lines: []int{4, 5, 12}},
		{Path: "api/new.go", Lines: []int{1, 2, 3}},
		{Path: "web/gone.go"},
	}, changes)
}

func TestChanges(t *testing.T) {
	c := NewChanges([]ChangedFile{
		{Path: "a.go", Lines: []int{9, 3}},
		{Path: "a.go", Lines: []int{3, 20}},
		{Path: "b.go"},
	})
	assert.Equal(t, []int{3, 9, 20}, c["a.go"])
	assert.Equal(t, []string{"a.go", "b.go"}, c.Files())

	tests := []struct {
		file     string
		from, to int
		want     bool
	}{
		{"a.go", 1, 2, false},
		{"a.go", 1, 3, true},
		{"a.go", 10, 19, false},
		{"a.go", 20, 20, true},
		{"a.go", 21, 30, false},
		{"b.go", 1, 100, false},
		{"c.go", 1, 100, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, c.Overlaps(tt.file, tt.from, tt.to), "%s %d-%d", tt.file, tt.from, tt.to)
	}
	assert.True(t, c.Touches("b.go"))
	assert.False(t, c.Touches("c.go"))
}
