package join

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConcatenatePreservesOrder(t *testing.T) {
	dir := t.TempDir()
	paths := make([]string, 3)
	contents := []string{"aaa", "bbb", "ccc"}
	for i, c := range contents {
		paths[i] = filepath.Join(dir, string(rune('a'+i)))
		require.NoError(t, os.WriteFile(paths[i], []byte(c), 0o644))
	}

	dest := filepath.Join(dir, "out")
	require.NoError(t, Concatenate(context.Background(), paths, dest))

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "aaabbbccc", string(got))
}

func TestConcatenateEmptyList(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "out")
	require.NoError(t, Concatenate(context.Background(), nil, dest))

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Empty(t, got)
}
