package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRoot() *cobra.Command {
	root := &cobra.Command{Use: "partflow"}
	root.AddCommand(&cobra.Command{Use: "run", Run: func(*cobra.Command, []string) {}})
	return root
}

func TestWriteCompletions_AllShells(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "completions")

	written, err := writeCompletions(testRoot(), dir)
	require.NoError(t, err)

	want := []string{"partflow.bash", "_partflow", "partflow.fish", "partflow.ps1"}
	require.Len(t, written, len(want))
	for i, name := range want {
		assert.Equal(t, filepath.Join(dir, name), written[i])

		data, err := os.ReadFile(written[i])
		require.NoError(t, err)
		assert.Contains(t, string(data), "partflow", "%s should complete the partflow binary", name)
	}
}

func TestWriteCompletions_OutputDirIsAFile(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "completions")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	written, err := writeCompletions(testRoot(), blocker)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "creating output dir")
	assert.Empty(t, written)
}
