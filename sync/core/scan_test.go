package core

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		abs := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0o755))
		require.NoError(t, os.WriteFile(abs, []byte(content), 0o644))
	}
}

func TestScan_BasicTreeIsSortedAndHashed(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"b.txt":        "bbb",
		"a.txt":        "aaa",
		"sub/c.txt":    "ccc",
		"sub/sub2/d.txt": "ddd",
	})

	result, err := Scan(context.Background(), root, ScanOptions{})
	require.NoError(t, err)
	assert.Empty(t, result.Problems)

	var paths []string
	for _, e := range result.Inventory.Entries {
		paths = append(paths, e.RelPath)
	}
	assert.IsIncreasing(t, paths)

	byPath := result.Inventory.ByPath()
	require.Contains(t, byPath, "a.txt")
	assert.True(t, byPath["a.txt"].IsRegular())
	assert.NotEmpty(t, byPath["a.txt"].Hash)
}

func TestScan_SymlinksAreRecordedNotFollowed(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"target.txt": "hello"})
	require.NoError(t, os.Symlink("target.txt", filepath.Join(root, "link.txt")))

	result, err := Scan(context.Background(), root, ScanOptions{})
	require.NoError(t, err)

	byPath := result.Inventory.ByPath()
	require.Contains(t, byPath, "link.txt")
	assert.Equal(t, EntryKindSymlink, byPath["link.txt"].Kind)
	assert.Equal(t, "target.txt", byPath["link.txt"].Target)
}

func TestScan_RootUnavailableIsFatal(t *testing.T) {
	_, err := Scan(context.Background(), "/nonexistent/path/does/not/exist", ScanOptions{})
	assert.ErrorIs(t, err, ErrRootUnavailable)
}

func TestScan_RootMustBeDirectory(t *testing.T) {
	root := t.TempDir()
	filePath := filepath.Join(root, "file.txt")
	require.NoError(t, os.WriteFile(filePath, []byte("x"), 0o644))

	_, err := Scan(context.Background(), filePath, ScanOptions{})
	assert.ErrorIs(t, err, ErrRootUnavailable)
}

func TestScan_IdenticalContentProducesIdenticalHashesAcrossRoots(t *testing.T) {
	rootA, rootB := t.TempDir(), t.TempDir()
	writeTree(t, rootA, map[string]string{"a.txt": "shared content"})
	writeTree(t, rootB, map[string]string{"elsewhere.txt": "shared content"})

	resultA, err := Scan(context.Background(), rootA, ScanOptions{})
	require.NoError(t, err)
	resultB, err := Scan(context.Background(), rootB, ScanOptions{})
	require.NoError(t, err)

	assert.True(t, resultA.Inventory.Entries[0].Hash.Equal(resultB.Inventory.Entries[0].Hash))
}
