package resize

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEnsureCacheDirCreatesNestedDirsWithGuards(t *testing.T) {
	root := t.TempDir()
	dest := filepath.Join(root, "images", "hbnimages", "w300", "photos", "a.webp")

	require.NoError(t, EnsureCacheDir(root, dest))

	for _, dir := range []string{
		filepath.Join(root, "images"),
		filepath.Join(root, "images", "hbnimages"),
		filepath.Join(root, "images", "hbnimages", "w300"),
		filepath.Join(root, "images", "hbnimages", "w300", "photos"),
	} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		require.True(t, info.IsDir())

		guard, err := os.ReadFile(filepath.Join(dir, guardFileName))
		require.NoError(t, err)
		require.Contains(t, string(guard), "<!DOCTYPE html>")
	}
}

func TestEnsureCacheDirIdempotent(t *testing.T) {
	root := t.TempDir()
	dest := filepath.Join(root, "cache", "w100", "a.png")

	require.NoError(t, EnsureCacheDir(root, dest))
	require.NoError(t, EnsureCacheDir(root, dest))
}

func TestEnsureCacheDirFastPathSkipsGuardWork(t *testing.T) {
	root := t.TempDir()
	parent := filepath.Join(root, "cache", "w100")
	require.NoError(t, os.MkdirAll(parent, 0o755))

	require.NoError(t, EnsureCacheDir(root, filepath.Join(parent, "a.png")))

	// The parent existed up front, so no guard files get written.
	_, err := os.Stat(filepath.Join(parent, guardFileName))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestEnsureCacheDirDoesNotOverwriteGuard(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "cache")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	custom := []byte("custom guard")
	require.NoError(t, os.WriteFile(filepath.Join(dir, guardFileName), custom, 0o644))

	require.NoError(t, EnsureCacheDir(root, filepath.Join(dir, "w100", "a.png")))

	guard, err := os.ReadFile(filepath.Join(dir, guardFileName))
	require.NoError(t, err)
	require.Equal(t, custom, guard)
}

func TestEnsureCacheDirRejectsPathOutsideRoot(t *testing.T) {
	root := t.TempDir()
	other := t.TempDir()
	err := EnsureCacheDir(root, filepath.Join(other, "cache", "a.png"))
	require.Error(t, err)
}
