package testutils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

// CreateTestFilesWithContent creates files (and their parent directories)
// under dir. Keys are slash-separated paths relative to dir.
func CreateTestFilesWithContent(t *testing.T, fs afero.Fs, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, fs.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0644))
	}
}

// CreateTestFilesWithDefault creates the tree dir/{a.txt, b.log, sub/a.txt}
func CreateTestFilesWithDefault(t *testing.T, fs afero.Fs, dir string) {
	t.Helper()
	CreateTestFilesWithContent(t, fs, dir, map[string]string{
		"a.txt":     "root a",
		"b.log":     "root b",
		"sub/a.txt": "sub a",
	})
}

// Exists reports whether path exists on fs
func Exists(t *testing.T, fs afero.Fs, path string) bool {
	t.Helper()
	ok, err := afero.Exists(fs, path)
	require.NoError(t, err)
	return ok
}

// ReadString returns the content of path, failing the test if it is missing
func ReadString(t *testing.T, fs afero.Fs, path string) string {
	t.Helper()
	data, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	return string(data)
}

// Snapshot maps every regular file under root (slash-separated, relative to
// root) to its content. A missing root yields an empty map.
func Snapshot(t *testing.T, fs afero.Fs, root string) map[string]string {
	t.Helper()
	out := make(map[string]string)
	if !Exists(t, fs, root) {
		return out
	}
	err := afero.Walk(fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		data, err := afero.ReadFile(fs, path)
		if err != nil {
			return err
		}
		out[filepath.ToSlash(rel)] = string(data)
		return nil
	})
	require.NoError(t, err)
	return out
}
