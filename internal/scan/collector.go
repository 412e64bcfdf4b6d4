// Package scan builds the list of directories a run processes.
package scan

import (
	"fmt"
	"os"
	"path/filepath"

	"gather/internal/errors"

	"github.com/spf13/afero"
)

// Options configures directory collection
type Options struct {
	// SkipDirs are directories left out of the result, typically the target
	// directory when it sits directly under the root
	SkipDirs []string
}

// CollectDirectories returns root followed by each immediate subdirectory of
// root in listing order. Grandchildren are never included and symlinked
// directories are not followed.
func CollectDirectories(fs afero.Fs, root string, opts Options) ([]string, error) {
	info, err := fs.Stat(root)
	if err != nil {
		return nil, errors.NewFileError("read directory", root, errors.DirectoryUnreadable, err)
	}
	if !info.IsDir() {
		return nil, errors.NewFileError("read directory", root, errors.DirectoryUnreadable,
			fmt.Errorf("not a directory"))
	}

	entries, err := afero.ReadDir(fs, root)
	if err != nil {
		return nil, errors.NewFileError("read directory", root, errors.DirectoryUnreadable, err)
	}

	skip := make(map[string]bool, len(opts.SkipDirs))
	for _, dir := range opts.SkipDirs {
		skip[filepath.Clean(dir)] = true
	}

	dirs := []string{root}
	for _, entry := range entries {
		if !entry.IsDir() || entry.Mode()&os.ModeSymlink != 0 {
			continue
		}
		path := filepath.Join(root, entry.Name())
		if skip[filepath.Clean(path)] {
			continue
		}
		dirs = append(dirs, path)
	}
	return dirs, nil
}
