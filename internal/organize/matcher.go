package organize

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"gather/internal/errors"
	"gather/pkg/types"

	"github.com/gobwas/glob"
	"github.com/spf13/afero"
)

// Matcher selects files by plain substring containment on the base name.
// Names matching any exclude glob are never selected.
type Matcher struct {
	pattern string
	exclude []glob.Glob
}

// NewMatcher compiles the exclude globs. An empty pattern matches every name.
func NewMatcher(pattern string, exclude []string) (*Matcher, error) {
	m := &Matcher{pattern: pattern}
	for _, ex := range exclude {
		g, err := glob.Compile(ex)
		if err != nil {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", ex, err)
		}
		m.exclude = append(m.exclude, g)
	}
	return m, nil
}

// Matches reports whether name should be moved.
func (m *Matcher) Matches(name string) bool {
	if !strings.Contains(name, m.pattern) {
		return false
	}
	for _, g := range m.exclude {
		if g.Match(name) {
			return false
		}
	}
	return true
}

// MatchDirectory lists dir and returns a Move for every regular file directly
// inside it whose name matches. Destinations are left empty for the planner.
//
// Entries whose names are not valid UTF-8 come back as failed results with
// FileNameInvalid; they never stop the rest of the directory. The error is
// only set when dir cannot be listed (DirectoryUnreadable).
func (m *Matcher) MatchDirectory(fs afero.Fs, dir string, onCheck func(path string)) ([]types.Move, []types.MoveResult, error) {
	entries, err := afero.ReadDir(fs, dir)
	if err != nil {
		return nil, nil, errors.NewFileError("read directory", dir, errors.DirectoryUnreadable, err)
	}

	var (
		moves   []types.Move
		invalid []types.MoveResult
	)
	for _, entry := range entries {
		if !entry.Mode().IsRegular() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if !utf8.ValidString(entry.Name()) {
			invalid = append(invalid, types.MoveResult{
				Move:   types.Move{Source: path, Size: entry.Size()},
				Status: types.StatusFailed,
				Error: errors.NewFileError("read file name", path, errors.FileNameInvalid,
					fmt.Errorf("name is not valid UTF-8: %q", entry.Name())),
			})
			continue
		}
		if onCheck != nil {
			onCheck(path)
		}
		if !m.Matches(entry.Name()) {
			continue
		}
		moves = append(moves, types.Move{Source: path, Size: entry.Size()})
	}
	return moves, invalid, nil
}
