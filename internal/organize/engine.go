package organize

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gather/internal/config"
	"gather/internal/errors"
	"gather/internal/log"
	"gather/pkg/types"

	"github.com/spf13/afero"
)

// maxRenameAttempts bounds the name_(N).ext search
const maxRenameAttempts = 1000

// Engine matches and moves files into a single flat target directory.
type Engine struct {
	fs        afero.Fs
	matcher   *Matcher
	target    string
	collision string
	dryRun    bool
	logger    *log.Logger
	locks     keyedMutex // one lock per destination path
}

// NewEngine creates an Engine for cfg operating on fs.
func NewEngine(fs afero.Fs, cfg *config.Config, logger *log.Logger) (*Engine, error) {
	matcher, err := NewMatcher(cfg.Pattern, cfg.Exclude)
	if err != nil {
		return nil, errors.NewConfigError("invalid configuration", "exclude", err)
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Engine{
		fs:        fs,
		matcher:   matcher,
		target:    filepath.Clean(cfg.TargetPath),
		collision: cfg.Settings.Collision,
		dryRun:    cfg.Settings.DryRun,
		logger:    logger,
		locks:     keyedMutex{locks: make(map[string]*keyedEntry)},
	}, nil
}

// IsDryRun returns whether the engine is in dry run mode
func (e *Engine) IsDryRun() bool {
	return e.dryRun
}

// Target returns the target directory
func (e *Engine) Target() string {
	return e.target
}

// Destination is target joined with the source's base name.
func (e *Engine) Destination(source string) string {
	return filepath.Join(e.target, filepath.Base(source))
}

// MatchDirectory lists one directory and returns its candidate moves, plus a
// failed result for every entry whose name could not be used.
func (e *Engine) MatchDirectory(dir string) ([]types.Move, []types.MoveResult, error) {
	e.logger.With(log.F("directory", dir)).Info("scanning directory")
	moves, invalid, err := e.matcher.MatchDirectory(e.fs, dir, func(path string) {
		e.logger.With(log.F("file", path)).Debug("checking file")
	})
	for _, res := range invalid {
		e.logger.With(log.F("source", res.Source), log.F("error", res.Error)).Error("invalid file name")
	}
	return moves, invalid, err
}

// MoveFile renames mv.Source to mv.Destination. The destination's parent is
// created on demand. The existence check and the rename happen under a
// per-destination lock; a destination that appeared since planning is handled
// with the collision strategy again.
func (e *Engine) MoveFile(mv types.Move) types.MoveResult {
	res := types.MoveResult{Move: mv}
	src := filepath.Clean(mv.Source)
	dest := filepath.Clean(mv.Destination)

	if src == dest {
		e.logger.With(log.F("file", src)).Debug("already in target, skipping")
		res.Status = types.StatusSkipped
		res.Detail = types.DetailInPlace
		return res
	}

	info, err := e.lstat(src)
	if err != nil {
		return e.fail(res, errors.NewFileError("stat source", src, errors.MoveFailed, err))
	}
	if !info.Mode().IsRegular() {
		return e.fail(res, errors.NewFileError("move", src, errors.MoveFailed,
			fmt.Errorf("not a regular file")))
	}

	if e.dryRun {
		e.logger.With(log.F("source", src), log.F("destination", dest)).Info("would move file")
		res.Status = types.StatusPlanned
		return res
	}

	destDir := filepath.Dir(dest)
	if err := e.fs.MkdirAll(destDir, 0755); err != nil {
		return e.fail(res, errors.NewFileError("create directory", destDir, errors.DirectoryCreateFailed, err))
	}

	unlock := e.locks.Lock(dest)
	defer unlock()

	final, status, err := e.resolve(src, dest, e.existsOnDisk)
	if err != nil {
		return e.fail(res, err)
	}
	if status == types.StatusSkipped {
		res.Status = status
		res.Detail = types.DetailExists
		return res
	}

	// A late rename picked another name. Hold that name's lock too, and pick
	// again if someone else took it meanwhile. uniqueName only lengthens names,
	// so locks are always taken in the same order.
	for final != dest {
		unlockFinal := e.locks.Lock(final)
		if !e.existsOnDisk(final) {
			defer unlockFinal()
			break
		}
		unlockFinal()
		if final, err = uniqueName(dest, e.existsOnDisk); err != nil {
			return e.fail(res, err)
		}
	}

	if err := e.fs.Rename(src, final); err != nil {
		return e.fail(res, errors.NewFileError("move", src, errors.MoveFailed, err))
	}

	res.Destination = final
	res.Status = types.StatusMoved
	e.logger.With(log.F("source", src), log.F("destination", final)).Info("moved file")
	return res
}

// OrganizeFile moves a single file if it matches. It reports false when the
// file is not a match, so callers can ignore unrelated paths.
func (e *Engine) OrganizeFile(path string) (types.MoveResult, bool) {
	info, err := e.lstat(path)
	if err != nil || !info.Mode().IsRegular() || !e.matcher.Matches(info.Name()) {
		return types.MoveResult{}, false
	}
	mv := types.Move{Source: path, Size: info.Size()}
	dest, status, err := e.resolve(path, e.Destination(path), e.existsOnDisk)
	if err != nil {
		return e.fail(types.MoveResult{Move: mv}, err), true
	}
	if status == types.StatusSkipped {
		return types.MoveResult{Move: mv, Status: status, Detail: types.DetailExists}, true
	}
	mv.Destination = dest
	return e.MoveFile(mv), true
}

// resolve applies the collision strategy to dest. taken reports whether a
// path is already in use. It returns the destination to use, or StatusSkipped
// when the file stays where it is.
func (e *Engine) resolve(src, dest string, taken func(string) bool) (string, types.MoveStatus, error) {
	if filepath.Clean(src) == filepath.Clean(dest) || !taken(dest) {
		return dest, "", nil
	}

	switch e.collision {
	case config.CollisionSkip:
		e.logger.With(log.F("file", src), log.F("destination", dest)).Info("destination exists, skipping")
		return "", types.StatusSkipped, nil

	case config.CollisionRename:
		unique, err := uniqueName(dest, taken)
		if err != nil {
			return "", "", err
		}
		e.logger.With(log.F("file", src), log.F("destination", unique)).Info("destination exists, renaming")
		return unique, "", nil

	case config.CollisionFail:
		return "", "", errors.NewFileError("move", dest, errors.NameCollision,
			fmt.Errorf("destination already exists (source %s)", src))

	default:
		return "", "", errors.NewConfigError("unknown collision strategy", e.collision, nil)
	}
}

// uniqueName finds name_(N).ext for the first N not taken.
func uniqueName(path string, taken func(string) bool) (string, error) {
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)

	for counter := 1; counter <= maxRenameAttempts; counter++ {
		candidate := fmt.Sprintf("%s_(%d)%s", base, counter, ext)
		if !taken(candidate) {
			return candidate, nil
		}
	}
	return "", errors.NewFileError("move", path, errors.NameCollision,
		fmt.Errorf("no free name after %d attempts", maxRenameAttempts))
}

func (e *Engine) existsOnDisk(path string) bool {
	_, err := e.lstat(path)
	return err == nil
}

func (e *Engine) lstat(path string) (os.FileInfo, error) {
	if lst, ok := e.fs.(afero.Lstater); ok {
		info, _, err := lst.LstatIfPossible(path)
		return info, err
	}
	return e.fs.Stat(path)
}

func (e *Engine) fail(res types.MoveResult, err error) types.MoveResult {
	res.Status = types.StatusFailed
	res.Error = err
	e.logger.With(log.F("source", res.Source), log.F("error", err)).Error("move failed")
	return res
}

type keyedEntry struct {
	mu   sync.Mutex
	refs int
}

// keyedMutex hands out one mutex per key and forgets keys nobody holds.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedEntry
}

func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	entry, ok := k.locks[key]
	if !ok {
		entry = &keyedEntry{}
		k.locks[key] = entry
	}
	entry.refs++
	k.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		k.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
