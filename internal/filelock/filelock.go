// Package filelock serializes runs that share a target directory across
// processes, using advisory file locks.
package filelock

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"gather/internal/errors"

	"github.com/gofrs/flock"
)

// FileLock wraps a flock file lock for coordinating access to a target directory.
type FileLock struct {
	flock *flock.Flock
	path  string
}

// NewFileLock creates a new file lock at the given path.
func NewFileLock(path string) *FileLock {
	return &FileLock{
		flock: flock.New(path),
		path:  path,
	}
}

// Path returns the lock file path
func (fl *FileLock) Path() string {
	return fl.path
}

// TryLock attempts to acquire an exclusive lock without blocking.
// Returns false if the lock is held elsewhere.
func (fl *FileLock) TryLock() (bool, error) {
	acquired, err := fl.flock.TryLock()
	if err != nil {
		return false, fmt.Errorf("failed to try lock on %s: %w", fl.path, err)
	}
	return acquired, nil
}

// Unlock releases the lock.
func (fl *FileLock) Unlock() error {
	if err := fl.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to release lock on %s: %w", fl.path, err)
	}
	return nil
}

// LockPath returns the lock file used for a target directory. The file lives
// in the temp directory so the target never contains it, and it is never
// removed: unlinking a lock file lets two processes lock different inodes.
func LockPath(dir string) string {
	abs, err := filepath.Abs(dir)
	if err != nil {
		abs = filepath.Clean(dir)
	}
	sum := sha256.Sum256([]byte(abs))
	return filepath.Join(os.TempDir(), "gather-"+hex.EncodeToString(sum[:8])+".lock")
}

// DirLocker takes one non-blocking lock per target directory.
type DirLocker struct{}

// Acquire locks dir for the current run. A lock already held by another run
// fails immediately with LockFailed.
func (DirLocker) Acquire(dir string) (func() error, error) {
	lock := NewFileLock(LockPath(dir))
	acquired, err := lock.TryLock()
	if err != nil {
		return nil, errors.NewFileError("lock target", dir, errors.LockFailed, err)
	}
	if !acquired {
		return nil, errors.NewFileError("lock target", dir, errors.LockFailed,
			fmt.Errorf("another run holds %s", lock.Path()))
	}
	return lock.Unlock, nil
}
