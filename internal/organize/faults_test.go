package organize_test

import (
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/afero"
)

// faultyFs fails Open or Rename for chosen paths.
type faultyFs struct {
	afero.Fs
	failOpen   map[string]bool
	failRename map[string]bool
}

func (f *faultyFs) Open(name string) (afero.File, error) {
	if f.failOpen[filepath.Clean(name)] {
		return nil, fmt.Errorf("open %s: permission denied", name)
	}
	return f.Fs.Open(name)
}

func (f *faultyFs) Rename(oldname, newname string) error {
	if f.failRename[filepath.Clean(oldname)] {
		return fmt.Errorf("rename %s: invalid cross-device link", oldname)
	}
	return f.Fs.Rename(oldname, newname)
}

// countingFs records how many Open calls are in flight at once.
type countingFs struct {
	afero.Fs
	delay  time.Duration
	active atomic.Int32

	mu  sync.Mutex
	max int32
}

func (c *countingFs) Open(name string) (afero.File, error) {
	n := c.active.Add(1)
	c.mu.Lock()
	if n > c.max {
		c.max = n
	}
	c.mu.Unlock()
	time.Sleep(c.delay)
	c.active.Add(-1)
	return c.Fs.Open(name)
}

func (c *countingFs) peak() int32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.max
}
