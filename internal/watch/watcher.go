package watch

import (
	"fmt"
	"os"
	"sync"
	"time"

	"gather/internal/errors"
	"gather/internal/log"

	"github.com/fsnotify/fsnotify"
)

// DefaultBuffer is the capacity of the event channel
const DefaultBuffer = 64

// FileModification represents a file event detected by the watcher
type FileModification struct {
	Path      string
	Info      os.FileInfo
	Timestamp time.Time
	Op        fsnotify.Op
}

// Watcher monitors directories for created or written regular files
type Watcher struct {
	directories []string

	fileModChan chan FileModification
	stopChan    chan struct{}
	done        chan struct{}

	fsWatcher *fsnotify.Watcher
	logger    *log.Logger

	mutex   sync.RWMutex
	running bool
	dropped int
}

// Option configures a Watcher
type Option func(*Watcher)

// WithBuffer sets the event channel capacity
func WithBuffer(n int) Option {
	return func(w *Watcher) {
		if n > 0 {
			w.fileModChan = make(chan FileModification, n)
		}
	}
}

// WithLogger sets the logger used for watcher events
func WithLogger(l *log.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

// New creates a new directory watcher using fsnotify
func New(opts ...Option) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create fsnotify watcher")
	}

	w := &Watcher{
		fileModChan: make(chan FileModification, DefaultBuffer),
		stopChan:    make(chan struct{}),
		done:        make(chan struct{}),
		fsWatcher:   fsWatcher,
		logger:      log.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// AddDirectory adds a directory to watch. Subdirectories are not followed.
func (w *Watcher) AddDirectory(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return errors.NewFileError("watch directory", dir, errors.DirectoryUnreadable, err)
	}
	if !info.IsDir() {
		return errors.NewFileError("watch directory", dir, errors.DirectoryUnreadable,
			fmt.Errorf("not a directory"))
	}

	if err := w.fsWatcher.Add(dir); err != nil {
		return errors.NewFileError("watch directory", dir, errors.DirectoryUnreadable, err)
	}

	w.mutex.Lock()
	found := false
	for _, existing := range w.directories {
		if existing == dir {
			found = true
			break
		}
	}
	if !found {
		w.directories = append(w.directories, dir)
	}
	w.mutex.Unlock()

	w.logger.With(log.F("directory", dir)).Info("watching directory")
	return nil
}

// FileChannel returns the channel that delivers file events. It is closed
// once the watcher stops.
func (w *Watcher) FileChannel() <-chan FileModification {
	return w.fileModChan
}

// Start begins the event loop. A watcher can be started once.
func (w *Watcher) Start() error {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	if w.running {
		return errors.New("watcher already running")
	}
	select {
	case <-w.done:
		return errors.New("watcher already stopped")
	default:
	}
	w.running = true

	go w.loop()
	return nil
}

func (w *Watcher) loop() {
	defer close(w.done)
	defer close(w.fileModChan)

	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) {
				continue
			}

			// The file may be gone already; symlinks and directories are ignored.
			info, err := os.Lstat(event.Name)
			if err != nil {
				if !os.IsNotExist(err) {
					w.logger.With(log.F("file", event.Name), log.F("error", err)).Warn("cannot stat file")
				}
				continue
			}
			if !info.Mode().IsRegular() {
				continue
			}

			mod := FileModification{
				Path:      event.Name,
				Info:      info,
				Timestamp: time.Now(),
				Op:        event.Op,
			}
			select {
			case w.fileModChan <- mod:
			case <-w.stopChan:
				return
			default:
				w.mutex.Lock()
				w.dropped++
				w.mutex.Unlock()
				w.logger.With(log.F("file", event.Name)).Warn("event channel is full, dropped event")
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.With(log.F("error", err)).Error("fsnotify watcher error")

		case <-w.stopChan:
			return
		}
	}
}

// Stop halts the event loop and waits for it to exit
func (w *Watcher) Stop() {
	w.mutex.Lock()
	if !w.running {
		w.mutex.Unlock()
		return
	}
	w.running = false
	close(w.stopChan)
	w.mutex.Unlock()

	<-w.done
	if err := w.fsWatcher.Close(); err != nil {
		w.logger.With(log.F("error", err)).Warn("cannot close fsnotify watcher")
	}
}

// IsRunning returns whether the watcher is currently active
func (w *Watcher) IsRunning() bool {
	w.mutex.RLock()
	defer w.mutex.RUnlock()
	return w.running
}

// Dropped returns how many events were discarded because the channel was full
func (w *Watcher) Dropped() int {
	w.mutex.RLock()
	defer w.mutex.RUnlock()
	return w.dropped
}

// Directories returns the directories being watched
func (w *Watcher) Directories() []string {
	w.mutex.RLock()
	defer w.mutex.RUnlock()
	dirs := make([]string, len(w.directories))
	copy(dirs, w.directories)
	return dirs
}
