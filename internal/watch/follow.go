package watch

import (
	"context"

	"gather/internal/log"
	"gather/internal/organize"
	"gather/pkg/types"
)

// Stats counts what a follow session did
type Stats struct {
	Seen    int
	Moved   int
	Planned int
	Skipped int
	Failed  int
}

func (s *Stats) add(res types.MoveResult) {
	switch res.Status {
	case types.StatusMoved:
		s.Moved++
	case types.StatusPlanned:
		s.Planned++
	case types.StatusSkipped:
		s.Skipped++
	case types.StatusFailed:
		s.Failed++
	}
}

// Follower hands every file event from a Watcher to an Organizer
type Follower struct {
	watcher   *Watcher
	organizer organize.Organizer
	logger    *log.Logger
	onResult  func(types.MoveResult)
	stats     Stats
}

// NewFollower creates a follower. onResult may be nil.
func NewFollower(w *Watcher, org organize.Organizer, logger *log.Logger, onResult func(types.MoveResult)) *Follower {
	if logger == nil {
		logger = log.Default()
	}
	return &Follower{
		watcher:   w,
		organizer: org,
		logger:    logger,
		onResult:  onResult,
	}
}

// Follow watches dirs and organizes matching files until ctx is done or the
// watcher stops. A failed move is reported and following continues.
func (f *Follower) Follow(ctx context.Context, dirs []string) (Stats, error) {
	for _, dir := range dirs {
		if err := f.watcher.AddDirectory(dir); err != nil {
			return f.stats, err
		}
	}
	if err := f.watcher.Start(); err != nil {
		return f.stats, err
	}
	defer f.watcher.Stop()

	f.logger.With(log.F("directories", len(dirs)), log.F("dry_run", f.organizer.IsDryRun())).
		Info("following directories")

	events := f.watcher.FileChannel()
	for {
		select {
		case <-ctx.Done():
			f.logger.With(log.F("moved", f.stats.Moved), log.F("failed", f.stats.Failed)).
				Info("stopped following")
			return f.stats, nil

		case mod, ok := <-events:
			if !ok {
				return f.stats, nil
			}
			f.stats.Seen++
			res, handled := f.organizer.OrganizeFile(mod.Path)
			if !handled {
				f.logger.With(log.F("file", mod.Path)).Debug("ignoring file")
				continue
			}
			f.stats.add(res)
			if f.onResult != nil {
				f.onResult(res)
			}
		}
	}
}
