package organize

import (
	"context"

	"gather/internal/config"
	"gather/internal/errors"
	"gather/internal/log"
	"gather/internal/scan"
	"gather/pkg/types"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"
)

// Locker serializes runs that share a target directory.
type Locker interface {
	Acquire(dir string) (release func() error, err error)
}

// Runner processes every collected directory with a bounded pool of workers.
type Runner struct {
	fs     afero.Fs
	cfg    *config.Config
	engine *Engine
	logger *log.Logger
	locker Locker
	runID  string
}

// RunnerOption configures a Runner
type RunnerOption func(*Runner)

// WithLogger sets the event sink; events carry a run_id field.
func WithLogger(l *log.Logger) RunnerOption {
	return func(r *Runner) { r.logger = l }
}

// WithLocker takes a lock on the target before any move.
func WithLocker(l Locker) RunnerOption {
	return func(r *Runner) { r.locker = l }
}

// WithRunID overrides the generated run id.
func WithRunID(id string) RunnerOption {
	return func(r *Runner) { r.runID = id }
}

// NewRunner validates cfg and prepares a run over fs.
func NewRunner(fs afero.Fs, cfg *config.Config, opts ...RunnerOption) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	r := &Runner{
		fs:     fs,
		cfg:    cfg,
		logger: log.Default(),
		runID:  uuid.NewString(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With(log.F("run_id", r.runID))

	engine, err := NewEngine(fs, cfg, r.logger)
	if err != nil {
		return nil, err
	}
	r.engine = engine
	return r, nil
}

// Engine returns the engine used for matching and moving
func (r *Runner) Engine() *Engine {
	return r.engine
}

// RunID returns the id attached to every event of this run
func (r *Runner) RunID() string {
	return r.runID
}

// Run collects directories, matches them concurrently, plans destinations and
// moves files concurrently. With fail-fast the first failure stops the run and
// is returned; otherwise every unit runs and the joined failures are returned.
// The report is returned in both cases.
func (r *Runner) Run(ctx context.Context) (*types.Report, error) {
	settings := r.cfg.Settings
	report := &types.Report{
		RunID:   r.runID,
		Pattern: r.cfg.Pattern,
		Target:  r.engine.Target(),
		DryRun:  settings.DryRun,
	}

	r.logger.With(
		log.F("pattern", r.cfg.Pattern),
		log.F("source", r.cfg.SourcePath),
		log.F("target", r.engine.Target()),
		log.F("workers", settings.Workers),
		log.F("collision", settings.Collision),
		log.F("fail_fast", settings.FailFast),
		log.F("dry_run", settings.DryRun),
	).Info("starting run")

	dirs, err := scan.CollectDirectories(r.fs, r.cfg.SourcePath, scan.Options{
		SkipDirs: []string{r.engine.Target()},
	})
	if err != nil {
		r.logger.With(log.F("error", err)).Error("cannot collect directories")
		return report, err
	}
	report.Directories = dirs

	units := make([]*unitPlan, len(dirs))
	for i, dir := range dirs {
		r.logger.With(log.F("directory", dir)).Info("candidate directory")
		units[i] = &unitPlan{dir: dir}
	}

	err = r.fanOut(ctx, units, func(ctx context.Context, u *unitPlan) error {
		moves, invalid, err := r.engine.MatchDirectory(u.dir)
		u.add(moves)
		u.reject(invalid)
		if err != nil {
			u.err = err
			r.logger.With(log.F("directory", u.dir), log.F("error", err)).Error("cannot match directory")
		}
		return err
	})
	if err != nil {
		return r.finish(report, units, err)
	}

	candidates := 0
	for _, u := range units {
		for _, en := range u.entries {
			if en.result.Status == "" {
				candidates++
			}
		}
	}
	if candidates > 0 && !settings.DryRun {
		release, err := r.lockTarget()
		if err != nil {
			return r.finish(report, units, err)
		}
		defer func() {
			if err := release(); err != nil {
				r.logger.With(log.F("error", err)).Warn("cannot release target lock")
			}
		}()
	}

	// A collision that ends the run leaves the target untouched.
	if err := r.engine.plan(units); err != nil && settings.FailFast {
		return r.finish(report, units, err)
	}

	var active []*unitPlan
	for _, u := range units {
		if u.pendingCount() > 0 {
			active = append(active, u)
		}
	}
	if len(active) > 0 && !settings.DryRun {
		if err := r.createTarget(); err != nil {
			return r.finish(report, units, err)
		}
	}

	err = r.fanOut(ctx, active, func(ctx context.Context, u *unitPlan) error {
		for i := range u.entries {
			en := &u.entries[i]
			if !en.pending {
				continue
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			en.result = r.engine.MoveFile(en.result.Move)
			en.pending = false
			if en.result.Status == types.StatusFailed && settings.FailFast {
				return en.result.Error
			}
		}
		return nil
	})
	return r.finish(report, units, err)
}

// lockTarget takes the run lock on the target directory.
func (r *Runner) lockTarget() (func() error, error) {
	if r.locker == nil {
		return func() error { return nil }, nil
	}
	target := r.engine.Target()
	release, err := r.locker.Acquire(target)
	if err != nil {
		r.logger.With(log.F("target", target), log.F("error", err)).Error("cannot lock target")
		return nil, err
	}
	return release, nil
}

func (r *Runner) createTarget() error {
	target := r.engine.Target()
	if err := r.fs.MkdirAll(target, 0755); err != nil {
		return errors.NewFileError("create directory", target, errors.DirectoryCreateFailed, err)
	}
	return nil
}

// fanOut runs work for every unit on at most min(len(units), workers)
// goroutines. In fail-fast mode the first error cancels the remaining units.
// Otherwise unit errors stay in the units and only cancellation of ctx is
// returned.
func (r *Runner) fanOut(ctx context.Context, units []*unitPlan, work func(context.Context, *unitPlan) error) error {
	if len(units) == 0 {
		return ctx.Err()
	}
	workers := r.cfg.Settings.Workers
	if workers > len(units) {
		workers = len(units)
	}

	failFast := r.cfg.Settings.FailFast
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, u := range units {
		u := u
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			err := work(gctx, u)
			if err == nil || (!failFast && ctx.Err() == nil) {
				return nil
			}
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

func (r *Runner) finish(report *types.Report, units []*unitPlan, runErr error) (*types.Report, error) {
	for _, u := range units {
		report.Units = append(report.Units, u.result())
	}

	// Failures that did not stop the run, like unusable names under fail-fast,
	// still fail it.
	if runErr == nil {
		runErr = report.Err()
	}

	entry := r.logger.With(
		log.F("moved", report.Moved()),
		log.F("planned", report.Planned()),
		log.F("skipped", report.Skipped()),
		log.F("failed", report.Failed()),
	)
	if runErr != nil {
		entry.With(log.F("error", runErr)).Error("run failed")
	} else {
		entry.Info("run complete")
	}
	return report, runErr
}
