package main

import (
	"fmt"

	"gather/internal/config"
	"gather/internal/log"
	"gather/internal/scan"
	"gather/internal/watch"
	"gather/pkg/types"

	"github.com/spf13/cobra"
)

// NewWatchCmd creates a command for watch mode
func NewWatchCmd(a *app) *cobra.Command {
	var buffer int

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Gather once, then keep moving matching files as they appear",
		Long: `Watch performs a full run, then follows the source directory and its
immediate subdirectories and moves every new or rewritten matching file into the
target directory. Press Ctrl+C to stop.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig(cmd)
			if err != nil {
				return err
			}
			return a.follow(cmd, cfg, buffer)
		},
	}

	cmd.Flags().IntVar(&buffer, "buffer", watch.DefaultBuffer, "pending file events kept before new ones are dropped")
	return cmd
}

func (a *app) follow(cmd *cobra.Command, cfg *config.Config, buffer int) error {
	ctx := cmd.Context()

	runner, err := a.runOnce(ctx, cfg)
	if err != nil {
		if runner == nil || cfg.Settings.FailFast {
			return err
		}
		log.With(log.F("error", err)).Warn("initial run had failures, following anyway")
	}
	if ctx.Err() != nil {
		return nil
	}

	if !cfg.Settings.DryRun && a.locker != nil {
		release, err := a.locker.Acquire(cfg.TargetPath)
		if err != nil {
			return err
		}
		defer func() {
			if err := release(); err != nil {
				log.With(log.F("error", err)).Warn("cannot release target lock")
			}
		}()
	}

	logger := log.With(log.F("run_id", runner.RunID()))
	w, err := watch.New(watch.WithBuffer(buffer), watch.WithLogger(logger))
	if err != nil {
		return err
	}

	engine := runner.Engine()
	// Only directories that exist now are followed, as in a single run.
	dirs, err := collectDirs(a, cfg, engine.Target())
	if err != nil {
		return err
	}

	f := watch.NewFollower(w, engine, logger, func(res types.MoveResult) {
		printResult(a, res)
	})
	stats, err := f.Follow(ctx, dirs)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.stdout, "watch stopped: %d seen, %d moved, %d planned, %d skipped, %d failed\n",
		stats.Seen, stats.Moved, stats.Planned, stats.Skipped, stats.Failed)
	return nil
}

func collectDirs(a *app, cfg *config.Config, target string) ([]string, error) {
	return scan.CollectDirectories(a.fs, cfg.SourcePath, scan.Options{SkipDirs: []string{target}})
}

func printResult(a *app, res types.MoveResult) {
	switch res.Status {
	case types.StatusFailed:
		fmt.Fprintf(a.stdout, "%s %s: %v\n", res.Status, res.Source, res.Error)
	case types.StatusSkipped:
		fmt.Fprintf(a.stdout, "%s %s (%s)\n", res.Status, res.Source, res.Detail)
	default:
		fmt.Fprintf(a.stdout, "%s %s -> %s\n", res.Status, res.Source, res.Destination)
	}
}
