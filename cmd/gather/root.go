package main

import (
	"context"
	"io"
	"path/filepath"
	"runtime"

	"gather/internal/config"
	"gather/internal/log"
	"gather/internal/organize"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// options holds the raw flag values; only flags that were set reach the config.
type options struct {
	configPath string
	pattern    string
	source     string
	target     string
	workers    int
	collision  string
	keepGoing  bool
	dryRun     bool
	exclude    []string
	debug      bool
	logFormat  string
}

type app struct {
	fs     afero.Fs
	locker organize.Locker
	stdout io.Writer
	stderr io.Writer
	opts   options
}

// NewRootCmd creates the root command
func NewRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "gather",
		Short: "Move files whose names contain a pattern into one directory",
		Long: `Gather scans a source directory and its immediate subdirectories, and moves
every regular file whose name contains the pattern into a single flat target
directory. Directories are processed concurrently by a bounded pool of workers.`,
		Version:       version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig(cmd)
			if err != nil {
				return err
			}
			_, err = a.runOnce(cmd.Context(), cfg)
			return err
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.opts.configPath, "config", "", "config file (default is $HOME/.config/gather/config.yaml)")
	flags.StringVarP(&a.opts.pattern, "pattern", "p", "", "substring file names must contain (empty matches every file)")
	flags.StringVarP(&a.opts.source, "source-path", "s", config.DefaultSourcePath, "root directory to scan")
	flags.StringVarP(&a.opts.target, "target-path", "t", "", "directory matching files are moved into (required)")
	flags.IntVarP(&a.opts.workers, "workers", "w", runtime.NumCPU(), "maximum number of directories processed at once")
	flags.StringVarP(&a.opts.collision, "collision", "c", config.CollisionFail, "what to do when the destination exists: fail, skip or rename")
	flags.BoolVarP(&a.opts.keepGoing, "keep-going", "k", false, "process every directory and report all failures at the end")
	flags.BoolVarP(&a.opts.dryRun, "dry-run", "n", false, "show what would be moved without moving anything")
	flags.StringArrayVarP(&a.opts.exclude, "exclude", "x", nil, "glob on file names to leave in place (repeatable)")
	flags.BoolVar(&a.opts.debug, "debug", false, "log every file checked")
	flags.StringVar(&a.opts.logFormat, "log-format", config.LogFormatText, "log format: text or json")

	rootCmd.AddCommand(NewWatchCmd(a))
	rootCmd.AddCommand(NewConfigCmd(a))
	rootCmd.AddCommand(NewVersionCmd())

	return rootCmd
}

// loadConfig reads the config file and overlays every flag that was set.
func (a *app) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := a.baseConfig()
	if err != nil {
		return nil, err
	}
	a.applyFlags(cmd, cfg)
	if err := absPaths(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (a *app) baseConfig() (*config.Config, error) {
	if a.opts.configPath != "" {
		return config.LoadConfigFile(a.opts.configPath)
	}
	return config.LoadConfig()
}

func (a *app) applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("pattern") {
		cfg.Pattern = a.opts.pattern
	}
	if flags.Changed("source-path") {
		cfg.SourcePath = a.opts.source
	}
	if flags.Changed("target-path") {
		cfg.TargetPath = a.opts.target
	}
	if flags.Changed("workers") {
		cfg.Settings.Workers = a.opts.workers
	}
	if flags.Changed("collision") {
		cfg.Settings.Collision = a.opts.collision
	}
	if flags.Changed("keep-going") {
		cfg.Settings.FailFast = !a.opts.keepGoing
	}
	if flags.Changed("dry-run") {
		cfg.Settings.DryRun = a.opts.dryRun
	}
	if flags.Changed("exclude") {
		cfg.Exclude = a.opts.exclude
	}
	if flags.Changed("debug") {
		cfg.Log.Debug = a.opts.debug
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = a.opts.logFormat
	}
}

// absPaths resolves source and target against the working directory.
func absPaths(cfg *config.Config) error {
	var err error
	if cfg.SourcePath != "" {
		if cfg.SourcePath, err = filepath.Abs(cfg.SourcePath); err != nil {
			return err
		}
	}
	if cfg.TargetPath != "" {
		if cfg.TargetPath, err = filepath.Abs(cfg.TargetPath); err != nil {
			return err
		}
	}
	return nil
}

// newLogger installs the process logger described by cfg.
func (a *app) newLogger(cfg *config.Config) (*log.Logger, error) {
	logger, err := log.Configure(cfg.Log.Format, a.stderr)
	if err != nil {
		return nil, err
	}
	log.SetDebug(cfg.Log.Debug)
	return logger, nil
}

// newRunner builds a runner for cfg and logs the parsed configuration.
func (a *app) newRunner(cfg *config.Config) (*organize.Runner, error) {
	logger, err := a.newLogger(cfg)
	if err != nil {
		return nil, err
	}

	opts := []organize.RunnerOption{organize.WithLogger(logger)}
	if a.locker != nil {
		opts = append(opts, organize.WithLocker(a.locker))
	}
	runner, err := organize.NewRunner(a.fs, cfg, opts...)
	if err != nil {
		return nil, err
	}

	logger.With(
		log.F("run_id", runner.RunID()),
		log.F("config", a.opts.configPath),
		log.F("pattern", cfg.Pattern),
		log.F("source", cfg.SourcePath),
		log.F("target", cfg.TargetPath),
		log.F("exclude", cfg.Exclude),
	).Info("parsed configuration")
	return runner, nil
}

// runOnce performs one full run and prints its summary.
func (a *app) runOnce(ctx context.Context, cfg *config.Config) (*organize.Runner, error) {
	runner, err := a.newRunner(cfg)
	if err != nil {
		return nil, err
	}

	report, err := runner.Run(ctx)
	if report != nil {
		renderSummary(a.stdout, report, shouldColorize(a.stdout))
	}
	return runner, err
}

// NewVersionCmd prints the build version
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("gather %s\n", version)
		},
	}
}
