package main

import (
	"fmt"
	"os"

	"gather/internal/config"

	"github.com/spf13/cobra"
)

// NewConfigCmd groups configuration file commands
func NewConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}
	cmd.AddCommand(newConfigInitCmd(a))
	cmd.AddCommand(newConfigShowCmd(a))
	return cmd
}

func newConfigInitCmd(a *app) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write a configuration file from the defaults and the given flags",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.opts.configPath
			if len(args) > 0 {
				path = args[0]
			}
			if path == "" {
				var err error
				if path, err = config.DefaultPath(); err != nil {
					return err
				}
			}

			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}

			cfg := config.New()
			a.applyFlags(cmd, cfg)
			if err := config.SaveConfig(cfg, path); err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "wrote %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing file")
	return cmd
}

func newConfigShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.baseConfig()
			if err != nil {
				return err
			}
			a.applyFlags(cmd, cfg)
			if err := absPaths(cfg); err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "pattern:     %q\n", cfg.Pattern)
			fmt.Fprintf(a.stdout, "source_path: %s\n", cfg.SourcePath)
			fmt.Fprintf(a.stdout, "target_path: %s\n", cfg.TargetPath)
			fmt.Fprintf(a.stdout, "exclude:     %v\n", cfg.Exclude)
			fmt.Fprintf(a.stdout, "collision:   %s\n", cfg.Settings.Collision)
			fmt.Fprintf(a.stdout, "fail_fast:   %t\n", cfg.Settings.FailFast)
			fmt.Fprintf(a.stdout, "dry_run:     %t\n", cfg.Settings.DryRun)
			fmt.Fprintf(a.stdout, "workers:     %d\n", cfg.Settings.Workers)
			fmt.Fprintf(a.stdout, "log:         %s (debug %t)\n", cfg.Log.Format, cfg.Log.Debug)
			return nil
		},
	}
}
