package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"gather/internal/errors"

	"github.com/gobwas/glob"
	"gopkg.in/yaml.v3"
)

// Collision strategies
const (
	CollisionFail   = "fail"   // report NameCollision and leave the file in place
	CollisionSkip   = "skip"   // leave the file in place silently
	CollisionRename = "rename" // pick name_(N).ext
)

// Log formats
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// DefaultSourcePath is scanned when no source is given.
const DefaultSourcePath = "."

// Settings controls how a run behaves.
type Settings struct {
	Collision string `yaml:"collision"` // Collision strategy: fail, skip or rename
	FailFast  bool   `yaml:"fail_fast"` // Abort the run on the first failure
	DryRun    bool   `yaml:"dry_run"`   // Plan moves without touching the filesystem
	Workers   int    `yaml:"workers"`   // Upper bound on concurrently processed directories
}

// Log controls event output.
type Log struct {
	Format string `yaml:"format"` // text or json
	Debug  bool   `yaml:"debug"`  // Emit one event per file checked
}

// Config is the complete run configuration.
// It is immutable once Validate has passed.
type Config struct {
	Pattern    string   `yaml:"pattern"`     // Substring a file name must contain
	SourcePath string   `yaml:"source_path"` // Root directory to scan
	TargetPath string   `yaml:"target_path"` // Directory matches are moved into
	Exclude    []string `yaml:"exclude"`     // Globs on base names that are never moved
	Settings   Settings `yaml:"settings"`
	Log        Log      `yaml:"log"`
}

// DefaultPath returns ~/.config/gather/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "gather", "config.yaml"), nil
}

// LoadConfig loads configuration from the default location.
func LoadConfig() (*Config, error) {
	path, err := DefaultPath()
	if err != nil {
		return nil, errors.NewConfigError("cannot locate home directory", "", err)
	}
	return LoadConfigFile(path)
}

// LoadConfigFile loads configuration from a specific file path.
// If the file doesn't exist, returns default configuration.
// Paths are not required here since flags may still supply them.
func LoadConfigFile(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, errors.NewConfigError("error reading config file", path, err)
	}

	// Fields absent from the file keep their defaults.
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.NewConfigError("error parsing config file", path, err)
	}

	if err := cfg.validate(false); err != nil {
		return nil, errors.NewConfigError("invalid configuration", path, err)
	}

	return cfg, nil
}

func defaultConfig() *Config {
	cfg := &Config{}
	cfg.Pattern = ""
	cfg.SourcePath = DefaultSourcePath
	cfg.Exclude = []string{}

	cfg.Settings.Collision = CollisionFail
	cfg.Settings.FailFast = true
	cfg.Settings.DryRun = false
	cfg.Settings.Workers = runtime.NumCPU()

	cfg.Log.Format = LogFormatText
	return cfg
}

// New returns a configuration with default values.
func New() *Config {
	return defaultConfig()
}

// SaveConfig writes cfg as YAML, creating parent directories.
func SaveConfig(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks the configuration is complete and consistent.
func (c *Config) Validate() error {
	if err := c.validate(true); err != nil {
		return errors.NewConfigError("invalid configuration", "", err)
	}
	return nil
}

func (c *Config) validate(requirePaths bool) error {
	if c == nil {
		return fmt.Errorf("nil config")
	}

	if requirePaths {
		if strings.TrimSpace(c.SourcePath) == "" {
			return fmt.Errorf("source path is required")
		}
		if strings.TrimSpace(c.TargetPath) == "" {
			return fmt.Errorf("target path is required")
		}
	}

	switch c.Settings.Collision {
	case CollisionFail, CollisionSkip, CollisionRename:
	default:
		return fmt.Errorf("invalid collision setting: %s", c.Settings.Collision)
	}

	if c.Settings.Workers < 1 {
		return fmt.Errorf("workers must be >= 1")
	}

	for i, pattern := range c.Exclude {
		if pattern == "" {
			return fmt.Errorf("exclude %d: pattern cannot be empty", i)
		}
		if _, err := glob.Compile(pattern); err != nil {
			return fmt.Errorf("exclude %d: %w", i, err)
		}
	}

	switch c.Log.Format {
	case LogFormatText, LogFormatJSON:
	default:
		return fmt.Errorf("invalid log format: %s", c.Log.Format)
	}

	return nil
}

// NewTestConfig returns a config for tests: fail-fast, no dry run, four workers.
func NewTestConfig(source, target string) *Config {
	cfg := defaultConfig()
	cfg.SourcePath = source
	cfg.TargetPath = target
	cfg.Settings.Workers = 4
	return cfg
}
