package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/yairfalse/varasto/types"
	"gopkg.in/yaml.v3"
)

// Defaults applied by Validate
const (
	DefaultStalenessWindow = 24 * time.Hour
	DefaultMaxDepth        = 10
	DefaultBuildBudget     = 10 * time.Minute
	DefaultWorkers         = 4
	DefaultRatePerSecond   = 10
	DefaultSearchLimit     = 20
	DefaultHistoryKeep     = 10
	DefaultDaemonInterval  = 15 * time.Minute
	DefaultMetricsAddr     = ":2112"
)

// Config represents the main configuration
type Config struct {
	Version string `yaml:"version"`
	Profile string `yaml:"profile"`
	Region  string `yaml:"region"`

	// Roots are the compartment IDs traversal starts from.
	Roots []string `yaml:"roots"`

	// Kinds selects which resource kinds to collect. Empty means all.
	Kinds []string `yaml:"kinds,omitempty"`

	Cache  CacheConfig  `yaml:"cache,omitempty"`
	Build  BuildConfig  `yaml:"build,omitempty"`
	Daemon DaemonConfig `yaml:"daemon,omitempty"`
}

// CacheConfig controls snapshot persistence and freshness
type CacheConfig struct {
	Dir             string        `yaml:"dir,omitempty"`
	StalenessWindow time.Duration `yaml:"staleness_window,omitempty"`
	HistoryKeep     int           `yaml:"history_keep,omitempty"`
}

// BuildConfig bounds one rebuild pass
type BuildConfig struct {
	MaxDepth      int           `yaml:"max_depth,omitempty"`
	Budget        time.Duration `yaml:"budget,omitempty"`
	Workers       int           `yaml:"workers,omitempty"`
	RatePerSecond int           `yaml:"rate_per_second,omitempty"`
}

// DaemonConfig controls the optional daemon mode
type DaemonConfig struct {
	Interval    time.Duration `yaml:"interval,omitempty"`
	MetricsAddr string        `yaml:"metrics_addr,omitempty"`
}

// LoadConfig loads configuration from file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path is intentional user input
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// Validate ensures required fields are set and fills in defaults
func (c *Config) Validate() error {
	if c.Version == "" {
		return fmt.Errorf("version is required")
	}
	if c.Region == "" {
		return fmt.Errorf("region is required")
	}
	if len(c.Roots) == 0 {
		return fmt.Errorf("at least one root compartment is required")
	}
	for _, k := range c.Kinds {
		if _, err := types.ParseKind(k); err != nil {
			return err
		}
	}

	c.applyDefaults()
	return nil
}

func (c *Config) applyDefaults() {
	if c.Cache.Dir == "" {
		c.Cache.Dir = defaultCacheDir()
	}
	if c.Cache.StalenessWindow <= 0 {
		c.Cache.StalenessWindow = DefaultStalenessWindow
	}
	if c.Cache.HistoryKeep <= 0 {
		c.Cache.HistoryKeep = DefaultHistoryKeep
	}
	if c.Build.MaxDepth <= 0 {
		c.Build.MaxDepth = DefaultMaxDepth
	}
	if c.Build.Budget <= 0 {
		c.Build.Budget = DefaultBuildBudget
	}
	if c.Build.Workers <= 0 {
		c.Build.Workers = DefaultWorkers
	}
	if c.Build.RatePerSecond <= 0 {
		c.Build.RatePerSecond = DefaultRatePerSecond
	}
	if c.Daemon.Interval <= 0 {
		c.Daemon.Interval = DefaultDaemonInterval
	}
	if c.Daemon.MetricsAddr == "" {
		c.Daemon.MetricsAddr = DefaultMetricsAddr
	}
}

// Source returns the snapshot source identity for this config.
func (c *Config) Source() types.Source {
	return types.Source{Profile: c.Profile, Region: c.Region}
}

// ResourceKinds returns the configured kinds, or all kinds when unset.
func (c *Config) ResourceKinds() []types.ResourceKind {
	if len(c.Kinds) == 0 {
		return types.AllKinds()
	}
	kinds := make([]types.ResourceKind, 0, len(c.Kinds))
	for _, k := range c.Kinds {
		kind, err := types.ParseKind(k)
		if err != nil {
			continue // Validate already rejected bad kinds
		}
		kinds = append(kinds, kind)
	}
	return kinds
}

func defaultCacheDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "varasto")
	}
	return filepath.Join(home, ".varasto")
}
