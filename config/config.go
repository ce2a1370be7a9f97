// Package config provides the docfs configuration file.
//
// Configuration is read from a single YAML file. Every field has a default,
// so an empty file yields a working setup that keeps all caches in memory and
// serves the documentation sources from the current directory.
//
// A small set of environment variables override individual values after the
// file is loaded:
//
//	DOCFS_LOG_LEVEL   log.level
//	DOCFS_DEV_SERVER  dev_server
//	DOCFS_STORE       store.type
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/mwantia/docfs/availability"
	"github.com/mwantia/docfs/data"
	"github.com/mwantia/docfs/log"
	"gopkg.in/yaml.v3"
)

// Store types.
const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreConsul   = "consul"
)

// Host types.
const (
	HostMemory = "memory"
	HostLocal  = "local"
	HostS3     = "s3"
)

// Config is the top-level configuration.
type Config struct {
	// Log controls the process logger.
	Log LogConfig `yaml:"log"`

	// DevServer marks a local development instance. Sample file systems are
	// empty on development instances.
	DevServer bool `yaml:"dev_server"`

	// BasePath is the URL path the documentation is served below. Must start
	// and end with a slash.
	BasePath string `yaml:"base_path"`

	// Store selects the object store backend for all caches.
	Store StoreConfig `yaml:"store"`

	// Host selects where the branch file systems come from.
	Host HostConfig `yaml:"host"`

	// Branches is the path to the YAML release history.
	Branches string `yaml:"branches"`

	// Availability tunes the history boundaries of the availability finder.
	Availability AvailabilityConfig `yaml:"availability"`

	// Metrics controls the Prometheus endpoint.
	Metrics MetricsConfig `yaml:"metrics"`
}

// LogConfig configures the logger.
type LogConfig struct {
	// Level is one of debug, info, warn, error or fatal.
	Level string `yaml:"level"`

	// File additionally writes logs to a rotated file.
	File string `yaml:"file"`

	// JSON switches to one JSON object per line.
	JSON bool `yaml:"json"`

	// NoTerminal disables logging to stdout when File is set.
	NoTerminal bool `yaml:"no_terminal"`
}

// StoreConfig configures the object store.
type StoreConfig struct {
	// Type is memory, sqlite, postgres or consul.
	Type string `yaml:"type"`

	// DSN is the sqlite database path or the postgres connection string.
	DSN string `yaml:"dsn"`

	// Consul connection settings.
	Address    string `yaml:"address"`
	Token      string `yaml:"token"`
	Datacenter string `yaml:"datacenter"`
	Prefix     string `yaml:"prefix"`

	// Version is appended to every namespace. Changing it abandons all
	// previously cached values.
	Version string `yaml:"version"`

	// StartEmpty clears every namespace the first time it is used.
	StartEmpty bool `yaml:"start_empty"`

	// ChainMemory puts an in-memory backend in front of a persistent one.
	ChainMemory bool `yaml:"chain_memory"`
}

// HostConfig configures the branch file systems.
type HostConfig struct {
	// Type is memory, local or s3.
	Type string `yaml:"type"`

	// Root is the local directory or the object prefix within the bucket.
	Root string `yaml:"root"`

	// Endpoint, Bucket and credentials configure the s3 host.
	Endpoint  string `yaml:"endpoint"`
	Bucket    string `yaml:"bucket"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	UseSSL    bool   `yaml:"use_ssl"`

	// BranchLayout is a format string taking the branch name. When empty,
	// every branch is served from Root itself.
	BranchLayout string `yaml:"branch_layout"`

	// Trunk is the directory holding trunk when BranchLayout is set.
	Trunk string `yaml:"trunk"`
}

// AvailabilityConfig configures the availability finder.
type AvailabilityConfig struct {
	APIDirectories             []string `yaml:"api_dirs"`
	FeaturesDirectory          string   `yaml:"features_dir"`
	PredeterminedFile          string   `yaml:"predetermined_file"`
	APIFeaturesMinVersion      int      `yaml:"api_features_min_version"`
	OriginalFeaturesMinVersion int      `yaml:"original_features_min_version"`
	SVNMinVersion              int      `yaml:"svn_min_version"`
	Concurrency                int      `yaml:"concurrency"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

// Default returns the default configuration.
func Default() *Config {
	ac := availability.DefaultConfig()

	return &Config{
		Log: LogConfig{
			Level: "info",
		},
		BasePath: "/",
		Branches: "branches.yaml",
		Store: StoreConfig{
			Type:    StoreMemory,
			Address: "127.0.0.1:8500",
			Prefix:  "docfs",
		},
		Host: HostConfig{
			Type:  HostLocal,
			Root:  ".",
			Trunk: "trunk/",
		},
		Availability: AvailabilityConfig{
			APIDirectories:             ac.APIDirectories,
			FeaturesDirectory:          ac.FeaturesDirectory,
			PredeterminedFile:          ac.PredeterminedFile,
			APIFeaturesMinVersion:      ac.APIFeaturesMinVersion,
			OriginalFeaturesMinVersion: ac.OriginalFeaturesMinVersion,
			SVNMinVersion:              ac.SVNMinVersion,
			Concurrency:                ac.Concurrency,
		},
		Metrics: MetricsConfig{
			Address: "127.0.0.1:9090",
		},
	}
}

// LoadFile loads the configuration file at path on top of the defaults and
// applies environment overrides. An empty path loads only the defaults.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnvironment(os.LookupEnv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Parse decodes raw YAML on top of the defaults. Environment overrides are
// not applied.
func Parse(raw []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", data.ErrInvalidConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	if err := yaml.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("%w: %s: %v", data.ErrInvalidConfig, path, err)
	}

	return nil
}

func (c *Config) applyEnvironment(lookup func(string) (string, bool)) error {
	if value, ok := lookup("DOCFS_LOG_LEVEL"); ok && value != "" {
		c.Log.Level = value
	}

	if value, ok := lookup("DOCFS_DEV_SERVER"); ok && value != "" {
		devServer, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%w: DOCFS_DEV_SERVER '%s'", data.ErrInvalidConfig, value)
		}
		c.DevServer = devServer
	}

	if value, ok := lookup("DOCFS_STORE"); ok && value != "" {
		c.Store.Type = value
	}

	return nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs data.Errors

	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		errs.Add(err)
	}

	if !strings.HasPrefix(c.BasePath, "/") || !strings.HasSuffix(c.BasePath, "/") {
		errs.Add(fmt.Errorf("%w: base_path '%s' must start and end with '/'", data.ErrInvalidConfig, c.BasePath))
	}

	switch c.Store.Type {
	case StoreMemory, StoreConsul:
	case StoreSQLite, StorePostgres:
		if c.Store.DSN == "" {
			errs.Add(fmt.Errorf("%w: store.dsn is required for %s", data.ErrInvalidConfig, c.Store.Type))
		}
	default:
		errs.Add(fmt.Errorf("%w: store.type '%s'", data.ErrInvalidConfig, c.Store.Type))
	}

	switch c.Host.Type {
	case HostMemory:
	case HostLocal:
		if c.Host.Root == "" {
			errs.Add(fmt.Errorf("%w: host.root is required for local", data.ErrInvalidConfig))
		}
	case HostS3:
		if c.Host.Endpoint == "" || c.Host.Bucket == "" {
			errs.Add(fmt.Errorf("%w: host.endpoint and host.bucket are required for s3", data.ErrInvalidConfig))
		}
	default:
		errs.Add(fmt.Errorf("%w: host.type '%s'", data.ErrInvalidConfig, c.Host.Type))
	}

	if c.Host.BranchLayout != "" && !strings.Contains(c.Host.BranchLayout, "%s") {
		errs.Add(fmt.Errorf("%w: host.branch_layout '%s' must contain %%s", data.ErrInvalidConfig, c.Host.BranchLayout))
	}

	if c.Availability.Concurrency < 1 {
		errs.Add(fmt.Errorf("%w: availability.concurrency must be positive", data.ErrInvalidConfig))
	}

	if c.Metrics.Enabled && c.Metrics.Address == "" {
		errs.Add(fmt.Errorf("%w: metrics.address is required when metrics are enabled", data.ErrInvalidConfig))
	}

	return errs.Errors()
}

// LogLevel returns the parsed log level.
func (c *Config) LogLevel() log.LogLevel {
	level, _ := log.ParseLevel(c.Log.Level)
	return level
}

// NewLogger creates the process logger described by the log section.
func (c *Config) NewLogger(name string) *log.Logger {
	l := log.NewLogger(name, c.LogLevel(), c.Log.File, c.Log.NoTerminal && c.Log.File != "")
	l.JSON = c.Log.JSON
	return l
}

// AvailabilityConfig converts the availability section for the finder.
func (c *Config) AvailabilityConfig() availability.Config {
	return availability.Config{
		APIDirectories:             c.Availability.APIDirectories,
		FeaturesDirectory:          c.Availability.FeaturesDirectory,
		PredeterminedFile:          c.Availability.PredeterminedFile,
		APIFeaturesMinVersion:      c.Availability.APIFeaturesMinVersion,
		OriginalFeaturesMinVersion: c.Availability.OriginalFeaturesMinVersion,
		SVNMinVersion:              c.Availability.SVNMinVersion,
		Concurrency:                c.Availability.Concurrency,
	}
}
