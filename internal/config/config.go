// Package config loads and validates the optional .warden YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/deixis/warden/internal/agent"
)

// FileName is the name of the config file searched for by Load.
const FileName = ".warden"

// Default values for logging configuration.
const (
	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
)

// Environment variables that override file settings.
const (
	EnvLogLevel  = "WARDEN_LOG_LEVEL"
	EnvLogFormat = "WARDEN_LOG_FORMAT"
)

// Config holds the parsed .warden configuration.
// All fields are optional; zero values represent defaults.
type Config struct {
	Version   int                `yaml:"version"`
	RawLevel  string             `yaml:"log_level"`  // debug, info, warn, error
	RawFormat string             `yaml:"log_format"` // text or json
	Agents    []agent.Definition `yaml:"agents"`
}

// LogLevel returns the configured log level or the default.
func (c *Config) LogLevel() string {
	if c.RawLevel != "" {
		return c.RawLevel
	}
	return DefaultLogLevel
}

// LogFormat returns the configured log format or the default.
func (c *Config) LogFormat() string {
	if c.RawFormat != "" {
		return c.RawFormat
	}
	return DefaultLogFormat
}

// Validate checks agent definitions for missing or duplicate IDs and
// empty binary paths. Whether a path is absolute and executable is checked
// at execution time, since the file may change after load.
func (c *Config) Validate() error {
	seen := make(map[string]bool, len(c.Agents))
	var errs []error
	for i, a := range c.Agents {
		if a.ID == "" {
			errs = append(errs, fmt.Errorf("agents[%d]: id is required", i))
			continue
		}
		if seen[a.ID] {
			errs = append(errs, fmt.Errorf("agents[%d]: duplicate id %q", i, a.ID))
		}
		seen[a.ID] = true
		for j, b := range a.Binaries {
			if b.Path == "" {
				errs = append(errs, fmt.Errorf("agents[%d].binaries[%d]: path is required", i, j))
			}
		}
	}
	return errors.Join(errs...)
}

// LoadResult holds the parsed config and where it came from.
type LoadResult struct {
	Config *Config
	Path   string // file that was read; empty when defaults were used
}

// Load searches for a .warden file starting at dir and walking upward to
// the filesystem root. If none exists, a default Config is returned.
func Load(dir string) (*LoadResult, error) {
	path, err := findConfig(dir)
	if err != nil {
		cfg := &Config{}
		applyEnv(cfg)
		return &LoadResult{Config: cfg}, nil
	}
	return LoadFile(path)
}

// LoadFile reads the config at path. Unlike Load, a missing file is an error.
func LoadFile(path string) (*LoadResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", path, err)
	}
	applyEnv(cfg)
	return &LoadResult{Config: cfg, Path: path}, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.RawLevel = v
	}
	if v := os.Getenv(EnvLogFormat); v != "" {
		cfg.RawFormat = v
	}
}

// findConfig walks upward from dir looking for a .warden file.
func findConfig(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for {
		path := filepath.Join(dir, FileName)
		if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
			return path, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("%s not found", FileName)
		}
		dir = parent
	}
}
