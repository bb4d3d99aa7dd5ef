// Package config loads and validates the optional .jftest YAML file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// FileName is the name of the configuration file looked up from the
// working directory upward.
const FileName = ".jftest"

// Default values for runner and report configuration.
const (
	DefaultTimeout    = 30 * time.Second
	DefaultMaxOutput  = 16 << 20 // 16 MiB per stream
	DefaultKillGrace  = 2 * time.Second
	DefaultReportPath = "jf_test.xml"
	DefaultLogLevel   = logrus.WarnLevel
)

// Config holds the parsed .jftest configuration.
// All fields are optional; zero values represent defaults.
type Config struct {
	Version      int          `yaml:"version"`
	RawTimeout   string       `yaml:"timeout"`    // e.g. "30s", "2m"
	RawMaxOutput int          `yaml:"max_output"` // bytes per stream
	RawKillGrace string       `yaml:"kill_grace"` // e.g. "2s"
	RawLogLevel  string       `yaml:"log_level"`  // logrus level name
	Report       ReportConfig `yaml:"report"`
	Store        StoreConfig  `yaml:"store"`
}

// ReportConfig controls the JUnit report file.
type ReportConfig struct {
	Path    string `yaml:"path"`    // default: jf_test.xml
	Disable bool   `yaml:"disable"` // same as -d: no report, remove an existing one
}

// StoreConfig controls where the MCP server keeps past runs.
type StoreConfig struct {
	Dir      string `yaml:"dir"`      // default: a temp directory
	Capacity int    `yaml:"capacity"` // runs kept in memory; default 5
}

// Timeout returns the configured per-test timeout or the default.
func (c *Config) Timeout() time.Duration {
	return parseDuration(c.RawTimeout, DefaultTimeout)
}

// KillGrace returns how long to wait after killing a timed-out test
// before its pipes are force-closed.
func (c *Config) KillGrace() time.Duration {
	return parseDuration(c.RawKillGrace, DefaultKillGrace)
}

// MaxOutputBytes returns the configured max output size or the default.
func (c *Config) MaxOutputBytes() int {
	if c.RawMaxOutput > 0 {
		return c.RawMaxOutput
	}
	return DefaultMaxOutput
}

// LogLevel returns the configured log level, falling back to warning.
func (c *Config) LogLevel() logrus.Level {
	if c.RawLogLevel != "" {
		if lvl, err := logrus.ParseLevel(c.RawLogLevel); err == nil {
			return lvl
		}
	}
	return DefaultLogLevel
}

// ReportPath returns the JUnit report path, falling back to jf_test.xml.
func (c *Config) ReportPath() string {
	if c.Report.Path != "" {
		return c.Report.Path
	}
	return DefaultReportPath
}

// StoreCapacity returns the number of runs kept in memory by the MCP server.
func (c *Config) StoreCapacity() int {
	if c.Store.Capacity > 0 {
		return c.Store.Capacity
	}
	return 5
}

func parseDuration(raw string, def time.Duration) time.Duration {
	if raw != "" {
		d, err := time.ParseDuration(raw)
		if err == nil && d > 0 {
			return d
		}
	}
	return def
}

// LoadResult holds the parsed config and the directory it was found in.
type LoadResult struct {
	Config *Config
	Root   string // directory containing .jftest; falls back to workspace
}

// Load reads the .jftest file from workspace or its nearest ancestor that
// has one. If none exists, a default Config is returned.
func Load(workspace string) (*LoadResult, error) {
	root, err := findConfigRoot(workspace)
	if err != nil {
		return &LoadResult{Config: &Config{}, Root: workspace}, nil
	}

	path := filepath.Join(root, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", FileName, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", FileName, err)
	}
	if cfg.RawTimeout != "" {
		if _, err := time.ParseDuration(cfg.RawTimeout); err != nil {
			return nil, fmt.Errorf("parsing %s: timeout: %w", FileName, err)
		}
	}
	return &LoadResult{Config: cfg, Root: root}, nil
}

// findConfigRoot walks upward from dir looking for a directory containing
// a .jftest file.
func findConfigRoot(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for {
		if info, err := os.Stat(filepath.Join(dir, FileName)); err == nil && !info.IsDir() {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("%s not found", FileName)
		}
		dir = parent
	}
}
