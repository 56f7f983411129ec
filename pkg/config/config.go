// Package config loads the mprof configuration file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/danpilch/mprof/pkg/report"
	"github.com/danpilch/mprof/pkg/signature"
)

// Environment variables overriding the file.
const (
	EnvLogLevel     = "MPROF_LOG_LEVEL"
	EnvHash         = "MPROF_HASH"
	EnvReportFormat = "MPROF_REPORT_FORMAT"
	EnvStartPaused  = "MPROF_START_PAUSED"
)

// Config is the root of the configuration file.
type Config struct {
	Profiler Profiler `yaml:"profiler"`
	Report   Report   `yaml:"report"`
	Log      Log      `yaml:"log"`
}

// Profiler configures collection.
type Profiler struct {
	StartPaused bool   `yaml:"start_paused"`
	Hash        string `yaml:"hash"`
}

// Report configures dumps.
type Report struct {
	Format  string `yaml:"format"`
	Details bool   `yaml:"details"`
	Path    string `yaml:"path"`
}

// Log configures the logger.
type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Profiler: Profiler{Hash: "xxh3"},
		Report:   Report{Format: string(report.FormatXML), Path: "mprof.xml"},
		Log:      Log{Level: "warn", Format: "text"},
	}
}

// Load reads path from the OS filesystem. See LoadFs.
func Load(path string) (*Config, error) {
	return LoadFs(afero.NewOsFs(), path)
}

// LoadFs reads path over the defaults. A missing file yields the defaults.
// Environment overrides are not applied.
func LoadFs(fsys afero.Fs, path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("cannot read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("cannot parse config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overrides cfg with MPROF_* environment variables.
func ApplyEnv(cfg *Config) error {
	return applyEnv(cfg, os.LookupEnv)
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		cfg.Log.Level = v
	}
	if v, ok := lookup(EnvHash); ok && v != "" {
		cfg.Profiler.Hash = v
	}
	if v, ok := lookup(EnvReportFormat); ok && v != "" {
		cfg.Report.Format = v
	}
	if v, ok := lookup(EnvStartPaused); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s value %q: %w", EnvStartPaused, v, err)
		}
		cfg.Profiler.StartPaused = b
	}
	return nil
}

// Validate checks every enumerated setting.
func (c *Config) Validate() error {
	var errs []error
	if _, err := signature.ByName(c.Profiler.Hash); err != nil {
		errs = append(errs, err)
	}
	if _, err := report.ParseFormat(c.Report.Format); err != nil {
		errs = append(errs, err)
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("invalid log level: %w", err))
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("invalid log format %q (want text or json)", c.Log.Format))
	}
	return errors.Join(errs...)
}
