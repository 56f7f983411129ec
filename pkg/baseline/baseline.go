// Package baseline saves reports as named baselines and detects drift against them.
package baseline

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/danpilch/mprof/pkg/report"
)

// Baseline is a saved report.
type Baseline struct {
	Name      string            `json:"name"`
	Timestamp time.Time         `json:"timestamp"`
	Hostname  string            `json:"hostname"`
	Report    *report.Report    `json:"report"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// DefaultDir returns the default baseline storage directory.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".mprof/baselines"
	}
	return filepath.Join(home, ".mprof", "baselines")
}

// Save writes the baseline to dir/<name>.json.
func (b *Baseline) Save(fsys afero.Fs, dir string) error {
	if dir == "" {
		dir = DefaultDir()
	}
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create baseline directory: %w", err)
	}

	path := filepath.Join(dir, b.Name+".json")
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return fmt.Errorf("cannot marshal baseline: %w", err)
	}

	if err := afero.WriteFile(fsys, path, data, 0o644); err != nil {
		return fmt.Errorf("cannot write baseline: %w", err)
	}
	return nil
}

// Load reads dir/<name>.json.
func Load(fsys afero.Fs, name, dir string) (*Baseline, error) {
	if dir == "" {
		dir = DefaultDir()
	}
	path := filepath.Join(dir, name+".json")
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("cannot read baseline %q: %w", name, err)
	}

	var b Baseline
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("cannot parse baseline: %w", err)
	}
	if b.Report == nil {
		b.Report = &report.Report{}
	}
	return &b, nil
}

// List returns all saved baseline names.
func List(fsys afero.Fs, dir string) ([]string, error) {
	if dir == "" {
		dir = DefaultDir()
	}
	entries, err := afero.ReadDir(fsys, dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var names []string
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".json" {
			names = append(names, strings.TrimSuffix(e.Name(), ".json"))
		}
	}
	return names, nil
}

// NewBaseline creates a baseline from rep.
func NewBaseline(name string, rep *report.Report) *Baseline {
	hostname, _ := os.Hostname()
	return &Baseline{
		Name:      name,
		Timestamp: time.Now(),
		Hostname:  hostname,
		Report:    rep,
	}
}
