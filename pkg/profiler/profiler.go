// Package profiler aggregates method timing and allocations reported by a host
// runtime, and exposes them as reports and through a live cursor.
//
// A single mutex serialises every event and every read. Reads force the
// profiler into the paused state so the registry stops changing under a
// consumer; collection continues only after an explicit Resume.
package profiler

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/danpilch/mprof/pkg/callstack"
	"github.com/danpilch/mprof/pkg/clock"
	"github.com/danpilch/mprof/pkg/config"
	"github.com/danpilch/mprof/pkg/host"
	"github.com/danpilch/mprof/pkg/logging"
	"github.com/danpilch/mprof/pkg/report"
	"github.com/danpilch/mprof/pkg/sample"
	"github.com/danpilch/mprof/pkg/signature"
)

type options struct {
	logger      *logrus.Logger
	clock       clock.Clock
	hasher      signature.Hasher
	startPaused bool
	fs          afero.Fs
	format      report.Format
}

// Option configures a Profiler.
type Option func(*options)

// WithLogger sets the logger. A nil logger keeps the default.
func WithLogger(l *logrus.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithClock sets the tick source used to time calls.
func WithClock(c clock.Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clock = c
		}
	}
}

// WithHasher sets the signature hasher.
func WithHasher(h signature.Hasher) Option {
	return func(o *options) {
		if h != nil {
			o.hasher = h
		}
	}
}

// WithStartPaused controls whether Init leaves collection paused.
func WithStartPaused(paused bool) Option {
	return func(o *options) {
		o.startPaused = paused
	}
}

// WithFs sets the filesystem reports are written to.
func WithFs(fs afero.Fs) Option {
	return func(o *options) {
		if fs != nil {
			o.fs = fs
		}
	}
}

// WithFormat sets the format used by Dump.
func WithFormat(f report.Format) Option {
	return func(o *options) {
		if f != "" {
			o.format = f
		}
	}
}

// FromConfig translates the profiler and report settings of cfg into options.
func FromConfig(cfg *config.Config) ([]Option, error) {
	h, err := signature.ByName(cfg.Profiler.Hash)
	if err != nil {
		return nil, err
	}
	f, err := report.ParseFormat(cfg.Report.Format)
	if err != nil {
		return nil, err
	}
	return []Option{
		WithHasher(h),
		WithStartPaused(cfg.Profiler.StartPaused),
		WithFormat(f),
	}, nil
}

// Stats counts the events seen since the last Clear.
type Stats struct {
	Enters             uint64
	Leaves             uint64
	StrayLeaves        uint64
	Allocations        uint64
	DroppedAllocations uint64
	GCEvents           uint64
	Resizes            uint64
	LastGCEvent        host.GCEvent
	HeapSize           int64
	Threads            int
	Samples            int
	Collisions         uint64
	Paused             bool
}

// Profiler is the collection controller. It implements host.Hooks.
type Profiler struct {
	opts   options
	logger *logrus.Entry

	// live is set once Init has installed the hooks. Events are ignored before.
	live   atomic.Bool
	paused atomic.Bool

	mu       sync.Mutex
	tracker  *callstack.Tracker
	registry *sample.Registry
	source   host.Source
	cursor   *Cursor
	stats    Stats
}

var _ host.Hooks = (*Profiler)(nil)

// New creates a paused, inert profiler. Call Init to start collecting.
func New(opts ...Option) *Profiler {
	o := options{
		clock:  clock.NewMonotonic(),
		hasher: signature.XXH3{},
		fs:     afero.NewOsFs(),
		format: report.FormatXML,
	}
	for _, opt := range opts {
		opt(&o)
	}
	o.logger = logging.OrDefault(o.logger)

	p := &Profiler{
		opts:     o,
		logger:   logging.WithComponent(o.logger, "profiler"),
		tracker:  callstack.NewTracker(o.hasher),
		registry: sample.NewRegistry(),
	}
	p.cursor = &Cursor{p: p}
	p.paused.Store(true)
	return p
}

// Init discards all collected data, installs the hooks into src and sets the
// pause state to the configured default. A nil src initialises without hooks;
// events can then be delivered by calling the On* methods directly.
//
// If installation fails the profiler stays paused and inert.
func (p *Profiler) Init(src host.Source) error {
	p.mu.Lock()
	p.live.Store(false)
	p.paused.Store(true)
	p.resetLocked()
	prev := p.source
	p.source = nil
	p.mu.Unlock()

	if prev != nil && prev != src {
		_ = p.uninstall(prev)
	}

	if src != nil {
		if err := src.Install(p); err != nil {
			p.logger.WithError(err).Warn("cannot install hooks")
			return fmt.Errorf("%w: %w", ErrHookInstallationFailed, err)
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.source = src
	p.paused.Store(p.opts.startPaused)
	p.live.Store(true)

	p.logger.WithFields(logrus.Fields{
		"hasher": p.opts.hasher.Name(),
		"paused": p.opts.startPaused,
		"hooks":  src != nil,
	}).Info("profiler initialised")
	return nil
}

// Pause stops sample collection. Stacks keep being tracked.
func (p *Profiler) Pause() {
	if !p.paused.Swap(true) {
		p.logger.Debug("collection paused")
	}
}

// Resume restarts sample collection. It has no effect before Init.
func (p *Profiler) Resume() {
	if !p.live.Load() {
		p.logger.Debug("resume ignored before init")
		return
	}
	if p.paused.Swap(false) {
		p.logger.Debug("collection resumed")
	}
}

// Paused reports whether collection is paused.
func (p *Profiler) Paused() bool {
	return p.paused.Load()
}

// Clear pauses collection and discards every stack and sample. Any open
// cursor becomes stale.
func (p *Profiler) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paused.Store(true)
	p.resetLocked()
	p.logger.Debug("samples cleared")
}

// Teardown detaches the hooks and clears the profiler, leaving it inert.
func (p *Profiler) Teardown() error {
	p.mu.Lock()
	p.live.Store(false)
	p.paused.Store(true)
	p.resetLocked()
	src := p.source
	p.source = nil
	p.mu.Unlock()

	if src == nil {
		return nil
	}
	return p.uninstall(src)
}

func (p *Profiler) uninstall(src host.Source) error {
	u, ok := src.(host.Uninstaller)
	if !ok {
		return nil
	}
	if err := u.Uninstall(); err != nil {
		p.logger.WithError(err).Warn("cannot uninstall hooks")
		return fmt.Errorf("cannot uninstall hooks: %w", err)
	}
	return nil
}

func (p *Profiler) resetLocked() {
	p.tracker.Reset()
	// The registry epoch moves, which makes the cursor stale.
	p.registry.Reset()
	p.stats = Stats{}
}

// Stats returns a copy of the event counters.
func (p *Profiler) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := p.stats
	s.Threads = p.tracker.Threads()
	s.Samples = p.registry.Len()
	s.Collisions = p.registry.Collisions()
	s.Paused = p.paused.Load()
	return s
}

// Cursor returns the profiler's live cursor.
func (p *Profiler) Cursor() *Cursor {
	return p.cursor
}

// Snapshot pauses collection and builds a detached report.
func (p *Profiler) Snapshot(details bool) *report.Report {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paused.Store(true)
	return report.Build(p.registry, report.Options{Details: details})
}

// RawSamples pauses collection and lists the unmerged per-thread samples.
func (p *Profiler) RawSamples() []report.RawSample {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paused.Store(true)
	return report.Raw(p.registry)
}

// Dump writes a report to path in the configured format. Write failures are
// returned as *IOError.
func (p *Profiler) Dump(path string, details bool) error {
	return p.DumpFormat(path, details, p.opts.format)
}

// DumpFormat writes a report to path in the given format.
func (p *Profiler) DumpFormat(path string, details bool, format report.Format) error {
	rep := p.Snapshot(details)
	if err := report.WriteFile(p.opts.fs, path, rep, format); err != nil {
		p.logger.WithError(err).WithField("path", path).Warn("cannot dump report")
		return err
	}
	p.logger.WithFields(logrus.Fields{
		"path":    path,
		"format":  format,
		"details": details,
		"methods": len(rep.Nodes()),
	}).Info("report written")
	return nil
}
