package host

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/danpilch/mprof/pkg/clock"
	"github.com/danpilch/mprof/pkg/logging"
)

// ErrNotInstalled is returned by Replay.Run before any hooks were installed.
var ErrNotInstalled = errors.New("no hooks installed")

// Replay is a Source that delivers a recorded trace.
type Replay struct {
	mu     sync.Mutex
	hooks  Hooks
	clock  *clock.Manual
	logger *logrus.Entry
}

// NewReplay creates a replay source. Tick events advance c; with a nil clock
// they are skipped.
func NewReplay(c *clock.Manual, logger *logrus.Logger) *Replay {
	return &Replay{clock: c, logger: logging.WithComponent(logger, "replay")}
}

// Install implements Source.
func (r *Replay) Install(h Hooks) error {
	if h == nil {
		return fmt.Errorf("cannot install nil hooks")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks = h
	return nil
}

// Uninstall implements Uninstaller.
func (r *Replay) Uninstall() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks = nil
	return nil
}

// Run reads the trace from rd and delivers every event in order. It returns the
// number of events delivered. Parse errors stop the replay and name the line.
func (r *Replay) Run(ctx context.Context, rd io.Reader) (int, error) {
	r.mu.Lock()
	h := r.hooks
	r.mu.Unlock()
	if h == nil {
		return 0, ErrNotInstalled
	}

	scanner := bufio.NewScanner(rd)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var (
		lineNo    int
		delivered int
	)
	for scanner.Scan() {
		lineNo++
		if err := ctx.Err(); err != nil {
			return delivered, err
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		e, err := ParseEvent(line)
		if err != nil {
			return delivered, fmt.Errorf("trace line %d: %w", lineNo, err)
		}

		if e.Kind == KindTick {
			if r.clock == nil {
				r.logger.WithField("line", lineNo).Debug("tick ignored without a manual clock")
				continue
			}
			r.clock.Advance(time.Duration(e.Value) * time.Microsecond)
			delivered++
			continue
		}

		Deliver(h, e)
		delivered++
	}
	if err := scanner.Err(); err != nil {
		return delivered, fmt.Errorf("cannot read trace: %w", err)
	}

	r.logger.WithFields(logrus.Fields{
		"lines":  lineNo,
		"events": delivered,
	}).Debug("trace replayed")
	return delivered, nil
}
