package cli

import (
	"context"
	"fmt"

	"github.com/danpilch/mprof/pkg/clock"
	"github.com/danpilch/mprof/pkg/debug"
	"github.com/danpilch/mprof/pkg/host"
	"github.com/danpilch/mprof/pkg/profiler"
)

// session is a profiler fed by a trace replay.
type session struct {
	profiler *profiler.Profiler
	replay   *host.Replay
	timed    *debug.TimedHooks
}

// timedSource installs the profiler behind a TimedHooks wrapper.
type timedSource struct {
	*host.Replay
	timed *debug.TimedHooks
}

func (s *timedSource) Install(h host.Hooks) error {
	s.timed = debug.NewTimedHooks(h)
	return s.Replay.Install(s.timed)
}

func (a *app) newSession(timing bool) (*session, error) {
	opts, err := profiler.FromConfig(a.cfg)
	if err != nil {
		return nil, err
	}
	clk := clock.NewManual(0)
	opts = append(opts,
		profiler.WithLogger(a.logger),
		profiler.WithClock(clk),
		profiler.WithFs(a.fs),
	)

	s := &session{
		profiler: profiler.New(opts...),
		replay:   host.NewReplay(clk, a.logger),
	}
	var src host.Source = s.replay
	var ts *timedSource
	if timing {
		ts = &timedSource{Replay: s.replay}
		src = ts
	}
	if err := s.profiler.Init(src); err != nil {
		return nil, err
	}
	if ts != nil {
		s.timed = ts.timed
	}
	return s, nil
}

// play replays the trace at path once.
func (a *app) play(ctx context.Context, s *session, path string) error {
	f, err := a.fs.Open(path)
	if err != nil {
		return fmt.Errorf("cannot open trace: %w", err)
	}
	defer f.Close()

	n, err := s.replay.Run(ctx, f)
	if err != nil {
		return err
	}
	a.logger.WithField("trace", path).WithField("events", n).Info("trace replayed")
	return nil
}
