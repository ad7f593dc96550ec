// Package emitter turns key transitions into stick reports and submits them
// to the virtual pad.
package emitter

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/overbind/overbind/internal/axis"
	"github.com/overbind/overbind/internal/keybind"
	"github.com/overbind/overbind/internal/keyboard"
	"github.com/overbind/overbind/internal/keystate"
)

// Sink accepts complete reports.
type Sink interface {
	UpdateReport(axis.Report) error
}

// Option configures an Emitter.
type Option func(*Emitter)

// WithLogger sets the logger used for per-report debug output.
func WithLogger(l *slog.Logger) Option {
	return func(e *Emitter) {
		if l != nil {
			e.logger = l
		}
	}
}

// Emitter owns the tracker. HandleKey and Poll must not run concurrently.
type Emitter struct {
	tracker *keystate.Tracker
	profile axis.Profile
	sink    Sink
	logger  *slog.Logger

	failed  atomic.Bool
	errOnce sync.Once
	errCh   chan error
}

// New returns an emitter submitting reports in profile's units to sink.
func New(tracker *keystate.Tracker, profile axis.Profile, sink Sink, opts ...Option) *Emitter {
	e := &Emitter{
		tracker: tracker,
		profile: profile,
		sink:    sink,
		logger:  slog.Default(),
		errCh:   make(chan error, 1),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Err delivers the first submission failure from HandleKey.
func (e *Emitter) Err() <-chan error { return e.errCh }

// HandleKey is a keyboard.Handler. A report is submitted only when the event
// changed a held flag; repeats and unbound keys submit nothing. After a
// failed submission further events are ignored.
func (e *Emitter) HandleKey(ev keyboard.Event) {
	if e.failed.Load() {
		return
	}
	if _, changed := e.tracker.Apply(ev.Code, ev.Pressed); !changed {
		return
	}
	if err := e.submit(); err != nil {
		e.errOnce.Do(func() {
			e.failed.Store(true)
			e.errCh <- err
		})
	}
}

// Poll samples the bound keys from p and submits a report every iteration
// until ctx is done or a submission fails. interval 0 polls without pause.
func (e *Emitter) Poll(ctx context.Context, p keyboard.Poller, interval time.Duration) error {
	var tick <-chan time.Time
	if interval > 0 {
		t := time.NewTicker(interval)
		defer t.Stop()
		tick = t.C
	}

	b := e.tracker.Binding()
	for {
		if ctx.Err() != nil {
			return nil
		}
		for _, s := range keybind.Slots {
			e.tracker.Set(s, p.IsDown(b.Code(s)))
		}
		if err := e.submit(); err != nil {
			return err
		}
		if tick == nil {
			continue
		}
		select {
		case <-ctx.Done():
			return nil
		case <-tick:
		}
	}
}

// Reset clears the held flags and submits the neutral report.
func (e *Emitter) Reset() error {
	e.tracker.Reset()
	return e.submit()
}

func (e *Emitter) submit() error {
	h := e.tracker.Held()
	r := axis.Compute(h, e.profile)
	if e.logger.Enabled(context.Background(), slog.LevelDebug) {
		e.logger.Debug("Submitting report",
			"left", h.IsHeld(keybind.LeftStickLeft),
			"right", h.IsHeld(keybind.LeftStickRight),
			"up", h.IsHeld(keybind.RightStickUp),
			"lx", r.LX, "ry", r.RY)
	}
	return e.sink.UpdateReport(r)
}
