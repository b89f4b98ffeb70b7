// Package watch keeps one selection resolved in the background, refreshing
// it on an interval so server-side updates are picked up.
package watch

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/stormview/internal/domain"
	"github.com/couchcryptid/stormview/internal/observability"
	"github.com/couchcryptid/stormview/internal/session"
)

const initialBackoff = time.Second

// ImageChecker confirms that the image behind a locator renders.
type ImageChecker func(ctx context.Context, loc domain.ImageLocator) error

// Option configures a Watcher.
type Option func(*Watcher)

// WithClock sets the clock that paces refreshes.
func WithClock(c clockwork.Clock) Option {
	return func(w *Watcher) { w.clock = c }
}

// WithImageChecker makes every refresh load each image of the sequence and
// settle it on the carousel.
func WithImageChecker(check ImageChecker) Option {
	return func(w *Watcher) { w.check = check }
}

// Status is the watcher's view of its selection, served on /status.
type Status struct {
	Subject      string    `json:"subject"`
	Slot         string    `json:"slot"`
	Seq          uint64    `json:"seq"`
	Phase        string    `json:"phase"`
	Images       int       `json:"images"`
	Broken       []int     `json:"broken,omitempty"`
	NoImagery    bool      `json:"no_imagery,omitempty"`
	Reason       string    `json:"reason,omitempty"`
	Refreshes    int64     `json:"refreshes"`
	LastResolved time.Time `json:"last_resolved,omitzero"`
}

// Watcher drives a session.Machine from a refresh loop.
type Watcher struct {
	machine  *session.Machine
	check    ImageChecker
	clock    clockwork.Clock
	interval time.Duration
	logger   *slog.Logger
	metrics  *observability.Metrics

	ready     atomic.Bool
	refreshes atomic.Int64

	mu           sync.Mutex
	lastResolved time.Time
}

// New creates a Watcher that refreshes the machine's selection every interval.
func New(machine *session.Machine, interval time.Duration, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Watcher {
	w := &Watcher{
		machine:  machine,
		clock:    clockwork.NewRealClock(),
		interval: interval,
		logger:   logger,
		metrics:  metrics,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// CheckReadiness returns nil once a resolution has been applied,
// or an error describing why the watcher is not yet ready.
func (w *Watcher) CheckReadiness(_ context.Context) error {
	if !w.ready.Load() {
		return errors.New("watcher has not resolved any imagery yet")
	}
	return nil
}

// Run selects subject on slot and refreshes it until the context is cancelled.
// Failed resolutions are retried with exponential backoff capped at the interval.
func (w *Watcher) Run(ctx context.Context, subject domain.Subject, slot domain.TimeSlot) error {
	w.logger.Info("watcher started", "subject", subject.Key(), "slot", slot.String(), "interval", w.interval)
	w.metrics.WatchRunning.Set(1)
	defer w.metrics.WatchRunning.Set(0)

	backoff := initialBackoff
	fetch := w.machine.Select(subject, slot)
	for {
		if !w.resolve(ctx, fetch) {
			w.logger.Info("watcher stopping", "reason", ctx.Err())
			return nil
		}

		wait := w.interval
		if w.machine.State().Phase == domain.PhaseFailed {
			wait = min(backoff, w.interval)
			backoff = nextBackoff(backoff, w.interval)
		} else {
			backoff = initialBackoff
		}

		if !sleepWithContext(ctx, w.clock, wait) {
			w.logger.Info("watcher stopping", "reason", ctx.Err())
			return nil
		}
		fetch = w.machine.Refresh()
	}
}

// resolve runs one fetch and applies it. Returns false if the watcher should stop.
func (w *Watcher) resolve(ctx context.Context, fetch session.Fetch) bool {
	res := fetch.Run(ctx)
	if ctx.Err() != nil {
		return false
	}
	w.refreshes.Add(1)
	if !w.machine.Complete(res) {
		return true
	}

	state := w.machine.State()
	if state.Phase == domain.PhaseFailed {
		w.logger.Warn("resolution failed", "key", fetch.Key.String(), "reason", state.Reason())
		return true
	}

	w.mu.Lock()
	w.lastResolved = w.clock.Now()
	w.mu.Unlock()
	w.ready.Store(true)

	if w.check != nil {
		w.checkImages(ctx)
	}
	return ctx.Err() == nil
}

// checkImages walks the carousel, loading each image and settling it.
func (w *Watcher) checkImages(ctx context.Context) {
	n := w.machine.View().Len
	for i := range n {
		w.machine.JumpTo(i)
		v := w.machine.View()
		if !v.HasImage {
			return
		}
		err := w.check(ctx, v.Current)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			w.logger.Warn("image broken", "index", v.Current.Index, "url", v.Current.URL(), "error", err)
		}
		w.machine.Settle(v.Token, err)
	}
	w.machine.JumpTo(0)
}

// Status reports the current selection and its imagery.
func (w *Watcher) Status() Status {
	v := w.machine.View()
	s := Status{
		Subject:   v.Key.Subject.Key(),
		Slot:      v.Key.Slot.String(),
		Seq:       v.Key.Seq,
		Phase:     string(v.State.Phase),
		Images:    v.Len,
		Broken:    v.Broken,
		NoImagery: v.State.Sequence.NoImageryExpected(),
		Reason:    v.State.Reason(),
		Refreshes: w.refreshes.Load(),
	}
	w.mu.Lock()
	s.LastResolved = w.lastResolved
	w.mu.Unlock()
	return s
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepWithContext(ctx context.Context, clock clockwork.Clock, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.Chan():
		return true
	}
}
