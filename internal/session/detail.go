package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/couchcryptid/stormview/internal/domain"
)

// DetailSource fetches the structured record for a selection.
type DetailSource interface {
	FetchDetail(ctx context.Context, subject domain.Subject, slot domain.TimeSlot) (domain.Detail, error)
}

// DetailFetch is one detail request. Overlapping fetches are allowed; only
// the most recently requested one is applied.
type DetailFetch struct {
	Key     domain.SelectionKey
	source  DetailSource
	started time.Time
}

// DetailResult is the outcome of a DetailFetch.
type DetailResult struct {
	Key     domain.SelectionKey
	Detail  domain.Detail
	Err     error
	Elapsed time.Duration
}

// Run fetches the detail record.
func (f DetailFetch) Run(ctx context.Context) DetailResult {
	d, err := f.source.FetchDetail(ctx, f.Key.Subject, f.Key.Slot)
	return DetailResult{
		Key:     f.Key,
		Detail:  d,
		Err:     err,
		Elapsed: domain.Now().Sub(f.started),
	}
}

// DetailFetcher runs the detail pipeline independently of the imagery
// pipeline. It is safe for concurrent use.
type DetailFetcher struct {
	mu       sync.Mutex
	source   DetailSource
	observer domain.Observer
	logger   *slog.Logger

	gen   uint64
	key   domain.SelectionKey
	state domain.DetailState
}

// NewDetailFetcher creates an idle detail fetcher.
func NewDetailFetcher(source DetailSource, observer domain.Observer, logger *slog.Logger) *DetailFetcher {
	if observer == nil {
		observer = domain.NopObserver{}
	}
	return &DetailFetcher{
		source:   source,
		observer: observer,
		logger:   logger,
		state:    domain.DetailState{Phase: domain.PhaseIdle},
	}
}

// Request starts a detail fetch for subject on slot and supersedes any earlier request.
func (d *DetailFetcher) Request(subject domain.Subject, slot domain.TimeSlot) DetailFetch {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.gen++
	d.key = domain.SelectionKey{Subject: subject, Slot: slot, Seq: d.gen}
	d.state = domain.DetailState{Phase: domain.PhaseLoading}
	return DetailFetch{Key: d.key, source: d.source, started: domain.Now()}
}

// Complete applies r when it answers the most recent request and reports whether it did.
func (d *DetailFetcher) Complete(r DetailResult) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.gen == 0 || !r.Key.Same(d.key) {
		d.observer.Observe(domain.NewEvent(domain.EventStaleDetail, r.Key))
		return false
	}

	ev := domain.NewEvent(domain.EventDetail, r.Key)
	ev.Elapsed = r.Elapsed
	if r.Err != nil {
		f := domain.AsFailure(r.Err)
		d.state = domain.DetailState{Phase: domain.PhaseFailed, Failure: f}
		d.logger.Debug("detail fetch failed", "key", r.Key.String(), "error", r.Err)
		ev.Phase = domain.PhaseFailed
		d.observer.Observe(ev.WithFailure(f))
		return true
	}

	d.state = domain.DetailState{Phase: domain.PhaseReady, Detail: r.Detail}
	ev.Phase = domain.PhaseReady
	ev.Images = len(r.Detail.Storms)
	d.observer.Observe(ev)
	return true
}

// State returns the detail state of the most recent request.
func (d *DetailFetcher) State() domain.DetailState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Key returns the key of the most recent request.
func (d *DetailFetcher) Key() domain.SelectionKey {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.key
}
