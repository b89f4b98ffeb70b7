package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/couchcryptid/stormview/internal/carousel"
	"github.com/couchcryptid/stormview/internal/domain"
)

// Resolver maps a selection to its image sequence.
type Resolver interface {
	Resolve(ctx context.Context, subject domain.Subject, slot domain.TimeSlot) (domain.ImageSequence, error)
}

// Fetch is one imagery resolution handed out by the machine. Run it off the
// owning goroutine and pass the result back to Machine.Complete.
type Fetch struct {
	Key      domain.SelectionKey
	resolver Resolver
	retired  <-chan struct{}
	started  time.Time
}

// Result is the outcome of a Fetch.
type Result struct {
	Key      domain.SelectionKey
	Sequence domain.ImageSequence
	Err      error
	Elapsed  time.Duration
}

// Run resolves the fetch's selection. The request is cancelled as soon as a
// newer selection retires this fetch.
func (f Fetch) Run(ctx context.Context) Result {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-f.retired:
			cancel()
		case <-ctx.Done():
		}
	}()

	seq, err := f.resolver.Resolve(ctx, f.Key.Subject, f.Key.Slot)
	return Result{
		Key:      f.Key,
		Sequence: seq,
		Err:      err,
		Elapsed:  domain.Now().Sub(f.started),
	}
}

// View is a point-in-time snapshot of the machine for rendering.
type View struct {
	Key      domain.SelectionKey
	State    domain.FetchState
	Index    int
	Len      int
	Pending  bool
	Current  domain.ImageLocator
	HasImage bool
	Broken   []int
	Token    carousel.Token
}

// IsBroken reports whether position i is marked broken in the view.
func (v View) IsBroken(i int) bool {
	for _, b := range v.Broken {
		if b == i {
			return true
		}
	}
	return false
}

// Machine is the selection state machine. It is safe for concurrent use.
type Machine struct {
	mu       sync.Mutex
	resolver Resolver
	carousel *carousel.Controller
	observer domain.Observer
	logger   *slog.Logger

	subject domain.Subject
	slot    domain.TimeSlot
	gen     uint64
	key     domain.SelectionKey
	state   domain.FetchState
	retire  chan struct{}
}

// New creates a machine with the overview on the latest slot selected and
// nothing fetched yet.
func New(resolver Resolver, observer domain.Observer, logger *slog.Logger) *Machine {
	if observer == nil {
		observer = domain.NopObserver{}
	}
	return &Machine{
		resolver: resolver,
		carousel: carousel.New(),
		observer: observer,
		logger:   logger,
		subject:  domain.Overview(),
		slot:     domain.Latest(),
		state:    domain.Idle(),
	}
}

// SelectSubject changes the subject and keeps the slot.
func (m *Machine) SelectSubject(s domain.Subject) Fetch {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.begin(s, m.slot)
}

// SelectDate changes the slot and keeps the subject. A nil date selects the latest slot.
func (m *Machine) SelectDate(d *domain.DateKey) Fetch {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.begin(m.subject, domain.SlotFor(d))
}

// Select changes subject and slot together.
func (m *Machine) Select(s domain.Subject, slot domain.TimeSlot) Fetch {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.begin(s, slot)
}

// Refresh re-selects the current pair under a new key so the backend is asked again.
func (m *Machine) Refresh() Fetch {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.begin(m.subject, m.slot)
}

func (m *Machine) begin(s domain.Subject, slot domain.TimeSlot) Fetch {
	if m.retire != nil {
		close(m.retire)
	}
	m.retire = make(chan struct{})

	m.gen++
	m.subject, m.slot = s, slot
	m.key = domain.SelectionKey{Subject: s, Slot: slot, Seq: m.gen}
	m.state = domain.Loading()
	m.carousel.Attach(domain.ImageSequence{})

	ev := domain.NewEvent(domain.EventSelection, m.key)
	ev.Phase = domain.PhaseLoading
	m.observer.Observe(ev)

	return Fetch{
		Key:      m.key,
		resolver: m.resolver,
		retired:  m.retire,
		started:  domain.Now(),
	}
}

// Complete applies r when its key is still current and reports whether it did.
// A stale result changes nothing.
func (m *Machine) Complete(r Result) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.gen == 0 || !r.Key.Same(m.key) {
		ev := domain.NewEvent(domain.EventStale, r.Key)
		ev.Elapsed = r.Elapsed
		m.observer.Observe(ev)
		return false
	}

	ev := domain.NewEvent(domain.EventResolved, r.Key)
	ev.Elapsed = r.Elapsed
	if r.Err != nil {
		f := domain.AsFailure(r.Err)
		m.state = domain.Failed(f)
		m.logger.Debug("imagery fetch failed", "key", r.Key.String(), "error", r.Err)
		ev.Phase = domain.PhaseFailed
		m.observer.Observe(ev.WithFailure(f))
		return true
	}

	m.state = domain.Ready(r.Sequence)
	m.carousel.Attach(r.Sequence)
	ev.Phase = domain.PhaseReady
	ev.Images = r.Sequence.Len()
	if r.Sequence.NoImageryExpected() {
		ev.Reason = domain.NoImageryMessage
	}
	m.observer.Observe(ev)
	return true
}

// Next shows the following image, wrapping around.
func (m *Machine) Next() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.carousel.Next()
}

// Previous shows the preceding image, wrapping around.
func (m *Machine) Previous() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.carousel.Previous()
}

// JumpTo shows the image at position i. Out-of-range positions are ignored.
func (m *Machine) JumpTo(i int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.carousel.JumpTo(i)
}

// Settle reports the load outcome of the image identified by tok. A nil err
// means the image rendered. Completions for images no longer displayed are
// ignored and Settle returns false.
func (m *Machine) Settle(tok carousel.Token, err error) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.carousel.Settle(tok, err == nil) {
		return false
	}
	ev := domain.NewEvent(domain.EventImage, m.key)
	ev.Images = m.carousel.Len()
	if err != nil {
		ev.Phase = domain.PhaseFailed
		ev = ev.WithFailure(domain.AsFailure(err))
	} else {
		ev.Phase = domain.PhaseReady
	}
	m.observer.Observe(ev)
	return true
}

// Key returns the current selection key.
func (m *Machine) Key() domain.SelectionKey {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.key
}

// State returns the imagery state of the current selection.
func (m *Machine) State() domain.FetchState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Selection returns the selected subject and slot.
func (m *Machine) Selection() (domain.Subject, domain.TimeSlot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.subject, m.slot
}

// View snapshots the machine and its carousel.
func (m *Machine) View() View {
	m.mu.Lock()
	defer m.mu.Unlock()

	v := View{
		Key:     m.key,
		State:   m.state,
		Index:   m.carousel.Index(),
		Len:     m.carousel.Len(),
		Pending: m.carousel.Pending(),
		Token:   m.carousel.Token(),
	}
	v.Current, v.HasImage = m.carousel.Current()
	for i := range v.Len {
		if m.carousel.Broken(i) {
			v.Broken = append(v.Broken, i)
		}
	}
	return v
}
