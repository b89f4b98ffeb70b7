// Package resolver turns a (subject, time slot) selection into an ordered
// image sequence by choosing the backend call pattern for the pair.
package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/stormview/internal/domain"
)

// MapSource is the slice of the backend the resolver depends on.
type MapSource interface {
	ListGeneralMaps(ctx context.Context, date domain.DateKey) ([]int, error)
	ListStormMaps(ctx context.Context, date domain.DateKey, stormID string) ([]int, error)
	ProbeGeneralMap(ctx context.Context) (string, error)
	ProbeStormMap(ctx context.Context, stormID string) (string, error)
	GeneralMapAddress(date domain.DateKey, index int) string
	StormMapAddress(date domain.DateKey, stormID string, index int) string
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithClock sets the clock used for latest-slot cache busters.
func WithClock(c clockwork.Clock) Option {
	return func(r *Resolver) { r.clock = c }
}

// Resolver implements the four-case dispatch from selection to image sequence.
type Resolver struct {
	source MapSource
	clock  clockwork.Clock
	logger *slog.Logger

	mu         sync.Mutex
	lastBuster int64
}

// New creates a Resolver backed by source.
func New(source MapSource, logger *slog.Logger, opts ...Option) *Resolver {
	r := &Resolver{
		source: source,
		clock:  clockwork.NewRealClock(),
		logger: logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve produces the image sequence for subject on slot.
//
//	Overview, Historic{d}  list general maps for d, one locator per index, buster d
//	Storm{id}, Historic{d} list storm maps for d, one locator per index, buster d
//	Overview, Latest       probe the current general map, one fresh-busted locator
//	Storm{id}, Latest      probe the current storm map, one fresh-busted locator
//
// Investigation areas never reach the backend. An empty listing is a valid,
// empty sequence. Any other failure is returned as a *domain.Failure.
func (r *Resolver) Resolve(ctx context.Context, subject domain.Subject, slot domain.TimeSlot) (domain.ImageSequence, error) {
	if subject.InvestigationArea() {
		r.logger.Debug("investigation area has no imagery", "subject", subject.Key())
		return domain.NoIndividualImagery(), nil
	}

	date, historic := slot.Date()
	switch {
	case historic && subject.IsOverview():
		indices, err := r.source.ListGeneralMaps(ctx, date)
		if err != nil {
			return domain.ImageSequence{}, err
		}
		return historicSequence(indices, date, func(i int) string {
			return r.source.GeneralMapAddress(date, i)
		}), nil

	case historic:
		id := subject.ID()
		indices, err := r.source.ListStormMaps(ctx, date, id)
		if err != nil {
			return domain.ImageSequence{}, err
		}
		return historicSequence(indices, date, func(i int) string {
			return r.source.StormMapAddress(date, id, i)
		}), nil

	case subject.IsOverview():
		addr, err := r.source.ProbeGeneralMap(ctx)
		if err != nil {
			return domain.ImageSequence{}, err
		}
		return r.latestSequence(addr), nil

	default:
		addr, err := r.source.ProbeStormMap(ctx, subject.ID())
		if err != nil {
			return domain.ImageSequence{}, err
		}
		return r.latestSequence(addr), nil
	}
}

func historicSequence(indices []int, date domain.DateKey, address func(int) string) domain.ImageSequence {
	locs := make([]domain.ImageLocator, 0, len(indices))
	for _, i := range indices {
		locs = append(locs, domain.ImageLocator{
			Index:     i,
			Address:   address(i),
			Buster:    string(date),
			Cacheable: true,
		})
	}
	return domain.NewSequence(locs)
}

func (r *Resolver) latestSequence(addr string) domain.ImageSequence {
	return domain.NewSequence([]domain.ImageLocator{{
		Index:   0,
		Address: addr,
		Buster:  r.nextBuster(),
	}})
}

// nextBuster returns a millisecond timestamp that is strictly greater than
// every buster this resolver has handed out before.
func (r *Resolver) nextBuster() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now().UnixMilli()
	if now <= r.lastBuster {
		now = r.lastBuster + 1
	}
	r.lastBuster = now
	return strconv.FormatInt(now, 10)
}

// Describe names the call pattern chosen for subject on slot.
func Describe(subject domain.Subject, slot domain.TimeSlot) string {
	if subject.InvestigationArea() {
		return "none (investigation area)"
	}
	date, historic := slot.Date()
	switch {
	case historic && subject.IsOverview():
		return fmt.Sprintf("list /date/%s/maps/general/list", date)
	case historic:
		return fmt.Sprintf("list /date/%s/maps/%s/list", date, subject.ID())
	case subject.IsOverview():
		return "probe /maps"
	default:
		return fmt.Sprintf("probe /maps/%s", subject.ID())
	}
}
