package watch_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/stormview/internal/domain"
	"github.com/couchcryptid/stormview/internal/observability"
	"github.com/couchcryptid/stormview/internal/session"
	"github.com/couchcryptid/stormview/internal/watch"
)

// --- mocks ---

type countingResolver struct {
	calls atomic.Int64
	seq   domain.ImageSequence
	fail  atomic.Bool
}

func (r *countingResolver) Resolve(context.Context, domain.Subject, domain.TimeSlot) (domain.ImageSequence, error) {
	r.calls.Add(1)
	if r.fail.Load() {
		return domain.ImageSequence{}, domain.NewFailure(domain.FailureNetwork, 0, "", errors.New("connection refused"))
	}
	return r.seq, nil
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func threeImages() domain.ImageSequence {
	return domain.NewSequence([]domain.ImageLocator{
		{Index: 0, Address: "/date/20231025/maps/general/0", Buster: "20231025", Cacheable: true},
		{Index: 1, Address: "/date/20231025/maps/general/1", Buster: "20231025", Cacheable: true},
		{Index: 2, Address: "/date/20231025/maps/general/2", Buster: "20231025", Cacheable: true},
	})
}

func startWatcher(t *testing.T, w *watch.Watcher, subject domain.Subject, slot domain.TimeSlot) (context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, subject, slot) }()
	t.Cleanup(cancel)
	return cancel, done
}

// --- tests ---

func TestWatcher_ReadyAfterFirstResolution(t *testing.T) {
	res := &countingResolver{seq: threeImages()}
	clock := clockwork.NewFakeClock()
	m := session.New(res, nil, discard())
	w := watch.New(m, time.Minute, discard(), observability.NewMetricsForTesting(), watch.WithClock(clock))

	require.Error(t, w.CheckReadiness(context.Background()))

	cancel, done := startWatcher(t, w, domain.Overview(), domain.Historic("20231025"))
	require.NoError(t, clock.BlockUntilContext(context.Background(), 1))

	require.NoError(t, w.CheckReadiness(context.Background()))
	st := w.Status()
	assert.Equal(t, "overview", st.Subject)
	assert.Equal(t, "20231025", st.Slot)
	assert.Equal(t, "ready", st.Phase)
	assert.Equal(t, 3, st.Images)
	assert.Equal(t, clock.Now(), st.LastResolved)

	cancel()
	require.NoError(t, <-done)
}

func TestWatcher_RefreshesOnInterval(t *testing.T) {
	res := &countingResolver{seq: threeImages()}
	clock := clockwork.NewFakeClock()
	m := session.New(res, nil, discard())
	w := watch.New(m, 5*time.Minute, discard(), observability.NewMetricsForTesting(), watch.WithClock(clock))

	cancel, done := startWatcher(t, w, domain.Overview(), domain.Latest())

	require.NoError(t, clock.BlockUntilContext(context.Background(), 1))
	assert.Equal(t, int64(1), res.calls.Load())
	firstSeq := m.Key().Seq

	clock.Advance(5 * time.Minute)
	require.Eventually(t, func() bool { return res.calls.Load() == 2 }, time.Second, 5*time.Millisecond)
	require.NoError(t, clock.BlockUntilContext(context.Background(), 1))

	assert.Greater(t, m.Key().Seq, firstSeq)
	assert.Equal(t, int64(2), w.Status().Refreshes)

	cancel()
	require.NoError(t, <-done)
}

func TestWatcher_FailureRetriesWithBackoff(t *testing.T) {
	res := &countingResolver{}
	res.fail.Store(true)
	clock := clockwork.NewFakeClock()
	m := session.New(res, nil, discard())
	w := watch.New(m, time.Hour, discard(), observability.NewMetricsForTesting(), watch.WithClock(clock))

	cancel, done := startWatcher(t, w, domain.Storm(domain.StormInfo{ID: "otis"}), domain.Latest())

	require.NoError(t, clock.BlockUntilContext(context.Background(), 1))
	assert.Equal(t, "failed", w.Status().Phase)
	assert.Equal(t, domain.GenericNetworkReason, w.Status().Reason)
	require.Error(t, w.CheckReadiness(context.Background()))

	// First retry comes after the initial backoff, long before the interval.
	res.fail.Store(false)
	clock.Advance(time.Second)
	require.Eventually(t, func() bool { return res.calls.Load() == 2 }, time.Second, 5*time.Millisecond)
	require.NoError(t, clock.BlockUntilContext(context.Background(), 1))

	assert.Equal(t, "ready", w.Status().Phase)
	require.NoError(t, w.CheckReadiness(context.Background()))

	cancel()
	require.NoError(t, <-done)
}

func TestWatcher_ImageCheckerMarksBroken(t *testing.T) {
	res := &countingResolver{seq: threeImages()}
	clock := clockwork.NewFakeClock()
	var checked atomic.Int64
	check := func(_ context.Context, loc domain.ImageLocator) error {
		checked.Add(1)
		if loc.Index == 1 {
			return errors.New("truncated image")
		}
		return nil
	}
	m := session.New(res, nil, discard())
	w := watch.New(m, time.Minute, discard(), observability.NewMetricsForTesting(),
		watch.WithClock(clock), watch.WithImageChecker(check))

	cancel, done := startWatcher(t, w, domain.Overview(), domain.Historic("20231025"))
	require.NoError(t, clock.BlockUntilContext(context.Background(), 1))

	assert.Equal(t, int64(3), checked.Load())
	st := w.Status()
	assert.Equal(t, []int{1}, st.Broken)
	assert.Equal(t, 0, m.View().Index)

	cancel()
	require.NoError(t, <-done)
}

func TestWatcher_InvestigationAreaIsReadyWithoutImages(t *testing.T) {
	res := &countingResolver{seq: domain.NoIndividualImagery()}
	clock := clockwork.NewFakeClock()
	m := session.New(res, nil, discard())
	w := watch.New(m, time.Minute, discard(), observability.NewMetricsForTesting(), watch.WithClock(clock))

	cancel, done := startWatcher(t, w, domain.Storm(domain.StormInfo{ID: "invest-97L", InvestigationArea: true}), domain.Latest())
	require.NoError(t, clock.BlockUntilContext(context.Background(), 1))

	st := w.Status()
	assert.True(t, st.NoImagery)
	assert.Zero(t, st.Images)

	cancel()
	require.NoError(t, <-done)
}

func TestWatcher_StopsOnCancel(t *testing.T) {
	res := &countingResolver{seq: threeImages()}
	metrics := observability.NewMetricsForTesting()
	m := session.New(res, nil, discard())
	w := watch.New(m, time.Minute, discard(), metrics)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	require.NoError(t, w.Run(ctx, domain.Overview(), domain.Latest()))
	assert.Equal(t, int64(1), res.calls.Load())
}
