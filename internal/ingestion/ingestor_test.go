package ingestion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/wildfire-evac-planner/internal/domain"
	"github.com/couchcryptid/wildfire-evac-planner/internal/observability"
)

const testInterval = 10 * time.Minute

type scriptedFeed struct {
	mu      sync.Mutex
	results []feedResult // consumed in order; the last one repeats
	calls   int
}

type feedResult struct {
	hazards []domain.HazardEvent
	err     error
}

func (f *scriptedFeed) FetchHazards(_ context.Context) ([]domain.HazardEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := f.results[min(f.calls, len(f.results)-1)]
	f.calls++
	return r.hazards, r.err
}

func (f *scriptedFeed) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type memStore struct {
	mu      sync.Mutex
	hazards map[string]domain.HazardEvent
	failIDs map[string]bool
	upserts int
}

func newMemStore() *memStore {
	return &memStore{hazards: map[string]domain.HazardEvent{}, failIDs: map[string]bool{}}
}

func (s *memStore) Upsert(_ context.Context, h domain.HazardEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upserts++
	if s.failIDs[h.ID] {
		return errors.New("constraint failed")
	}
	s.hazards[h.ID] = h
	return nil
}

func (s *memStore) GetByID(_ context.Context, id string) (domain.HazardEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.hazards[id]
	if !ok {
		return domain.HazardEvent{}, domain.ErrHazardNotFound
	}
	return h, nil
}

func (s *memStore) List(_ context.Context, _ domain.HazardFilter) ([]domain.HazardEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.HazardEvent, 0, len(s.hazards))
	for _, h := range s.hazards {
		out = append(out, h)
	}
	return out, nil
}

func (s *memStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.hazards)
}

func (s *memStore) Upserts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upserts
}

func hazards(ids ...string) []domain.HazardEvent {
	out := make([]domain.HazardEvent, len(ids))
	for i, id := range ids {
		out[i] = domain.HazardEvent{ID: id, Name: fmt.Sprintf("Fire %s", id), Location: domain.Coordinate{Lat: 40, Lon: -105}}
	}
	return out
}

type harness struct {
	ingestor *Ingestor
	clock    *clockwork.FakeClock
	metrics  *observability.Metrics
	cancel   context.CancelFunc
	errCh    chan error
}

func startIngestor(t *testing.T, feed domain.HazardFeed, store domain.HazardStore) *harness {
	t.Helper()
	fc := clockwork.NewFakeClock()
	metrics := observability.NewMetricsForTesting()
	ing := New(feed, store, fc, Options{Interval: testInterval, Workers: 2, BufferSize: 4},
		slog.New(slog.NewTextHandler(io.Discard, nil)), metrics)

	ctx, cancel := context.WithCancel(context.Background())
	h := &harness{ingestor: ing, clock: fc, metrics: metrics, cancel: cancel, errCh: make(chan error, 1)}
	go func() { h.errCh <- ing.Run(ctx) }()
	t.Cleanup(h.stop)
	return h
}

func (h *harness) stop() {
	if h.cancel == nil {
		return
	}
	h.cancel()
	<-h.errCh
	h.cancel = nil
}

func TestIngestor_InitialPollAndTick(t *testing.T) {
	feed := &scriptedFeed{results: []feedResult{
		{hazards: hazards("a", "b")},
		{hazards: hazards("a", "b", "c")},
	}}
	store := newMemStore()
	h := startIngestor(t, feed, store)

	require.Eventually(t, func() bool { return store.Len() == 2 }, time.Second, 5*time.Millisecond)
	require.NoError(t, h.ingestor.CheckReadiness(context.Background()))

	require.NoError(t, h.clock.BlockUntilContext(t.Context(), 1))
	h.clock.Advance(testInterval)

	require.Eventually(t, func() bool { return store.Len() == 3 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 2, feed.Calls())

	h.stop()
	assert.InDelta(t, 5, testutil.ToFloat64(h.metrics.HazardsIngested), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(h.metrics.IngestRunning), 0)
}

func TestIngestor_NotReadyBeforeFirstSnapshot(t *testing.T) {
	ing := New(&scriptedFeed{}, newMemStore(), clockwork.NewFakeClock(), Options{Interval: testInterval},
		slog.New(slog.NewTextHandler(io.Discard, nil)), observability.NewMetricsForTesting())
	assert.Error(t, ing.CheckReadiness(context.Background()))
}

func TestIngestor_RetriesWithBackoff(t *testing.T) {
	feed := &scriptedFeed{results: []feedResult{
		{err: errors.New("503 from feed")},
		{err: errors.New("503 from feed")},
		{hazards: hazards("a")},
	}}
	store := newMemStore()
	h := startIngestor(t, feed, store)

	// Ticker plus the first backoff timer.
	require.NoError(t, h.clock.BlockUntilContext(t.Context(), 2))
	assert.Error(t, h.ingestor.CheckReadiness(context.Background()))
	h.clock.Advance(initialBackoff)

	require.NoError(t, h.clock.BlockUntilContext(t.Context(), 2))
	h.clock.Advance(2 * initialBackoff)

	require.Eventually(t, func() bool { return store.Len() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 3, feed.Calls())
	assert.InDelta(t, 2, testutil.ToFloat64(h.metrics.IngestErrors), 0)
	assert.NoError(t, h.ingestor.CheckReadiness(context.Background()))
}

func TestIngestor_GivesUpUntilNextTick(t *testing.T) {
	feed := &scriptedFeed{results: []feedResult{{err: errors.New("feed down")}}}
	h := startIngestor(t, feed, newMemStore())

	backoff := initialBackoff
	for range fetchAttempts - 1 {
		require.NoError(t, h.clock.BlockUntilContext(t.Context(), 2))
		h.clock.Advance(backoff)
		backoff = nextBackoff(backoff, maxBackoff)
	}

	// Only the ticker remains once the poll gives up.
	require.NoError(t, h.clock.BlockUntilContext(t.Context(), 1))
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(h.metrics.IngestErrors) == float64(fetchAttempts)
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, fetchAttempts, feed.Calls())
}

func TestIngestor_UpsertFailureDoesNotStopOthers(t *testing.T) {
	feed := &scriptedFeed{results: []feedResult{{hazards: hazards("a", "bad", "c")}}}
	store := newMemStore()
	store.failIDs["bad"] = true
	h := startIngestor(t, feed, store)

	require.Eventually(t, func() bool { return store.Upserts() == 3 }, time.Second, 5*time.Millisecond)
	h.stop()

	assert.Equal(t, 2, store.Len())
	assert.InDelta(t, 1, testutil.ToFloat64(h.metrics.IngestErrors), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(h.metrics.HazardsIngested), 0)
}

func TestIngestor_StopsOnCancel(t *testing.T) {
	feed := &scriptedFeed{results: []feedResult{{hazards: hazards("a")}}}
	h := startIngestor(t, feed, newMemStore())

	require.NoError(t, h.clock.BlockUntilContext(t.Context(), 1))
	h.cancel()
	select {
	case err := <-h.errCh:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("ingestor did not stop")
	}
	h.cancel = nil
}

func TestNextBackoff(t *testing.T) {
	assert.Equal(t, 2*time.Second, nextBackoff(time.Second, maxBackoff))
	assert.Equal(t, maxBackoff, nextBackoff(20*time.Second, maxBackoff))
}
