package mapbox

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/wildfire-evac-planner/internal/domain"
)

// --- mock for cache tests ---

type countingClassifier struct {
	calls    int
	urbanity domain.Urbanity
	err      error
}

func (m *countingClassifier) Classify(_ context.Context, _ domain.Coordinate) (domain.Urbanity, error) {
	m.calls++
	return m.urbanity, m.err
}

// --- CachedClassifier tests ---

func TestCachedClassifier_CacheHit(t *testing.T) {
	inner := &countingClassifier{urbanity: domain.UrbanityUrban}
	metrics := testMetrics()
	cached := NewCachedClassifier(inner, 10, metrics)

	u1, err := cached.Classify(context.Background(), domain.Coordinate{Lat: 40.0150, Lon: -105.2702})
	require.NoError(t, err)
	assert.Equal(t, domain.UrbanityUrban, u1)

	// Within the same ~100 m cell.
	u2, err := cached.Classify(context.Background(), domain.Coordinate{Lat: 40.0151, Lon: -105.2701})
	require.NoError(t, err)
	assert.Equal(t, domain.UrbanityUrban, u2)

	assert.Equal(t, 1, inner.calls, "should only call inner once")
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.ClassifierCache.WithLabelValues("hit")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.ClassifierCache.WithLabelValues("miss")), 0)
}

func TestCachedClassifier_DifferentCellsMiss(t *testing.T) {
	inner := &countingClassifier{urbanity: domain.UrbanityRural}
	cached := NewCachedClassifier(inner, 10, testMetrics())

	_, _ = cached.Classify(context.Background(), boulder)
	_, _ = cached.Classify(context.Background(), domain.Coordinate{Lat: 39.7392, Lon: -104.9903})

	assert.Equal(t, 2, inner.calls)
}

func TestCachedClassifier_ErrorsNotCached(t *testing.T) {
	inner := &countingClassifier{err: errors.New("boom")}
	cached := NewCachedClassifier(inner, 10, testMetrics())

	_, err := cached.Classify(context.Background(), boulder)
	require.Error(t, err)
	_, err = cached.Classify(context.Background(), boulder)
	require.Error(t, err)

	assert.Equal(t, 2, inner.calls)
}

// --- LRU cache unit tests ---

func TestLRUCache_BasicGetPut(t *testing.T) {
	c := newLRUCache[string](3)

	c.put("a", "A")
	c.put("b", "B")

	result, ok := c.get("a")
	assert.True(t, ok)
	assert.Equal(t, "A", result)

	_, ok = c.get("missing")
	assert.False(t, ok)
}

func TestLRUCache_Eviction(t *testing.T) {
	c := newLRUCache[string](2)

	c.put("a", "A")
	c.put("b", "B")
	c.put("c", "C") // evicts "a"

	_, ok := c.get("a")
	assert.False(t, ok, "a should have been evicted")

	result, ok := c.get("b")
	assert.True(t, ok)
	assert.Equal(t, "B", result)

	result, ok = c.get("c")
	assert.True(t, ok)
	assert.Equal(t, "C", result)
}

func TestLRUCache_AccessPromotesEntry(t *testing.T) {
	c := newLRUCache[string](2)

	c.put("a", "A")
	c.put("b", "B")

	c.get("a")

	// "b" is now least recently used.
	c.put("c", "C")

	_, ok := c.get("a")
	assert.True(t, ok, "a was accessed recently, should not be evicted")

	_, ok = c.get("b")
	assert.False(t, ok, "b should have been evicted")
}

func TestLRUCache_UpdateExisting(t *testing.T) {
	c := newLRUCache[string](2)

	c.put("a", "A1")
	c.put("a", "A2")

	result, ok := c.get("a")
	assert.True(t, ok)
	assert.Equal(t, "A2", result)
}
