package mapbox

import (
	"context"
	"fmt"
	"sync"

	"github.com/couchcryptid/wildfire-evac-planner/internal/domain"
	"github.com/couchcryptid/wildfire-evac-planner/internal/observability"
)

// CachedClassifier wraps an UrbanClassifier with an in-memory LRU cache keyed
// by coordinates rounded to three decimals (roughly 100 m).
type CachedClassifier struct {
	inner   domain.UrbanClassifier
	cache   *lruCache[domain.Urbanity]
	metrics *observability.Metrics
}

// NewCachedClassifier creates a cache decorator around a classifier.
func NewCachedClassifier(inner domain.UrbanClassifier, maxEntries int, metrics *observability.Metrics) *CachedClassifier {
	return &CachedClassifier{
		inner:   inner,
		cache:   newLRUCache[domain.Urbanity](maxEntries),
		metrics: metrics,
	}
}

func (c *CachedClassifier) Classify(ctx context.Context, at domain.Coordinate) (domain.Urbanity, error) {
	key := fmt.Sprintf("%.3f,%.3f", at.Lat, at.Lon)
	if u, ok := c.cache.get(key); ok {
		c.metrics.ClassifierCache.WithLabelValues("hit").Inc()
		return u, nil
	}
	c.metrics.ClassifierCache.WithLabelValues("miss").Inc()

	u, err := c.inner.Classify(ctx, at)
	if err != nil {
		return u, err
	}
	// Only cache definite answers so failures can be retried.
	if u != domain.UrbanityUnknown {
		c.cache.put(key, u)
	}
	return u, nil
}

// lruCache is a simple thread-safe LRU cache.
type lruCache[V any] struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry[V]
	head       *entry[V] // most recently used
	tail       *entry[V] // least recently used
}

type entry[V any] struct {
	key   string
	value V
	prev  *entry[V]
	next  *entry[V]
}

func newLRUCache[V any](maxEntries int) *lruCache[V] {
	return &lruCache[V]{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry[V]),
	}
}

func (c *lruCache[V]) get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache[V]) put(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.moveToFront(e)
		return
	}

	e := &entry[V]{key: key, value: value}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache[V]) moveToFront(e *entry[V]) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *lruCache[V]) addToFront(e *entry[V]) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache[V]) remove(e *entry[V]) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *lruCache[V]) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
