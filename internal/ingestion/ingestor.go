// Package ingestion keeps the hazard index in step with the wildfire feed.
package ingestion

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/wildfire-evac-planner/internal/domain"
	"github.com/couchcryptid/wildfire-evac-planner/internal/observability"
)

const (
	initialBackoff = time.Second
	maxBackoff     = 30 * time.Second
	fetchAttempts  = 4
)

// Options configures polling and the upsert worker pool.
type Options struct {
	Interval   time.Duration
	Workers    int
	BufferSize int
}

// Ingestor polls a HazardFeed and upserts every hazard into a HazardStore.
type Ingestor struct {
	feed    domain.HazardFeed
	store   domain.HazardStore
	clock   clockwork.Clock
	opts    Options
	logger  *slog.Logger
	metrics *observability.Metrics
	ready   atomic.Bool
}

// New creates an Ingestor. A nil clock uses real time.
func New(feed domain.HazardFeed, store domain.HazardStore, clock clockwork.Clock, opts Options, logger *slog.Logger, metrics *observability.Metrics) *Ingestor {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Ingestor{
		feed:    feed,
		store:   store,
		clock:   clock,
		opts:    opts,
		logger:  logger,
		metrics: metrics,
	}
}

// CheckReadiness returns nil once one snapshot has been fetched.
func (i *Ingestor) CheckReadiness(_ context.Context) error {
	if !i.ready.Load() {
		return errors.New("hazard index has not been populated yet")
	}
	return nil
}

// Run polls immediately and then every Interval until ctx is cancelled.
// Queued upserts are drained before it returns.
func (i *Ingestor) Run(ctx context.Context) error {
	i.logger.Info("hazard ingestion started", "interval", i.opts.Interval, "workers", i.opts.Workers)
	i.metrics.IngestRunning.Set(1)
	defer i.metrics.IngestRunning.Set(0)

	pool := NewWorkerPool[domain.HazardEvent](i.opts.Workers, i.opts.BufferSize, i.upsert)
	poolCtx, stopPool := context.WithCancel(context.WithoutCancel(ctx))
	pool.Start(poolCtx)
	defer func() {
		pool.Stop()
		stopPool()
	}()

	ticker := i.clock.NewTicker(i.opts.Interval)
	defer ticker.Stop()

	i.poll(ctx, pool)
	for {
		select {
		case <-ctx.Done():
			i.logger.Info("hazard ingestion stopping", "reason", ctx.Err())
			return nil
		case <-ticker.Chan():
			i.poll(ctx, pool)
		}
	}
}

func (i *Ingestor) poll(ctx context.Context, pool *WorkerPool[domain.HazardEvent]) {
	hazards, ok := i.fetch(ctx)
	if !ok {
		return
	}
	i.ready.Store(true)

	for _, h := range hazards {
		if !pool.Submit(ctx, h) {
			return
		}
	}
	i.logger.Debug("hazard snapshot queued", "count", len(hazards))
}

// fetch retries the feed with exponential backoff. It gives up until the
// next tick after fetchAttempts failures.
func (i *Ingestor) fetch(ctx context.Context) ([]domain.HazardEvent, bool) {
	backoff := initialBackoff
	for attempt := 1; ; attempt++ {
		hazards, err := i.feed.FetchHazards(ctx)
		if err == nil {
			return hazards, true
		}
		if ctx.Err() != nil {
			return nil, false
		}
		i.metrics.IngestErrors.Inc()
		i.logger.Error("hazard fetch failed", "error", err, "attempt", attempt)
		if attempt == fetchAttempts {
			return nil, false
		}
		if !sleepWithContext(ctx, i.clock, backoff) {
			return nil, false
		}
		backoff = nextBackoff(backoff, maxBackoff)
	}
}

func (i *Ingestor) upsert(ctx context.Context, h domain.HazardEvent) {
	if err := i.store.Upsert(ctx, h); err != nil {
		i.metrics.IngestErrors.Inc()
		i.logger.Error("hazard upsert failed", "id", h.ID, "error", err)
		return
	}
	i.metrics.HazardsIngested.Inc()
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
