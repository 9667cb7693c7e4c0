package planner

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/couchcryptid/wildfire-evac-planner/internal/domain"
	"github.com/couchcryptid/wildfire-evac-planner/internal/observability"
)

// Engine runs one planning request. *Planner implements it.
type Engine interface {
	Plan(ctx context.Context, req Request) (domain.Plan, error)
}

// Coordinator sequences planning requests per session. A new request for a
// session cancels the one in flight, and a result that arrives after a newer
// request was issued is discarded with domain.ErrStaleRequest. Requests
// without a session ID are never superseded. Only results that are still the
// newest of their session reach the publisher.
type Coordinator struct {
	engine    Engine
	publisher domain.PlanPublisher // optional
	seq       atomic.Uint64
	logger    *slog.Logger
	metrics   *observability.Metrics

	mu       sync.Mutex
	sessions map[string]*session
}

type session struct {
	latest uint64
	cancel context.CancelFunc
}

// NewCoordinator creates a Coordinator around engine.
func NewCoordinator(engine Engine, logger *slog.Logger, metrics *observability.Metrics) *Coordinator {
	return &Coordinator{
		engine:   engine,
		logger:   logger,
		metrics:  metrics,
		sessions: make(map[string]*session),
	}
}

// WithPublisher sets a publisher that receives every successful plan that is
// still current when it finishes.
func (c *Coordinator) WithPublisher(p domain.PlanPublisher) *Coordinator {
	c.publisher = p
	return c
}

// Plan tags req with the next sequence number and runs it.
func (c *Coordinator) Plan(ctx context.Context, req Request) (domain.Plan, error) {
	seq := c.seq.Add(1)
	req.Sequence = seq

	if req.SessionID == "" {
		plan, err := c.engine.Plan(ctx, req)
		plan.Sequence = seq
		c.publish(ctx, plan, err)
		return plan, err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	s := c.begin(req.SessionID, seq, cancel)

	plan, err := c.engine.Plan(runCtx, req)
	plan.Sequence = seq

	if !c.finish(req.SessionID, s, seq) {
		c.metrics.StaleDiscards.Inc()
		c.logger.Debug("discarding stale plan result",
			"session_id", req.SessionID,
			"sequence", seq,
			"plan_id", plan.ID,
			"state", plan.State,
		)
		return domain.Plan{}, domain.ErrStaleRequest
	}
	c.publish(ctx, plan, err)
	return plan, err
}

func (c *Coordinator) publish(ctx context.Context, plan domain.Plan, err error) {
	if c.publisher == nil || err != nil {
		return
	}
	if perr := c.publisher.PublishPlan(ctx, plan); perr != nil {
		c.logger.Warn("publish plan failed",
			"plan_id", plan.ID,
			"session_id", plan.SessionID,
			"sequence", plan.Sequence,
			"error", perr,
		)
	}
}

func (c *Coordinator) begin(id string, seq uint64, cancel context.CancelFunc) *session {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.sessions[id]
	if !ok {
		s = &session{}
		c.sessions[id] = s
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.latest = seq
	s.cancel = cancel
	return s
}

// finish reports whether seq is still the newest request of its session and
// forgets the session once its newest request completes.
func (c *Coordinator) finish(id string, s *session, seq uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if s.latest != seq {
		return false
	}
	s.cancel = nil
	if c.sessions[id] == s {
		delete(c.sessions, id)
	}
	return true
}
