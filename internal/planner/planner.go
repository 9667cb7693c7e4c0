// Package planner orchestrates a single evacuation planning request: it
// fetches wind and candidate destinations, removes downwind candidates,
// routes to the survivors concurrently and ranks the results.
package planner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/wildfire-evac-planner/internal/domain"
	"github.com/couchcryptid/wildfire-evac-planner/internal/geo"
	"github.com/couchcryptid/wildfire-evac-planner/internal/observability"
	"github.com/couchcryptid/wildfire-evac-planner/internal/route"
	"github.com/couchcryptid/wildfire-evac-planner/internal/safety"
)

const (
	guidanceNoSafeRoute = "No safe evacuation route could be found. Follow instructions from local emergency officials, move away from the smoke, and call 911 if you are in immediate danger."
	guidanceUnavailable = "Evacuation data is temporarily unavailable. Follow instructions from local emergency officials and monitor local alerts."
)

// Request is one evacuation planning request. Origin defaults to Hazard.
// Sequence is assigned by the Coordinator and copied onto the plan.
type Request struct {
	SessionID    string                 `json:"session_id,omitempty"`
	Sequence     uint64                 `json:"-"`
	Hazard       domain.Coordinate      `json:"hazard"`
	Origin       *domain.Coordinate     `json:"origin,omitempty"`
	Profile      domain.TravelerProfile `json:"profile"`
	ActiveHazard bool                   `json:"active_hazard"`
}

func (r Request) origin() domain.Coordinate {
	if r.Origin != nil {
		return *r.Origin
	}
	return r.Hazard
}

// RiskAssessor computes the risk level used to annotate a plan.
type RiskAssessor interface {
	ComputeRiskLevel(ctx context.Context, at domain.Coordinate, activeHazard bool) (domain.RiskAssessment, error)
}

// Collaborators bundles the external services a Planner depends on. Risk is
// optional.
type Collaborators struct {
	Wind       domain.WindProvider
	Facilities domain.FacilityLookup
	Router     domain.RoutingService
	Risk       RiskAssessor
}

// Options tunes timeouts, fan-out and search radius.
type Options struct {
	CallTimeout        time.Duration
	RoutingConcurrency int
	SearchRadiusMeters float64
}

// Planner runs the evacuation planning state machine.
type Planner struct {
	deps    Collaborators
	filter  *safety.Filter
	scorer  *route.Scorer
	opts    Options
	logger  *slog.Logger
	metrics *observability.Metrics
}

// New creates a Planner.
func New(deps Collaborators, filter *safety.Filter, scorer *route.Scorer, opts Options, logger *slog.Logger, metrics *observability.Metrics) *Planner {
	if opts.RoutingConcurrency < 1 {
		opts.RoutingConcurrency = 1
	}
	return &Planner{
		deps:    deps,
		filter:  filter,
		scorer:  scorer,
		opts:    opts,
		logger:  logger,
		metrics: metrics,
	}
}

// Plan runs a request to a terminal state. NoSafeRouteFound is a normal
// outcome and returns a nil error. A failure while fetching wind or
// candidates ends in StateError with an error wrapping
// domain.ErrUpstreamUnavailable. Individual routing failures only drop the
// affected destination.
func (p *Planner) Plan(ctx context.Context, req Request) (domain.Plan, error) {
	start := time.Now()
	plan := domain.Plan{
		ID:        uuid.NewString(),
		SessionID: req.SessionID,
		Sequence:  req.Sequence,
		State:     domain.StateIdle,
		CreatedAt: domain.Now(),
		Hazard:    req.Hazard,
		Origin:    req.origin(),
		Routes:    []domain.ScoredRoute{},
	}
	log := p.logger.With("plan_id", plan.ID, "session_id", req.SessionID, "sequence", req.Sequence)

	// Risk runs alongside the pipeline and is joined before scoring.
	risk := &pendingRisk{ch: make(chan *domain.RiskAssessment, 1)}
	go func() { risk.ch <- p.assessRisk(ctx, req, log) }()

	plan, err := p.run(ctx, req, plan, risk, log)
	plan.Risk = risk.wait()

	p.metrics.PlansTotal.WithLabelValues(string(plan.State)).Inc()
	p.metrics.PlanDuration.Observe(time.Since(start).Seconds())
	log.Info("plan finished",
		"state", plan.State,
		"routes", len(plan.Routes),
		"candidates", plan.CandidatesConsidered,
		"safe", plan.CandidatesSafe,
		"routing_failures", plan.RoutingFailures,
		"duration", time.Since(start),
	)
	return plan, err
}

func (p *Planner) run(ctx context.Context, req Request, plan domain.Plan, risk *pendingRisk, log *slog.Logger) (domain.Plan, error) {
	if err := errors.Join(req.Hazard.Validate(), plan.Origin.Validate()); err != nil {
		return p.fail(plan, log, err)
	}

	plan.State = p.transition(log, domain.StateFetching)
	wind, candidates, err := p.fetch(ctx, req.Hazard, plan.Origin)
	if err != nil {
		return p.fail(plan, log, err)
	}
	if pref := req.Profile.EvacuationPreference.PredefinedLocation; pref != nil {
		candidates = appendIfMissing(candidates, *pref)
	}
	plan.Wind = wind
	if wind.DirectionKnown {
		plan.WindHeading = geo.CompassPoint(wind.DirectionDegrees)
	}

	plan.State = p.transition(log, domain.StateFiltering)
	filtered := p.filter.Apply(req.Hazard, wind, candidates)
	plan.Constrained = filtered.Constrained
	plan.CandidatesConsidered = len(candidates)
	plan.CandidatesSafe = len(filtered.Safe)
	p.metrics.CandidatesPruned.Add(float64(len(filtered.Rejected)))
	if len(filtered.Safe) == 0 {
		return p.noSafeRoute(plan, log), nil
	}

	plan.State = p.transition(log, domain.StateRouting)
	routes, failures := p.routeAll(ctx, plan.Origin, filtered.Safe, log)
	plan.RoutingFailures = failures
	if err := ctx.Err(); err != nil {
		return p.fail(plan, log, err)
	}
	if len(routes) == 0 {
		return p.noSafeRoute(plan, log), nil
	}

	plan.State = p.transition(log, domain.StateScoring)
	plan.Routes = p.scorer.Rank(req.Profile, routes, route.Options{Risk: risk.wait()})

	plan.State = p.transition(log, domain.StateDone)
	return plan, nil
}

// fetch retrieves the wind at the hazard and candidates around the origin
// concurrently. Either failure aborts both.
func (p *Planner) fetch(ctx context.Context, hazard, origin domain.Coordinate) (domain.Wind, []domain.Destination, error) {
	var (
		wind       domain.Wind
		candidates []domain.Destination
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		cctx, cancel := context.WithTimeout(gctx, p.opts.CallTimeout)
		defer cancel()

		start := time.Now()
		w, err := p.deps.Wind.Wind(cctx, hazard)
		p.metrics.ObserveCall("wind", start, err)
		if err != nil {
			return fmt.Errorf("wind provider: %w: %w", domain.ErrUpstreamUnavailable, err)
		}
		wind = w
		return nil
	})
	g.Go(func() error {
		cctx, cancel := context.WithTimeout(gctx, p.opts.CallTimeout)
		defer cancel()

		start := time.Now()
		c, err := p.deps.Facilities.FindCandidates(cctx, origin, p.opts.SearchRadiusMeters, domain.AllDestinationTypes)
		p.metrics.ObserveCall("facilities", start, err)
		if err != nil {
			return fmt.Errorf("facility lookup: %w: %w", domain.ErrUpstreamUnavailable, err)
		}
		candidates = c
		return nil
	})

	if err := g.Wait(); err != nil {
		return domain.Wind{}, nil, err
	}
	return wind, candidates, nil
}

// routeAll requests a route to every destination with bounded concurrency.
// Each request writes only its own slot; failed requests leave it empty.
func (p *Planner) routeAll(ctx context.Context, origin domain.Coordinate, dests []domain.Destination, log *slog.Logger) ([]domain.Route, int) {
	slots := make([]*domain.Route, len(dests))

	var g errgroup.Group
	g.SetLimit(p.opts.RoutingConcurrency)
	for i, d := range dests {
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(ctx, p.opts.CallTimeout)
			defer cancel()

			start := time.Now()
			r, err := p.deps.Router.Route(cctx, origin, d)
			p.metrics.ObserveCall("routing", start, err)
			if err != nil {
				p.metrics.RoutingFailures.Inc()
				log.Warn("route request failed, dropping destination",
					"destination", d.Name,
					"type", d.Type,
					"error", err,
				)
				return nil
			}
			r.Destination = d
			slots[i] = &r
			return nil
		})
	}
	_ = g.Wait()

	routes := make([]domain.Route, 0, len(slots))
	for _, r := range slots {
		if r != nil {
			routes = append(routes, *r)
		}
	}
	return routes, len(dests) - len(routes)
}

// pendingRisk is a risk assessment computed in the background. wait is only
// called from the goroutine running the plan.
type pendingRisk struct {
	ch   chan *domain.RiskAssessment
	done bool
	val  *domain.RiskAssessment
}

func (r *pendingRisk) wait() *domain.RiskAssessment {
	if !r.done {
		r.val = <-r.ch
		r.done = true
	}
	return r.val
}

func (p *Planner) assessRisk(ctx context.Context, req Request, log *slog.Logger) *domain.RiskAssessment {
	fallback := func() *domain.RiskAssessment {
		if !req.ActiveHazard {
			return nil
		}
		return &domain.RiskAssessment{Level: domain.RiskExtreme, Overridden: true, AssessedAt: domain.Now()}
	}
	if p.deps.Risk == nil {
		return fallback()
	}

	risk, err := p.deps.Risk.ComputeRiskLevel(ctx, req.origin(), req.ActiveHazard)
	if err != nil {
		log.Warn("risk assessment failed, continuing without it", "error", err)
		return fallback()
	}
	return &risk
}

func (p *Planner) transition(log *slog.Logger, to domain.PlanState) domain.PlanState {
	log.Debug("plan state", "state", to)
	return to
}

func (p *Planner) fail(plan domain.Plan, log *slog.Logger, err error) (domain.Plan, error) {
	plan.State = p.transition(log, domain.StateError)
	plan.Error = err.Error()
	plan.Guidance = guidanceUnavailable
	log.Error("plan failed", "error", err)
	return plan, err
}

func (p *Planner) noSafeRoute(plan domain.Plan, log *slog.Logger) domain.Plan {
	plan.State = p.transition(log, domain.StateNoSafeRouteFound)
	plan.Guidance = guidanceNoSafeRoute
	return plan
}

func appendIfMissing(dests []domain.Destination, d domain.Destination) []domain.Destination {
	for _, existing := range dests {
		if existing.Type == d.Type && existing.Location == d.Location {
			return dests
		}
	}
	return append(dests, d)
}
