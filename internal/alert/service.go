package alert

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/wildfire-evac-planner/internal/domain"
	"github.com/couchcryptid/wildfire-evac-planner/internal/observability"
)

// Service computes the risk level at a location from the live alert feed.
type Service struct {
	feed      domain.AlertFeed
	urban     domain.UrbanClassifier // optional
	processor *Processor
	scorer    *Scorer
	publisher domain.RiskPublisher // optional
	timeout   time.Duration
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// NewService creates a risk Service. urban may be nil, in which case every
// location is treated as UrbanityUnknown.
func NewService(feed domain.AlertFeed, urban domain.UrbanClassifier, processor *Processor, scorer *Scorer, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Service {
	return &Service{
		feed:      feed,
		urban:     urban,
		processor: processor,
		scorer:    scorer,
		timeout:   timeout,
		logger:    logger,
		metrics:   metrics,
	}
}

// WithPublisher sets a publisher that receives every computed assessment.
func (s *Service) WithPublisher(p domain.RiskPublisher) *Service {
	s.publisher = p
	return s
}

// ProcessAlerts de-duplicates and tags a caller-supplied alert batch.
func (s *Service) ProcessAlerts(raw []domain.AlertRecord) Processed {
	return s.processor.Process(raw)
}

// ComputeRiskLevel assesses the risk at a location. An active hazard yields
// EXTREME without consulting the alert feed. A feed failure is returned
// wrapped in domain.ErrUpstreamUnavailable; a classifier failure only
// downgrades urbanity to unknown.
func (s *Service) ComputeRiskLevel(ctx context.Context, at domain.Coordinate, activeHazard bool) (domain.RiskAssessment, error) {
	if err := at.Validate(); err != nil {
		return domain.RiskAssessment{}, err
	}

	if activeHazard {
		risk := s.scorer.Score(0, true, domain.UrbanityUnknown)
		return s.finish(ctx, at, risk), nil
	}

	var (
		alerts   []domain.AlertRecord
		urbanity = domain.UrbanityUnknown
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		alerts, err = s.fetchAlerts(gctx, at)
		return err
	})
	if s.urban != nil {
		g.Go(func() error {
			urbanity = s.classify(gctx, at)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return domain.RiskAssessment{}, err
	}

	processed := s.processor.Process(alerts)
	risk := s.scorer.Score(processed.Tags, false, urbanity)
	risk.AlertCount = len(processed.Deduplicated)
	return s.finish(ctx, at, risk), nil
}

func (s *Service) fetchAlerts(ctx context.Context, at domain.Coordinate) ([]domain.AlertRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	alerts, err := s.feed.ActiveAlerts(ctx, at)
	s.metrics.ObserveCall("alerts", start, err)
	if err != nil {
		return nil, fmt.Errorf("alert feed: %w: %w", domain.ErrUpstreamUnavailable, err)
	}
	return alerts, nil
}

func (s *Service) classify(ctx context.Context, at domain.Coordinate) domain.Urbanity {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	u, err := s.urban.Classify(ctx, at)
	s.metrics.ObserveCall("urban_classifier", start, err)
	if err != nil {
		s.logger.Warn("urban classification failed, treating as unknown", "location", at.String(), "error", err)
		return domain.UrbanityUnknown
	}
	return u
}

func (s *Service) finish(ctx context.Context, at domain.Coordinate, risk domain.RiskAssessment) domain.RiskAssessment {
	risk.AssessedAt = domain.Now()
	s.metrics.RiskAssessments.WithLabelValues(risk.Level.String()).Inc()

	if s.publisher != nil {
		if err := s.publisher.PublishRisk(ctx, at, risk); err != nil {
			s.logger.Warn("publish risk assessment failed", "error", err)
		}
	}
	return risk
}
