package domain

import "context"

// WindProvider returns the current surface wind at a location.
type WindProvider interface {
	Wind(ctx context.Context, at Coordinate) (Wind, error)
}

// FacilityLookup finds candidate destinations around a point. An empty
// result is not an error.
type FacilityLookup interface {
	FindCandidates(ctx context.Context, center Coordinate, radiusMeters float64, types []DestinationType) ([]Destination, error)
}

// RoutingService computes a single route between two points.
type RoutingService interface {
	Route(ctx context.Context, origin Coordinate, dest Destination) (Route, error)
}

// AlertFeed returns the alerts currently active at a location.
type AlertFeed interface {
	ActiveAlerts(ctx context.Context, at Coordinate) ([]AlertRecord, error)
}

// UrbanClassifier reports whether a location is urban. Any error is treated
// by callers as UrbanityUnknown.
type UrbanClassifier interface {
	Classify(ctx context.Context, at Coordinate) (Urbanity, error)
}

// HazardFeed fetches the current wildfire incident snapshot.
type HazardFeed interface {
	FetchHazards(ctx context.Context) ([]HazardEvent, error)
}

// HazardFilter narrows a hazard listing.
type HazardFilter struct {
	NewOnly  bool
	MinAcres float64
	Limit    int
}

// HazardStore indexes hazards by their upstream identifier.
type HazardStore interface {
	Upsert(ctx context.Context, h HazardEvent) error
	GetByID(ctx context.Context, id string) (HazardEvent, error)
	List(ctx context.Context, filter HazardFilter) ([]HazardEvent, error)
}

// PlanPublisher forwards finished plans to downstream consumers.
type PlanPublisher interface {
	PublishPlan(ctx context.Context, plan Plan) error
}

// RiskPublisher forwards computed risk assessments to downstream consumers.
type RiskPublisher interface {
	PublishRisk(ctx context.Context, at Coordinate, risk RiskAssessment) error
}
