// Package route ranks computed evacuation routes for a traveler.
package route

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/couchcryptid/wildfire-evac-planner/internal/config"
	"github.com/couchcryptid/wildfire-evac-planner/internal/domain"
)

const (
	metersPerMile       = 1609.344
	closeDistanceMeters = 10_000
)

// baseFacility is the 0-10 preference for each destination type before
// profile overrides.
var baseFacility = map[domain.DestinationType]float64{
	domain.DestinationHospital:      5,
	domain.DestinationShelter:       7,
	domain.DestinationSchool:        6,
	domain.DestinationFireStation:   5,
	domain.DestinationAssemblyPoint: 6,
}

// Options carries context that affects explanations but not scores.
type Options struct {
	Risk *domain.RiskAssessment
}

// Scorer computes weighted route scores and ranks them.
type Scorer struct {
	cfg config.ScoringConfig
}

// NewScorer creates a Scorer. cfg is expected to have passed Validate.
func NewScorer(cfg config.ScoringConfig) *Scorer {
	return &Scorer{cfg: cfg}
}

// Rank scores every route, sorts highest first and truncates to TopN.
// Routes with equal scores keep their input order.
func (s *Scorer) Rank(profile domain.TravelerProfile, routes []domain.Route, opts Options) []domain.ScoredRoute {
	scored := make([]domain.ScoredRoute, len(routes))
	for i, r := range routes {
		scored[i] = s.Score(profile, r, opts)
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if len(scored) > s.cfg.TopN {
		scored = scored[:s.cfg.TopN]
	}
	return scored
}

// Score computes the weighted score, breakdown and explanation for one route.
func (s *Scorer) Score(profile domain.TravelerProfile, r domain.Route, opts Options) domain.ScoredRoute {
	b := domain.ScoreBreakdown{
		Distance:      DistanceScore(r.DistanceMeters),
		Traffic:       TrafficScore(r.Conditions),
		Facility:      FacilityScore(profile, r.Destination.Type),
		Accessibility: AccessibilityScore(profile, r.Conditions),
	}
	score := s.cfg.DistanceWeight*b.Distance +
		s.cfg.TrafficWeight*b.Traffic +
		s.cfg.FacilityWeight*b.Facility +
		s.cfg.AccessibilityWeight*b.Accessibility

	return domain.ScoredRoute{
		Route:       r,
		Score:       score,
		Breakdown:   b,
		Explanation: Explain(profile, r, opts),
	}
}

// DistanceScore is the reciprocal of the distance in kilometres, capped at 1.
// Routes of one metre or less score 1.
func DistanceScore(meters float64) float64 {
	if meters <= 1 {
		return 1
	}
	return math.Min(1, 1000/meters)
}

// TrafficScore is 1 minus the congestion fraction. Unknown congestion counts
// as free-flowing.
func TrafficScore(c domain.RouteConditions) float64 {
	if c.CongestionFraction == nil {
		return 1
	}
	return 1 - clamp01(*c.CongestionFraction)
}

// FacilityScore rates how well a destination type serves the household.
func FacilityScore(profile domain.TravelerProfile, t domain.DestinationType) float64 {
	score := baseFacility[t]
	switch {
	case t == domain.DestinationHospital && profile.Medical.RequiresAssistance:
		score = 10
	case t == domain.DestinationShelter && profile.Household.Pets.Total() > 0:
		score = 8
	case t == domain.DestinationAssemblyPoint && profile.Mobility.HasDisabilities:
		score = 4
	}
	return score / 10
}

// AccessibilityScore penalises climbs for travelers with mobility needs,
// unpaved surfaces, and rough terrain for sedans.
func AccessibilityScore(profile domain.TravelerProfile, c domain.RouteConditions) float64 {
	score := 10.0
	if profile.HasMobilityNeeds() && c.ElevationGainMeters > 50 {
		score -= c.ElevationGainMeters / 50
	}
	if c.Unpaved {
		score -= 3
	}
	if c.RoughTerrain && strings.EqualFold(profile.Transportation.VehicleType, "sedan") {
		score -= 4
	}
	return math.Max(0, score) / 10
}

// Explain lists the human-readable reasons that apply to a route.
func Explain(profile domain.TravelerProfile, r domain.Route, opts Options) []string {
	var reasons []string
	if r.DistanceMeters < closeDistanceMeters {
		reasons = append(reasons, "close to your location")
	}
	if r.Destination.Type == domain.DestinationHospital && profile.Medical.RequiresAssistance {
		reasons = append(reasons, "medical facilities available")
	}
	if r.Destination.Type == domain.DestinationShelter && profile.Household.Pets.Total() > 0 {
		reasons = append(reasons, "pet-friendly facility")
	}
	if p := profile.EvacuationPreference.PredefinedLocation; p != nil && sameDestination(*p, r.Destination) {
		reasons = append(reasons, "your preferred evacuation point")
	}
	if fuel := profile.Transportation.FuelRangeMiles; fuel > 0 && r.DistanceMeters > fuel*metersPerMile {
		reasons = append(reasons, "beyond your vehicle's fuel range")
	}
	if limit := profile.EvacuationPreference.MaxTravelDistanceMiles; limit > 0 && r.DistanceMeters > limit*metersPerMile {
		reasons = append(reasons, "farther than your maximum travel distance")
	}
	if opts.Risk != nil && opts.Risk.Level >= domain.RiskHigh {
		reasons = append(reasons, fmt.Sprintf("%s fire risk: leave as soon as possible", opts.Risk.Level))
	}
	if reasons == nil {
		reasons = []string{}
	}
	return reasons
}

func sameDestination(a, b domain.Destination) bool {
	return a.Type == b.Type && a.Name == b.Name && a.Location == b.Location
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
