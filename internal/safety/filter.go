// Package safety removes candidate destinations that lie inside the downwind
// cone of a hazard.
package safety

import (
	"log/slog"

	"github.com/couchcryptid/wildfire-evac-planner/internal/domain"
	"github.com/couchcryptid/wildfire-evac-planner/internal/geo"
)

// Result is the outcome of a safety pass. Constrained is false when the wind
// was calm or its direction unknown, in which case every candidate is
// returned as safe.
type Result struct {
	Safe        []domain.Destination
	Rejected    []domain.Destination
	Constrained bool
}

// Filter applies the downwind cone rule.
type Filter struct {
	halfAngle float64
	logger    *slog.Logger
}

// NewFilter creates a Filter whose cone extends halfAngle degrees either side
// of the wind heading.
func NewFilter(halfAngle float64, logger *slog.Logger) *Filter {
	return &Filter{halfAngle: halfAngle, logger: logger}
}

// Apply keeps the candidates whose bearing from the hazard differs from the
// wind heading by more than the half angle. Candidates keep their input order.
func (f *Filter) Apply(hazard domain.Coordinate, wind domain.Wind, candidates []domain.Destination) Result {
	if wind.Calm() {
		f.logger.Debug("no usable wind direction, all candidates treated as safe",
			"speed_kmh", wind.SpeedKmh,
			"direction_known", wind.DirectionKnown,
			"candidates", len(candidates),
		)
		return Result{Safe: append([]domain.Destination(nil), candidates...)}
	}

	res := Result{Constrained: true}
	for _, c := range candidates {
		if f.Safe(hazard, wind, c.Location) {
			res.Safe = append(res.Safe, c)
		} else {
			res.Rejected = append(res.Rejected, c)
		}
	}
	return res
}

// Safe reports whether a point lies outside the downwind cone.
func (f *Filter) Safe(hazard domain.Coordinate, wind domain.Wind, at domain.Coordinate) bool {
	if wind.Calm() {
		return true
	}
	bearing := geo.BearingDegrees(hazard, at)
	return geo.AngularDifference(bearing, wind.DirectionDegrees) > f.halfAngle
}
