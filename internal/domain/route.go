package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DestinationType is the kind of facility a route ends at.
type DestinationType string

const (
	DestinationHospital      DestinationType = "hospital"
	DestinationShelter       DestinationType = "shelter"
	DestinationSchool        DestinationType = "school"
	DestinationFireStation   DestinationType = "fire_station"
	DestinationAssemblyPoint DestinationType = "assembly_point"
)

// AllDestinationTypes lists the facility kinds searched by default.
var AllDestinationTypes = []DestinationType{
	DestinationHospital,
	DestinationShelter,
	DestinationSchool,
	DestinationFireStation,
	DestinationAssemblyPoint,
}

// ParseDestinationType accepts the canonical snake_case form as well as
// "FireStation"-style names.
func ParseDestinationType(s string) (DestinationType, error) {
	norm := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), " ", "_"))
	switch norm {
	case "hospital":
		return DestinationHospital, nil
	case "shelter":
		return DestinationShelter, nil
	case "school":
		return DestinationSchool, nil
	case "fire_station", "firestation":
		return DestinationFireStation, nil
	case "assembly_point", "assemblypoint":
		return DestinationAssemblyPoint, nil
	default:
		return "", fmt.Errorf("unknown destination type %q", s)
	}
}

func (t *DestinationType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("destination type: %w", err)
	}
	parsed, err := ParseDestinationType(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Destination is a candidate evacuation endpoint.
type Destination struct {
	Type     DestinationType `json:"type"`
	Name     string          `json:"name"`
	Location Coordinate      `json:"location"`
}

// RouteConditions carries optional road data used by accessibility and traffic
// scoring. Zero values mean "unknown / no penalty".
type RouteConditions struct {
	CongestionFraction  *float64 `json:"congestion_fraction,omitempty"`
	ElevationGainMeters float64  `json:"elevation_gain_meters,omitempty"`
	Unpaved             bool     `json:"unpaved,omitempty"`
	RoughTerrain        bool     `json:"rough_terrain,omitempty"`
}

// Route is a computed path from an origin to one destination.
type Route struct {
	Geometry        []Coordinate    `json:"geometry"`
	DistanceMeters  float64         `json:"distance_meters"`
	DurationSeconds float64         `json:"duration_seconds"`
	Destination     Destination     `json:"destination"`
	Conditions      RouteConditions `json:"conditions"`
}

// ScoreBreakdown holds the normalized sub-scores before weighting.
type ScoreBreakdown struct {
	Distance      float64 `json:"distance"`
	Traffic       float64 `json:"traffic"`
	Facility      float64 `json:"facility"`
	Accessibility float64 `json:"accessibility"`
}

// ScoredRoute is a Route annotated with its score and the reasons shown to
// the traveler.
type ScoredRoute struct {
	Route
	Score       float64        `json:"score"`
	Breakdown   ScoreBreakdown `json:"breakdown"`
	Explanation []string       `json:"explanation"`
}
