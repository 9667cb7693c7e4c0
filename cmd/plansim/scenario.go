package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/couchcryptid/wildfire-evac-planner/internal/domain"
	"github.com/couchcryptid/wildfire-evac-planner/internal/geo"
)

// scenario is one offline planning situation with canned collaborator data.
type scenario struct {
	Name         string                 `json:"name"`
	Now          time.Time              `json:"now"`
	SessionID    string                 `json:"session_id"`
	Hazard       domain.Coordinate      `json:"hazard"`
	Origin       *domain.Coordinate     `json:"origin"`
	Profile      domain.TravelerProfile `json:"profile"`
	ActiveHazard bool                   `json:"active_hazard"`
	Wind         domain.Wind            `json:"wind"`
	WindError    string                 `json:"wind_error"`
	Candidates   []candidate            `json:"candidates"`
	Alerts       []domain.AlertRecord   `json:"alerts"`
	Urbanity     string                 `json:"urbanity"`
	Expect       *expectation           `json:"expect"`
}

// candidate is a destination plus the route the simulated router returns
// for it. Without an explicit distance the straight-line distance is used.
type candidate struct {
	domain.Destination
	DistanceMeters  float64                `json:"distance_meters"`
	DurationSeconds float64                `json:"duration_seconds"`
	Conditions      domain.RouteConditions `json:"conditions"`
	RouteError      string                 `json:"route_error"`
}

type expectation struct {
	State  domain.PlanState `json:"state"`
	Routes []string         `json:"routes"`
	Risk   string           `json:"risk"`
}

func loadScenario(path string) (scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return scenario{}, err
	}
	var s scenario
	if err := json.Unmarshal(data, &s); err != nil {
		return scenario{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if s.Name == "" {
		s.Name = path
	}
	if s.Now.IsZero() {
		s.Now = time.Now().UTC()
	}
	return s, nil
}

func (s scenario) urbanity() domain.Urbanity {
	switch s.Urbanity {
	case "urban":
		return domain.UrbanityUrban
	case "rural":
		return domain.UrbanityRural
	default:
		return domain.UrbanityUnknown
	}
}

// Simulated collaborators backed by the scenario.

type simWind struct{ s scenario }

func (w simWind) Wind(context.Context, domain.Coordinate) (domain.Wind, error) {
	if w.s.WindError != "" {
		return domain.Wind{}, fmt.Errorf("simulated: %s", w.s.WindError)
	}
	return w.s.Wind, nil
}

type simFacilities struct{ s scenario }

func (f simFacilities) FindCandidates(context.Context, domain.Coordinate, float64, []domain.DestinationType) ([]domain.Destination, error) {
	out := make([]domain.Destination, len(f.s.Candidates))
	for i, c := range f.s.Candidates {
		out[i] = c.Destination
	}
	return out, nil
}

type simRouter struct{ s scenario }

func (r simRouter) Route(_ context.Context, origin domain.Coordinate, dest domain.Destination) (domain.Route, error) {
	for _, c := range r.s.Candidates {
		if c.Name != dest.Name || c.Location != dest.Location {
			continue
		}
		if c.RouteError != "" {
			return domain.Route{}, fmt.Errorf("simulated: %s", c.RouteError)
		}
		distance := c.DistanceMeters
		if distance == 0 {
			distance = geo.DistanceKm(origin, dest.Location) * 1000
		}
		return domain.Route{
			Geometry:        []domain.Coordinate{origin, dest.Location},
			DistanceMeters:  distance,
			DurationSeconds: c.DurationSeconds,
			Destination:     dest,
			Conditions:      c.Conditions,
		}, nil
	}
	// Destinations not listed as candidates, such as a predefined location,
	// get a straight-line route.
	return domain.Route{
		Geometry:       []domain.Coordinate{origin, dest.Location},
		DistanceMeters: geo.DistanceKm(origin, dest.Location) * 1000,
		Destination:    dest,
	}, nil
}

type simAlerts struct{ s scenario }

func (a simAlerts) ActiveAlerts(context.Context, domain.Coordinate) ([]domain.AlertRecord, error) {
	return a.s.Alerts, nil
}

type simUrban struct{ s scenario }

func (u simUrban) Classify(context.Context, domain.Coordinate) (domain.Urbanity, error) {
	return u.s.urbanity(), nil
}
