package domain

import "time"

// PlanState is a step of the evacuation planning state machine.
type PlanState string

const (
	StateIdle      PlanState = "idle"
	StateFetching  PlanState = "fetching"
	StateFiltering PlanState = "filtering"
	StateRouting   PlanState = "routing"
	StateScoring   PlanState = "scoring"

	StateDone             PlanState = "done"
	StateNoSafeRouteFound PlanState = "no_safe_route_found"
	StateError            PlanState = "error"
)

// Terminal reports whether no further transition can happen from s.
func (s PlanState) Terminal() bool {
	return s == StateDone || s == StateNoSafeRouteFound || s == StateError
}

// Plan is the outcome of one evacuation planning request.
type Plan struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id,omitempty"`
	Sequence  uint64    `json:"sequence"`
	State     PlanState `json:"state"`
	CreatedAt time.Time `json:"created_at"`

	Hazard Coordinate `json:"hazard"`
	Origin Coordinate `json:"origin"`

	Wind        Wind            `json:"wind"`
	WindHeading string          `json:"wind_heading,omitempty"`
	Constrained bool            `json:"constrained"`
	Routes      []ScoredRoute   `json:"routes"`
	Risk        *RiskAssessment `json:"risk,omitempty"`
	Guidance    string          `json:"guidance,omitempty"`
	Error       string          `json:"error,omitempty"`

	CandidatesConsidered int `json:"candidates_considered"`
	CandidatesSafe       int `json:"candidates_safe"`
	RoutingFailures      int `json:"routing_failures"`
}
