package domain

import "errors"

var (
	// ErrUpstreamUnavailable marks a failed or timed-out collaborator call.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrStaleRequest is returned to a plan request that was superseded by a
	// newer one for the same session before it finished.
	ErrStaleRequest = errors.New("stale request discarded")

	ErrHazardNotFound    = errors.New("hazard not found")
	ErrInvalidCoordinate = errors.New("invalid coordinate")
)
