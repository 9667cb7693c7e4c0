package domain

import "time"

// newHazardWindow is how long after discovery a hazard is flagged as new.
const newHazardWindow = 24 * time.Hour

// SizeClass buckets a wildfire by burned area.
type SizeClass string

const (
	SizeSmall  SizeClass = "small"
	SizeMedium SizeClass = "medium"
	SizeLarge  SizeClass = "large"
)

// HazardEvent is a wildfire incident from the hazard feed snapshot.
type HazardEvent struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Location     Coordinate `json:"location"`
	Acres        float64    `json:"acres"`
	DiscoveredAt time.Time  `json:"discovered_at"`
	Status       string     `json:"status,omitempty"`
	FireType     string     `json:"fire_type,omitempty"`
	State        string     `json:"state,omitempty"`
	Agency       string     `json:"agency,omitempty"`
	FetchedAt    time.Time  `json:"fetched_at"`
}

// IsNew reports whether the hazard was discovered less than 24 hours before now.
// Hazards without a discovery time are never new.
func (h HazardEvent) IsNew(now time.Time) bool {
	if h.DiscoveredAt.IsZero() {
		return false
	}
	return now.Sub(h.DiscoveredAt) < newHazardWindow
}

// SizeClass classifies the hazard by acres burned.
func (h HazardEvent) SizeClass() SizeClass {
	switch {
	case h.Acres > 10000:
		return SizeLarge
	case h.Acres > 1000:
		return SizeMedium
	default:
		return SizeSmall
	}
}
