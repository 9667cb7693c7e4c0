// Package domain models the wildfire evacuation problem: hazards, weather
// alerts, travelers, candidate destinations and the routes between them.
//
// # Coordinates and bearings
//
// Positions are WGS-84 latitude/longitude pairs in decimal degrees. Bearings
// are compass degrees in [0,360), clockwise from true north.
//
// Wind direction is stored as the bearing the wind blows toward, which is the
// direction smoke and embers are pushed. Meteorological feeds report the
// direction the wind comes from; adapters convert at the boundary:
//
//	toward = (from + 180) mod 360
//
// # Hazards
//
// Hazard events come from the wildfire incident feed. Each carries the
// upstream stable identifier so a selected fire can be looked up by ID rather
// than by matching rendered marker text. A hazard is "new" when it was
// discovered less than 24 hours ago. Size classes follow the incident map
// legend:
//
//	small: < 1,000 acres | medium: 1,000–10,000 acres | large: > 10,000 acres
//
// # Alerts and risk
//
// Alert records are read-only snapshots of an external feed. Alerts are
// de-duplicated by (event type, area), then tagged from a fixed keyword table.
// The tag set drives a discrete risk level:
//
//	LOW < MODERATE < HIGH < EXTREME
//
// A selected, active hazard always forces EXTREME.
//
// # Routes
//
// Routes are produced by the routing collaborator and never altered here.
// Scoring adds a score, a per-factor breakdown, and a list of human-readable
// reasons. Reasons describe a route; they never change its score.
package domain
