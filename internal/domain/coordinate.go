package domain

import "fmt"

// Coordinate is a WGS-84 latitude/longitude pair in decimal degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Validate reports ErrInvalidCoordinate when the pair is out of range.
func (c Coordinate) Validate() error {
	if c.Lat < -90 || c.Lat > 90 || c.Lon < -180 || c.Lon > 180 {
		return fmt.Errorf("%w: (%.6f, %.6f)", ErrInvalidCoordinate, c.Lat, c.Lon)
	}
	return nil
}

func (c Coordinate) String() string {
	return fmt.Sprintf("%.6f,%.6f", c.Lat, c.Lon)
}

// Wind is a surface wind vector. DirectionDegrees is the bearing the wind
// blows toward.
type Wind struct {
	SpeedKmh         float64 `json:"speed_kmh"`
	DirectionDegrees float64 `json:"direction_degrees"`
	DirectionKnown   bool    `json:"direction_known"`
}

// Calm reports whether no directional constraint can be derived from the wind.
func (w Wind) Calm() bool {
	return w.SpeedKmh <= 0 || !w.DirectionKnown
}
