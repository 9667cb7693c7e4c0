// Package geo provides great-circle distance and bearing math on a
// spherical earth.
package geo

import (
	"math"

	"github.com/couchcryptid/wildfire-evac-planner/internal/domain"
)

// EarthRadiusKm is the mean earth radius used by all calculations.
const EarthRadiusKm = 6371.0

func toRadians(deg float64) float64 { return deg * math.Pi / 180 }
func toDegrees(rad float64) float64 { return rad * 180 / math.Pi }

// DistanceKm returns the haversine great-circle distance between a and b.
func DistanceKm(a, b domain.Coordinate) float64 {
	dLat := toRadians(b.Lat - a.Lat)
	dLon := toRadians(b.Lon - a.Lon)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(a.Lat))*math.Cos(toRadians(b.Lat))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	return EarthRadiusKm * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// BearingDegrees returns the initial compass bearing from one point to
// another, in [0,360). Identical points yield 0.
func BearingDegrees(from, to domain.Coordinate) float64 {
	if from == to {
		return 0
	}
	phi1 := toRadians(from.Lat)
	phi2 := toRadians(to.Lat)
	dLambda := toRadians(to.Lon - from.Lon)

	y := math.Sin(dLambda) * math.Cos(phi2)
	x := math.Cos(phi1)*math.Sin(phi2) - math.Sin(phi1)*math.Cos(phi2)*math.Cos(dLambda)

	return NormalizeBearing(toDegrees(math.Atan2(y, x)))
}

// NormalizeBearing wraps any angle into [0,360).
func NormalizeBearing(deg float64) float64 {
	b := math.Mod(deg, 360)
	if b < 0 {
		b += 360
	}
	if b >= 360 {
		b = 0
	}
	return b
}

// AngularDifference returns the smallest angle between two bearings, in [0,180].
func AngularDifference(a, b float64) float64 {
	d := math.Abs(NormalizeBearing(a) - NormalizeBearing(b))
	if d > 180 {
		d = 360 - d
	}
	return d
}

// Offset returns the point reached by travelling distanceKm from origin along
// the given initial bearing.
func Offset(origin domain.Coordinate, bearingDeg, distanceKm float64) domain.Coordinate {
	delta := distanceKm / EarthRadiusKm
	theta := toRadians(bearingDeg)
	phi1 := toRadians(origin.Lat)
	lambda1 := toRadians(origin.Lon)

	phi2 := math.Asin(math.Sin(phi1)*math.Cos(delta) + math.Cos(phi1)*math.Sin(delta)*math.Cos(theta))
	lambda2 := lambda1 + math.Atan2(
		math.Sin(theta)*math.Sin(delta)*math.Cos(phi1),
		math.Cos(delta)-math.Sin(phi1)*math.Sin(phi2),
	)

	lon := math.Mod(toDegrees(lambda2)+540, 360) - 180
	return domain.Coordinate{Lat: toDegrees(phi2), Lon: lon}
}

var compassPoints = []string{"N", "NNE", "NE", "ENE", "E", "ESE", "SE", "SSE", "S", "SSW", "SW", "WSW", "W", "WNW", "NW", "NNW"}

// CompassPoint names a bearing on the 16-point compass rose.
func CompassPoint(deg float64) string {
	idx := int(math.Round(NormalizeBearing(deg)/22.5)) % len(compassPoints)
	return compassPoints[idx]
}
