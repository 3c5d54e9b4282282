// Package geo provides great-circle measurements on (longitude, latitude)
// points. Every distance in the service goes through this package so that
// the sampler and the evaluator agree on what a meter is.
package geo

import (
	"math"

	"github.com/paulmach/orb"
)

// EarthRadiusMeters is the spherical Earth radius used for all distances.
const EarthRadiusMeters = 6_371_000.0

func toRad(deg float64) float64 { return deg * math.Pi / 180 }

// Distance returns the haversine distance in meters between two points.
func Distance(a, b orb.Point) float64 {
	return DistanceLatLng(a.Lat(), a.Lon(), b.Lat(), b.Lon())
}

// DistanceLatLng is Distance on raw degrees.
func DistanceLatLng(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLng := toRad(lng2 - lng1)
	sinLat := math.Sin(dLat / 2)
	sinLng := math.Sin(dLng / 2)

	h := sinLat*sinLat + math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*sinLng*sinLng
	return 2 * EarthRadiusMeters * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// CumulativeLengths returns, for each vertex of ls, the path length in meters
// from the first vertex. The result has len(ls) entries; the last is the
// total length.
func CumulativeLengths(ls orb.LineString) []float64 {
	cum := make([]float64, len(ls))
	for i := 1; i < len(ls); i++ {
		cum[i] = cum[i-1] + Distance(ls[i-1], ls[i])
	}
	return cum
}

// Length returns the path length of ls in meters.
func Length(ls orb.LineString) float64 {
	if len(ls) < 2 {
		return 0
	}
	cum := CumulativeLengths(ls)
	return cum[len(cum)-1]
}

// Interpolate returns the point a fraction t ∈ [0,1] of the way from a to b,
// linear in longitude/latitude.
func Interpolate(a, b orb.Point, t float64) orb.Point {
	return orb.Point{
		a[0] + t*(b[0]-a[0]),
		a[1] + t*(b[1]-a[1]),
	}
}
