// Package geo holds the great-circle helpers the playback engine needs:
// distance, heading and fractional interpolation between two coordinates.
package geo

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

// Point converts a lat/lng pair into an orb point (lon, lat order).
func Point(lat, lng float64) orb.Point { return orb.Point{lng, lat} }

// Distance returns the great-circle (haversine) distance in meters.
func Distance(lat1, lng1, lat2, lng2 float64) float64 {
	return geo.DistanceHaversine(Point(lat1, lng1), Point(lat2, lng2))
}

// Heading returns the initial bearing from the first point to the second in
// degrees, clockwise from north, normalised to [-180, 180).
func Heading(lat1, lng1, lat2, lng2 float64) float64 {
	b := geo.Bearing(Point(lat1, lng1), Point(lat2, lng2))
	if math.IsNaN(b) {
		return 0
	}
	if b >= 180 {
		b -= 360
	}
	return b
}

// Interpolate returns the point at the given fraction of the great-circle
// path between the two coordinates. fraction is clamped to [0, 1].
func Interpolate(lat1, lng1, lat2, lng2, fraction float64) (lat, lng float64) {
	if fraction <= 0 || math.IsNaN(fraction) {
		return lat1, lng1
	}
	if fraction >= 1 {
		return lat2, lng2
	}
	from := Point(lat1, lng1)
	to := Point(lat2, lng2)
	d := geo.DistanceHaversine(from, to)
	if d == 0 {
		return lat1, lng1
	}
	p := geo.PointAtBearingAndDistance(from, geo.Bearing(from, to), d*fraction)
	return p.Lat(), p.Lon()
}
