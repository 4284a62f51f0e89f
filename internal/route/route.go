// Package route annotates raw route coordinates with distances and answers
// simple positional questions about them.
package route

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"trip-playback/internal/geo"
)

// Annotate returns a new sequence where every point carries the cumulative
// great-circle distance from the first point. The input is left untouched.
func Annotate(paths []LatLng) []PathPoint {
	n := len(paths)
	if n == 0 {
		return nil
	}
	out := make([]PathPoint, n)
	sum := 0.0
	out[0] = PathPoint{Lat: paths[0].Lat, Lng: paths[0].Lng}
	for i := 1; i < n; i++ {
		sum += geo.Distance(paths[i-1].Lat, paths[i-1].Lng, paths[i].Lat, paths[i].Lng)
		out[i] = PathPoint{Lat: paths[i].Lat, Lng: paths[i].Lng, Distance: sum}
	}
	return out
}

// Total returns the distance of the last point, or 0 for an empty path.
func Total(points []PathPoint) float64 {
	if len(points) == 0 {
		return 0
	}
	return points[len(points)-1].Distance
}

// Center picks the middle coordinate of the path for the initial map view.
// Both coordinates come from the same point; an empty path yields 0,0.
func Center(paths []LatLng) LatLng {
	if len(paths) == 0 {
		return LatLng{}
	}
	return paths[len(paths)/2]
}

// StopDistance finds the distance along the path closest to the stop.
// Segments are compared in a local equirectangular plane centred on the
// stop, the same way NearestDistanceAlongShape matched stops to shapes.
func StopDistance(points []PathPoint, s Stop) float64 {
	n := len(points)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return points[0].Distance
	}
	cosLat := math.Cos(s.Lat * math.Pi / 180)
	local := func(p PathPoint) orb.Point {
		return orb.Point{
			(p.Lng - s.Lng) * math.Pi / 180 * orb.EarthRadius * cosLat,
			(p.Lat - s.Lat) * math.Pi / 180 * orb.EarthRadius,
		}
	}
	origin := orb.Point{}
	best := math.MaxFloat64
	along := 0.0
	a := local(points[0])
	for i := 1; i < n; i++ {
		b := local(points[i])
		if d2 := planar.DistanceFromSegmentSquared(a, b, origin); d2 < best {
			best = d2
			along = points[i-1].Distance + segmentFraction(a, b, origin)*(points[i].Distance-points[i-1].Distance)
		}
		a = b
	}
	return along
}

// segmentFraction is the position of p's projection onto ab, clamped to [0, 1].
func segmentFraction(a, b, p orb.Point) float64 {
	dx, dy := b[0]-a[0], b[1]-a[1]
	l2 := dx*dx + dy*dy
	if l2 == 0 {
		return 0
	}
	t := ((p[0]-a[0])*dx + (p[1]-a[1])*dy) / l2
	return math.Max(0, math.Min(1, t))
}
