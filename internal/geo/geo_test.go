package geo

import (
	"math"
	"testing"
)

func TestDistanceEquatorDegree(t *testing.T) {
	d := Distance(0, 0, 0, 1)
	// one degree of longitude on the equator is ~111.2-111.3 km depending on radius
	if d < 111000 || d > 111400 {
		t.Errorf("expected ~111.3km, got %.1f", d)
	}
	if Distance(46.0, 7.0, 46.0, 7.0) != 0 {
		t.Errorf("expected zero distance for identical points")
	}
}

func TestHeading(t *testing.T) {
	cases := []struct {
		name                   string
		lat1, lng1, lat2, lng2 float64
		want                   float64
	}{
		{"north", 0, 0, 1, 0, 0},
		{"east", 0, 0, 0, 1, 90},
		{"south", 1, 0, 0, 0, -180},
		{"west", 0, 1, 0, 0, -90},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Heading(tc.lat1, tc.lng1, tc.lat2, tc.lng2)
			if math.Abs(got-tc.want) > 1e-6 {
				t.Errorf("heading = %.6f, want %.6f", got, tc.want)
			}
		})
	}
}

func TestInterpolateMidpoint(t *testing.T) {
	lat, lng := Interpolate(0, 0, 0, 1, 0.5)
	if math.Abs(lat) > 1e-6 || math.Abs(lng-0.5) > 1e-6 {
		t.Errorf("expected (0, 0.5), got (%.8f, %.8f)", lat, lng)
	}
}

func TestInterpolateClamps(t *testing.T) {
	lat, lng := Interpolate(10, 20, 11, 21, -0.3)
	if lat != 10 || lng != 20 {
		t.Errorf("negative fraction should return start, got (%v, %v)", lat, lng)
	}
	lat, lng = Interpolate(10, 20, 11, 21, 1.7)
	if lat != 11 || lng != 21 {
		t.Errorf("fraction above one should return end, got (%v, %v)", lat, lng)
	}
	lat, lng = Interpolate(10, 20, 10, 20, 0.5)
	if lat != 10 || lng != 20 {
		t.Errorf("degenerate segment should return start, got (%v, %v)", lat, lng)
	}
}

func TestDistanceOffEquator(t *testing.T) {
	cases := []struct {
		name                   string
		lat1, lng1, lat2, lng2 float64
		want                   float64
	}{
		{"high latitude", 60, 0, 61, 10, 558765.0},
		{"sydney to london", -33.87, 151.21, 51.51, -0.13, 17013105.3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Distance(tc.lat1, tc.lng1, tc.lat2, tc.lng2)
			if math.Abs(got-tc.want) > 1 {
				t.Errorf("distance = %.1f, want %.1f", got, tc.want)
			}
		})
	}
}

func TestInterpolateMidpointOffEquator(t *testing.T) {
	cases := []struct {
		name                   string
		lat1, lng1, lat2, lng2 float64
	}{
		{"high latitude", 60, 0, 61, 10},
		{"sydney to london", -33.87, 151.21, 51.51, -0.13},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			lat, lng := Interpolate(tc.lat1, tc.lng1, tc.lat2, tc.lng2, 0.5)
			first := Distance(tc.lat1, tc.lng1, lat, lng)
			second := Distance(lat, lng, tc.lat2, tc.lng2)
			total := Distance(tc.lat1, tc.lng1, tc.lat2, tc.lng2)
			if math.Abs(first-second) > 1 {
				t.Errorf("halves differ: %.1f vs %.1f", first, second)
			}
			if math.Abs(first+second-total) > 1 {
				t.Errorf("midpoint off the great circle: %.1f + %.1f != %.1f", first, second, total)
			}
		})
	}
}
