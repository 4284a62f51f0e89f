// Package routefile reads route inputs (path + stops) from GPX, GeoJSON and
// plain JSON files.
package routefile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/tkrajina/gpxgo/gpx"

	"trip-playback/internal/route"
)

// Load reads a route file, picking the decoder from the extension. The
// returned name is the file name without extension.
func Load(path string) (string, route.Input, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", route.Input{}, err
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	var in route.Input
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gpx":
		in, err = ParseGPX(data)
	case ".geojson":
		in, err = ParseGeoJSON(data)
	case ".json":
		in, err = ParseJSON(data)
	default:
		return "", route.Input{}, fmt.Errorf("unsupported route file %q", path)
	}
	if err != nil {
		return "", route.Input{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return name, in, nil
}

// ParseGPX uses track points (falling back to route points) as the path and
// waypoints as stops. Unnamed waypoints get their 1-based index as id.
func ParseGPX(data []byte) (route.Input, error) {
	g, err := gpx.ParseBytes(data)
	if err != nil {
		return route.Input{}, fmt.Errorf("failed to parse GPX: %w", err)
	}
	var in route.Input
	for _, trk := range g.Tracks {
		for _, seg := range trk.Segments {
			for _, p := range seg.Points {
				in.Paths = append(in.Paths, route.LatLng{Lat: p.Latitude, Lng: p.Longitude})
			}
		}
	}
	if len(in.Paths) == 0 {
		for _, rte := range g.Routes {
			for _, p := range rte.Points {
				in.Paths = append(in.Paths, route.LatLng{Lat: p.Latitude, Lng: p.Longitude})
			}
		}
	}
	for i, w := range g.Waypoints {
		id := strings.TrimSpace(w.Name)
		if id == "" {
			id = strconv.Itoa(i + 1)
		}
		in.Stops.Data = append(in.Stops.Data, route.Stop{ID: id, Lat: w.Latitude, Lng: w.Longitude})
	}
	return in, nil
}

// ParseGeoJSON takes LineString features (concatenated in order) as the path
// and Point features as stops, identified by the "id" or "name" property or
// the feature id.
func ParseGeoJSON(data []byte) (route.Input, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return route.Input{}, err
	}
	var in route.Input
	appendLine := func(ls orb.LineString) {
		for _, p := range ls {
			in.Paths = append(in.Paths, route.LatLng{Lat: p.Lat(), Lng: p.Lon()})
		}
	}
	for i, f := range fc.Features {
		switch g := f.Geometry.(type) {
		case orb.LineString:
			appendLine(g)
		case orb.MultiLineString:
			for _, ls := range g {
				appendLine(ls)
			}
		case orb.Point:
			in.Stops.Data = append(in.Stops.Data, route.Stop{ID: featureID(f, i), Lat: g.Lat(), Lng: g.Lon()})
		}
	}
	return in, nil
}

func featureID(f *geojson.Feature, i int) string {
	if id := f.Properties.MustString("id", ""); id != "" {
		return id
	}
	if name := f.Properties.MustString("name", ""); name != "" {
		return name
	}
	if f.ID != nil {
		return fmt.Sprint(f.ID)
	}
	return strconv.Itoa(i + 1)
}

// ParseJSON reads the panel input shape: {"paths": [...], "stops": {"data": [...]}}.
func ParseJSON(data []byte) (route.Input, error) {
	var in route.Input
	if err := json.Unmarshal(data, &in); err != nil {
		return route.Input{}, err
	}
	return in, nil
}
