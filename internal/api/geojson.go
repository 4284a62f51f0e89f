package api

import (
	"log"
	"net/http"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"trip-playback/internal/panel"
	"trip-playback/internal/route"
)

// FeatureCollection renders the view as GeoJSON: the route and trail as
// line strings, stops and the marker as points.
func FeatureCollection(v panel.View) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	path := make(orb.LineString, 0, len(v.Path))
	for _, p := range v.Path {
		path = append(path, orb.Point{p.Lng, p.Lat})
	}
	f := geojson.NewFeature(path)
	f.Properties["kind"] = "path"
	f.Properties["total"] = v.Total
	fc.Append(f)

	if len(v.Trail) > 0 {
		f = geojson.NewFeature(lineString(v.Trail))
		f.Properties["kind"] = "trail"
		f.Properties["elapsed"] = v.Elapsed
		fc.Append(f)
	}

	for _, s := range v.Stops {
		f = geojson.NewFeature(orb.Point{s.Lng, s.Lat})
		f.ID = s.ID
		f.Properties["kind"] = "stop"
		f.Properties["id"] = s.ID
		f.Properties["label"] = s.Label
		f.Properties["highlighted"] = s.Highlighted
		fc.Append(f)
	}

	if v.Marker != nil {
		f = geojson.NewFeature(orb.Point{v.Marker.Lng, v.Marker.Lat})
		f.Properties["kind"] = "marker"
		f.Properties["heading"] = v.Marker.Heading
		f.Properties["state"] = v.State.String()
		fc.Append(f)
	}
	return fc
}

func lineString(pts []route.LatLng) orb.LineString {
	ls := make(orb.LineString, 0, len(pts))
	for _, p := range pts {
		ls = append(ls, orb.Point{p.Lng, p.Lat})
	}
	return ls
}

func (s *Server) handleGeoJSON(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	body, err := FeatureCollection(sess.Panel.View()).MarshalJSON()
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	if _, err := w.Write(body); err != nil {
		log.Printf("write geojson: %v", err)
	}
}
