package routefile

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleGPX = `<?xml version="1.0" encoding="UTF-8"?>
<gpx version="1.1" creator="test" xmlns="http://www.topografix.com/GPX/1/1">
  <wpt lat="12.9279" lon="77.6271"><name>Sony Signal</name></wpt>
  <wpt lat="12.9290" lon="77.6280"></wpt>
  <trk><trkseg>
    <trkpt lat="12.9279" lon="77.6271"></trkpt>
    <trkpt lat="12.9282" lon="77.6275"></trkpt>
    <trkpt lat="12.9290" lon="77.6280"></trkpt>
  </trkseg></trk>
</gpx>`

const sampleGeoJSON = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "properties": {},
     "geometry": {"type": "LineString", "coordinates": [[77.6271, 12.9279], [77.6275, 12.9282]]}},
    {"type": "Feature", "properties": {"id": "depot"},
     "geometry": {"type": "Point", "coordinates": [77.6271, 12.9279]}},
    {"type": "Feature", "properties": {"name": "market"},
     "geometry": {"type": "Point", "coordinates": [77.6275, 12.9282]}}
  ]
}`

const sampleJSON = `{"paths":[{"lat":1,"lng":2},{"lat":1.5,"lng":2.5}],"stops":{"data":[{"id":"x","lat":1,"lng":2}]}}`

func TestParseGPX(t *testing.T) {
	in, err := ParseGPX([]byte(sampleGPX))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(in.Paths) != 3 || in.Paths[1].Lat != 12.9282 || in.Paths[1].Lng != 77.6275 {
		t.Errorf("paths = %+v", in.Paths)
	}
	if len(in.Stops.Data) != 2 || in.Stops.Data[0].ID != "Sony Signal" || in.Stops.Data[1].ID != "2" {
		t.Errorf("stops = %+v", in.Stops.Data)
	}
}

func TestParseGeoJSON(t *testing.T) {
	in, err := ParseGeoJSON([]byte(sampleGeoJSON))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(in.Paths) != 2 || in.Paths[0].Lat != 12.9279 || in.Paths[0].Lng != 77.6271 {
		t.Errorf("paths = %+v", in.Paths)
	}
	if len(in.Stops.Data) != 2 || in.Stops.Data[0].ID != "depot" || in.Stops.Data[1].ID != "market" {
		t.Errorf("stops = %+v", in.Stops.Data)
	}
}

func TestLoadByExtension(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"morning.gpx":     sampleGPX,
		"evening.geojson": sampleGeoJSON,
		"props.json":      sampleJSON,
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	for file, want := range map[string]string{"morning.gpx": "morning", "evening.geojson": "evening", "props.json": "props"} {
		name, in, err := Load(filepath.Join(dir, file))
		if err != nil {
			t.Fatalf("load %s: %v", file, err)
		}
		if name != want {
			t.Errorf("name = %q, want %q", name, want)
		}
		if len(in.Paths) < 2 {
			t.Errorf("%s: paths = %+v", file, in.Paths)
		}
	}

	if _, _, err := Load(filepath.Join(dir, "missing.gpx")); err == nil {
		t.Error("expected error for missing file")
	}
	bad := filepath.Join(dir, "route.kml")
	if err := os.WriteFile(bad, []byte("<kml/>"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := Load(bad); err == nil {
		t.Error("expected error for unsupported extension")
	}
}
