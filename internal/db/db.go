package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"trip-playback/internal/route"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}

func Ping(ctx context.Context, db *sql.DB) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return db.PingContext(ctx)
}

// FetchTripRoute builds a playback input from a GTFS trip: the trip's shape
// as the path and its stop_times stops, in stop_sequence order, as stops.
// Trips without a shape fall back to the stop sequence as the path.
func FetchTripRoute(ctx context.Context, db *sql.DB, tripID string) (route.Input, error) {
	var shapeID string
	err := db.QueryRowContext(ctx, `SELECT COALESCE(shape_id, '') FROM trips WHERE trip_id = $1`, tripID).Scan(&shapeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return route.Input{}, fmt.Errorf("trip %q not found", tripID)
		}
		return route.Input{}, fmt.Errorf("query trip: %w", err)
	}
	stops, err := FetchTripStops(ctx, db, tripID)
	if err != nil {
		return route.Input{}, err
	}
	paths, err := FetchShapePath(ctx, db, shapeID)
	if err != nil {
		return route.Input{}, err
	}
	if len(paths) == 0 {
		for _, s := range stops {
			paths = append(paths, route.LatLng{Lat: s.Lat, Lng: s.Lng})
		}
	}
	return route.Input{Paths: paths, Stops: route.StopList{Data: stops}}, nil
}

func FetchShapePath(ctx context.Context, db *sql.DB, shapeID string) ([]route.LatLng, error) {
	if shapeID == "" {
		return nil, nil
	}
	// Detect column layout: either shape_pt_lat/lon exist, or use PostGIS shape_pt_loc geography
	cols, err := hasColumns(ctx, db, "public", "shapes", "shape_pt_lat", "shape_pt_lon", "shape_pt_loc")
	if err != nil {
		return nil, fmt.Errorf("introspect shapes columns: %w", err)
	}
	var q string
	switch {
	case cols["shape_pt_lat"] && cols["shape_pt_lon"]:
		q = `SELECT shape_pt_lat, shape_pt_lon
             FROM shapes WHERE shape_id = $1 ORDER BY shape_pt_sequence`
	case cols["shape_pt_loc"]:
		q = `SELECT ST_Y(shape_pt_loc::geometry), ST_X(shape_pt_loc::geometry)
             FROM shapes WHERE shape_id = $1 ORDER BY shape_pt_sequence`
	default:
		return nil, fmt.Errorf("shapes table missing expected columns (lat/lon or shape_pt_loc)")
	}
	rows, err := db.QueryContext(ctx, q, shapeID)
	if err != nil {
		return nil, fmt.Errorf("query shapes: %w", err)
	}
	defer rows.Close()
	var pts []route.LatLng
	for rows.Next() {
		var p route.LatLng
		if err := rows.Scan(&p.Lat, &p.Lng); err != nil {
			return nil, err
		}
		pts = append(pts, p)
	}
	return pts, rows.Err()
}

func FetchTripStops(ctx context.Context, db *sql.DB, tripID string) ([]route.Stop, error) {
	// Prefer stop_lat/stop_lon, but support PostGIS stop_loc geography as fallback
	cols, err := hasColumns(ctx, db, "public", "stops", "stop_lat", "stop_lon", "stop_loc")
	if err != nil {
		return nil, fmt.Errorf("introspect stops columns: %w", err)
	}
	var coords string
	switch {
	case cols["stop_lat"] && cols["stop_lon"]:
		coords = `COALESCE(s.stop_lat, 0), COALESCE(s.stop_lon, 0)`
	case cols["stop_loc"]:
		coords = `COALESCE(ST_Y(s.stop_loc::geometry), 0), COALESCE(ST_X(s.stop_loc::geometry), 0)`
	default:
		return nil, fmt.Errorf("stops table missing expected columns (stop_lat/lon or stop_loc)")
	}
	q := `SELECT st.stop_id, ` + coords + `
          FROM stop_times st
          JOIN stops s ON s.stop_id = st.stop_id
          WHERE st.trip_id = $1
          ORDER BY st.stop_sequence`
	rows, err := db.QueryContext(ctx, q, tripID)
	if err != nil {
		return nil, fmt.Errorf("query stop_times: %w", err)
	}
	defer rows.Close()

	var stops []route.Stop
	for rows.Next() {
		var s route.Stop
		if err := rows.Scan(&s.ID, &s.Lat, &s.Lng); err != nil {
			return nil, err
		}
		stops = append(stops, s)
	}
	return stops, rows.Err()
}

// hasColumns returns a map of requested column names to existence for the given table.
func hasColumns(ctx context.Context, db *sql.DB, schema, table string, cols ...string) (map[string]bool, error) {
	res := make(map[string]bool, len(cols))
	if len(cols) == 0 {
		return res, nil
	}
	for _, c := range cols {
		res[c] = false
	}
	q := `SELECT column_name FROM information_schema.columns
          WHERE table_schema = $1 AND table_name = $2 AND column_name = ANY($3)`
	rows, err := db.QueryContext(ctx, q, schema, table, cols)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		res[name] = true
	}
	return res, rows.Err()
}
