package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr          string
	Title             string
	RouteFiles        []string
	RouteTrips        []string
	DatabaseURL       string
	City              string
	NATSURL           string
	NATSSubjectPrefix string
	LogNATSSubjects   bool
	MetricsAddr       string
	TickInterval      time.Duration
	DefaultSpeed      float64
	MinSpeed          float64
	MaxSpeed          float64
	NoticeTTL         time.Duration
}

func Load() (*Config, error) {
	// Load .env into environment (ignore if missing)
	_ = godotenv.Load()

	cfg := &Config{
		HTTPAddr:          getenvDefault("HTTP_ADDR", ":8080"),
		Title:             getenvDefault("APP_TITLE", "Trip Playback"),
		RouteFiles:        splitList(os.Getenv("ROUTE_FILES")),
		RouteTrips:        splitList(os.Getenv("ROUTE_TRIPS")),
		City:              firstNonEmpty(os.Getenv("CITY"), os.Getenv("CITY_NAME")),
		NATSURL:           os.Getenv("NATS_URL"),
		NATSSubjectPrefix: getenvDefault("NATS_SUBJECT_PREFIX", "playback"),
		LogNATSSubjects:   parseBool(os.Getenv("LOG_NATS_SUBJECTS")),
		// Metrics listen address (e.g., ":9102"). Empty disables the metrics server.
		MetricsAddr: os.Getenv("METRICS_ADDR"),
	}

	// Database is only needed when routes come from GTFS trips
	if len(cfg.RouteTrips) > 0 {
		dsn, err := databaseURL()
		if err != nil {
			return nil, err
		}
		cfg.DatabaseURL = dsn
	}
	if len(cfg.RouteFiles) == 0 && len(cfg.RouteTrips) == 0 {
		return nil, errors.New("ROUTE_FILES or ROUTE_TRIPS must be set")
	}

	var err error
	if cfg.TickInterval, err = durationMS("TICK_INTERVAL_MS", time.Second); err != nil {
		return nil, err
	}
	if cfg.NoticeTTL, err = durationMS("NOTICE_TTL_MS", 6*time.Second); err != nil {
		return nil, err
	}
	if cfg.MinSpeed, err = positiveFloat("MIN_SPEED", 10); err != nil {
		return nil, err
	}
	if cfg.MaxSpeed, err = positiveFloat("MAX_SPEED", 100); err != nil {
		return nil, err
	}
	if cfg.MaxSpeed < cfg.MinSpeed {
		return nil, fmt.Errorf("MAX_SPEED (%v) below MIN_SPEED (%v)", cfg.MaxSpeed, cfg.MinSpeed)
	}
	if cfg.DefaultSpeed, err = positiveFloat("DEFAULT_SPEED", 27); err != nil {
		return nil, err
	}
	if cfg.DefaultSpeed < cfg.MinSpeed || cfg.DefaultSpeed > cfg.MaxSpeed {
		return nil, fmt.Errorf("DEFAULT_SPEED (%v) outside [%v, %v]", cfg.DefaultSpeed, cfg.MinSpeed, cfg.MaxSpeed)
	}

	return cfg, nil
}

// databaseURL prefers DATABASE_URL / PG_DSN, else builds the DSN from PG* vars.
func databaseURL() (string, error) {
	if dsn := firstNonEmpty(os.Getenv("DATABASE_URL"), os.Getenv("PG_DSN")); dsn != "" {
		return dsn, nil
	}
	host := getenvDefault("PGHOST", "127.0.0.1")
	port := getenvDefault("PGPORT", "5432")
	user := getenvDefault("PGUSER", "postgres")
	pass := os.Getenv("PGPASSWORD")
	db := os.Getenv("PGDATABASE")
	// If CITY is provided, default base DB to 'postgres' when PGDATABASE is not set.
	if db == "" && os.Getenv("CITY") != "" {
		db = "postgres"
	}
	if db == "" {
		return "", errors.New("PGDATABASE or DATABASE_URL must be set when ROUTE_TRIPS is used")
	}
	sslmode := getenvDefault("PGSSLMODE", "disable")
	if pass != "" {
		return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", urlEscape(user), urlEscape(pass), host, port, db, sslmode), nil
	}
	return fmt.Sprintf("postgres://%s@%s:%s/%s?sslmode=%s", urlEscape(user), host, port, db, sslmode), nil
}

func durationMS(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	ms, err := strconv.Atoi(v)
	if err != nil || ms <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, v)
	}
	return time.Duration(ms) * time.Millisecond, nil
}

func positiveFloat(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, v)
	}
	return f, nil
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "t", "yes", "y", "on":
		return true
	default:
		return false
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func urlEscape(s string) string {
	// Minimal escape for DSN user/pass with special chars
	r := strings.NewReplacer("@", "%40", ":", "%3A", "/", "%2F", "?", "%3F", "#", "%23")
	return r.Replace(s)
}
