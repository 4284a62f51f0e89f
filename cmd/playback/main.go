package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"trip-playback/internal/api"
	"trip-playback/internal/config"
	"trip-playback/internal/db"
	"trip-playback/internal/metrics"
	"trip-playback/internal/publisher"
	"trip-playback/internal/routefile"
	"trip-playback/internal/sim"
)

func main() {
	// Load configuration from .env and environment
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	// Root context with cancellation on SIGINT/SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	mcol := metrics.NewCollector(cfg.TickInterval, cfg.MinSpeed, cfg.MaxSpeed, cfg.DefaultSpeed)
	if cfg.MetricsAddr != "" {
		srv := mcol.Serve(cfg.MetricsAddr)
		defer shutdown(srv)
	}

	catalog, err := loadCatalog(ctx, cfg)
	if err != nil {
		log.Fatalf("load routes: %v", err)
	}
	mcol.RoutesLoaded.Set(float64(len(catalog.List())))

	opts := sim.Options{
		Title:     cfg.Title,
		Interval:  cfg.TickInterval,
		Speed:     cfg.DefaultSpeed,
		MinSpeed:  cfg.MinSpeed,
		MaxSpeed:  cfg.MaxSpeed,
		NoticeTTL: cfg.NoticeTTL,
		Metrics:   mcol,
	}
	// NATS is optional; without it positions are only pushed to websocket clients
	if cfg.NATSURL != "" {
		pub, err := publisher.NewNATSPublisher(cfg.NATSURL, cfg.NATSSubjectPrefix, cfg.LogNATSSubjects, mcol.Publisher())
		if err != nil {
			log.Fatalf("nats error: %v", err)
		}
		defer pub.Close()
		opts.Publisher = pub
		log.Printf("publishing positions to %s under %q", cfg.NATSURL, cfg.NATSSubjectPrefix)
	}

	mgr := sim.NewManager(ctx, catalog, opts)
	defer mgr.Stop()

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: api.NewServer(mgr, mcol).Handler()}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http server error: %v", err)
			cancel()
		}
	}()
	log.Printf("playback API listening on %s (%d routes)", cfg.HTTPAddr, len(catalog.List()))

	<-ctx.Done()
	log.Printf("shutting down")
	shutdown(srv)
}

// loadCatalog reads every configured route file and, when ROUTE_TRIPS is
// set, the shapes and stops of those GTFS trips.
func loadCatalog(ctx context.Context, cfg *config.Config) (*sim.Catalog, error) {
	catalog := sim.NewCatalog()
	for _, path := range cfg.RouteFiles {
		name, in, err := routefile.Load(path)
		if err != nil {
			return nil, err
		}
		if err := catalog.Add(name, in); err != nil {
			return nil, err
		}
		log.Printf("loaded route %q from %s (%d points, %d stops)", name, path, len(in.Paths), len(in.Stops.Data))
	}
	if len(cfg.RouteTrips) == 0 {
		return catalog, nil
	}

	dsn := cfg.DatabaseURL
	if cfg.City != "" {
		resolved, name, err := db.ResolveCityDSN(ctx, dsn, cfg.City)
		if err != nil {
			return nil, err
		}
		dsn = resolved
		log.Printf("Using database %q for city %q", name, cfg.City)
	}
	sqlDB, err := db.Open(dsn)
	if err != nil {
		return nil, err
	}
	defer sqlDB.Close()
	if err := db.Ping(ctx, sqlDB); err != nil {
		return nil, err
	}
	for _, tripID := range cfg.RouteTrips {
		in, err := db.FetchTripRoute(ctx, sqlDB, tripID)
		if err != nil {
			return nil, err
		}
		if err := catalog.Add(tripID, in); err != nil {
			return nil, err
		}
		log.Printf("loaded trip %s (%d points, %d stops)", tripID, len(in.Paths), len(in.Stops.Data))
	}
	return catalog, nil
}

func shutdown(srv *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
}
