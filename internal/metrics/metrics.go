package metrics

import (
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	reg *prometheus.Registry

	Sessions prometheus.Gauge

	RunsStarted   prometheus.Counter
	RunsCompleted prometheus.Counter
	RunsReset     prometheus.Counter

	Ticks        prometheus.Counter
	TicksSkipped prometheus.Counter
	StopsPassed  prometheus.Counter

	NATSPublished   prometheus.Counter
	NATSPublishErrs prometheus.Counter
	NATSConnected   prometheus.Gauge

	Commands *prometheus.CounterVec // action label: start|reset|speed|select|close|dismiss

	TickDuration    prometheus.Histogram
	PublishDuration prometheus.Histogram

	TickInterval prometheus.Gauge // seconds
	MinSpeed     prometheus.Gauge
	MaxSpeed     prometheus.Gauge
	DefaultSpeed prometheus.Gauge
	RoutesLoaded prometheus.Gauge
}

func NewCollector(tickInterval time.Duration, minSpeed, maxSpeed, defaultSpeed float64) *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		Sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "playback_sessions",
			Help: "Number of open playback sessions.",
		}),
		RunsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "playback_runs_started_total",
			Help: "Total playback runs started.",
		}),
		RunsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "playback_runs_completed_total",
			Help: "Total playback runs that reached the end of the route.",
		}),
		RunsReset: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "playback_runs_reset_total",
			Help: "Total reset commands.",
		}),
		Ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "playback_ticks_total",
			Help: "Total advance steps computed.",
		}),
		TicksSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "playback_ticks_skipped_total",
			Help: "Ticks skipped because no simulated distance had elapsed.",
		}),
		StopsPassed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "playback_stops_passed_total",
			Help: "Stops passed by simulated vehicles.",
		}),
		NATSPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "playback_nats_published_total",
			Help: "Total NATS messages published.",
		}),
		NATSPublishErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "playback_nats_publish_errors_total",
			Help: "Total NATS publish errors.",
		}),
		NATSConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "playback_nats_connected",
			Help: "1 if NATS connection is established, 0 otherwise.",
		}),
		Commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "playback_commands_total",
			Help: "Panel commands received.",
		}, []string{"action"}),
		TickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "playback_tick_duration_seconds",
			Help:    "Duration of advance step computations.",
			Buckets: prometheus.ExponentialBuckets(0.00001, 2, 15),
		}),
		PublishDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "playback_publish_duration_seconds",
			Help:    "Duration to marshal and publish a NATS message.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 15),
		}),
		TickInterval: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "playback_tick_interval_seconds",
			Help: "Engine tick interval in seconds.",
		}),
		MinSpeed: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "playback_min_speed",
			Help: "Lower bound of the speed control.",
		}),
		MaxSpeed: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "playback_max_speed",
			Help: "Upper bound of the speed control.",
		}),
		DefaultSpeed: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "playback_default_speed",
			Help: "Speed a new panel starts with.",
		}),
		RoutesLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "playback_routes_loaded",
			Help: "Number of routes in the catalog.",
		}),
	}

	reg.MustRegister(
		c.Sessions,
		c.RunsStarted, c.RunsCompleted, c.RunsReset,
		c.Ticks, c.TicksSkipped, c.StopsPassed,
		c.NATSPublished, c.NATSPublishErrs, c.NATSConnected,
		c.Commands, c.TickDuration, c.PublishDuration,
		c.TickInterval, c.MinSpeed, c.MaxSpeed, c.DefaultSpeed, c.RoutesLoaded,
	)

	c.TickInterval.Set(tickInterval.Seconds())
	c.MinSpeed.Set(minSpeed)
	c.MaxSpeed.Set(maxSpeed)
	c.DefaultSpeed.Set(defaultSpeed)

	return c
}

func (c *Collector) Handler() http.Handler { return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{}) }

// Serve starts an HTTP server exposing /metrics on the given address.
func (c *Collector) Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("metrics server error: %v", err)
		}
	}()
	log.Printf("metrics listening on %s", addr)
	return srv
}

// TrackRunning exposes the number of running engines as reported by fn.
func (c *Collector) TrackRunning(fn func() float64) {
	c.reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "playback_running_engines",
		Help: "Number of engines currently in the running state.",
	}, fn))
}

// Engine adapts the collector to the playback engine's metrics hooks.
func (c *Collector) Engine() *EngineMetrics { return &EngineMetrics{c: c} }

type EngineMetrics struct{ c *Collector }

func (m *EngineMetrics) RunStarted()   { m.c.RunsStarted.Inc() }
func (m *EngineMetrics) RunCompleted() { m.c.RunsCompleted.Inc() }

func (m *EngineMetrics) RunReset() { m.c.RunsReset.Inc() }

func (m *EngineMetrics) TickObserve(d time.Duration) {
	m.c.Ticks.Inc()
	m.c.TickDuration.Observe(d.Seconds())
}

func (m *EngineMetrics) TickSkipped() { m.c.TicksSkipped.Inc() }
func (m *EngineMetrics) StopPassed()  { m.c.StopsPassed.Inc() }

// Publisher adapts the collector to the NATS publisher's metrics hooks.
func (c *Collector) Publisher() *PublisherMetrics { return &PublisherMetrics{c: c} }

type PublisherMetrics struct{ c *Collector }

func (p *PublisherMetrics) NATSPublishedInc()              { p.c.NATSPublished.Inc() }
func (p *PublisherMetrics) NATSPublishErrInc()             { p.c.NATSPublishErrs.Inc() }
func (p *PublisherMetrics) PublishObserve(d time.Duration) { p.c.PublishDuration.Observe(d.Seconds()) }
func (p *PublisherMetrics) NATSSetConnected(b bool) {
	if b {
		p.c.NATSConnected.Set(1)
	} else {
		p.c.NATSConnected.Set(0)
	}
}
