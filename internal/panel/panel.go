// Package panel wires the playback engine, stop selector and notification
// surface of one mounted trip playback panel and renders their combined state
// as a View.
package panel

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strconv"
	"sync"
	"time"

	"trip-playback/internal/notify"
	"trip-playback/internal/playback"
	"trip-playback/internal/publisher"
	"trip-playback/internal/route"
	"trip-playback/internal/selection"
)

var (
	ErrRunning      = errors.New("playback already running")
	ErrUnknownStop  = errors.New("unknown stop")
	ErrInvalidSpeed = errors.New("invalid speed")
)

const (
	DefaultMinSpeed = 10
	DefaultMaxSpeed = 100
	DefaultSpeed    = 27
)

type Publisher interface {
	PublishPosition(sessionID string, msg publisher.PositionMessage) error
	PublishNotice(sessionID string, msg publisher.NoticeMessage) error
}

type Metrics interface {
	playback.Metrics
	StopPassed()
}

type Config struct {
	ID        string
	RouteName string
	Interval  time.Duration
	Speed     float64
	MinSpeed  float64
	MaxSpeed  float64
	NoticeTTL time.Duration
	Clock     playback.Clock
	Metrics   Metrics
	Publisher Publisher
}

type Panel struct {
	id        string
	routeName string
	minSpeed  float64
	maxSpeed  float64
	pub       Publisher
	metrics   Metrics
	ctx       context.Context

	engine   *playback.Engine
	selector selection.Selector
	notices  *notify.Surface

	ctl sync.Mutex // serialises Start against itself

	mu      sync.Mutex
	input   route.Input
	center  route.LatLng
	subs    map[int]chan View
	nextSub int
	closed  bool
}

// New builds a panel for the given input. Runs started on the panel live
// until ctx is cancelled or the panel is closed.
func New(ctx context.Context, cfg Config, in route.Input) *Panel {
	if cfg.MinSpeed <= 0 {
		cfg.MinSpeed = DefaultMinSpeed
	}
	if cfg.MaxSpeed < cfg.MinSpeed {
		cfg.MaxSpeed = math.Max(DefaultMaxSpeed, cfg.MinSpeed)
	}
	if cfg.Speed <= 0 {
		cfg.Speed = DefaultSpeed
	}
	p := &Panel{
		id:        cfg.ID,
		routeName: cfg.RouteName,
		minSpeed:  cfg.MinSpeed,
		maxSpeed:  cfg.MaxSpeed,
		pub:       cfg.Publisher,
		metrics:   cfg.Metrics,
		ctx:       ctx,
		subs:      make(map[int]chan View),
	}
	p.notices = notify.New(cfg.NoticeTTL, func(*notify.Notice) { p.broadcast() })
	opts := playback.Options{
		Interval: cfg.Interval,
		Speed:    p.clamp(cfg.Speed),
		Clock:    cfg.Clock,
		Listener: p.onEvent,
	}
	if cfg.Metrics != nil {
		opts.Metrics = cfg.Metrics
	}
	p.engine = playback.NewEngine(opts)
	p.SetInput(in)
	return p
}

func (p *Panel) ID() string { return p.id }

// SetInput replaces the route and stops. The path is re-annotated and any
// run in progress is dropped.
func (p *Panel) SetInput(in route.Input) {
	in = route.Input{
		Paths: append([]route.LatLng(nil), in.Paths...),
		Stops: route.StopList{Data: append([]route.Stop(nil), in.Stops.Data...)},
	}
	p.mu.Lock()
	p.input = in
	p.center = route.Center(in.Paths)
	p.mu.Unlock()

	if sel, ok := p.selector.Selected(); ok && !hasStop(in.Stops.Data, sel) {
		p.selector.Close()
	}
	p.engine.SetPath(route.Annotate(in.Paths), in.Stops.Data)
	p.broadcast()
}

// Start begins playback. It fails with ErrRunning while a run is active,
// the same way the start control is disabled in the UI.
func (p *Panel) Start() error {
	p.ctl.Lock()
	defer p.ctl.Unlock()
	if p.engine.Snapshot().Running {
		return ErrRunning
	}
	p.engine.Start(p.ctx)
	return nil
}

func (p *Panel) Reset() { p.engine.Reset() }

// SetSpeed applies the speed clamped to the control bounds and returns the
// value in effect.
func (p *Panel) SetSpeed(v float64) (float64, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %v", ErrInvalidSpeed, v)
	}
	v = p.clamp(v)
	p.engine.SetSpeed(v)
	p.broadcast()
	return v, nil
}

func (p *Panel) SelectStop(id string) (selection.Detail, error) {
	p.mu.Lock()
	var found *route.Stop
	for i := range p.input.Stops.Data {
		if p.input.Stops.Data[i].ID == id {
			s := p.input.Stops.Data[i]
			found = &s
			break
		}
	}
	p.mu.Unlock()
	if found == nil {
		return selection.Detail{}, fmt.Errorf("%w: %q", ErrUnknownStop, id)
	}
	p.selector.Select(*found)
	d, _ := p.selector.Detail()
	p.broadcast()
	return d, nil
}

func (p *Panel) CloseStop() {
	p.selector.Close()
	p.broadcast()
}

func (p *Panel) DismissNotice() { p.notices.Dismiss() }

func (p *Panel) Snapshot() playback.Snapshot { return p.engine.Snapshot() }

// Subscribe returns a channel receiving the view after every change. Slow
// readers only see the latest views. The returned func unsubscribes.
func (p *Panel) Subscribe() (<-chan View, func()) {
	ch := make(chan View, 8)
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := p.nextSub
	p.nextSub++
	p.subs[id] = ch
	p.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			p.mu.Lock()
			if c, ok := p.subs[id]; ok {
				delete(p.subs, id)
				close(c)
			}
			p.mu.Unlock()
		})
	}
}

// Close stops the engine, drops the pending notice and ends subscriptions.
func (p *Panel) Close() {
	p.engine.Close()
	p.notices.Close()
	p.mu.Lock()
	p.closed = true
	for id, c := range p.subs {
		delete(p.subs, id)
		close(c)
	}
	p.mu.Unlock()
}

func (p *Panel) clamp(v float64) float64 {
	return math.Max(p.minSpeed, math.Min(p.maxSpeed, v))
}

func (p *Panel) onEvent(ev playback.Event) {
	switch ev.Kind {
	case playback.EventStarted, playback.EventAdvanced:
		p.publishPosition(ev.Snapshot)
	case playback.EventStopPassed:
		if p.metrics != nil {
			p.metrics.StopPassed()
		}
		if ev.Stop != nil {
			log.Printf("session %s passed stop %s", p.id, ev.Stop.ID)
			p.publishNotice("stop_passed", "", ev.Stop.ID)
		}
	case playback.EventCompleted:
		p.publishPosition(ev.Snapshot)
		p.notices.Show(notify.TripCompleted)
		p.publishNotice("completed", notify.TripCompleted, "")
	case playback.EventReset:
		p.notices.Show(notify.SimulationReset)
		p.publishNotice("reset", notify.SimulationReset, "")
	}
	p.broadcast()
}

func (p *Panel) publishPosition(s playback.Snapshot) {
	if p.pub == nil {
		return
	}
	msg := publisher.PositionMessage{
		SessionID: p.id,
		Route:     p.routeName,
		Timestamp: time.Now(),
		State:     s.State.String(),
		Heading:   s.Heading,
		Progress:  s.Progress(),
		Distance:  s.Elapsed,
		SpeedMps:  s.Speed,
	}
	if s.Position != nil {
		msg.Lat, msg.Lng = s.Position.Lat, s.Position.Lng
	} else if path := p.engine.Path(); len(path) > 0 {
		msg.Lat, msg.Lng = path[0].Lat, path[0].Lng
	}
	if err := p.pub.PublishPosition(p.id, msg); err != nil {
		log.Printf("publish position error for %s: %v", p.id, err)
	}
}

func (p *Panel) publishNotice(kind, message, stopID string) {
	if p.pub == nil {
		return
	}
	msg := publisher.NoticeMessage{
		SessionID: p.id,
		Timestamp: time.Now(),
		Kind:      kind,
		Message:   message,
		StopID:    stopID,
	}
	if err := p.pub.PublishNotice(p.id, msg); err != nil {
		log.Printf("publish notice error for %s: %v", p.id, err)
	}
}

func (p *Panel) broadcast() {
	v := p.View()
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, c := range p.subs {
		select {
		case c <- v:
		default:
			// drop the oldest queued view to make room
			select {
			case <-c:
			default:
			}
			select {
			case c <- v:
			default:
			}
		}
	}
}

func hasStop(stops []route.Stop, s route.Stop) bool {
	for _, st := range stops {
		if st == s {
			return true
		}
	}
	return false
}

func stopLabel(i int) string { return strconv.Itoa(i + 1) }
