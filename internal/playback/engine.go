// Package playback moves a simulated vehicle along an annotated route on a
// fixed tick and reports where it is.
package playback

import (
	"context"
	"sort"
	"sync"
	"time"

	"trip-playback/internal/geo"
	"trip-playback/internal/route"
)

type State int

const (
	Idle State = iota
	Running
	Completed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Completed:
		return "completed"
	default:
		return "unknown"
	}
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

type EventKind int

const (
	EventStarted EventKind = iota
	EventAdvanced
	EventStopPassed
	EventCompleted
	EventReset
)

func (k EventKind) String() string {
	switch k {
	case EventStarted:
		return "started"
	case EventAdvanced:
		return "advanced"
	case EventStopPassed:
		return "stop_passed"
	case EventCompleted:
		return "completed"
	case EventReset:
		return "reset"
	default:
		return "unknown"
	}
}

// Event is delivered to the engine listener after every state change.
// Stop is set for EventStopPassed only.
type Event struct {
	Kind     EventKind
	Snapshot Snapshot
	Stop     *route.Stop
}

// Metrics receives engine lifecycle and tick timings. Optional.
type Metrics interface {
	RunStarted()
	RunCompleted()
	RunReset()
	TickObserve(d time.Duration)
	TickSkipped()
}

// Snapshot is a read-only copy of the engine state. Passed shares backing
// storage with the engine's path and must not be modified.
type Snapshot struct {
	State     State
	Running   bool
	StartedAt time.Time
	Speed     float64 // meters per second
	Elapsed   float64 // simulated meters covered
	Total     float64
	Passed    []route.PathPoint
	Position  *route.LatLng
	Heading   float64
}

// Trail is the displayed progress line: every passed point followed by the
// interpolated marker position when it is not already the last passed point.
func (s Snapshot) Trail() []route.LatLng {
	out := make([]route.LatLng, 0, len(s.Passed)+1)
	for _, p := range s.Passed {
		out = append(out, p.LatLng())
	}
	if s.Position != nil && (len(out) == 0 || out[len(out)-1] != *s.Position) {
		out = append(out, *s.Position)
	}
	return out
}

// Progress is the covered fraction of the route in [0, 1].
func (s Snapshot) Progress() float64 {
	if s.Total <= 0 {
		if s.State == Completed {
			return 1
		}
		return 0
	}
	p := s.Elapsed / s.Total
	if p > 1 {
		return 1
	}
	if p < 0 {
		return 0
	}
	return p
}

type Options struct {
	Interval time.Duration
	Speed    float64
	Clock    Clock
	Metrics  Metrics
	// Listener is called synchronously after each change, outside the engine
	// lock. It must not call Start, Reset, SetPath or Close.
	Listener func(Event)
}

type stopMark struct {
	stop     route.Stop
	distance float64
}

type run struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Engine is the playback state machine for one panel. All timing state lives
// on the engine so any number of engines can run side by side.
type Engine struct {
	interval time.Duration
	clock    Clock
	metrics  Metrics
	listener func(Event)

	ctl sync.Mutex // serialises Start, Reset, SetPath and Close

	mu        sync.Mutex
	path      []route.PathPoint
	stops     []stopMark
	state     State
	speed     float64
	startedAt time.Time
	baseDist  float64 // distance covered before the last speed change
	baseAt    time.Time
	elapsed   float64
	passed    []route.PathPoint
	position  *route.LatLng
	heading   float64
	nextStop  int
	run       *run // active run, nil unless Running
	last      *run // most recent run, joined before a new one starts
}

func NewEngine(opts Options) *Engine {
	if opts.Interval <= 0 {
		opts.Interval = time.Second
	}
	if opts.Clock == nil {
		opts.Clock = SystemClock{}
	}
	return &Engine{
		interval: opts.Interval,
		clock:    opts.Clock,
		metrics:  opts.Metrics,
		listener: opts.Listener,
		speed:    opts.Speed,
	}
}

// SetPath replaces the route and returns the engine to Idle. Distances are
// forced non-decreasing so the passed set is always a prefix of the path.
func (e *Engine) SetPath(points []route.PathPoint, stops []route.Stop) {
	e.ctl.Lock()
	defer e.ctl.Unlock()
	e.stopRun()

	path := make([]route.PathPoint, len(points))
	prev := 0.0
	for i, p := range points {
		if p.Distance < prev {
			p.Distance = prev
		}
		path[i] = p
		prev = p.Distance
	}
	marks := make([]stopMark, 0, len(stops))
	for _, s := range stops {
		marks = append(marks, stopMark{stop: s, distance: route.StopDistance(path, s)})
	}
	sort.SliceStable(marks, func(i, j int) bool { return marks[i].distance < marks[j].distance })

	e.mu.Lock()
	e.path = path
	e.stops = marks
	e.state = Idle
	e.clearLocked()
	e.mu.Unlock()
}

// Start begins a new run from the start of the path. Any run in flight is
// cancelled and its goroutine joined first.
func (e *Engine) Start(ctx context.Context) {
	e.ctl.Lock()
	defer e.ctl.Unlock()
	e.stopRun()

	rctx, cancel := context.WithCancel(ctx)
	r := &run{cancel: cancel, done: make(chan struct{})}
	ticker := e.clock.NewTicker(e.interval)
	now := e.clock.Now()

	e.mu.Lock()
	e.clearLocked()
	e.state = Running
	e.startedAt = now
	e.baseAt = now
	e.run = r
	e.last = r
	snap := e.snapshotLocked()
	e.mu.Unlock()

	if e.metrics != nil {
		e.metrics.RunStarted()
	}
	e.emit(Event{Kind: EventStarted, Snapshot: snap})
	go e.loop(rctx, r, ticker)
}

// Reset cancels the current run, clears progress and returns to Idle.
func (e *Engine) Reset() {
	e.ctl.Lock()
	defer e.ctl.Unlock()
	e.stopRun()

	e.mu.Lock()
	e.state = Idle
	e.clearLocked()
	snap := e.snapshotLocked()
	e.mu.Unlock()

	if e.metrics != nil {
		e.metrics.RunReset()
	}
	e.emit(Event{Kind: EventReset, Snapshot: snap})
}

// Close stops the ticker without emitting events. The state is left as is
// except that a running engine becomes Idle.
func (e *Engine) Close() {
	e.ctl.Lock()
	defer e.ctl.Unlock()
	e.stopRun()
	e.mu.Lock()
	if e.state == Running {
		e.state = Idle
	}
	e.mu.Unlock()
}

// SetSpeed changes the speed for subsequent ticks. Distance already covered
// is kept as is.
func (e *Engine) SetSpeed(speed float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == Running {
		now := e.clock.Now()
		e.baseDist += now.Sub(e.baseAt).Seconds() * e.speed
		e.baseAt = now
	}
	e.speed = speed
}

func (e *Engine) Speed() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.speed
}

func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// Path returns the annotated path. The slice must not be modified.
func (e *Engine) Path() []route.PathPoint {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.path
}

func (e *Engine) stopRun() {
	e.mu.Lock()
	r := e.last
	e.run = nil
	e.last = nil
	e.mu.Unlock()
	if r != nil {
		r.cancel()
		<-r.done
	}
}

func (e *Engine) loop(ctx context.Context, r *run, ticker Ticker) {
	defer close(r.done)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			e.mu.Lock()
			if e.run == r {
				e.run = nil
				e.state = Idle
			}
			e.mu.Unlock()
			return
		case now := <-ticker.C():
			if finished := e.advance(r, now); finished {
				return
			}
		}
	}
}

// advance runs one tick. It reports whether the run is over.
func (e *Engine) advance(r *run, now time.Time) bool {
	tickStart := time.Now()

	e.mu.Lock()
	if e.run != r {
		e.mu.Unlock()
		return true
	}
	elapsed := e.baseDist + now.Sub(e.baseAt).Seconds()*e.speed
	if !(elapsed > 0) {
		e.mu.Unlock()
		if e.metrics != nil {
			e.metrics.TickSkipped()
		}
		return false
	}

	n := len(e.path)
	k := sort.Search(n, func(i int) bool { return e.path[i].Distance >= elapsed })
	next := sort.Search(n, func(i int) bool { return e.path[i].Distance > elapsed })
	if next < n && k == 0 {
		// nothing behind the marker yet to interpolate from
		e.mu.Unlock()
		if e.metrics != nil {
			e.metrics.TickSkipped()
		}
		return false
	}

	e.elapsed = elapsed
	passed := e.path[:k:k]
	e.passed = passed

	var events []Event
	if next >= n {
		// every point is at or behind the marker: the trail covers the whole path
		passed = e.path[:n:n]
		e.passed = passed
		if len(passed) > 0 {
			last := passed[len(passed)-1]
			pos := last.LatLng()
			e.position = &pos
			if len(passed) > 1 {
				prev := passed[len(passed)-2]
				e.heading = geo.Heading(prev.Lat, prev.Lng, last.Lat, last.Lng)
			}
		}
		e.state = Completed
		e.run = nil
		events = e.passStopsLocked(events, elapsed, true)
		events = append(events, Event{Kind: EventCompleted, Snapshot: e.snapshotLocked()})
		e.mu.Unlock()

		if e.metrics != nil {
			e.metrics.TickObserve(time.Since(tickStart))
			e.metrics.RunCompleted()
		}
		for _, ev := range events {
			e.emit(ev)
		}
		return true
	}

	from := passed[len(passed)-1]
	to := e.path[next]
	frac := (elapsed - from.Distance) / (to.Distance - from.Distance)
	lat, lng := geo.Interpolate(from.Lat, from.Lng, to.Lat, to.Lng, frac)
	e.position = &route.LatLng{Lat: lat, Lng: lng}
	e.heading = geo.Heading(from.Lat, from.Lng, to.Lat, to.Lng)
	events = e.passStopsLocked(events, elapsed, false)
	events = append(events, Event{Kind: EventAdvanced, Snapshot: e.snapshotLocked()})
	e.mu.Unlock()

	if e.metrics != nil {
		e.metrics.TickObserve(time.Since(tickStart))
	}
	for _, ev := range events {
		e.emit(ev)
	}
	return false
}

func (e *Engine) passStopsLocked(events []Event, elapsed float64, all bool) []Event {
	for e.nextStop < len(e.stops) && (all || e.stops[e.nextStop].distance <= elapsed) {
		s := e.stops[e.nextStop].stop
		events = append(events, Event{Kind: EventStopPassed, Snapshot: e.snapshotLocked(), Stop: &s})
		e.nextStop++
	}
	return events
}

func (e *Engine) clearLocked() {
	e.startedAt = time.Time{}
	e.baseAt = time.Time{}
	e.baseDist = 0
	e.elapsed = 0
	e.passed = nil
	e.position = nil
	e.heading = 0
	e.nextStop = 0
}

func (e *Engine) snapshotLocked() Snapshot {
	s := Snapshot{
		State:     e.state,
		Running:   e.state == Running,
		StartedAt: e.startedAt,
		Speed:     e.speed,
		Elapsed:   e.elapsed,
		Total:     route.Total(e.path),
		Passed:    e.passed,
		Heading:   e.heading,
	}
	if e.position != nil {
		p := *e.position
		s.Position = &p
	}
	return s
}

func (e *Engine) emit(ev Event) {
	if e.listener != nil {
		e.listener(ev)
	}
}
