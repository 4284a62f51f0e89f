package playback

import (
	"context"
	"math"
	"testing"
	"time"

	"trip-playback/internal/route"
)

var t0 = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

func twoPointPath() []route.PathPoint {
	return []route.PathPoint{
		{Lat: 0, Lng: 0, Distance: 0},
		{Lat: 0, Lng: 1, Distance: 1000},
	}
}

type harness struct {
	clock  *ManualClock
	engine *Engine
	events chan Event
}

func newHarness(t *testing.T, speed float64, path []route.PathPoint, stops []route.Stop) *harness {
	t.Helper()
	h := &harness{clock: NewManualClock(t0), events: make(chan Event, 64)}
	h.engine = NewEngine(Options{
		Interval: time.Second,
		Speed:    speed,
		Clock:    h.clock,
		Listener: func(ev Event) { h.events <- ev },
	})
	h.engine.SetPath(path, stops)
	t.Cleanup(h.engine.Close)
	return h
}

func (h *harness) wait(t *testing.T, kind EventKind) Event {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev := <-h.events:
			if ev.Kind == kind {
				return ev
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %s event", kind)
		}
	}
}

// tick advances the clock and fires the live ticker, then waits for the
// resulting event.
func (h *harness) tick(t *testing.T, d time.Duration, kind EventKind) Event {
	t.Helper()
	h.clock.Advance(d)
	if n := h.clock.Fire(); n != 1 {
		t.Fatalf("expected exactly one live ticker, got %d", n)
	}
	return h.wait(t, kind)
}

func TestConcreteScenario(t *testing.T) {
	h := newHarness(t, 1000, twoPointPath(), nil)
	h.engine.Start(context.Background())
	h.wait(t, EventStarted)

	ev := h.tick(t, 500*time.Millisecond, EventAdvanced)
	s := ev.Snapshot
	if s.State != Running || !s.Running {
		t.Fatalf("expected running state, got %s", s.State)
	}
	if s.Elapsed != 500 {
		t.Errorf("elapsed = %v, want 500", s.Elapsed)
	}
	if s.Position == nil {
		t.Fatal("expected an interpolated position")
	}
	if math.Abs(s.Position.Lat) > 1e-6 || math.Abs(s.Position.Lng-0.5) > 1e-6 {
		t.Errorf("position = %+v, want ~{0 0.5}", *s.Position)
	}
	if math.Abs(s.Heading-90) > 1e-6 {
		t.Errorf("heading = %v, want 90", s.Heading)
	}
	if len(s.Passed) != 1 {
		t.Errorf("passed = %d points, want 1", len(s.Passed))
	}
	if trail := s.Trail(); len(trail) != 2 || trail[1] != *s.Position {
		t.Errorf("trail should end at the marker, got %v", trail)
	}

	ev = h.tick(t, 500*time.Millisecond, EventCompleted)
	s = ev.Snapshot
	if s.State != Completed || s.Running {
		t.Fatalf("expected completed state, got %s", s.State)
	}
	if len(s.Passed) != 2 {
		t.Errorf("completed run should keep the whole path, got %d points", len(s.Passed))
	}
	if s.Position == nil || s.Position.Lng != 1 {
		t.Errorf("final position = %v, want the last point", s.Position)
	}
	if s.Progress() != 1 {
		t.Errorf("progress = %v, want 1", s.Progress())
	}

	// no further ticks are scheduled
	for _, tk := range h.clock.Tickers() {
		waitStopped(t, tk)
	}
	if n := h.clock.Fire(); n != 0 {
		t.Errorf("expected no live tickers after completion, got %d", n)
	}
}

func waitStopped(t *testing.T, tk *ManualTicker) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !tk.Stopped() {
		if time.Now().After(deadline) {
			t.Fatal("ticker was not stopped")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestZeroElapsedTickIsSkipped(t *testing.T) {
	h := newHarness(t, 1000, twoPointPath(), nil)
	h.engine.Start(context.Background())
	h.wait(t, EventStarted)

	h.clock.Fire() // clock has not moved
	ev := h.tick(t, 250*time.Millisecond, EventAdvanced)
	if ev.Snapshot.Elapsed != 250 {
		t.Errorf("elapsed = %v, want 250", ev.Snapshot.Elapsed)
	}
	select {
	case extra := <-h.events:
		t.Errorf("unexpected extra event %s", extra.Kind)
	default:
	}
}

func TestRepeatedStartKeepsOneTicker(t *testing.T) {
	h := newHarness(t, 100, twoPointPath(), nil)
	h.engine.Start(context.Background())
	h.engine.Start(context.Background())
	h.engine.Start(context.Background())

	tickers := h.clock.Tickers()
	if len(tickers) != 3 {
		t.Fatalf("expected 3 tickers created, got %d", len(tickers))
	}
	for _, tk := range tickers[:2] {
		if !tk.Stopped() {
			t.Error("previous run's ticker still active")
		}
	}

	h.clock.Advance(time.Second)
	if n := h.clock.Fire(); n != 1 {
		t.Fatalf("fired %d tickers, want 1", n)
	}
	advanced := 0
	timeout := time.After(200 * time.Millisecond)
loop:
	for {
		select {
		case ev := <-h.events:
			if ev.Kind == EventAdvanced {
				advanced++
			}
		case <-timeout:
			break loop
		}
	}
	if advanced != 1 {
		t.Errorf("advance steps for one tick = %d, want 1", advanced)
	}
}

func TestResetWhileRunning(t *testing.T) {
	h := newHarness(t, 100, twoPointPath(), nil)
	h.engine.Start(context.Background())
	h.wait(t, EventStarted)
	h.tick(t, 2*time.Second, EventAdvanced)

	h.engine.Reset()
	ev := h.wait(t, EventReset)
	s := ev.Snapshot
	if s.State != Idle || s.Running {
		t.Errorf("state after reset = %s, want idle", s.State)
	}
	if len(s.Trail()) != 0 || s.Position != nil {
		t.Errorf("reset should clear the trail, got %v", s.Trail())
	}
	if !s.StartedAt.IsZero() {
		t.Errorf("reset should clear the start timestamp")
	}
	for _, tk := range h.clock.Tickers() {
		if !tk.Stopped() {
			t.Error("ticker still active after reset")
		}
	}
}

func TestRestartAfterCompletion(t *testing.T) {
	h := newHarness(t, 1000, twoPointPath(), nil)
	h.engine.Start(context.Background())
	h.tick(t, 2*time.Second, EventCompleted)

	h.engine.Start(context.Background())
	ev := h.wait(t, EventStarted)
	if ev.Snapshot.State != Running || len(ev.Snapshot.Passed) != 0 {
		t.Errorf("restart should begin a clean run, got %s with %d points", ev.Snapshot.State, len(ev.Snapshot.Passed))
	}
	ev = h.tick(t, 100*time.Millisecond, EventAdvanced)
	if ev.Snapshot.Elapsed != 100 {
		t.Errorf("elapsed after restart = %v, want 100", ev.Snapshot.Elapsed)
	}
}

func TestSpeedChangeDoesNotRescalePastProgress(t *testing.T) {
	h := newHarness(t, 100, twoPointPath(), nil)
	h.engine.Start(context.Background())
	h.wait(t, EventStarted)

	h.clock.Advance(2 * time.Second) // 200m at 100 m/s
	h.engine.SetSpeed(300)
	ev := h.tick(t, time.Second, EventAdvanced) // +300m at 300 m/s
	if ev.Snapshot.Elapsed != 500 {
		t.Errorf("elapsed = %v, want 500", ev.Snapshot.Elapsed)
	}
	if ev.Snapshot.Speed != 300 {
		t.Errorf("speed = %v, want 300", ev.Snapshot.Speed)
	}
}

func TestStopPassedEvents(t *testing.T) {
	path := []route.PathPoint{
		{Lat: 0, Lng: 0, Distance: 0},
		{Lat: 0, Lng: 1, Distance: 1000},
		{Lat: 0, Lng: 2, Distance: 2000},
	}
	stops := []route.Stop{
		{ID: "late", Lat: 0, Lng: 1.8},
		{ID: "early", Lat: 0, Lng: 0.3},
	}
	h := newHarness(t, 1000, path, stops)
	h.engine.Start(context.Background())
	h.wait(t, EventStarted)

	h.clock.Advance(500 * time.Millisecond)
	h.clock.Fire()
	ev := h.wait(t, EventStopPassed)
	if ev.Stop == nil || ev.Stop.ID != "early" {
		t.Fatalf("expected early stop first, got %+v", ev.Stop)
	}
	h.wait(t, EventAdvanced)

	h.clock.Advance(2 * time.Second)
	h.clock.Fire()
	ev = h.wait(t, EventStopPassed)
	if ev.Stop == nil || ev.Stop.ID != "late" {
		t.Fatalf("expected late stop, got %+v", ev.Stop)
	}
	h.wait(t, EventCompleted)
}

func TestEmptyPathCompletesOnFirstTick(t *testing.T) {
	h := newHarness(t, 10, nil, nil)
	h.engine.Start(context.Background())
	ev := h.tick(t, time.Second, EventCompleted)
	if ev.Snapshot.Position != nil {
		t.Errorf("empty path should have no marker, got %v", ev.Snapshot.Position)
	}
}

func TestParentCancelStopsRun(t *testing.T) {
	h := newHarness(t, 10, twoPointPath(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	h.engine.Start(ctx)
	cancel()
	waitStopped(t, h.clock.Tickers()[0])
	deadline := time.Now().Add(2 * time.Second)
	for h.engine.Snapshot().Running {
		if time.Now().After(deadline) {
			t.Fatal("engine still running after parent cancellation")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestSetPathNormalisesDistances(t *testing.T) {
	h := newHarness(t, 10, []route.PathPoint{
		{Distance: 0}, {Distance: 50}, {Distance: 20}, {Distance: 80},
	}, nil)
	path := h.engine.Path()
	for i := 1; i < len(path); i++ {
		if path[i].Distance < path[i-1].Distance {
			t.Fatalf("distance decreased at %d", i)
		}
	}
	if path[2].Distance != 50 {
		t.Errorf("distance = %v, want 50", path[2].Distance)
	}
}
