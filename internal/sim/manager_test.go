package sim

import (
	"context"
	"errors"
	"testing"
	"time"

	"trip-playback/internal/metrics"
	"trip-playback/internal/playback"
	"trip-playback/internal/route"
)

func demoInput() route.Input {
	return route.Input{
		Paths: []route.LatLng{{Lat: 12.9279, Lng: 77.6271}, {Lat: 12.9290, Lng: 77.6280}},
		Stops: route.StopList{Data: []route.Stop{{ID: "A", Lat: 12.9279, Lng: 77.6271}}},
	}
}

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	cat := NewCatalog()
	if err := cat.Add("koramangala", demoInput()); err != nil {
		t.Fatal(err)
	}
	if err := cat.Add("airport", demoInput()); err != nil {
		t.Fatal(err)
	}
	m := NewManager(context.Background(), cat, Options{
		Title:    "Trip Playback",
		Interval: time.Second,
		Clock:    playback.NewManualClock(time.Now()),
		Metrics:  metrics.NewCollector(time.Second, 10, 100, 27),
	})
	t.Cleanup(m.Stop)
	return m
}

func TestCatalogRejectsShortRoutes(t *testing.T) {
	cat := NewCatalog()
	if err := cat.Add("single", route.Input{Paths: []route.LatLng{{}}}); err == nil {
		t.Error("expected error for a single point route")
	}
	if err := cat.Add("", demoInput()); err == nil {
		t.Error("expected error for an unnamed route")
	}
	if cat.Default() != "" {
		t.Error("empty catalog should have no default")
	}
}

func TestCatalogList(t *testing.T) {
	m := newTestManager(t)
	list := m.Catalog().List()
	if len(list) != 2 || list[0].Name != "airport" || list[1].Name != "koramangala" {
		t.Fatalf("list = %+v", list)
	}
	if list[0].Points != 2 || list[0].Stops != 1 || list[0].Length <= 0 {
		t.Errorf("summary = %+v", list[0])
	}
}

func TestCreateGetDelete(t *testing.T) {
	m := newTestManager(t)
	s, err := m.Create("")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if s.Route != "airport" {
		t.Errorf("default route = %q", s.Route)
	}
	if s.Header.State().Title != "Trip Playback" {
		t.Errorf("header title = %q", s.Header.State().Title)
	}
	got, err := m.Get(s.ID)
	if err != nil || got != s {
		t.Fatalf("get = %v, %v", got, err)
	}
	if err := m.Delete(s.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := m.Get(s.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("get after delete err = %v", err)
	}
	if err := m.Delete(s.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete err = %v", err)
	}
}

func TestCreateUnknownRoute(t *testing.T) {
	m := newTestManager(t)
	if _, err := m.Create("atlantis"); !errors.Is(err, ErrUnknownRoute) {
		t.Errorf("err = %v, want ErrUnknownRoute", err)
	}
}

func TestSessionsAreIndependent(t *testing.T) {
	m := newTestManager(t)
	a, _ := m.Create("koramangala")
	b, _ := m.Create("koramangala")
	if a.ID == b.ID {
		t.Fatal("session ids collide")
	}
	if err := a.Panel.Start(); err != nil {
		t.Fatal(err)
	}
	if b.Panel.Snapshot().Running {
		t.Error("starting one session started another")
	}
	if m.Running() != 1 {
		t.Errorf("running = %d, want 1", m.Running())
	}
	a.Header.SetDrawer(true)
	if b.Header.State().DrawerOpen {
		t.Error("header state leaked between sessions")
	}
}

func TestStopClosesEverything(t *testing.T) {
	m := newTestManager(t)
	s, _ := m.Create("koramangala")
	if err := s.Panel.Start(); err != nil {
		t.Fatal(err)
	}
	m.Stop()
	if m.Len() != 0 {
		t.Errorf("sessions left = %d", m.Len())
	}
	if s.Panel.Snapshot().Running {
		t.Error("engine still running after stop")
	}
}
