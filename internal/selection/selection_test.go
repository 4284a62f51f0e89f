package selection

import (
	"testing"

	"trip-playback/internal/route"
)

func TestSelectAndClose(t *testing.T) {
	var s Selector
	stop := route.Stop{ID: "S1", Lat: 12.93, Lng: 77.62}

	s.Select(stop)
	sel, ok := s.Selected()
	if !ok || sel != stop {
		t.Fatalf("selected = %+v (%v), want %+v", sel, ok, stop)
	}
	if !s.IsHighlighted(stop) {
		t.Error("selected stop should be highlighted")
	}
	d, ok := s.Detail()
	if !ok || d.ID != "S1" || d.Lat != 12.93 || d.Lng != 77.62 {
		t.Errorf("detail = %+v", d)
	}

	s.Close()
	if _, ok := s.Selected(); ok {
		t.Error("selection should be cleared")
	}
	if _, ok := s.Highlighted(); ok {
		t.Error("highlight should be cleared")
	}
	if _, ok := s.Detail(); ok {
		t.Error("no detail expected after close")
	}
}

func TestSelectReplaces(t *testing.T) {
	var s Selector
	a := route.Stop{ID: "A"}
	b := route.Stop{ID: "B", Lat: 1}
	s.Select(a)
	s.Select(b)
	if s.IsHighlighted(a) {
		t.Error("previous stop still highlighted")
	}
	if sel, _ := s.Selected(); sel != b {
		t.Errorf("selected = %+v, want %+v", sel, b)
	}
}
