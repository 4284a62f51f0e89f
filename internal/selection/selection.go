// Package selection tracks the stop a user clicked on the map.
package selection

import (
	"sync"

	"trip-playback/internal/route"
)

// Selector holds at most one selected stop. The selected stop drives the
// detail dialog and the highlighted stop drives map emphasis; both are set
// and cleared together.
type Selector struct {
	mu          sync.Mutex
	selected    *route.Stop
	highlighted *route.Stop
}

func (s *Selector) Select(stop route.Stop) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sel, hl := stop, stop
	s.selected = &sel
	s.highlighted = &hl
}

// Close dismisses the dialog and clears the highlight.
func (s *Selector) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = nil
	s.highlighted = nil
}

func (s *Selector) Selected() (route.Stop, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selected == nil {
		return route.Stop{}, false
	}
	return *s.selected, true
}

func (s *Selector) Highlighted() (route.Stop, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.highlighted == nil {
		return route.Stop{}, false
	}
	return *s.highlighted, true
}

// IsHighlighted reports whether the given stop is the highlighted one.
func (s *Selector) IsHighlighted(stop route.Stop) bool {
	hl, ok := s.Highlighted()
	return ok && hl == stop
}

// Detail is the content of the stop dialog.
type Detail struct {
	Title string  `json:"title"`
	ID    string  `json:"id"`
	Lat   float64 `json:"lat"`
	Lng   float64 `json:"lng"`
}

func (s *Selector) Detail() (Detail, bool) {
	st, ok := s.Selected()
	if !ok {
		return Detail{}, false
	}
	return Detail{Title: "Stop Details", ID: st.ID, Lat: st.Lat, Lng: st.Lng}, true
}
