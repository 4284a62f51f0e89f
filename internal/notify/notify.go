// Package notify is the single-slot transient message area shown under the
// playback panel.
package notify

import (
	"sync"
	"time"
)

const (
	TripCompleted   = "Trip Completed! Thank you!"
	SimulationReset = "Simulation Reset."

	DefaultTTL = 6 * time.Second
)

type Notice struct {
	Message string    `json:"message"`
	ShownAt time.Time `json:"shownAt"`
}

// Surface holds at most one notice. A new notice replaces the current one and
// re-arms the auto-dismiss timer.
type Surface struct {
	ttl      time.Duration
	onChange func(*Notice)

	mu      sync.Mutex
	current *Notice
	timer   *time.Timer
	gen     uint64
}

// New creates a surface. onChange, if set, is called after every show and
// dismiss with the notice now visible (nil when cleared).
func New(ttl time.Duration, onChange func(*Notice)) *Surface {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Surface{ttl: ttl, onChange: onChange}
}

func (s *Surface) Show(msg string) {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.gen++
	gen := s.gen
	n := &Notice{Message: msg, ShownAt: time.Now()}
	s.current = n
	s.timer = time.AfterFunc(s.ttl, func() { s.expire(gen) })
	s.mu.Unlock()
	s.changed(n)
}

// Dismiss clears the current notice. It is a no-op when nothing is shown.
func (s *Surface) Dismiss() {
	s.mu.Lock()
	if s.current == nil {
		s.mu.Unlock()
		return
	}
	s.clearLocked()
	s.mu.Unlock()
	s.changed(nil)
}

func (s *Surface) Current() (Notice, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return Notice{}, false
	}
	return *s.current, true
}

// Close stops the pending timer without notifying.
func (s *Surface) Close() {
	s.mu.Lock()
	s.clearLocked()
	s.mu.Unlock()
}

func (s *Surface) expire(gen uint64) {
	s.mu.Lock()
	// a newer notice owns the slot
	if gen != s.gen || s.current == nil {
		s.mu.Unlock()
		return
	}
	s.clearLocked()
	s.mu.Unlock()
	s.changed(nil)
}

func (s *Surface) clearLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.gen++
	s.current = nil
}

func (s *Surface) changed(n *Notice) {
	if s.onChange == nil {
		return
	}
	if n != nil {
		c := *n
		n = &c
	}
	s.onChange(n)
}
