package notify

import (
	"sync"
	"testing"
	"time"
)

func TestShowReplacesCurrent(t *testing.T) {
	s := New(time.Minute, nil)
	defer s.Close()

	s.Show(TripCompleted)
	s.Show(SimulationReset)
	n, ok := s.Current()
	if !ok || n.Message != SimulationReset {
		t.Errorf("current = %q (%v), want %q", n.Message, ok, SimulationReset)
	}
}

func TestDismiss(t *testing.T) {
	var mu sync.Mutex
	var seen []string
	s := New(time.Minute, func(n *Notice) {
		mu.Lock()
		defer mu.Unlock()
		if n == nil {
			seen = append(seen, "")
			return
		}
		seen = append(seen, n.Message)
	})
	s.Show(TripCompleted)
	s.Dismiss()
	s.Dismiss() // nothing left to dismiss

	if _, ok := s.Current(); ok {
		t.Error("expected no notice after dismiss")
	}
	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 2 || seen[0] != TripCompleted || seen[1] != "" {
		t.Errorf("change callbacks = %q", seen)
	}
}

func TestAutoDismiss(t *testing.T) {
	cleared := make(chan struct{}, 1)
	s := New(20*time.Millisecond, func(n *Notice) {
		if n == nil {
			cleared <- struct{}{}
		}
	})
	s.Show(SimulationReset)
	select {
	case <-cleared:
	case <-time.After(2 * time.Second):
		t.Fatal("notice was not auto-dismissed")
	}
	if _, ok := s.Current(); ok {
		t.Error("expected empty surface after expiry")
	}
}

func TestReplacementRearmsTimer(t *testing.T) {
	s := New(80*time.Millisecond, nil)
	defer s.Close()
	s.Show(TripCompleted)
	time.Sleep(50 * time.Millisecond)
	s.Show(SimulationReset)
	time.Sleep(50 * time.Millisecond)
	// first timer would have fired by now
	n, ok := s.Current()
	if !ok || n.Message != SimulationReset {
		t.Errorf("replacement expired with the previous timer: %q %v", n.Message, ok)
	}
}

func TestDefaultTTL(t *testing.T) {
	s := New(0, nil)
	if s.ttl != DefaultTTL {
		t.Errorf("ttl = %v, want %v", s.ttl, DefaultTTL)
	}
}
