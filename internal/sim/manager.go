package sim

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"trip-playback/internal/header"
	"trip-playback/internal/metrics"
	"trip-playback/internal/panel"
	"trip-playback/internal/playback"
)

var (
	ErrNotFound     = errors.New("session not found")
	ErrUnknownRoute = errors.New("unknown route")
)

// Session is one open view: the header chrome plus a trip playback panel.
type Session struct {
	ID        string
	Route     string
	CreatedAt time.Time
	Header    *header.Header
	Panel     *panel.Panel
}

type Options struct {
	Title     string
	Interval  time.Duration
	Speed     float64
	MinSpeed  float64
	MaxSpeed  float64
	NoticeTTL time.Duration
	Clock     playback.Clock
	Publisher panel.Publisher
	Metrics   *metrics.Collector
}

// Manager owns every open session. Sessions never share playback state.
type Manager struct {
	catalog *Catalog
	opts    Options
	metrics *metrics.Collector

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewManager(parent context.Context, catalog *Catalog, opts Options) *Manager {
	ctx, cancel := context.WithCancel(parent)
	m := &Manager{
		catalog:  catalog,
		opts:     opts,
		metrics:  opts.Metrics,
		ctx:      ctx,
		cancel:   cancel,
		sessions: make(map[string]*Session),
	}
	if m.metrics != nil {
		m.metrics.TrackRunning(func() float64 { return float64(m.Running()) })
	}
	return m
}

func (m *Manager) Catalog() *Catalog { return m.catalog }

// Create opens a session on the named route, or on the default route when
// name is empty.
func (m *Manager) Create(routeName string) (*Session, error) {
	if routeName == "" {
		routeName = m.catalog.Default()
	}
	in, ok := m.catalog.Get(routeName)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRoute, routeName)
	}
	id := uuid.NewString()
	cfg := panel.Config{
		ID:        id,
		RouteName: routeName,
		Interval:  m.opts.Interval,
		Speed:     m.opts.Speed,
		MinSpeed:  m.opts.MinSpeed,
		MaxSpeed:  m.opts.MaxSpeed,
		NoticeTTL: m.opts.NoticeTTL,
		Clock:     m.opts.Clock,
		Publisher: m.opts.Publisher,
	}
	if m.metrics != nil {
		cfg.Metrics = m.metrics.Engine()
	}
	s := &Session{
		ID:        id,
		Route:     routeName,
		CreatedAt: time.Now(),
		Header:    header.New(m.opts.Title),
		Panel:     panel.New(m.ctx, cfg, in),
	}

	m.mu.Lock()
	m.sessions[id] = s
	n := len(m.sessions)
	m.mu.Unlock()
	if m.metrics != nil {
		m.metrics.Sessions.Set(float64(n))
	}
	log.Printf("opened session %s on route %s", id, routeName)
	return s, nil
}

func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s, nil
}

// Delete closes the session's panel and forgets it.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	n := len(m.sessions)
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	s.Panel.Close()
	if m.metrics != nil {
		m.metrics.Sessions.Set(float64(n))
	}
	log.Printf("closed session %s", id)
	return nil
}

// Running counts sessions whose engine is in the running state.
func (m *Manager) Running() int {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.Unlock()
	n := 0
	for _, s := range sessions {
		if s.Panel.Snapshot().Running {
			n++
		}
	}
	return n
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Stop cancels every run and closes all sessions.
func (m *Manager) Stop() {
	m.cancel()
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()
	for _, s := range sessions {
		s.Panel.Close()
	}
	if m.metrics != nil {
		m.metrics.Sessions.Set(0)
	}
}
