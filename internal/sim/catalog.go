package sim

import (
	"fmt"
	"sort"
	"sync"

	"trip-playback/internal/route"
)

// Catalog holds the named route inputs sessions can be opened on.
type Catalog struct {
	mu     sync.RWMutex
	routes map[string]route.Input
}

func NewCatalog() *Catalog {
	return &Catalog{routes: make(map[string]route.Input)}
}

// Add registers a route. Routes need at least two points to be played back.
func (c *Catalog) Add(name string, in route.Input) error {
	if name == "" {
		return fmt.Errorf("route name is required")
	}
	if len(in.Paths) < 2 {
		return fmt.Errorf("route %q has %d points, need at least 2", name, len(in.Paths))
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.routes[name] = in
	return nil
}

func (c *Catalog) Get(name string) (route.Input, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	in, ok := c.routes[name]
	return in, ok
}

// Summary describes a catalog entry without its coordinates.
type Summary struct {
	Name   string  `json:"name"`
	Points int     `json:"points"`
	Stops  int     `json:"stops"`
	Length float64 `json:"length"`
}

func (c *Catalog) List() []Summary {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Summary, 0, len(c.routes))
	for name, in := range c.routes {
		out = append(out, Summary{
			Name:   name,
			Points: len(in.Paths),
			Stops:  len(in.Stops.Data),
			Length: route.Total(route.Annotate(in.Paths)),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Default returns the alphabetically first route name, or "" when empty.
func (c *Catalog) Default() string {
	list := c.List()
	if len(list) == 0 {
		return ""
	}
	return list[0].Name
}
