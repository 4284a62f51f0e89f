package panel

import (
	"trip-playback/internal/notify"
	"trip-playback/internal/playback"
	"trip-playback/internal/route"
	"trip-playback/internal/selection"
)

// View is everything a renderer needs to draw the panel. The marker heading
// is bound to the marker rotation by the renderer.
type View struct {
	ID           string            `json:"id"`
	Route        string            `json:"route"`
	State        playback.State    `json:"state"`
	Running      bool              `json:"running"`
	StartEnabled bool              `json:"startEnabled"`
	Speed        float64           `json:"speed"`
	MinSpeed     float64           `json:"minSpeed"`
	MaxSpeed     float64           `json:"maxSpeed"`
	Center       route.LatLng      `json:"center"`
	Path         []route.PathPoint `json:"path"`
	Stops        []StopView        `json:"stops"`
	Trail        []route.LatLng    `json:"trail"`
	Marker       *Marker           `json:"marker,omitempty"`
	Elapsed      float64           `json:"elapsed"`
	Total        float64           `json:"total"`
	Progress     float64           `json:"progress"`
	Selected     *selection.Detail `json:"selected,omitempty"`
	Notice       *notify.Notice    `json:"notice,omitempty"`
}

type StopView struct {
	route.Stop
	Label       string `json:"label"`
	Highlighted bool   `json:"highlighted"`
}

type Marker struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Heading float64 `json:"heading"`
}

func (p *Panel) View() View {
	s := p.engine.Snapshot()
	p.mu.Lock()
	stops := p.input.Stops.Data
	center := p.center
	p.mu.Unlock()

	v := View{
		ID:           p.id,
		Route:        p.routeName,
		State:        s.State,
		Running:      s.Running,
		StartEnabled: !s.Running,
		Speed:        s.Speed,
		MinSpeed:     p.minSpeed,
		MaxSpeed:     p.maxSpeed,
		Center:       center,
		Path:         p.engine.Path(),
		Stops:        make([]StopView, 0, len(stops)),
		Trail:        s.Trail(),
		Elapsed:      s.Elapsed,
		Total:        s.Total,
		Progress:     s.Progress(),
	}
	for i, st := range stops {
		v.Stops = append(v.Stops, StopView{Stop: st, Label: stopLabel(i), Highlighted: p.selector.IsHighlighted(st)})
	}
	if s.Position != nil {
		v.Marker = &Marker{Lat: s.Position.Lat, Lng: s.Position.Lng, Heading: s.Heading}
	}
	if d, ok := p.selector.Detail(); ok {
		v.Selected = &d
	}
	if n, ok := p.notices.Current(); ok {
		v.Notice = &n
	}
	return v
}
