package route

// LatLng is a raw route coordinate as supplied by the data source.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// PathPoint is a route coordinate annotated with the cumulative distance
// (meters) from the first point of the path.
type PathPoint struct {
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	Distance float64 `json:"distance"`
}

func (p PathPoint) LatLng() LatLng { return LatLng{Lat: p.Lat, Lng: p.Lng} }

// Stop is a point of interest along the route. Read-only to playback.
type Stop struct {
	ID  string  `json:"id"`
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// StopList mirrors the `stops` input shape, which wraps the records in `data`.
type StopList struct {
	Data []Stop `json:"data"`
}

// Input is what a panel receives from its data source.
type Input struct {
	Paths []LatLng `json:"paths"`
	Stops StopList `json:"stops"`
}
