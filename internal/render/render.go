// Package render draws a static PNG snapshot of a panel view: the route,
// the traversed trail, numbered stops and the heading-rotated marker.
package render

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"math"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font/gofont/goregular"

	"trip-playback/internal/panel"
	"trip-playback/internal/route"
)

var (
	PathColor      = color.RGBA{0x00, 0x88, 0xFF, 0xFF}
	TrailColor     = color.RGBA{0xFF, 0x8C, 0x00, 0xFF}
	StopColor      = color.RGBA{0x33, 0x33, 0x33, 0xFF}
	HighlightColor = color.RGBA{0xE5, 0x39, 0x35, 0xFF}
	MarkerColor    = color.RGBA{0x1B, 0x5E, 0x20, 0xFF}
)

type Options struct {
	Width    int
	Height   int
	Padding  float64
	FontSize float64
}

func DefaultOptions() Options {
	return Options{Width: 800, Height: 600, Padding: 40, FontSize: 12}
}

var (
	fontOnce sync.Once
	goFont   *truetype.Font
	fontErr  error
)

func loadFont() (*truetype.Font, error) {
	fontOnce.Do(func() {
		goFont, fontErr = truetype.Parse(goregular.TTF)
	})
	return goFont, fontErr
}

// projection maps lat/lng onto the canvas with an equirectangular
// projection fitted to the bounding box of the drawn geometry.
type projection struct {
	minLat, minLng float64
	scale          float64
	kx             float64
	offX, offY     float64
	height         float64
}

func newProjection(points []route.LatLng, opts Options) projection {
	minLat, minLng := math.Inf(1), math.Inf(1)
	maxLat, maxLng := math.Inf(-1), math.Inf(-1)
	for _, p := range points {
		minLat, maxLat = math.Min(minLat, p.Lat), math.Max(maxLat, p.Lat)
		minLng, maxLng = math.Min(minLng, p.Lng), math.Max(maxLng, p.Lng)
	}
	if len(points) == 0 {
		minLat, maxLat, minLng, maxLng = 0, 0, 0, 0
	}
	kx := math.Cos((minLat + maxLat) / 2 * math.Pi / 180)
	spanX := (maxLng - minLng) * kx
	spanY := maxLat - minLat
	w := float64(opts.Width) - 2*opts.Padding
	h := float64(opts.Height) - 2*opts.Padding
	scale := math.Inf(1)
	if spanX > 0 {
		scale = w / spanX
	}
	if spanY > 0 {
		scale = math.Min(scale, h/spanY)
	}
	if math.IsInf(scale, 1) {
		scale = 1
	}
	return projection{
		minLat: minLat,
		minLng: minLng,
		scale:  scale,
		kx:     kx,
		offX:   opts.Padding + (w-spanX*scale)/2,
		offY:   opts.Padding + (h-spanY*scale)/2,
		height: float64(opts.Height),
	}
}

func (p projection) xy(lat, lng float64) (float64, float64) {
	x := p.offX + (lng-p.minLng)*p.kx*p.scale
	y := p.height - (p.offY + (lat-p.minLat)*p.scale)
	return x, y
}

// Draw renders v onto a new image.
func Draw(v panel.View, opts Options) (image.Image, error) {
	dc, err := draw(v, opts)
	if err != nil {
		return nil, err
	}
	return dc.Image(), nil
}

// PNG renders v and writes it to w as PNG.
func PNG(w io.Writer, v panel.View, opts Options) error {
	dc, err := draw(v, opts)
	if err != nil {
		return err
	}
	return dc.EncodePNG(w)
}

func draw(v panel.View, opts Options) (*gg.Context, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("invalid canvas size %dx%d", opts.Width, opts.Height)
	}
	f, err := loadFont()
	if err != nil {
		return nil, fmt.Errorf("load font: %w", err)
	}

	var bounds []route.LatLng
	for _, p := range v.Path {
		bounds = append(bounds, p.LatLng())
	}
	for _, s := range v.Stops {
		bounds = append(bounds, route.LatLng{Lat: s.Lat, Lng: s.Lng})
	}
	proj := newProjection(bounds, opts)

	dc := gg.NewContext(opts.Width, opts.Height)
	dc.SetColor(color.White)
	dc.Clear()

	// route
	drawLine(dc, proj, pathLatLng(v.Path), PathColor, 4)
	// traversed trail on top of the route
	drawLine(dc, proj, v.Trail, TrailColor, 5)

	dc.SetFontFace(truetype.NewFace(f, &truetype.Options{Size: opts.FontSize}))
	for _, s := range v.Stops {
		x, y := proj.xy(s.Lat, s.Lng)
		radius := 6.0
		fill := color.Color(StopColor)
		if s.Highlighted {
			radius = 10
			fill = HighlightColor
		}
		dc.SetColor(fill)
		dc.DrawCircle(x, y, radius)
		dc.Fill()
		dc.SetColor(color.White)
		dc.SetLineWidth(2)
		dc.DrawCircle(x, y, radius)
		dc.Stroke()
		dc.SetColor(color.Black)
		dc.DrawStringAnchored(s.Label, x, y-radius-4, 0.5, 0)
	}

	if v.Marker != nil {
		x, y := proj.xy(v.Marker.Lat, v.Marker.Lng)
		drawMarker(dc, x, y, v.Marker.Heading)
	}
	return dc, nil
}

func drawLine(dc *gg.Context, proj projection, pts []route.LatLng, c color.Color, width float64) {
	if len(pts) < 2 {
		return
	}
	dc.SetColor(c)
	dc.SetLineWidth(width)
	dc.SetLineCapRound()
	dc.SetLineJoinRound()
	for i, p := range pts {
		x, y := proj.xy(p.Lat, p.Lng)
		if i == 0 {
			dc.MoveTo(x, y)
		} else {
			dc.LineTo(x, y)
		}
	}
	dc.Stroke()
}

// drawMarker draws an arrow pointing along heading, in degrees clockwise
// from north.
func drawMarker(dc *gg.Context, x, y, heading float64) {
	dc.Push()
	dc.Translate(x, y)
	dc.Rotate(gg.Radians(heading))
	dc.MoveTo(0, -14)
	dc.LineTo(9, 10)
	dc.LineTo(0, 5)
	dc.LineTo(-9, 10)
	dc.ClosePath()
	dc.SetColor(MarkerColor)
	dc.FillPreserve()
	dc.SetColor(color.White)
	dc.SetLineWidth(2)
	dc.Stroke()
	dc.Pop()
}

func pathLatLng(path []route.PathPoint) []route.LatLng {
	out := make([]route.LatLng, len(path))
	for i, p := range path {
		out[i] = p.LatLng()
	}
	return out
}
