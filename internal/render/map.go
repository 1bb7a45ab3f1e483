package render

import (
	"errors"
	"fmt"
	"image/png"
	"io"
)

// Bounds of the projected area, in degrees.
const (
	mapMinLng = 110.0
	mapMaxLng = 157.0
	mapMinLat = -45.0
	mapMaxLat = -9.0
)

// Coarse coastline, (lng, lat).
var (
	mainland = [][2]float64{
		{113.6, -26.6}, {113.4, -22.3}, {114.2, -21.8}, {116.7, -20.6}, {121.0, -19.5},
		{122.2, -17.2}, {125.1, -14.6}, {127.1, -13.9}, {128.2, -14.9}, {129.6, -14.9},
		{130.3, -12.4}, {132.6, -11.5}, {136.9, -12.2}, {135.9, -13.7}, {135.4, -15.0},
		{140.2, -17.7}, {141.5, -13.5}, {142.5, -10.7}, {143.6, -14.2}, {145.4, -15.0},
		{146.3, -19.0}, {149.0, -21.0}, {153.1, -25.0}, {153.6, -28.6}, {153.0, -31.0},
		{151.3, -33.9}, {150.0, -37.5}, {146.3, -39.1}, {144.9, -37.9}, {143.5, -38.8},
		{140.6, -38.0}, {139.6, -36.1}, {138.1, -35.6}, {138.5, -34.3}, {137.7, -35.1},
		{136.8, -35.2}, {137.8, -33.0}, {137.2, -33.6}, {135.6, -34.9}, {134.2, -32.7},
		{131.3, -31.5}, {126.1, -32.3}, {123.6, -33.9}, {119.9, -34.0}, {117.9, -35.1},
		{115.0, -34.3}, {115.6, -33.3}, {115.7, -31.6}, {114.9, -29.5},
	}
	tasmania = [][2]float64{
		{144.6, -40.7}, {148.3, -40.9}, {148.3, -42.1}, {147.0, -43.6}, {145.2, -42.3},
	}
)

// Marker is a labelled point on the map. Offset nudges the label in degrees
// so neighbouring cities do not collide.
type Marker struct {
	Lat, Lng  float64
	OffsetLat float64
	OffsetLng float64
	Lines     []string
}

type Map struct {
	Title   string
	Markers []Marker
	Width   int
	Height  int
}

var ErrNoMarkers = errors.New("no markers to draw")

// Render writes the map as PNG.
func (m Map) Render(w io.Writer) error {
	if len(m.Markers) == 0 {
		return ErrNoMarkers
	}
	width, height := m.Width, m.Height
	if width <= 0 {
		width = 800
	}
	if height <= 0 {
		height = 700
	}

	c := newCanvas(width, height)
	const top = 40
	project := func(lng, lat float64) (float32, float32) {
		x := (lng - mapMinLng) / (mapMaxLng - mapMinLng) * float64(width)
		y := top + (mapMaxLat-lat)/(mapMaxLat-mapMinLat)*float64(height-top)
		return float32(x), float32(y)
	}

	for _, shape := range [][][2]float64{mainland, tasmania} {
		points := make([][2]float32, len(shape))
		for i, p := range shape {
			x, y := project(p[0], p[1])
			points[i] = [2]float32{x, y}
		}
		c.polygon(points, colorLand)
	}

	for _, mk := range m.Markers {
		x, y := project(mk.Lng+mk.OffsetLng, mk.Lat+mk.OffsetLat)
		c.label(int(x), int(y), mk.Lines)
	}

	c.centeredText(width/2, top/2+4, m.Title)

	if err := png.Encode(w, c.img); err != nil {
		return fmt.Errorf("encode map: %w", err)
	}
	return nil
}
