package render

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"strconv"
)

type Bar struct {
	Label string
	Value int64
}

// BarChart is a single-series vertical bar chart with integer values.
type BarChart struct {
	Title  string
	XLabel string
	YLabel string
	Bars   []Bar
	Notes  []string // printed under the chart
	Width  int
	Height int
}

var ErrNoData = errors.New("nothing to draw")

const (
	chartMarginLeft   = 70
	chartMarginRight  = 30
	chartMarginTop    = 50
	chartMarginBottom = 70
	maxTicks          = 10
)

// Render writes the chart as PNG.
func (bc BarChart) Render(w io.Writer) error {
	if len(bc.Bars) == 0 {
		return ErrNoData
	}
	width, height := bc.Width, bc.Height
	if width <= 0 {
		width = 800
	}
	if height <= 0 {
		height = 600
	}
	height += len(bc.Notes) * (lineHeight + 2)

	c := newCanvas(width, height)
	plot := image.Rect(
		chartMarginLeft,
		chartMarginTop,
		width-chartMarginRight,
		height-chartMarginBottom-len(bc.Notes)*(lineHeight+2),
	)

	var peak int64 = 1
	for _, b := range bc.Bars {
		peak = max(peak, b.Value)
	}
	step := tickStep(peak)
	top := ((peak + step - 1) / step) * step
	yFor := func(v int64) int {
		return plot.Max.Y - int(float64(v)/float64(top)*float64(plot.Dy()))
	}

	for v := int64(0); v <= top; v += step {
		y := yFor(v)
		c.fill(image.Rect(plot.Min.X, y, plot.Max.X, y+1), colorGrid)
		s := strconv.FormatInt(v, 10)
		c.text(plot.Min.X-8-textWidth(s), y+4, s)
	}

	slot := float64(plot.Dx()) / float64(len(bc.Bars))
	barWidth := max(1, int(slot*0.7))
	labelEvery := 1
	if widest := maxLabelWidth(bc.Bars) + 6; float64(widest) > slot {
		labelEvery = int(float64(widest)/slot) + 1
	}
	for i, b := range bc.Bars {
		cx := plot.Min.X + int(slot*float64(i)+slot/2)
		c.fill(image.Rect(cx-barWidth/2, yFor(b.Value), cx-barWidth/2+barWidth, plot.Max.Y), colorBar)
		if i%labelEvery == 0 {
			c.centeredText(cx, plot.Max.Y+lineHeight+4, b.Label)
		}
	}

	c.fill(image.Rect(plot.Min.X, plot.Min.Y, plot.Min.X+1, plot.Max.Y+1), colorAxis)
	c.fill(image.Rect(plot.Min.X, plot.Max.Y, plot.Max.X, plot.Max.Y+1), colorAxis)

	c.centeredText(width/2, chartMarginTop/2+4, bc.Title)
	c.centeredText(plot.Min.X+plot.Dx()/2, plot.Max.Y+2*lineHeight+16, bc.XLabel)
	c.text(8, chartMarginTop-12, bc.YLabel)
	for i, note := range bc.Notes {
		c.text(chartMarginLeft, plot.Max.Y+chartMarginBottom+i*(lineHeight+2), note)
	}

	if err := png.Encode(w, c.img); err != nil {
		return fmt.Errorf("encode chart: %w", err)
	}
	return nil
}

// tickStep picks a 1-2-5 spacing that gives at most maxTicks gridlines.
func tickStep(peak int64) int64 {
	for mult := int64(1); ; mult *= 10 {
		for _, base := range []int64{1, 2, 5} {
			if step := base * mult; peak/step <= maxTicks {
				return step
			}
		}
	}
}

func maxLabelWidth(bars []Bar) int {
	widest := 0
	for _, b := range bars {
		widest = max(widest, textWidth(b.Label))
	}
	return widest
}
