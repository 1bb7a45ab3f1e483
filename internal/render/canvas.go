// Package render draws the PNG images served by the API: the statistics bar
// chart and the weather map.
package render

import (
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"
)

var (
	colorBackground = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	colorText       = color.RGBA{R: 0x22, G: 0x22, B: 0x22, A: 0xff}
	colorAxis       = color.RGBA{R: 0x55, G: 0x55, B: 0x55, A: 0xff}
	colorGrid       = color.RGBA{R: 0xe5, G: 0xe5, B: 0xe5, A: 0xff}
	colorBar        = color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff}
	colorLand       = color.RGBA{R: 0x3c, G: 0x9a, B: 0x3c, A: 0xff}
	colorLabelBox   = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xb3}
)

const lineHeight = 13

var face = basicfont.Face7x13

type canvas struct {
	img *image.RGBA
}

func newCanvas(width, height int) *canvas {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.NewUniform(colorBackground), image.Point{}, draw.Src)
	return &canvas{img: img}
}

func (c *canvas) fill(r image.Rectangle, col color.Color) {
	draw.Draw(c.img, r.Intersect(c.img.Bounds()), image.NewUniform(col), image.Point{}, draw.Over)
}

// polygon fills a closed path with the non-zero rule.
func (c *canvas) polygon(points [][2]float32, col color.Color) {
	if len(points) < 3 {
		return
	}
	b := c.img.Bounds()
	z := vector.NewRasterizer(b.Dx(), b.Dy())
	z.MoveTo(points[0][0], points[0][1])
	for _, p := range points[1:] {
		z.LineTo(p[0], p[1])
	}
	z.ClosePath()
	z.Draw(c.img, b, image.NewUniform(col), image.Point{})
}

func textWidth(s string) int {
	return font.MeasureString(face, s).Ceil()
}

// text draws s with its baseline at y, starting at x.
func (c *canvas) text(x, y int, s string) {
	d := font.Drawer{
		Dst:  c.img,
		Src:  image.NewUniform(colorText),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

func (c *canvas) centeredText(cx, y int, s string) {
	c.text(cx-textWidth(s)/2, y, s)
}

// label draws lines centred on (cx, cy) over a translucent box.
func (c *canvas) label(cx, cy int, lines []string) {
	width := 0
	for _, l := range lines {
		width = max(width, textWidth(l))
	}
	height := len(lines) * lineHeight
	top := cy - height/2
	c.fill(image.Rect(cx-width/2-3, top-2, cx+width/2+3, top+height+3), colorLabelBox)
	for i, l := range lines {
		c.centeredText(cx, top+(i+1)*lineHeight-2, l)
	}
}
