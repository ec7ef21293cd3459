// Package render draws receipts as shareable images. The printed invoice
// stays byte-oriented ESC/POS; this package produces the PNG twin that the
// POS shows on screen and forwards over WhatsApp.
package render

import (
	"image"
	"image/color"
	"os"

	"github.com/fogleman/gg"
)

// ShareWidth is the canvas width in pixels, matching 80mm paper at 203dpi.
const ShareWidth = 576

const initialHeight = 1000

// Font fallback chains. Linux paths first since the bridge runs on small
// Linux boxes; gg's built-in face covers hosts with none of these.
var regularFonts = []string{
	"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/truetype/liberation/LiberationSans-Regular.ttf",
	"/System/Library/Fonts/Helvetica.ttc",
	"/System/Library/Fonts/Supplemental/Arial.ttf",
}

var boldFonts = []string{
	"/usr/share/fonts/truetype/dejavu/DejaVuSans-Bold.ttf",
	"/usr/share/fonts/truetype/liberation/LiberationSans-Bold.ttf",
	"/System/Library/Fonts/Supplemental/Arial Bold.ttf",
}

// canvas is a grow-as-needed drawing surface. It starts at a guessed height
// and doubles when content runs past the bottom; crop trims the excess.
type canvas struct {
	width  int
	height int
	ctx    *gg.Context
	y      float64
	margin float64
}

func newCanvas(width int) *canvas {
	ctx := gg.NewContext(width, initialHeight)
	ctx.SetColor(color.White)
	ctx.Clear()
	ctx.SetColor(color.Black)

	return &canvas{
		width:  width,
		height: initialHeight,
		ctx:    ctx,
		margin: 20,
	}
}

func (c *canvas) ensureHeight(needed int) {
	if int(c.y)+needed <= c.height {
		return
	}

	newHeight := c.height * 2
	if newHeight < int(c.y)+needed {
		newHeight = int(c.y) + needed + initialHeight
	}

	newCtx := gg.NewContext(c.width, newHeight)
	newCtx.SetColor(color.White)
	newCtx.Clear()
	newCtx.DrawImage(c.ctx.Image(), 0, 0)
	newCtx.SetColor(color.Black)

	c.ctx = newCtx
	c.height = newHeight
}

// setFace loads a system font at the given size. Bold falls through to the
// regular chain, and everything falls through to gg's default face.
func (c *canvas) setFace(size float64, bold bool) {
	chains := [][]string{regularFonts}
	if bold {
		chains = [][]string{boldFonts, regularFonts}
	}
	for _, chain := range chains {
		for _, path := range chain {
			if _, err := os.Stat(path); err != nil {
				continue
			}
			if err := c.ctx.LoadFontFace(path, size); err == nil {
				return
			}
		}
	}
}

type alignment int

const (
	alignLeft alignment = iota
	alignCenter
	alignRight
)

func (c *canvas) text(s string, size float64, bold bool, align alignment) {
	c.setFace(size, bold)
	w, h := c.ctx.MeasureString(s)

	var x float64
	switch align {
	case alignCenter:
		x = float64(c.width)/2 - w/2
	case alignRight:
		x = float64(c.width) - w - c.margin
	default:
		x = c.margin
	}

	c.ensureHeight(int(h) + 20)
	c.ctx.DrawString(s, x, c.y+h)
	c.y += h + 10
}

// kv draws a label against a right-aligned value on the same baseline,
// the image counterpart of the printed two-column line.
func (c *canvas) kv(label, value string, size float64, bold bool) {
	c.setFace(size, bold)
	vw, h := c.ctx.MeasureString(value)

	c.ensureHeight(int(h) + 20)
	c.ctx.DrawString(label, c.margin, c.y+h)
	c.ctx.DrawString(value, float64(c.width)-vw-c.margin, c.y+h)
	c.y += h + 10
}

// rule draws the dashed divider used between receipt blocks.
func (c *canvas) rule() {
	c.ensureHeight(15)

	y := c.y + 7
	x1 := c.margin
	x2 := float64(c.width) - c.margin

	c.ctx.SetLineWidth(2)
	dashLength := 10.0
	gapLength := 5.0
	x := x1
	for x < x2 {
		endX := x + dashLength
		if endX > x2 {
			endX = x2
		}
		c.ctx.DrawLine(x, y, endX, y)
		c.ctx.Stroke()
		x += dashLength + gapLength
	}

	c.y += 15
}

func (c *canvas) feed(lines int) {
	c.y += float64(lines) * 20
}

// drawImage centers img on the canvas at the current position.
func (c *canvas) drawImage(img image.Image) {
	h := img.Bounds().Dy()
	c.ensureHeight(h + 20)

	x := (c.width - img.Bounds().Dx()) / 2
	c.ctx.DrawImage(img, x, int(c.y))
	c.y += float64(h) + 10
}

// crop trims the canvas to the drawn content plus a small bottom margin.
func (c *canvas) crop() image.Image {
	finalHeight := int(c.y) + 50
	if finalHeight > c.height {
		finalHeight = c.height
	}

	img := c.ctx.Image()
	return img.(interface {
		SubImage(r image.Rectangle) image.Image
	}).SubImage(image.Rect(0, 0, c.width, finalHeight))
}
