// Package render draws the detection overlays and synthetic snapshots onto
// RGBA images. Coordinates follow image conventions: x right, y down, and
// rectangles include both corners.
package render

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

var (
	ColorPerson   = color.RGBA{0, 210, 120, 255}
	ColorPhone    = color.RGBA{255, 60, 60, 255}
	ColorPeak     = color.RGBA{255, 180, 0, 255}
	ColorEnd      = color.RGBA{160, 160, 160, 255}
	ColorZone     = color.RGBA{80, 180, 255, 255}
	ColorHeader   = color.RGBA{10, 10, 12, 255}
	ColorGrid     = color.RGBA{24, 24, 30, 255}
	ColorBG       = color.RGBA{14, 14, 18, 255}
	ColorRec      = color.RGBA{220, 40, 40, 255}
	ColorLabelBG  = color.RGBA{0, 0, 0, 255}
	ColorPhoneBG  = color.RGBA{40, 0, 0, 255}
	ColorPhoneIn  = color.RGBA{200, 40, 40, 255}
	ColorWhite    = color.RGBA{255, 255, 255, 255}
	ColorDim      = color.RGBA{80, 80, 80, 255}
	ColorSubtitle = color.RGBA{180, 180, 180, 255}
	ColorMuted    = color.RGBA{120, 120, 120, 255}
)

// GlyphWidth is the advance of every glyph of the label face.
const GlyphWidth = 7

var face = basicfont.Face7x13

// Canvas is a mutable RGBA image with drawing helpers.
type Canvas struct {
	img *image.RGBA
}

func NewCanvas(w, h int, bg color.Color) *Canvas {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)
	return &Canvas{img: img}
}

// FromImage copies src into a new canvas.
func FromImage(src image.Image) *Canvas {
	b := src.Bounds()
	img := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(img, img.Bounds(), src, b.Min, draw.Src)
	return &Canvas{img: img}
}

func (c *Canvas) Image() *image.RGBA { return c.img }

func (c *Canvas) Width() int  { return c.img.Bounds().Dx() }
func (c *Canvas) Height() int { return c.img.Bounds().Dy() }

// FillRect fills the inclusive rectangle (x1,y1)-(x2,y2).
func (c *Canvas) FillRect(x1, y1, x2, y2 int, col color.Color) {
	r := image.Rect(min(x1, x2), min(y1, y2), max(x1, x2)+1, max(y1, y2)+1).Intersect(c.img.Bounds())
	if r.Empty() {
		return
	}
	draw.Draw(c.img, r, image.NewUniform(col), image.Point{}, draw.Over)
}

// Rect draws an outline of the given stroke width growing inward.
func (c *Canvas) Rect(x1, y1, x2, y2 int, col color.Color, width int) {
	if width < 1 {
		width = 1
	}
	x1, x2 = min(x1, x2), max(x1, x2)
	y1, y2 = min(y1, y2), max(y1, y2)
	for i := 0; i < width; i++ {
		if x1+i > x2-i || y1+i > y2-i {
			return
		}
		c.FillRect(x1+i, y1+i, x2-i, y1+i, col)
		c.FillRect(x1+i, y2-i, x2-i, y2-i, col)
		c.FillRect(x1+i, y1+i, x1+i, y2-i, col)
		c.FillRect(x2-i, y1+i, x2-i, y2-i, col)
	}
}

// Line draws a straight segment with a square brush.
func (c *Canvas) Line(x0, y0, x1, y1 int, col color.Color, width int) {
	if width < 1 {
		width = 1
	}
	half := (width - 1) / 2
	dx, dy := abs(x1-x0), -abs(y1-y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	e := dx + dy
	for {
		c.FillRect(x0-half, y0-half, x0-half+width-1, y0-half+width-1, col)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

// DashedLine draws dash-long segments separated by gap pixels.
func (c *Canvas) DashedLine(x0, y0, x1, y1 int, col color.Color, dash, gap int) {
	length := max(abs(x1-x0), abs(y1-y0))
	if length == 0 {
		return
	}
	step := dash + gap
	for off := 0; off <= length; off += step {
		t0 := float64(off) / float64(length)
		t1 := min(1, t0+float64(dash)/float64(length))
		c.Line(
			x0+int(float64(x1-x0)*t0), y0+int(float64(y1-y0)*t0),
			x0+int(float64(x1-x0)*t1), y0+int(float64(y1-y0)*t1),
			col, 1,
		)
	}
}

// Zone draws a dashed box with thick corner accents.
func (c *Canvas) Zone(x1, y1, x2, y2 int, col color.Color) {
	const dash, gap, corner = 12, 6, 14
	c.DashedLine(x1, y1, x2, y1, col, dash, gap)
	c.DashedLine(x2, y1, x2, y2, col, dash, gap)
	c.DashedLine(x2, y2, x1, y2, col, dash, gap)
	c.DashedLine(x1, y2, x1, y1, col, dash, gap)

	c.Line(x1, y1, x1+corner, y1, col, 3)
	c.Line(x1, y1, x1, y1+corner, col, 3)
	c.Line(x2, y1, x2-corner, y1, col, 3)
	c.Line(x2, y1, x2, y1+corner, col, 3)
	c.Line(x1, y2, x1+corner, y2, col, 3)
	c.Line(x1, y2, x1, y2-corner, col, 3)
	c.Line(x2, y2, x2-corner, y2, col, 3)
	c.Line(x2, y2, x2, y2-corner, col, 3)
	c.Text(x1+4, y1+4, "ZONE", col)
}

// Ellipse draws the outline of the ellipse inscribed in the bounding box.
func (c *Canvas) Ellipse(x1, y1, x2, y2 int, col color.Color, width int) {
	c.ellipse(x1, y1, x2, y2, col, float64(max(width, 1)))
}

// FillEllipse fills the ellipse inscribed in the bounding box.
func (c *Canvas) FillEllipse(x1, y1, x2, y2 int, col color.Color) {
	c.ellipse(x1, y1, x2, y2, col, 0)
}

func (c *Canvas) ellipse(x1, y1, x2, y2 int, col color.Color, stroke float64) {
	cx, cy := float64(x1+x2)/2, float64(y1+y2)/2
	rx, ry := float64(x2-x1)/2, float64(y2-y1)/2
	if rx <= 0 || ry <= 0 {
		return
	}
	src := image.NewUniform(col)
	for y := y1; y <= y2; y++ {
		for x := x1; x <= x2; x++ {
			nx, ny := (float64(x)-cx)/rx, (float64(y)-cy)/ry
			d := nx*nx + ny*ny
			if d > 1 {
				continue
			}
			if stroke > 0 {
				ix, iy := rx-stroke, ry-stroke
				if ix > 0 && iy > 0 {
					mx, my := (float64(x)-cx)/ix, (float64(y)-cy)/iy
					if mx*mx+my*my < 1 {
						continue
					}
				}
			}
			if (image.Point{X: x, Y: y}).In(c.img.Bounds()) {
				draw.Draw(c.img, image.Rect(x, y, x+1, y+1), src, image.Point{}, draw.Over)
			}
		}
	}
}

// Text draws s with its top-left corner at (x, y). Runes the face lacks are
// skipped.
func (c *Canvas) Text(x, y int, s string, col color.Color) {
	d := &font.Drawer{
		Dst:  c.img,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  fixed.P(x, y+face.Ascent),
	}
	d.DrawString(s)
}

// TextWidth is the pixel advance of s in the label face.
func TextWidth(s string) int {
	return font.MeasureString(face, s).Round()
}

// Label draws text on a filled chip sized like the overlay labels.
func (c *Canvas) Label(x, y int, s string, fg, bg color.Color) {
	c.FillRect(x, y, x+len(s)*GlyphWidth+6, y+16, bg)
	c.Text(x+3, y+2, s, fg)
}

// EncodeJPEG encodes the canvas at the given quality.
func (c *Canvas) EncodeJPEG(quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, c.img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
