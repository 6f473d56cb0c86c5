package render

import (
	"bytes"
	"image/color"
	"image/jpeg"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanvas_RectOutline(t *testing.T) {
	c := NewCanvas(20, 20, ColorBG)
	c.Rect(2, 2, 10, 10, ColorPerson, 2)

	img := c.Image()
	assert.Equal(t, ColorPerson, img.RGBAAt(2, 2))
	assert.Equal(t, ColorPerson, img.RGBAAt(3, 6), "second stroke row")
	assert.Equal(t, ColorPerson, img.RGBAAt(10, 10))
	assert.Equal(t, ColorBG, img.RGBAAt(6, 6), "interior untouched")
	assert.Equal(t, ColorBG, img.RGBAAt(11, 11))
}

func TestCanvas_ClipsOutOfBounds(t *testing.T) {
	c := NewCanvas(10, 10, ColorBG)
	assert.NotPanics(t, func() {
		c.FillRect(-5, -5, 50, 50, ColorZone)
		c.Line(-10, 3, 30, 3, ColorZone, 3)
		c.Ellipse(-4, -4, 4, 4, ColorZone, 2)
		c.Text(8, 8, "clipped", ColorWhite)
	})
	assert.Equal(t, ColorZone, c.Image().RGBAAt(9, 0))
}

func TestCanvas_FillEllipse(t *testing.T) {
	c := NewCanvas(20, 20, ColorBG)
	c.FillEllipse(0, 0, 18, 18, ColorRec)
	assert.Equal(t, ColorRec, c.Image().RGBAAt(9, 9))
	assert.Equal(t, ColorBG, c.Image().RGBAAt(0, 0), "corner outside the ellipse")
}

func TestCanvas_EllipseOutlineIsHollow(t *testing.T) {
	c := NewCanvas(40, 40, ColorBG)
	c.Ellipse(0, 0, 38, 38, ColorPerson, 2)
	assert.Equal(t, ColorBG, c.Image().RGBAAt(19, 19))
	assert.Equal(t, ColorPerson, c.Image().RGBAAt(19, 0))
}

func TestCanvas_TextMarksPixels(t *testing.T) {
	c := NewCanvas(60, 20, color.RGBA{0, 0, 0, 255})
	c.Text(2, 2, "REC", ColorWhite)

	lit := 0
	for y := 0; y < 20; y++ {
		for x := 0; x < 60; x++ {
			if c.Image().RGBAAt(x, y).R > 0 {
				lit++
			}
		}
	}
	assert.Positive(t, lit)
	assert.Equal(t, 3*GlyphWidth, TextWidth("REC"))
}

func TestDrawPerson_PhoneInsideBox(t *testing.T) {
	c := NewCanvas(300, 400, ColorBG)
	p := Person{X1: 50, Y1: 150, X2: 140, Y2: 350, Conf: 0.9, HasPhone: true}
	c.DrawPerson(p, ColorPhone)

	assert.Equal(t, ColorPhone, c.Image().RGBAAt(50, 200))
	// phone box is centered horizontally at two thirds of the height
	found := false
	for x := p.X1 + 2; x < p.X2-2; x++ {
		if c.Image().RGBAAt(x, 150+200*2/3).R == ColorPhone.R {
			found = true
			break
		}
	}
	assert.True(t, found)
}

func TestSnapshot_DeterministicPerEvent(t *testing.T) {
	opts := SnapshotOptions{
		CameraName: "Gate (cam_1)",
		EventID:    "evt_abc123",
		Label:      "person",
		Confidence: 0.81,
		BBox:       [4]int{200, 200, 400, 500},
		Severity:   60,
		State:      "peak",
		Width:      320,
		Height:     240,
	}
	a, err := Snapshot(opts)
	require.NoError(t, err)
	b, err := Snapshot(opts)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	img, err := jpeg.Decode(bytes.NewReader(a))
	require.NoError(t, err)
	assert.Equal(t, 320, img.Bounds().Dx())
	assert.Equal(t, 240, img.Bounds().Dy())

	opts.EventID = "evt_other"
	c, err := Snapshot(opts)
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}

func TestSnapshot_DefaultSize(t *testing.T) {
	out, err := Snapshot(SnapshotOptions{EventID: "evt_1", State: "start"})
	require.NoError(t, err)
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 1280, cfg.Width)
	assert.Equal(t, 720, cfg.Height)
}

func TestScatterPersons_Bounds(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 50; i++ {
		persons := ScatterPersons(rng, 8, 2, 1280, 720)
		require.Len(t, persons, 8)
		assert.Equal(t, 2, CountPhones(persons))
		for _, p := range persons {
			assert.GreaterOrEqual(t, p.X1, 10)
			assert.GreaterOrEqual(t, p.Y1, HeaderBand)
			assert.GreaterOrEqual(t, p.Width(), 55)
			assert.LessOrEqual(t, p.Width(), 110)
			assert.GreaterOrEqual(t, p.Conf, 0.72)
			assert.LessOrEqual(t, p.Conf, 0.98)
		}
	}
}

func TestStateColor(t *testing.T) {
	assert.Equal(t, ColorPeak, StateColor("peak"))
	assert.Equal(t, ColorEnd, StateColor("end"))
	assert.Equal(t, ColorPerson, StateColor("ongoing"))
}
