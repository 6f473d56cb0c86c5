package overlay

import (
	"bytes"
	"image"
	"image/jpeg"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rada-ai/rada-vms/internal/render"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func newTestState(w, h int) (*DetectionState, *fakeClock) {
	clk := &fakeClock{t: time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)}
	return newDetectionState(w, h, rand.New(rand.NewPCG(7, 7)), clk.Now), clk
}

func TestDetectionState_CountsAndBounds(t *testing.T) {
	s, clk := newTestState(1280, 720)
	for i := 0; i < 100; i++ {
		clk.t = clk.t.Add(5 * time.Second)
		persons := s.Get()
		require.GreaterOrEqual(t, len(persons), 3)
		require.LessOrEqual(t, len(persons), 8)
		assert.LessOrEqual(t, render.CountPhones(persons), max(1, len(persons)/3))
		for _, p := range persons {
			assert.GreaterOrEqual(t, p.X1, 10)
			assert.GreaterOrEqual(t, p.Y1, render.HeaderBand)
		}
	}
}

func TestDetectionState_NudgeBetweenRefreshes(t *testing.T) {
	s, clk := newTestState(1280, 720)
	before := s.Get()

	clk.t = clk.t.Add(100 * time.Millisecond)
	after := s.Get()
	require.Len(t, after, len(before))
	for i := range before {
		assert.LessOrEqual(t, abs(after[i].X1-before[i].X1), 2)
		assert.LessOrEqual(t, abs(after[i].Y1-before[i].Y1), 1)
		assert.Equal(t, before[i].Width(), after[i].Width())
		assert.Equal(t, before[i].Height(), after[i].Height())
		assert.Equal(t, before[i].HasPhone, after[i].HasPhone)
	}
}

func TestDetectionState_GetReturnsCopy(t *testing.T) {
	s, _ := newTestState(640, 360)
	got := s.Get()
	got[0].X1 = -999
	assert.NotEqual(t, -999, s.Get()[0].X1)
}

func testJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h)), nil))
	return buf.Bytes()
}

func TestApply_DrawsAndKeepsSize(t *testing.T) {
	state, _ := newTestState(640, 360)
	o := NewWithState("Gate (cam_1)", state)
	in := testJPEG(t, 640, 360)

	out := o.Apply(in)
	assert.NotEqual(t, in, out)

	img, err := jpeg.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 640, img.Bounds().Dx())
	assert.Equal(t, 360, img.Bounds().Dy())
}

func TestApply_UndecodableFramePassesThrough(t *testing.T) {
	o := New("", 640)
	in := []byte{0xff, 0xd8, 0x00, 0xff, 0xd9}
	assert.Equal(t, in, o.Apply(in))
	assert.Equal(t, DefaultCamera, o.camera)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
