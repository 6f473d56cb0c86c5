package overlay

import (
	"bytes"
	"fmt"
	"image/jpeg"

	"github.com/rada-ai/rada-vms/internal/metrics"
	"github.com/rada-ai/rada-vms/internal/render"
)

const (
	Quality       = 82
	DefaultCamera = "Gate (cam_1)"
	headerHeight  = 100
)

type Overlay struct {
	state  *DetectionState
	camera string
}

// New sizes the detection area for a 16:9 frame of the given width.
func New(camera string, width int) *Overlay {
	if camera == "" {
		camera = DefaultCamera
	}
	return &Overlay{state: NewDetectionState(width, width*9/16), camera: camera}
}

func NewWithState(camera string, state *DetectionState) *Overlay {
	return &Overlay{state: state, camera: camera}
}

// Apply decodes frame, draws the current detections and header, and
// re-encodes it. Frames that fail to decode or encode are returned unchanged.
func (o *Overlay) Apply(frame []byte) []byte {
	img, err := jpeg.Decode(bytes.NewReader(frame))
	if err != nil {
		metrics.OverlayFailuresTotal.Inc()
		return frame
	}
	c := render.FromImage(img)

	persons := o.state.Get()
	phones := render.CountPhones(persons)
	for _, p := range persons {
		col := render.ColorPerson
		if p.HasPhone {
			col = render.ColorPhone
		}
		c.DrawPerson(p, col)
	}
	o.drawHeader(c, len(persons), phones)

	out, err := c.EncodeJPEG(Quality)
	if err != nil {
		metrics.OverlayFailuresTotal.Inc()
		return frame
	}
	return out
}

func (o *Overlay) drawHeader(c *render.Canvas, persons, phones int) {
	w := c.Width()
	c.FillRect(0, 0, w, headerHeight, render.ColorHeader)
	c.Text(16, 10, "RADA AI v1  |  "+o.camera, render.ColorWhite)

	line, col := fmt.Sprintf("Persons: %d", persons), render.ColorPerson
	if phones > 0 {
		line += fmt.Sprintf("  ! %d phone(s) detected", phones)
		col = render.ColorPhone
	}
	c.Text(16, 36, line, col)
	c.Text(16, 62, "LIVE  -  MJPEG  -  SIMULATED FEED", render.ColorDim)

	c.FillEllipse(w-80, 14, w-62, 32, render.ColorRec)
	c.Text(w-56, 14, "REC", render.ColorRec)
}
