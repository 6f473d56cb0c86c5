// Package relay streams the latest frames of a frames.Buffer to HTTP clients
// as multipart MJPEG.
package relay

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/rada-ai/rada-vms/internal/frames"
	"github.com/rada-ai/rada-vms/internal/metrics"
)

const Boundary = "frame"

// FrameSource is the read side of frames.Buffer.
type FrameSource interface {
	Latest() (frames.Frame, bool)
	WaitForNext(ctx context.Context, timeout time.Duration) bool
	Stats() frames.Stats
}

type Config struct {
	// EmptyWait bounds one wait for the first frame before re-checking.
	EmptyWait time.Duration
	// Pace is the pause between two writes to one viewer.
	Pace time.Duration
}

type Handler struct {
	src FrameSource
	cfg Config
}

func NewHandler(src FrameSource, cfg Config) *Handler {
	if cfg.EmptyWait <= 0 {
		cfg.EmptyWait = 2 * time.Second
	}
	if cfg.Pace <= 0 {
		cfg.Pace = 50 * time.Millisecond
	}
	return &Handler{src: src, cfg: cfg}
}

var partHeader = []byte("--" + Boundary + "\r\nContent-Type: image/jpeg\r\n\r\n")
var partTrailer = []byte("\r\n")

// ServeHTTP writes frames until the client goes away. A write error ends the
// stream without logging noise; producer trouble is never surfaced here.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary="+Boundary)
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)

	rc := http.NewResponseController(w)
	rc.Flush()

	metrics.RelayViewers.Inc()
	defer metrics.RelayViewers.Dec()

	ctx := r.Context()
	pace := time.NewTicker(h.cfg.Pace)
	defer pace.Stop()

	var written int
	for {
		if ctx.Err() != nil {
			break
		}

		frame, ok := h.src.Latest()
		if !ok {
			h.src.WaitForNext(ctx, h.cfg.EmptyWait)
			continue
		}

		if err := writePart(w, frame.Data); err != nil {
			break
		}
		if err := rc.Flush(); err != nil {
			break
		}
		written++
		metrics.RelayFramesWritten.Inc()

		select {
		case <-ctx.Done():
		case <-pace.C:
		}
	}
	log.Printf("[Relay] viewer %s left after %d frames", r.RemoteAddr, written)
}

func writePart(w http.ResponseWriter, data []byte) error {
	if _, err := w.Write(partHeader); err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	_, err := w.Write(partTrailer)
	return err
}
