// Package producer runs the decode source and feeds JPEG frames into the
// broadcast buffer. The source is restarted for as long as the context lives.
package producer

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/rada-ai/rada-vms/internal/frames"
	"github.com/rada-ai/rada-vms/internal/metrics"
)

var (
	ErrUnavailable = errors.New("ffmpeg produced no frames")
	errNoFrames    = errors.New("source ended without a frame")
)

const DefaultRestartDelay = time.Second

// Overlay rewrites a frame before it is published.
type Overlay interface {
	Apply(frame []byte) []byte
}

type Producer struct {
	src          Source
	buf          *frames.Buffer
	overlay      Overlay
	restartDelay time.Duration
}

// New builds a producer. overlay may be nil.
func New(src Source, buf *frames.Buffer, overlay Overlay, restartDelay time.Duration) *Producer {
	if restartDelay <= 0 {
		restartDelay = DefaultRestartDelay
	}
	return &Producer{src: src, buf: buf, overlay: overlay, restartDelay: restartDelay}
}

// Run blocks until ctx is done. A source that ends cleanly is reopened at
// once; one that fails is reopened after the restart delay.
func (p *Producer) Run(ctx context.Context) {
	log.Printf("[Producer] Starting (%v)", p.src)
	for {
		n, err := p.runOnce(ctx)
		if ctx.Err() != nil {
			log.Printf("[Producer] Stopped")
			return
		}

		if err == nil {
			metrics.RecordRestart("eof")
			continue
		}

		metrics.RecordRestart("error")
		log.Printf("[Producer] Source error after %d frames: %v", n, err)
		select {
		case <-ctx.Done():
			log.Printf("[Producer] Stopped")
			return
		case <-time.After(p.restartDelay):
		}
	}
}

func (p *Producer) runOnce(ctx context.Context) (int, error) {
	stream, err := p.src.Open(ctx)
	if err != nil {
		return 0, err
	}

	sc := bufio.NewScanner(stream)
	sc.Buffer(make([]byte, 0, 256<<10), MaxFrameBytes)
	sc.Split(ScanJPEG)

	n := 0
	for sc.Scan() {
		frame := bytes.Clone(sc.Bytes())
		if p.overlay != nil {
			frame = p.overlay.Apply(frame)
		}
		p.buf.Put(frame)
		metrics.ProducerFramesTotal.Inc()
		n++
	}

	scanErr := sc.Err()
	closeErr := stream.Close()
	if err := errors.Join(scanErr, closeErr); err != nil {
		return n, fmt.Errorf("read frames: %w", err)
	}
	if n == 0 {
		return 0, errNoFrames
	}
	return n, nil
}

// WaitFirstFrame blocks until the buffer holds a frame. It returns
// ErrUnavailable if none arrives within timeout.
func (p *Producer) WaitFirstFrame(ctx context.Context, timeout time.Duration) error {
	if _, ok := p.buf.WaitForSeq(ctx, 0, timeout); !ok {
		return ErrUnavailable
	}
	return nil
}
