// Package frames holds the single-slot broadcast buffer between the frame
// producer and MJPEG viewers.
//
// Put never blocks and overwrites the previous frame. Readers always see the
// most recent frame; frames nobody read in time are simply lost.
package frames

import (
	"context"
	"sync"
	"time"
)

// Frame is one encoded JPEG plus its position in the stream. Data must not be
// modified after Put.
type Frame struct {
	Data      []byte
	Seq       uint64
	Timestamp time.Time
}

// Stats is a snapshot for health reporting. Seq doubles as the count of
// frames put so far.
type Stats struct {
	Seq     uint64
	LastPut time.Time
}

type Buffer struct {
	mu     sync.Mutex
	latest Frame
	// closed and replaced on every Put to wake all waiters at once
	notify chan struct{}
}

func NewBuffer() *Buffer {
	return &Buffer{notify: make(chan struct{})}
}

// Put stores data as the latest frame and wakes every waiter.
func (b *Buffer) Put(data []byte) {
	b.mu.Lock()
	b.latest = Frame{Data: data, Seq: b.latest.Seq + 1, Timestamp: time.Now()}
	wake := b.notify
	b.notify = make(chan struct{})
	b.mu.Unlock()

	close(wake)
}

// Get returns the latest frame bytes, or nil before the first Put.
func (b *Buffer) Get() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.latest.Data
}

// Latest returns the latest frame and whether one exists.
func (b *Buffer) Latest() (Frame, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.latest, b.latest.Seq > 0
}

// WaitForNext blocks until the next Put, the timeout, or ctx is done. It
// reports whether a new frame arrived.
func (b *Buffer) WaitForNext(ctx context.Context, timeout time.Duration) bool {
	b.mu.Lock()
	wake := b.notify
	b.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-wake:
		return true
	case <-timer.C:
		return false
	case <-ctx.Done():
		return false
	}
}

// WaitForSeq blocks until a frame newer than seq is available. The producer
// calls it with seq 0 to wait for its first frame.
func (b *Buffer) WaitForSeq(ctx context.Context, seq uint64, timeout time.Duration) (Frame, bool) {
	deadline := time.Now().Add(timeout)
	for {
		b.mu.Lock()
		f, wake := b.latest, b.notify
		b.mu.Unlock()

		if f.Seq > seq {
			return f, true
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return Frame{}, false
		}
		timer := time.NewTimer(remaining)
		select {
		case <-wake:
			timer.Stop()
		case <-timer.C:
			return Frame{}, false
		case <-ctx.Done():
			timer.Stop()
			return Frame{}, false
		}
	}
}

func (b *Buffer) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Stats{Seq: b.latest.Seq, LastPut: b.latest.Timestamp}
}
