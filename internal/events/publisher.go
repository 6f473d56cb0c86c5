package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/rada-ai/rada-vms/internal/lifecycle"
	"github.com/rada-ai/rada-vms/internal/metrics"
)

// Transition is the notification emitted after an applied ingest commits.
type Transition struct {
	EventID   string          `json:"event_id"`
	CameraID  string          `json:"camera_id"`
	EventType string          `json:"event_type"`
	Severity  int             `json:"severity"`
	State     lifecycle.State `json:"state"`
	Outcome   string          `json:"outcome"`
	Timestamp time.Time       `json:"ts"`
}

type Publisher interface {
	Name() string
	Publish(ctx context.Context, t Transition) error
}

// publishAll delivers t to every publisher. Failures are logged and counted.
func publishAll(ctx context.Context, pubs []Publisher, t Transition) {
	for _, p := range pubs {
		if err := p.Publish(ctx, t); err != nil {
			metrics.RecordPublishFailure(p.Name())
			log.Printf("[Ingest] publish to %s failed for %s: %v", p.Name(), t.EventID, err)
		}
	}
}

// NATSConn is the subset of *nats.Conn the publisher needs.
type NATSConn interface {
	Publish(subj string, data []byte) error
}

var _ NATSConn = (*nats.Conn)(nil)

type NATSPublisher struct {
	conn       NATSConn
	subject    string
	maxRetries int
	backoff    time.Duration
}

func NewNATSPublisher(conn NATSConn, subject string, maxRetries int) *NATSPublisher {
	return &NATSPublisher{
		conn:       conn,
		subject:    subject,
		maxRetries: maxRetries,
		backoff:    100 * time.Millisecond,
	}
}

func (p *NATSPublisher) Name() string { return "nats" }

func (p *NATSPublisher) Publish(ctx context.Context, t Transition) error {
	payload, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal error: %w", err)
	}

	for i := 0; i <= p.maxRetries; i++ {
		err = p.conn.Publish(p.subject, payload)
		if err == nil {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(i) * p.backoff):
		}
	}

	return fmt.Errorf("publish failed after %d retries: %w", p.maxRetries, err)
}
