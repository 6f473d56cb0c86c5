package events

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/rada-ai/rada-vms/internal/data"
	"github.com/rada-ai/rada-vms/internal/lifecycle"
	"github.com/rada-ai/rada-vms/internal/metrics"
)

const (
	DefaultListLimit     = 200
	MaxListLimit         = 500
	DefaultTimelineLimit = 300
	MaxTimelineLimit     = 1000
)

const NoteAlreadyExists = "already exists"

// Result is what a caller learns about one ingest request.
type Result struct {
	Applied bool
	EventID string
	State   lifecycle.State
	Note    string
}

type Service struct {
	db         *sql.DB
	cameras    CameraLookup
	publishers []Publisher
}

// NewService builds the ingestion service. A nil cameras lookup falls back to
// querying the cameras table directly.
func NewService(db *sql.DB, cameras CameraLookup, publishers ...Publisher) *Service {
	if cameras == nil {
		cameras = data.CameraModel{DB: db}
	}
	return &Service{
		db:         db,
		cameras:    cameras,
		publishers: publishers,
	}
}

// Ingest validates req and applies it to the stored event under a row lock.
// Every validation failure is reported before any row is touched.
func (s *Service) Ingest(ctx context.Context, req IngestRequest) (Result, error) {
	if err := req.Validate(); err != nil {
		metrics.RecordIngest(req.State, "invalid")
		return Result{}, err
	}

	ok, err := s.cameras.Exists(ctx, req.CameraID)
	if err != nil {
		return Result{}, fmt.Errorf("camera lookup: %w", err)
	}
	if !ok {
		metrics.RecordIngest(req.State, "invalid_reference")
		return Result{}, fmt.Errorf("%w: %q", ErrInvalidReference, req.CameraID)
	}

	state, err := lifecycle.ParseState(req.State)
	if err != nil {
		metrics.RecordIngest("unknown", "invalid_state")
		return Result{}, err
	}

	ts, err := lifecycle.ParseTimestamp(req.Timestamp)
	if err != nil {
		metrics.RecordIngest(req.State, "invalid_timestamp")
		return Result{}, err
	}

	in := lifecycle.Input{
		EventID:      req.EventID,
		CameraID:     req.CameraID,
		EventType:    req.EventType,
		Severity:     *req.Severity,
		State:        state,
		Timestamp:    ts,
		SnapshotPath: deref(req.SnapshotPath),
		ClipPath:     deref(req.ClipPath),
		Meta:         req.Meta,
	}

	start := time.Now()
	var (
		applied lifecycle.Event
		outcome lifecycle.Outcome
	)
	err = data.WithTx(ctx, s.db, func(tx data.DBTX) error {
		model := data.EventModel{DB: tx}

		current, err := model.GetForUpdate(ctx, in.EventID)
		if err != nil && !errors.Is(err, data.ErrRecordNotFound) {
			return err
		}

		next, oc, err := lifecycle.Apply(current, in)
		if err != nil {
			return err
		}
		applied, outcome = next, oc

		switch oc {
		case lifecycle.Created:
			if err := model.Insert(ctx, &next); err != nil {
				if errors.Is(err, data.ErrDuplicate) {
					return ErrConflict
				}
				return err
			}
		case lifecycle.Updated:
			return model.Update(ctx, &next)
		}
		return nil
	})
	metrics.IngestLatency.Observe(float64(time.Since(start).Milliseconds()))

	if errors.Is(err, ErrConflict) {
		outcome, err = lifecycle.AlreadyExists, nil
	}
	if err != nil {
		if errors.Is(err, lifecycle.ErrNotFound) {
			metrics.RecordIngest(string(state), "not_found")
			return Result{}, fmt.Errorf("%w: %q", lifecycle.ErrNotFound, in.EventID)
		}
		metrics.RecordIngest(string(state), "error")
		return Result{}, fmt.Errorf("ingest %s: %w", in.EventID, err)
	}

	metrics.RecordIngest(string(state), outcome.String())
	if outcome == lifecycle.AlreadyExists {
		return Result{EventID: in.EventID, State: state, Note: NoteAlreadyExists}, nil
	}

	log.Printf("[Ingest] %s %s cam=%s sev=%d", in.EventID, state, in.CameraID, applied.Severity)
	publishAll(ctx, s.publishers, Transition{
		EventID:   applied.ID,
		CameraID:  applied.CameraID,
		EventType: applied.EventType,
		Severity:  applied.Severity,
		State:     applied.State,
		Outcome:   outcome.String(),
		Timestamp: ts,
	})

	return Result{Applied: true, EventID: in.EventID, State: state}, nil
}

// ListRecent returns events newest first. limit <= 0 means the default; larger
// values are capped.
func (s *Service) ListRecent(ctx context.Context, limit int) ([]*lifecycle.Event, error) {
	return data.EventModel{DB: s.db}.ListRecent(ctx, clampLimit(limit, DefaultListLimit, MaxListLimit))
}

// Timeline returns one camera's events newest first.
func (s *Service) Timeline(ctx context.Context, cameraID string, limit int) ([]*lifecycle.Event, error) {
	return data.EventModel{DB: s.db}.ListByCamera(ctx, cameraID, clampLimit(limit, DefaultTimelineLimit, MaxTimelineLimit))
}

func (s *Service) ListCameras(ctx context.Context) ([]*data.Camera, error) {
	return data.CameraModel{DB: s.db}.List(ctx)
}

func clampLimit(limit, def, ceiling int) int {
	if limit <= 0 {
		return def
	}
	if limit > ceiling {
		return ceiling
	}
	return limit
}
