package api

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/rada-ai/rada-vms/internal/events"
	"github.com/rada-ai/rada-vms/internal/lifecycle"
	"github.com/rada-ai/rada-vms/internal/platform/paths"
)

const maxIngestBody = 1 << 20

type EventHandler struct {
	Service *events.Service
}

// EventOut is the dashboard view of an event. Media paths become URLs.
type EventOut struct {
	ID          string          `json:"id"`
	CameraID    string          `json:"camera_id"`
	EventType   string          `json:"event_type"`
	Severity    int             `json:"severity"`
	State       string          `json:"state"`
	TsStart     string          `json:"ts_start"`
	TsPeak      *string         `json:"ts_peak"`
	TsEnd       *string         `json:"ts_end"`
	SnapshotURL *string         `json:"snapshot_url"`
	ClipURL     *string         `json:"clip_url"`
	Meta        json.RawMessage `json:"meta"`
}

type TimelineEntry struct {
	ID        string  `json:"id"`
	EventType string  `json:"event_type"`
	Severity  int     `json:"severity"`
	State     string  `json:"state"`
	TsStart   string  `json:"ts_start"`
	TsEnd     *string `json:"ts_end"`
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

func mediaURL(rel string) *string {
	return paths.MediaURL(&rel)
}

func toEventOut(e *lifecycle.Event) EventOut {
	meta := e.Meta
	if len(meta) == 0 || string(meta) == "null" {
		meta = json.RawMessage(`{}`)
	}
	return EventOut{
		ID:          e.ID,
		CameraID:    e.CameraID,
		EventType:   e.EventType,
		Severity:    e.Severity,
		State:       string(e.State),
		TsStart:     formatTime(e.TsStart),
		TsPeak:      formatTimePtr(e.TsPeak),
		TsEnd:       formatTimePtr(e.TsEnd),
		SnapshotURL: mediaURL(e.SnapshotPath),
		ClipURL:     mediaURL(e.ClipPath),
		Meta:        meta,
	}
}

// Ingest applies one lifecycle transition posted by a detector.
func (h *EventHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	var req events.IngestRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxIngestBody))
	if err := dec.Decode(&req); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			respondJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"error":  "validation failed",
				"detail": []events.FieldError{{Field: typeErr.Field, Message: "wrong type, expected " + typeErr.Type.String()}},
			})
			return
		}
		respondError(w, http.StatusBadRequest, "Malformed JSON body")
		return
	}

	res, err := h.Service.Ingest(r.Context(), req)
	if err != nil {
		h.ingestError(w, req, err)
		return
	}

	if !res.Applied {
		respondJSON(w, http.StatusOK, map[string]any{"ok": true, "note": res.Note})
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"ok": true, "event_id": res.EventID, "state": res.State})
}

func (h *EventHandler) ingestError(w http.ResponseWriter, req events.IngestRequest, err error) {
	var verr *events.ValidationError
	switch {
	case errors.As(err, &verr):
		respondJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":  "validation failed",
			"detail": verr.Fields,
		})
	case errors.Is(err, events.ErrInvalidReference):
		respondError(w, http.StatusBadRequest, "Invalid camera_id")
	case errors.Is(err, lifecycle.ErrInvalidState):
		respondError(w, http.StatusBadRequest, "Invalid state (start/ongoing/peak/end)")
	case errors.Is(err, lifecycle.ErrInvalidTimestamp):
		respondError(w, http.StatusBadRequest, "Invalid ts format (expected ISO8601 ending with Z)")
	case errors.Is(err, lifecycle.ErrNotFound):
		respondError(w, http.StatusNotFound, "event not found")
	default:
		log.Printf("[API] ingest %s failed: %v", req.EventID, err)
		respondError(w, http.StatusInternalServerError, "Internal error")
	}
}

// List returns recent events, newest first.
func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryLimit(r)
	if !ok {
		respondError(w, http.StatusUnprocessableEntity, "limit must be an integer")
		return
	}

	evs, err := h.Service.ListRecent(r.Context(), limit)
	if err != nil {
		log.Printf("[API] list events: %v", err)
		respondError(w, http.StatusInternalServerError, "Internal error")
		return
	}

	out := make([]EventOut, 0, len(evs))
	for _, e := range evs {
		out = append(out, toEventOut(e))
	}
	respondJSON(w, http.StatusOK, out)
}

// Timeline returns one camera's events, newest first.
func (h *EventHandler) Timeline(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryLimit(r)
	if !ok {
		respondError(w, http.StatusUnprocessableEntity, "limit must be an integer")
		return
	}

	evs, err := h.Service.Timeline(r.Context(), chi.URLParam(r, "camera_id"), limit)
	if err != nil {
		log.Printf("[API] timeline: %v", err)
		respondError(w, http.StatusInternalServerError, "Internal error")
		return
	}

	out := make([]TimelineEntry, 0, len(evs))
	for _, e := range evs {
		out = append(out, TimelineEntry{
			ID:        e.ID,
			EventType: e.EventType,
			Severity:  e.Severity,
			State:     string(e.State),
			TsStart:   formatTime(e.TsStart),
			TsEnd:     formatTimePtr(e.TsEnd),
		})
	}
	respondJSON(w, http.StatusOK, out)
}
