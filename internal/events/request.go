package events

import (
	"bytes"
	"encoding/json"
	"strings"
)

// IngestRequest is the wire shape of POST /events/ingest.
type IngestRequest struct {
	EventID      string          `json:"event_id"`
	CameraID     string          `json:"camera_id"`
	EventType    string          `json:"event_type"`
	Severity     *int            `json:"severity"`
	State        string          `json:"state"`
	Timestamp    string          `json:"ts"`
	SnapshotPath *string         `json:"snapshot_path,omitempty"`
	ClipPath     *string         `json:"clip_path,omitempty"`
	Meta         json.RawMessage `json:"meta,omitempty"`
}

// Validate checks field presence and ranges. camera_id and state are left to
// Ingest, so an empty value fails the camera lookup or state parse with the
// same 400 as any other unknown value. Timestamp contents are parsed there too.
func (r *IngestRequest) Validate() error {
	var fields []FieldError
	required := func(name, v string) {
		if strings.TrimSpace(v) == "" {
			fields = append(fields, FieldError{Field: name, Message: "field required"})
		}
	}
	required("event_id", r.EventID)
	required("event_type", r.EventType)
	required("ts", r.Timestamp)

	switch {
	case r.Severity == nil:
		fields = append(fields, FieldError{Field: "severity", Message: "field required"})
	case *r.Severity < 0 || *r.Severity > 100:
		fields = append(fields, FieldError{Field: "severity", Message: "must be between 0 and 100"})
	}

	if meta := bytes.TrimSpace(r.Meta); len(meta) > 0 && !bytes.Equal(meta, []byte("null")) && meta[0] != '{' {
		fields = append(fields, FieldError{Field: "meta", Message: "must be an object"})
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
