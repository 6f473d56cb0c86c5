package lifecycle

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidState     = errors.New("invalid state (start/ongoing/peak/end)")
	ErrInvalidTimestamp = errors.New("invalid ts format (expected ISO8601 ending with Z)")
	ErrNotFound         = errors.New("event not found")
)

type State string

const (
	StateStart   State = "start"
	StateOngoing State = "ongoing"
	StatePeak    State = "peak"
	StateEnd     State = "end"
)

// ParseState accepts exactly the four lifecycle states.
func ParseState(s string) (State, error) {
	switch State(s) {
	case StateStart, StateOngoing, StatePeak, StateEnd:
		return State(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidState, s)
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	time.DateOnly,
}

// ParseTimestamp parses an ISO-8601 instant. A trailing Z or numeric offset is
// honoured; a naive value is read as UTC and a bare date as midnight UTC.
// Seconds may be omitted. The result is always UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrInvalidTimestamp
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTimestamp, s)
}

// Event is the persisted shape of one incident lifecycle.
type Event struct {
	ID           string
	CameraID     string
	EventType    string
	Severity     int
	State        State
	TsStart      time.Time
	TsPeak       *time.Time
	TsEnd        *time.Time
	SnapshotPath string
	ClipPath     string
	Meta         json.RawMessage
}

// Input is one validated transition request.
type Input struct {
	EventID      string
	CameraID     string
	EventType    string
	Severity     int
	State        State
	Timestamp    time.Time
	SnapshotPath string
	ClipPath     string
	// Meta is nil when the caller did not supply one. JSON null counts as absent.
	Meta json.RawMessage
}

type Outcome int

const (
	Created Outcome = iota
	Updated
	AlreadyExists
)

func (o Outcome) String() string {
	switch o {
	case Created:
		return "created"
	case Updated:
		return "updated"
	case AlreadyExists:
		return "already_exists"
	}
	return "unknown"
}

var emptyMeta = json.RawMessage(`{}`)

// MetaProvided reports whether raw carries a replacement meta object.
func MetaProvided(raw json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(raw))
	return trimmed != "" && trimmed != "null"
}

// Apply computes the next state of an event. current is nil when no row exists.
// When the outcome is AlreadyExists the returned event equals *current.
func Apply(current *Event, in Input) (Event, Outcome, error) {
	if in.State == StateStart {
		if current != nil {
			return *current, AlreadyExists, nil
		}
		ts := in.Timestamp
		meta := emptyMeta
		if MetaProvided(in.Meta) {
			meta = in.Meta
		}
		return Event{
			ID:           in.EventID,
			CameraID:     in.CameraID,
			EventType:    in.EventType,
			Severity:     in.Severity,
			State:        StateStart,
			TsStart:      ts,
			TsPeak:       &ts,
			SnapshotPath: in.SnapshotPath,
			ClipPath:     in.ClipPath,
			Meta:         meta,
		}, Created, nil
	}

	if current == nil {
		return Event{}, Updated, ErrNotFound
	}

	next := *current
	ts := in.Timestamp

	switch in.State {
	case StateOngoing, StatePeak:
		next.State = in.State
		next.Severity = max(current.Severity, in.Severity)
		next.TsPeak = &ts
	case StateEnd:
		next.State = StateEnd
		next.TsEnd = &ts
		if next.TsPeak == nil {
			next.TsPeak = &ts
		}
	default:
		return Event{}, Updated, fmt.Errorf("%w: %q", ErrInvalidState, in.State)
	}

	if in.SnapshotPath != "" {
		next.SnapshotPath = in.SnapshotPath
	}
	if in.ClipPath != "" {
		next.ClipPath = in.ClipPath
	}
	if MetaProvided(in.Meta) {
		next.Meta = in.Meta
	}
	return next, Updated, nil
}
