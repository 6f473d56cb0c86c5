package events

import "errors"

var (
	ErrInvalidReference = errors.New("invalid camera_id")
	// ErrConflict is raised when a concurrent start wins the insert race. Ingest
	// reports it as the idempotent "already exists" outcome.
	ErrConflict = errors.New("event already exists")
)

// FieldError describes one request field that failed validation.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries every field problem found in a request.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	return "validation failed: " + e.Fields[0].Field + ": " + e.Fields[0].Message
}
