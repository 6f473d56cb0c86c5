package data

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/rada-ai/rada-vms/internal/lifecycle"
)

const eventColumns = `id, camera_id, event_type, severity, state, ts_start, ts_peak, ts_end, snapshot_path, clip_path, meta`

type EventModel struct {
	DB DBTX
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*lifecycle.Event, error) {
	var (
		e        lifecycle.Event
		state    string
		tsPeak   sql.NullTime
		tsEnd    sql.NullTime
		snapshot sql.NullString
		clip     sql.NullString
		meta     []byte
	)
	err := row.Scan(&e.ID, &e.CameraID, &e.EventType, &e.Severity, &state,
		&e.TsStart, &tsPeak, &tsEnd, &snapshot, &clip, &meta)
	if err != nil {
		return nil, err
	}

	e.State = lifecycle.State(state)
	e.TsStart = e.TsStart.UTC()
	if tsPeak.Valid {
		t := tsPeak.Time.UTC()
		e.TsPeak = &t
	}
	if tsEnd.Valid {
		t := tsEnd.Time.UTC()
		e.TsEnd = &t
	}
	e.SnapshotPath = snapshot.String
	e.ClipPath = clip.String
	if len(meta) == 0 {
		meta = []byte(`{}`)
	}
	e.Meta = json.RawMessage(meta)
	return &e, nil
}

// GetForUpdate loads an event and locks its row until the surrounding
// transaction ends. Must be called with a *sql.Tx.
func (m EventModel) GetForUpdate(ctx context.Context, id string) (*lifecycle.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1 FOR UPDATE`
	e, err := scanEvent(m.DB.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, ErrRecordNotFound
	}
	return e, err
}

func (m EventModel) Insert(ctx context.Context, e *lifecycle.Event) error {
	query := `
		INSERT INTO events (` + eventColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := m.DB.ExecContext(ctx, query,
		e.ID, e.CameraID, e.EventType, e.Severity, string(e.State),
		e.TsStart, e.TsPeak, e.TsEnd, nullString(e.SnapshotPath), nullString(e.ClipPath), metaBytes(e.Meta),
	)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (m EventModel) Update(ctx context.Context, e *lifecycle.Event) error {
	query := `
		UPDATE events
		SET state = $2, severity = $3, ts_peak = $4, ts_end = $5,
		    snapshot_path = $6, clip_path = $7, meta = $8
		WHERE id = $1`
	res, err := m.DB.ExecContext(ctx, query,
		e.ID, string(e.State), e.Severity, e.TsPeak, e.TsEnd,
		nullString(e.SnapshotPath), nullString(e.ClipPath), metaBytes(e.Meta),
	)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// ListRecent returns the newest events by start time.
func (m EventModel) ListRecent(ctx context.Context, limit int) ([]*lifecycle.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events ORDER BY ts_start DESC LIMIT $1`
	return m.list(ctx, query, limit)
}

// ListByCamera returns one camera's events, newest first.
func (m EventModel) ListByCamera(ctx context.Context, cameraID string, limit int) ([]*lifecycle.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE camera_id = $1 ORDER BY ts_start DESC LIMIT $2`
	return m.list(ctx, query, cameraID, limit)
}

func (m EventModel) list(ctx context.Context, query string, args ...any) ([]*lifecycle.Event, error) {
	rows, err := m.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []*lifecycle.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func metaBytes(m json.RawMessage) []byte {
	if !lifecycle.MetaProvided(m) {
		return []byte(`{}`)
	}
	return []byte(m)
}
