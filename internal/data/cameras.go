package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"
)

// Zone is a camera's rectangular zone of interest in normalized coordinates.
type Zone struct {
	Type string  `json:"type"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	W    float64 `json:"w"`
	H    float64 `json:"h"`
}

type Camera struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Zone      *Zone     `json:"zone"`
	CreatedAt time.Time `json:"-"`
}

type CameraModel struct {
	DB DBTX
}

// Exists reports whether a camera with the given id is registered.
func (m CameraModel) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := m.DB.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM cameras WHERE id = $1)`, id).Scan(&exists)
	return exists, err
}

// List returns every camera, oldest first.
func (m CameraModel) List(ctx context.Context) ([]*Camera, error) {
	query := `SELECT id, name, zone, created_at FROM cameras ORDER BY created_at ASC, id ASC`
	rows, err := m.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cameras := []*Camera{}
	for rows.Next() {
		var c Camera
		var zone []byte
		if err := rows.Scan(&c.ID, &c.Name, &zone, &c.CreatedAt); err != nil {
			return nil, err
		}
		if len(zone) > 0 && string(zone) != "null" {
			var z Zone
			if err := json.Unmarshal(zone, &z); err == nil {
				c.Zone = &z
			}
		}
		cameras = append(cameras, &c)
	}
	return cameras, rows.Err()
}

// Insert registers a camera. Used by the seed path only.
func (m CameraModel) Insert(ctx context.Context, c *Camera) error {
	var zone any
	if c.Zone != nil {
		b, err := json.Marshal(c.Zone)
		if err != nil {
			return err
		}
		zone = b
	}

	query := `
		INSERT INTO cameras (id, name, zone)
		VALUES ($1, $2, $3)
		RETURNING created_at`
	err := m.DB.QueryRowContext(ctx, query, c.ID, c.Name, zone).Scan(&c.CreatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err == sql.ErrNoRows {
		return ErrRecordNotFound
	}
	return err
}
