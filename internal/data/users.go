package data

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrEmailDuplicate = errors.New("email already exists")
)

type User struct {
	ID           string
	Email        string
	PasswordHash string
	Role         string
	SchoolID     *string
	CreatedAt    time.Time
}

type UserModel struct {
	DB DBTX
}

// GetByEmail retrieves a user by login email
func (m UserModel) GetByEmail(ctx context.Context, email string) (*User, error) {
	query := `
		SELECT id, email, password_hash, role, school_id, created_at
		FROM users
		WHERE email = $1
	`
	var u User
	var schoolID sql.NullString
	err := m.DB.QueryRowContext(ctx, query, email).Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.Role, &schoolID, &u.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if schoolID.Valid {
		u.SchoolID = &schoolID.String
	}
	return &u, nil
}

func (m UserModel) Insert(ctx context.Context, u *User) error {
	if u.Role == "" {
		u.Role = "admin"
	}
	query := `
		INSERT INTO users (id, email, password_hash, role, school_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`
	err := m.DB.QueryRowContext(ctx, query, u.ID, u.Email, u.PasswordHash, u.Role, u.SchoolID).Scan(&u.CreatedAt)
	if isUniqueViolation(err) {
		return ErrEmailDuplicate
	}
	return err
}

// Any reports whether at least one user row exists.
func (m UserModel) Any(ctx context.Context) (bool, error) {
	var exists bool
	err := m.DB.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM users)`).Scan(&exists)
	return exists, err
}
