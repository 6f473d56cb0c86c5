package data

import (
	"context"
	"database/sql"
	"errors"
)

const (
	SeedAdminID       = "admin_1"
	SeedAdminEmail    = "admin@rada.ai"
	SeedAdminPassword = "admin123"
)

// DefaultCameras are the demo cameras created by the seed path, in creation order.
var DefaultCameras = []Camera{
	{ID: "cam_1", Name: "Gate", Zone: &Zone{Type: "rect", X: 0.1, Y: 0.1, W: 0.8, H: 0.8}},
	{ID: "cam_2", Name: "Yard", Zone: &Zone{Type: "rect", X: 0.2, Y: 0.2, W: 0.6, H: 0.6}},
	{ID: "cam_3", Name: "Hallway", Zone: &Zone{Type: "rect", X: 0.15, Y: 0.15, W: 0.7, H: 0.7}},
	{ID: "cam_4", Name: "Parking", Zone: &Zone{Type: "rect", X: 0.1, Y: 0.2, W: 0.7, H: 0.6}},
}

// SeedDefaults creates the admin user and the demo cameras in one transaction.
// It returns false with a nil error when the data already exists.
func SeedDefaults(ctx context.Context, db *sql.DB, adminPasswordHash string) (bool, error) {
	err := WithTx(ctx, db, func(tx DBTX) error {
		admin := &User{
			ID:           SeedAdminID,
			Email:        SeedAdminEmail,
			PasswordHash: adminPasswordHash,
			Role:         "admin",
		}
		if err := (UserModel{DB: tx}).Insert(ctx, admin); err != nil {
			return err
		}
		cams := CameraModel{DB: tx}
		for i := range DefaultCameras {
			c := DefaultCameras[i]
			if err := cams.Insert(ctx, &c); err != nil {
				return err
			}
		}
		return nil
	})
	if errors.Is(err, ErrDuplicate) || errors.Is(err, ErrEmailDuplicate) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
