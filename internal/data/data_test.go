package data_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rada-ai/rada-vms/internal/data"
	"github.com/rada-ai/rada-vms/internal/lifecycle"
)

var eventCols = []string{"id", "camera_id", "event_type", "severity", "state", "ts_start", "ts_peak", "ts_end", "snapshot_path", "clip_path", "meta"}

func TestEventModel_GetForUpdate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	start := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT (.+) FROM events WHERE id = \$1 FOR UPDATE`).
		WithArgs("ev1").
		WillReturnRows(sqlmock.NewRows(eventCols).
			AddRow("ev1", "cam_1", "intrusion", 40, "start", start, start, nil, "snapshots/ev1.jpg", nil, []byte(`{"label":"person"}`)))

	ev, err := data.EventModel{DB: db}.GetForUpdate(context.Background(), "ev1")
	require.NoError(t, err)
	assert.Equal(t, "cam_1", ev.CameraID)
	assert.Equal(t, lifecycle.StateStart, ev.State)
	assert.Equal(t, start, *ev.TsPeak)
	assert.Nil(t, ev.TsEnd)
	assert.Equal(t, "snapshots/ev1.jpg", ev.SnapshotPath)
	assert.Empty(t, ev.ClipPath)
	assert.JSONEq(t, `{"label":"person"}`, string(ev.Meta))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventModel_GetForUpdate_Missing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`FROM events WHERE id = \$1 FOR UPDATE`).
		WithArgs("nope").
		WillReturnRows(sqlmock.NewRows(eventCols))

	_, err = data.EventModel{DB: db}.GetForUpdate(context.Background(), "nope")
	assert.ErrorIs(t, err, data.ErrRecordNotFound)
}

func TestEventModel_InsertDuplicate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO events").WillReturnError(&pq.Error{Code: "23505"})

	ts := time.Now().UTC()
	err = data.EventModel{DB: db}.Insert(context.Background(), &lifecycle.Event{
		ID: "ev1", CameraID: "cam_1", EventType: "intrusion", State: lifecycle.StateStart, TsStart: ts, TsPeak: &ts,
	})
	assert.ErrorIs(t, err, data.ErrDuplicate)
}

func TestEventModel_UpdateWritesEmptyMetaAsObject(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ts := time.Now().UTC()
	mock.ExpectExec("UPDATE events").
		WithArgs("ev1", "end", 70, sqlmock.AnyArg(), sqlmock.AnyArg(), "snapshots/ev1.jpg", nil, []byte(`{}`)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = data.EventModel{DB: db}.Update(context.Background(), &lifecycle.Event{
		ID: "ev1", State: lifecycle.StateEnd, Severity: 70, TsPeak: &ts, TsEnd: &ts, SnapshotPath: "snapshots/ev1.jpg",
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventModel_ListRecent(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	t1 := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	t0 := t1.Add(-time.Hour)
	mock.ExpectQuery(`FROM events ORDER BY ts_start DESC LIMIT \$1`).
		WithArgs(2).
		WillReturnRows(sqlmock.NewRows(eventCols).
			AddRow("ev2", "cam_2", "loitering", 55, "ongoing", t1, t1, nil, nil, nil, nil).
			AddRow("ev1", "cam_1", "intrusion", 70, "end", t0, t0, t1, nil, "clips/ev1.mp4", []byte(`{}`)))

	events, err := data.EventModel{DB: db}.ListRecent(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "ev2", events[0].ID)
	assert.JSONEq(t, `{}`, string(events[0].Meta), "null meta reads back as an empty object")
	assert.Equal(t, "clips/ev1.mp4", events[1].ClipPath)
	require.NotNil(t, events[1].TsEnd)
}

func TestCameraModel_List(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`SELECT id, name, zone, created_at FROM cameras ORDER BY created_at ASC`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "zone", "created_at"}).
			AddRow("cam_1", "Gate", []byte(`{"type":"rect","x":0.1,"y":0.1,"w":0.8,"h":0.8}`), now).
			AddRow("cam_9", "Roof", nil, now))

	cams, err := data.CameraModel{DB: db}.List(context.Background())
	require.NoError(t, err)
	require.Len(t, cams, 2)
	require.NotNil(t, cams[0].Zone)
	assert.Equal(t, 0.8, cams[0].Zone.W)
	assert.Nil(t, cams[1].Zone)

	out, err := json.Marshal(cams[1])
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"cam_9","name":"Roof","zone":null}`, string(out))
}

func TestCameraModel_Exists(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT EXISTS`).WithArgs("cam_1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := data.CameraModel{DB: db}.Exists(context.Background(), "cam_1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestUserModel_GetByEmail_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("FROM users").WithArgs("ghost@rada.ai").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "password_hash", "role", "school_id", "created_at"}))

	_, err = data.UserModel{DB: db}.GetByEmail(context.Background(), "ghost@rada.ai")
	assert.ErrorIs(t, err, data.ErrUserNotFound)
}

func TestSeedDefaults(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO users").
		WithArgs(data.SeedAdminID, data.SeedAdminEmail, "hash", "admin", nil).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(now))
	for _, c := range data.DefaultCameras {
		mock.ExpectQuery("INSERT INTO cameras").
			WithArgs(c.ID, c.Name, sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(now))
	}
	mock.ExpectCommit()

	created, err := data.SeedDefaults(context.Background(), db, "hash")
	require.NoError(t, err)
	assert.True(t, created)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSeedDefaults_AlreadySeeded(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO users").WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	created, err := data.SeedDefaults(context.Background(), db, "hash")
	require.NoError(t, err)
	assert.False(t, created)
	assert.NoError(t, mock.ExpectationsWereMet())
}
