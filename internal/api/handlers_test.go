package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/gorilla/websocket"
	"github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rada-ai/rada-vms/internal/api"
	"github.com/rada-ai/rada-vms/internal/auth"
	"github.com/rada-ai/rada-vms/internal/config"
	"github.com/rada-ai/rada-vms/internal/events"
	"github.com/rada-ai/rada-vms/internal/lifecycle"
	"github.com/rada-ai/rada-vms/internal/ratelimit"
	"github.com/rada-ai/rada-vms/internal/session"
	"github.com/rada-ai/rada-vms/internal/tokens"
)

var (
	userCols  = []string{"id", "email", "password_hash", "role", "school_id", "created_at"}
	eventCols = []string{"id", "camera_id", "event_type", "severity", "state", "ts_start", "ts_peak", "ts_end", "snapshot_path", "clip_path", "meta"}
)

type testEnv struct {
	handler http.Handler
	mock    sqlmock.Sqlmock
	redis   *miniredis.Miniredis
	tokens  *tokens.Manager
	hub     *events.Hub
	cfg     *config.Config
}

func newEnv(t *testing.T, mutate ...func(*config.Config)) *testEnv {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	cfg := config.Defaults()
	cfg.Server.MediaDir = t.TempDir()
	for _, m := range mutate {
		m(&cfg)
	}

	tm := tokens.NewManager("test-secret", time.Hour)
	hub := events.NewHub(8)
	svc := events.NewService(db, nil, hub)

	h := api.NewRouter(api.Deps{
		Config:    &cfg,
		DB:        db,
		Events:    svc,
		Hub:       hub,
		Tokens:    tm,
		Lockout:   session.NewLockout(client),
		Blacklist: auth.NewRedisBlacklist(client),
		Limiter:   ratelimit.NewLimiter(client, "salt"),
	})
	return &testEnv{handler: h, mock: mock, redis: mr, tokens: tm, hub: hub, cfg: &cfg}
}

func (e *testEnv) token(t *testing.T) string {
	t.Helper()
	tok, err := e.tokens.GenerateAccessToken("u_admin", "admin", nil)
	require.NoError(t, err)
	return tok
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	return w
}

func loginRequest(username, password string) *http.Request {
	form := url.Values{"username": {username}, "password": {password}}
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func authed(method, target, token string, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func TestLogin_Success(t *testing.T) {
	env := newEnv(t)
	hash, err := auth.HashPassword("admin123")
	require.NoError(t, err)

	env.mock.ExpectQuery("SELECT id, email, password_hash").
		WithArgs("admin@demo.local").
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow("u_admin", "admin@demo.local", hash, "admin", nil, time.Now()))

	w := env.do(loginRequest("admin@demo.local", "admin123"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp api.TokenResponse
	decode(t, w, &resp)
	assert.Equal(t, "bearer", resp.TokenType)

	claims, err := env.tokens.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u_admin", claims.UserID())
	assert.Equal(t, "admin", claims.Role)
	assert.NoError(t, env.mock.ExpectationsWereMet())
}

func TestLogin_WrongPasswordAndUnknownUserLookAlike(t *testing.T) {
	env := newEnv(t)
	hash, err := auth.HashPassword("admin123")
	require.NoError(t, err)

	env.mock.ExpectQuery("SELECT id, email, password_hash").
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow("u_admin", "admin@demo.local", hash, "admin", nil, time.Now()))
	wrong := env.do(loginRequest("admin@demo.local", "nope"))

	env.mock.ExpectQuery("SELECT id, email, password_hash").
		WillReturnRows(sqlmock.NewRows(userCols))
	unknown := env.do(loginRequest("ghost@demo.local", "nope"))

	assert.Equal(t, http.StatusUnauthorized, wrong.Code)
	assert.Equal(t, http.StatusUnauthorized, unknown.Code)
	assert.JSONEq(t, wrong.Body.String(), unknown.Body.String())
	assert.JSONEq(t, `{"error":"Invalid credentials"}`, wrong.Body.String())
}

func TestLogin_MissingFields(t *testing.T) {
	env := newEnv(t)
	w := env.do(loginRequest("admin@demo.local", ""))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestLogin_LockoutSkipsDatabase(t *testing.T) {
	env := newEnv(t)
	for i := 0; i < session.LockoutThreshold; i++ {
		env.mock.ExpectQuery("SELECT id, email, password_hash").
			WillReturnRows(sqlmock.NewRows(userCols))
		w := env.do(loginRequest("ghost@demo.local", "nope"))
		require.Equal(t, http.StatusUnauthorized, w.Code)
	}
	require.NoError(t, env.mock.ExpectationsWereMet())

	w := env.do(loginRequest("GHOST@demo.local", "anything"))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.NoError(t, env.mock.ExpectationsWereMet(), "locked login must not reach the users table")
}

func TestLogin_RateLimited(t *testing.T) {
	env := newEnv(t, func(c *config.Config) {
		c.RateLimit.Login = ratelimit.LimitConfig{Rate: 1, Window: time.Minute}
	})

	w := env.do(loginRequest("a@b.c", ""))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = env.do(loginRequest("a@b.c", ""))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	env := newEnv(t)
	for _, target := range []string{"/events", "/cameras", "/timeline/cam_1"} {
		w := env.do(httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code, target)
		assert.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"))
	}

	w := env.do(authed(http.MethodGet, "/events", "not-a-jwt", ""))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogout_RevokesToken(t *testing.T) {
	env := newEnv(t)
	tok := env.token(t)

	w := env.do(authed(http.MethodPost, "/auth/logout", tok, ""))
	require.Equal(t, http.StatusNoContent, w.Code)

	w = env.do(authed(http.MethodGet, "/cameras", tok, ""))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func ingest(env *testEnv, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/events/ingest", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return env.do(req)
}

const startBody = `{"event_id":"evt_0011223344","camera_id":"cam_1","event_type":"intrusion","severity":40,"state":"start","ts":"2025-03-01T08:00:00Z","meta":{"label":"person"}}`

func TestIngest_StartAppliesAndBroadcasts(t *testing.T) {
	env := newEnv(t)
	sub, cancel := env.hub.Subscribe()
	defer cancel()

	env.mock.ExpectQuery("SELECT EXISTS").WithArgs("cam_1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	env.mock.ExpectBegin()
	env.mock.ExpectQuery("FOR UPDATE").WillReturnRows(sqlmock.NewRows(eventCols))
	env.mock.ExpectExec("INSERT INTO events").WillReturnResult(sqlmock.NewResult(0, 1))
	env.mock.ExpectCommit()

	w := ingest(env, startBody)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"ok":true,"event_id":"evt_0011223344","state":"start"}`, w.Body.String())
	assert.NoError(t, env.mock.ExpectationsWereMet())

	select {
	case tr := <-sub:
		assert.Equal(t, "evt_0011223344", tr.EventID)
		assert.Equal(t, lifecycle.StateStart, tr.State)
	case <-time.After(time.Second):
		t.Fatal("transition not broadcast")
	}
}

func TestIngest_DuplicateStartNote(t *testing.T) {
	env := newEnv(t)
	ts := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

	env.mock.ExpectQuery("SELECT EXISTS").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	env.mock.ExpectBegin()
	env.mock.ExpectQuery("FOR UPDATE").
		WillReturnRows(sqlmock.NewRows(eventCols).
			AddRow("evt_0011223344", "cam_1", "intrusion", 40, "start", ts, ts, nil, nil, nil, []byte(`{}`)))
	env.mock.ExpectCommit()

	w := ingest(env, startBody)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok":true,"note":"already exists"}`, w.Body.String())
}

func TestIngest_ErrorMapping(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		cameraOK  *bool
		wantCode  int
		wantError string
	}{
		{"malformed json", `{"event_id":`, nil, http.StatusBadRequest, "Malformed JSON body"},
		{"wrong type", `{"severity":"high"}`, nil, http.StatusUnprocessableEntity, "validation failed"},
		{"missing fields", `{"event_id":"evt_1"}`, nil, http.StatusUnprocessableEntity, "validation failed"},
		{"unknown camera", strings.Replace(startBody, "cam_1", "cam_x", 1), boolp(false), http.StatusBadRequest, "Invalid camera_id"},
		{"bad state", strings.Replace(startBody, `"start"`, `"stop"`, 1), boolp(true), http.StatusBadRequest, "Invalid state (start/ongoing/peak/end)"},
		{"bad ts", strings.Replace(startBody, "2025-03-01T08:00:00Z", "yesterday", 1), boolp(true), http.StatusBadRequest, "Invalid ts format (expected ISO8601 ending with Z)"},
		{"empty camera", strings.Replace(startBody, `"cam_1"`, `""`, 1), boolp(false), http.StatusBadRequest, "Invalid camera_id"},
		{"empty state", strings.Replace(startBody, `"start"`, `""`, 1), boolp(true), http.StatusBadRequest, "Invalid state (start/ongoing/peak/end)"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			env := newEnv(t)
			if tc.cameraOK != nil {
				env.mock.ExpectQuery("SELECT EXISTS").
					WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(*tc.cameraOK))
			}
			w := ingest(env, tc.body)
			assert.Equal(t, tc.wantCode, w.Code, w.Body.String())

			var body map[string]any
			decode(t, w, &body)
			assert.Equal(t, tc.wantError, body["error"])
			assert.NoError(t, env.mock.ExpectationsWereMet())
		})
	}
}

func TestIngest_UnknownEventIs404(t *testing.T) {
	env := newEnv(t)
	env.mock.ExpectQuery("SELECT EXISTS").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	env.mock.ExpectBegin()
	env.mock.ExpectQuery("FOR UPDATE").WillReturnRows(sqlmock.NewRows(eventCols))
	env.mock.ExpectRollback()

	w := ingest(env, strings.Replace(startBody, `"start"`, `"peak"`, 1))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"event not found"}`, w.Body.String())
}

func boolp(v bool) *bool { return &v }

func TestListEvents_MediaURLs(t *testing.T) {
	env := newEnv(t)
	start := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	end := start.Add(20 * time.Second)

	env.mock.ExpectQuery("ORDER BY ts_start DESC LIMIT").WithArgs(events.DefaultListLimit).
		WillReturnRows(sqlmock.NewRows(eventCols).
			AddRow("evt_b", "cam_2", "loitering", 55, "end", end, start, end, "snapshots/evt_b.jpg", nil, nil).
			AddRow("evt_a", "cam_1", "intrusion", 20, "start", start, start, nil, nil, nil, []byte(`{"label":"person"}`)))

	w := env.do(authed(http.MethodGet, "/events", env.token(t), ""))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var out []api.EventOut
	decode(t, w, &out)
	require.Len(t, out, 2)

	require.NotNil(t, out[0].SnapshotURL)
	assert.Equal(t, "/media/snapshots/evt_b.jpg", *out[0].SnapshotURL)
	assert.Nil(t, out[0].ClipURL)
	require.NotNil(t, out[0].TsEnd)
	assert.Equal(t, "2025-03-01T08:00:20Z", *out[0].TsEnd)
	assert.JSONEq(t, `{}`, string(out[0].Meta))

	assert.Nil(t, out[1].SnapshotURL)
	assert.Nil(t, out[1].TsEnd)
	assert.JSONEq(t, `{"label":"person"}`, string(out[1].Meta))
	assert.NoError(t, env.mock.ExpectationsWereMet())
}

func TestListEvents_BadLimit(t *testing.T) {
	env := newEnv(t)
	w := env.do(authed(http.MethodGet, "/events?limit=ten", env.token(t), ""))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestTimeline(t *testing.T) {
	env := newEnv(t)
	start := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

	env.mock.ExpectQuery(`WHERE camera_id = \$1`).WithArgs("cam_3", 50).
		WillReturnRows(sqlmock.NewRows(eventCols).
			AddRow("evt_a", "cam_3", "intrusion", 20, "ongoing", start, start, nil, nil, nil, nil))

	w := env.do(authed(http.MethodGet, "/timeline/cam_3?limit=50", env.token(t), ""))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t,
		`[{"id":"evt_a","event_type":"intrusion","severity":20,"state":"ongoing","ts_start":"2025-03-01T08:00:00Z","ts_end":null}]`,
		w.Body.String())
}

func TestCameras_EmptyIsArray(t *testing.T) {
	env := newEnv(t)
	env.mock.ExpectQuery("FROM cameras").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "zone", "created_at"}))

	w := env.do(authed(http.MethodGet, "/cameras", env.token(t), ""))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestDevSeed_AlreadySeeded(t *testing.T) {
	env := newEnv(t)
	env.mock.ExpectBegin()
	env.mock.ExpectQuery("INSERT INTO users").WillReturnError(&pq.Error{Code: "23505"})
	env.mock.ExpectRollback()

	w := env.do(httptest.NewRequest(http.MethodPost, "/dev/seed", nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"ok":true,"note":"Already seeded"}`, w.Body.String())
}

func TestDevSeed_DisabledNotMounted(t *testing.T) {
	env := newEnv(t, func(c *config.Config) { c.Server.EnableDevSeed = false })
	w := env.do(httptest.NewRequest(http.MethodPost, "/dev/seed", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealth(t *testing.T) {
	env := newEnv(t)
	w := env.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok":true}`, w.Body.String())

	w = env.do(httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMedia_ServesFilesOnly(t *testing.T) {
	env := newEnv(t)
	root := env.cfg.Server.MediaDir
	require.NoError(t, os.MkdirAll(filepath.Join(root, "snapshots"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "snapshots", "evt_a.jpg"), []byte("jpegdata"), 0o644))

	w := env.do(httptest.NewRequest(http.MethodGet, "/media/snapshots/evt_a.jpg", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "jpegdata", w.Body.String())

	for _, target := range []string{
		"/media/snapshots/",
		"/media/snapshots/missing.jpg",
		"/media/..%2f..%2fetc%2fpasswd",
	} {
		w := env.do(httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, http.StatusNotFound, w.Code, target)
	}
}

func TestEventStream(t *testing.T) {
	env := newEnv(t)
	srv := httptest.NewServer(env.handler)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/events"

	_, resp, err := websocket.DefaultDialer.Dial(wsURL+"?token=bogus", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL+"?token="+env.token(t), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return env.hub.Subscribers() == 1 }, time.Second, 10*time.Millisecond)
	require.NoError(t, env.hub.Publish(context.Background(), events.Transition{
		EventID: "evt_ws", State: lifecycle.StatePeak, Severity: 80,
	}))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got map[string]any
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, "evt_ws", got["event_id"])
	assert.Equal(t, "peak", got["state"])
}
