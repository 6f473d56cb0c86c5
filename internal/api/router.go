package api

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rada-ai/rada-vms/internal/auth"
	"github.com/rada-ai/rada-vms/internal/config"
	"github.com/rada-ai/rada-vms/internal/events"
	"github.com/rada-ai/rada-vms/internal/middleware"
	"github.com/rada-ai/rada-vms/internal/ratelimit"
	"github.com/rada-ai/rada-vms/internal/tokens"
)

// Deps are the collaborators the HTTP surface needs. Lockout, Blacklist and
// Limiter are nil when Redis is not configured.
type Deps struct {
	Config    *config.Config
	DB        *sql.DB
	Events    *events.Service
	Hub       *events.Hub
	Tokens    *tokens.Manager
	Lockout   LockoutStore
	Blacklist auth.TokenBlacklist
	Limiter   *ratelimit.Limiter
}

func NewRouter(d Deps) http.Handler {
	cfg := d.Config

	jwtAuth := middleware.NewJWTAuth(d.Tokens, d.Blacklist)
	var rl *middleware.RateLimitMiddleware
	if d.Limiter != nil {
		rl = middleware.NewRateLimitMiddleware(d.Limiter)
	}

	authH := &AuthHandler{DB: d.DB, Tokens: d.Tokens, Lockout: d.Lockout, Blacklist: d.Blacklist}
	eventH := &EventHandler{Service: d.Events}
	cameraH := &CameraHandler{Service: d.Events}
	healthH := &HealthHandler{DB: d.DB}
	mediaH := &MediaHandler{Root: cfg.Server.MediaDir}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.Metrics)
	r.Use(middleware.CORS(cfg.Server.AllowedOrigins))

	r.Get("/health", healthH.Health)
	r.Get("/health/ready", healthH.Ready)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/media/*", mediaH.Serve)

	if d.Hub != nil {
		ws := &EventStreamHandler{Auth: jwtAuth, Hub: d.Hub}
		r.Get("/ws/events", ws.ServeWS)
	}

	r.Group(func(r chi.Router) {
		timeout := cfg.Server.RequestTimeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		r.Use(chimiddleware.Timeout(timeout))

		r.With(rl.PerIP("login", cfg.RateLimit.Login, true)).Post("/auth/login", authH.Login)
		r.With(rl.PerIP("ingest", cfg.RateLimit.Ingest, false)).Post("/events/ingest", eventH.Ingest)

		if cfg.Server.EnableDevSeed {
			dev := &DevHandler{DB: d.DB}
			r.Post("/dev/seed", dev.Seed)
		}

		r.Group(func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Post("/auth/logout", authH.Logout)
			r.Get("/events", eventH.List)
			r.Get("/timeline/{camera_id}", eventH.Timeline)
			r.Get("/cameras", cameraH.List)
		})
	})

	return r
}
