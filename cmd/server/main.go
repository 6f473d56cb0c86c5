package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"

	"github.com/rada-ai/rada-vms/internal/api"
	"github.com/rada-ai/rada-vms/internal/auth"
	"github.com/rada-ai/rada-vms/internal/config"
	"github.com/rada-ai/rada-vms/internal/data"
	"github.com/rada-ai/rada-vms/internal/events"
	"github.com/rada-ai/rada-vms/internal/platform/paths"
	"github.com/rada-ai/rada-vms/internal/ratelimit"
	"github.com/rada-ai/rada-vms/internal/session"
	"github.com/rada-ai/rada-vms/internal/tokens"
)

func main() {
	cfgPath := flag.String("config", config.DefaultPath, "path to config yaml")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := paths.EnsureMediaDirs(cfg.Server.MediaDir); err != nil {
		log.Fatalf("Media dir init error: %v", err)
	}

	db, err := data.Open(ctx, cfg.Database.URL, cfg.Database.Pool)
	if err != nil {
		log.Fatalf("DB init error: %v", err)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := data.Migrate(db, cfg.Database.MigrationsDir); err != nil {
			log.Fatalf("Migration error: %v", err)
		}
	}

	deps := api.Deps{
		Config: cfg,
		DB:     db,
		Tokens: tokens.NewManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL()),
	}

	// Redis backs logout, lockout and rate limiting. Without it those degrade to no-ops.
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Printf("[Redis] ping failed, continuing: %v", err)
		}
		deps.Lockout = session.NewLockout(rdb)
		deps.Blacklist = auth.NewRedisBlacklist(rdb)
		deps.Limiter = ratelimit.NewLimiter(rdb, cfg.RateLimit.Salt)
	} else {
		log.Println("[Redis] not configured: logout revocation, lockout and rate limits disabled")
	}

	hub := events.NewHub(32)
	deps.Hub = hub
	publishers := []events.Publisher{hub}

	if cfg.NATS.URL != "" {
		nc, err := nats.Connect(cfg.NATS.URL,
			nats.Name("rada-api"),
			nats.MaxReconnects(-1),
			nats.ReconnectWait(2*time.Second),
		)
		if err != nil {
			log.Printf("[NATS] connect failed, transitions stay local: %v", err)
		} else {
			defer nc.Drain()
			publishers = append(publishers, events.NewNATSPublisher(nc, cfg.NATS.Subject, cfg.NATS.MaxRetries))
			log.Printf("[NATS] publishing transitions to %s", cfg.NATS.Subject)
		}
	}

	cameras := events.NewCameraCache(data.CameraModel{DB: db}, cfg.Cache.CameraMaxKeys, cfg.Cache.CameraTTL)
	deps.Events = events.NewService(db, cameras, publishers...)

	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           api.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Starting API server on :%s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutdown requested")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Graceful shutdown error: %v", err)
	}
	log.Println("Server stopped gracefully")
}
