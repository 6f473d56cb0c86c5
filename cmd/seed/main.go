package main

import (
	"context"
	"flag"
	"log"

	"github.com/rada-ai/rada-vms/internal/auth"
	"github.com/rada-ai/rada-vms/internal/config"
	"github.com/rada-ai/rada-vms/internal/data"
)

// seed creates the demo admin and cameras without going through the API.
func main() {
	cfgPath := flag.String("config", config.DefaultPath, "path to config yaml")
	migrateFirst := flag.Bool("migrate", true, "apply pending migrations before seeding")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}

	ctx := context.Background()
	db, err := data.Open(ctx, cfg.Database.URL, cfg.Database.Pool)
	if err != nil {
		log.Fatalf("DB init error: %v", err)
	}
	defer db.Close()

	if *migrateFirst {
		if err := data.Migrate(db, cfg.Database.MigrationsDir); err != nil {
			log.Fatalf("Migration error: %v", err)
		}
	}

	hash, err := auth.HashPassword(data.SeedAdminPassword)
	if err != nil {
		log.Fatalf("Hash error: %v", err)
	}

	created, err := data.SeedDefaults(ctx, db, hash)
	if err != nil {
		log.Fatalf("Seed failed: %v", err)
	}
	if !created {
		log.Println("Already seeded")
		return
	}
	log.Printf("Seeded admin %s / %s and %d cameras", data.SeedAdminEmail, data.SeedAdminPassword, len(data.DefaultCameras))
}
