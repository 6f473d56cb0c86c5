package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/rada-ai/rada-vms/internal/config"
	"github.com/rada-ai/rada-vms/internal/data"
	"github.com/rada-ai/rada-vms/internal/tokens"
)

// token_gen mints an access token with the configured secret, for curl and
// websocket testing without a login round trip.
func main() {
	cfgPath := flag.String("config", config.DefaultPath, "path to config yaml")
	userID := flag.String("user", data.SeedAdminID, "subject user id")
	role := flag.String("role", "admin", "role claim")
	school := flag.String("school", "", "school_id claim (empty for none)")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}

	var schoolID *string
	if *school != "" {
		schoolID = school
	}

	mgr := tokens.NewManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL())
	token, err := mgr.GenerateAccessToken(*userID, *role, schoolID)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(token)
}
