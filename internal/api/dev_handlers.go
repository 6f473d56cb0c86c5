package api

import (
	"database/sql"
	"log"
	"net/http"

	"github.com/rada-ai/rada-vms/internal/auth"
	"github.com/rada-ai/rada-vms/internal/data"
)

// DevHandler exposes the demo seed. Only mounted when enabled in config.
type DevHandler struct {
	DB *sql.DB
}

func (h *DevHandler) Seed(w http.ResponseWriter, r *http.Request) {
	hash, err := auth.HashPassword(data.SeedAdminPassword)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Seed failed: "+err.Error())
		return
	}

	created, err := data.SeedDefaults(r.Context(), h.DB, hash)
	if err != nil {
		log.Printf("[Seed] failed: %v", err)
		respondError(w, http.StatusInternalServerError, "Seed failed: "+err.Error())
		return
	}
	if !created {
		respondJSON(w, http.StatusOK, map[string]any{"ok": true, "note": "Already seeded"})
		return
	}

	log.Printf("[Seed] created %s and %d cameras", data.SeedAdminEmail, len(data.DefaultCameras))
	respondJSON(w, http.StatusOK, map[string]any{
		"ok":    true,
		"admin": map[string]string{"email": data.SeedAdminEmail, "password": data.SeedAdminPassword},
	})
}
