package api

import (
	"log"
	"net/http"

	"github.com/rada-ai/rada-vms/internal/data"
	"github.com/rada-ai/rada-vms/internal/events"
)

type CameraHandler struct {
	Service *events.Service
}

func (h *CameraHandler) List(w http.ResponseWriter, r *http.Request) {
	cams, err := h.Service.ListCameras(r.Context())
	if err != nil {
		log.Printf("[API] list cameras: %v", err)
		respondError(w, http.StatusInternalServerError, "Internal error")
		return
	}
	if cams == nil {
		cams = []*data.Camera{}
	}
	respondJSON(w, http.StatusOK, cams)
}
