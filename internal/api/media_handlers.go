package api

import (
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"

	"github.com/rada-ai/rada-vms/internal/platform/paths"
)

// MediaHandler serves snapshots and clips from the media root. Directory
// listings are not served.
type MediaHandler struct {
	Root string
}

func (h *MediaHandler) Serve(w http.ResponseWriter, r *http.Request) {
	p, err := paths.SafeJoin(h.Root, chi.URLParam(r, "*"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	info, err := os.Stat(p)
	if err != nil || info.IsDir() {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Cache-Control", "public, max-age=60")
	http.ServeFile(w, r, p)
}
