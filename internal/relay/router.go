package relay

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter serves every camera path from the same feed. No request timeout is
// applied since a stream lives as long as its viewer.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	r.Get("/cam_{n:[0-9]+}.mjpg", h.ServeHTTP)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		st := h.src.Stats()
		if st.Seq == 0 {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("no frames"))
			return
		}
		age := time.Since(st.LastPut).Truncate(time.Millisecond)
		fmt.Fprintf(w, "ok seq=%d age=%s", st.Seq, age)
	})
	r.Handle("/metrics", promhttp.Handler())
	return r
}
