package middleware

import (
	"fmt"
	"log"
	"net"
	"net/http"
	"strconv"

	"github.com/rada-ai/rada-vms/internal/ratelimit"
)

type RateLimitMiddleware struct {
	limiter *ratelimit.Limiter
}

func NewRateLimitMiddleware(l *ratelimit.Limiter) *RateLimitMiddleware {
	return &RateLimitMiddleware{limiter: l}
}

func clientIP(r *http.Request) string {
	// RealIP middleware has already folded X-Forwarded-For into RemoteAddr
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// PerIP limits requests per client address under scope. When Redis is down the
// request is rejected with 503 if failClosed is set, otherwise let through.
func (m *RateLimitMiddleware) PerIP(scope string, cfg ratelimit.LimitConfig, failClosed bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m == nil || m.limiter == nil || !cfg.Enabled() {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := fmt.Sprintf("rl:%s:%s", scope, m.limiter.HashIP(clientIP(r)))
			decision, err := m.limiter.CheckRateLimit(r.Context(), key, cfg)
			if err != nil {
				RecordRateLimit(scope, "error")
				if failClosed {
					log.Printf("[RateLimit] %s: redis error, failing closed: %v", scope, err)
					http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
					return
				}
				log.Printf("[RateLimit] %s: redis error, failing open: %v", scope, err)
				next.ServeHTTP(w, r)
				return
			}

			writeRateLimitHeaders(w, decision)
			if !decision.Allowed {
				RecordRateLimit(scope, "blocked")
				http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			RecordRateLimit(scope, "allowed")
			next.ServeHTTP(w, r)
		})
	}
}

func writeRateLimitHeaders(w http.ResponseWriter, d *ratelimit.Decision) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(d.Reset.Unix(), 10))
	if !d.Allowed {
		w.Header().Set("Retry-After", strconv.Itoa(d.RetryAfter))
	}
}
