package api

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"sync"

	"github.com/rada-ai/rada-vms/internal/auth"
	"github.com/rada-ai/rada-vms/internal/data"
	"github.com/rada-ai/rada-vms/internal/metrics"
	"github.com/rada-ai/rada-vms/internal/middleware"
	"github.com/rada-ai/rada-vms/internal/tokens"
)

// LockoutStore is satisfied by session.Lockout.
type LockoutStore interface {
	CheckLockout(ctx context.Context, username string) (bool, error)
	RecordFailedAttempt(ctx context.Context, username string) error
	Reset(ctx context.Context, username string) error
}

type AuthHandler struct {
	DB        *sql.DB
	Tokens    *tokens.Manager
	Lockout   LockoutStore       // optional
	Blacklist auth.TokenBlacklist // optional
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// dummyHash keeps unknown-user logins as slow as wrong-password ones.
var dummyHash = sync.OnceValue(func() string {
	h, _ := auth.HashPassword("rada-timing-equaliser")
	return h
})

// Login takes form fields username (the email) and password.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid form body")
		return
	}
	username := r.PostForm.Get("username")
	password := r.PostForm.Get("password")
	if username == "" || password == "" {
		respondJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":  "validation failed",
			"detail": "username and password are required",
		})
		return
	}
	ctx := r.Context()

	if h.Lockout != nil {
		locked, err := h.Lockout.CheckLockout(ctx, username)
		if err != nil {
			log.Printf("[Auth] lockout check failed: %v", err)
			h.genericError(w, "error")
			return
		}
		if locked {
			h.genericError(w, "locked")
			return
		}
	}

	user, err := data.UserModel{DB: h.DB}.GetByEmail(ctx, username)
	if errors.Is(err, data.ErrUserNotFound) {
		auth.CheckPassword(password, dummyHash())
		h.failWithLockout(w, r, username)
		return
	}
	if err != nil {
		log.Printf("[Auth] user lookup failed: %v", err)
		h.genericError(w, "error")
		return
	}

	match, err := auth.CheckPassword(password, user.PasswordHash)
	if err != nil || !match {
		h.failWithLockout(w, r, username)
		return
	}

	token, err := h.Tokens.GenerateAccessToken(user.ID, user.Role, user.SchoolID)
	if err != nil {
		log.Printf("[Auth] token generation failed: %v", err)
		respondError(w, http.StatusInternalServerError, "Internal error")
		return
	}

	if h.Lockout != nil {
		if err := h.Lockout.Reset(ctx, username); err != nil {
			log.Printf("[Auth] lockout reset failed: %v", err)
		}
	}
	metrics.RecordLogin("success")
	respondJSON(w, http.StatusOK, TokenResponse{AccessToken: token, TokenType: "bearer"})
}

// Logout revokes the presented token for the rest of its lifetime.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ac, ok := middleware.GetAuthContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Invalid token")
		return
	}

	if h.Blacklist != nil {
		claims, err := h.Tokens.ValidateToken(ac.Token)
		if err != nil {
			respondError(w, http.StatusUnauthorized, "Invalid token")
			return
		}
		if err := h.Blacklist.AddToBlacklist(r.Context(), claims.ID, h.Tokens.Remaining(claims)); err != nil {
			log.Printf("[Auth] blacklist write failed: %v", err)
			respondError(w, http.StatusServiceUnavailable, "Logout unavailable")
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) genericError(w http.ResponseWriter, result string) {
	metrics.RecordLogin(result)
	respondError(w, http.StatusUnauthorized, "Invalid credentials")
}

func (h *AuthHandler) failWithLockout(w http.ResponseWriter, r *http.Request, username string) {
	if h.Lockout != nil {
		if err := h.Lockout.RecordFailedAttempt(r.Context(), username); err != nil {
			log.Printf("[Auth] record failed attempt: %v", err)
		}
	}
	h.genericError(w, "failure")
}
