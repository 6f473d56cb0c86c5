package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rada-ai/rada-vms/internal/auth"
	"github.com/rada-ai/rada-vms/internal/tokens"
)

type TokenValidator interface {
	ValidateToken(tokenString string) (*tokens.Claims, error)
}

type JWTAuth struct {
	tokens    TokenValidator
	blacklist auth.TokenBlacklist
}

func NewJWTAuth(t TokenValidator, b auth.TokenBlacklist) *JWTAuth {
	if b == nil {
		b = auth.NoopBlacklist{}
	}
	return &JWTAuth{tokens: t, blacklist: b}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", "Bearer")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": "Invalid token"})
}

// BearerToken extracts the token from an "Authorization: Bearer <t>" header.
func BearerToken(r *http.Request) (string, bool) {
	parts := strings.Fields(r.Header.Get("Authorization"))
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}

// Authenticate validates a raw token and checks revocation. Any failure,
// including a blacklist lookup error, is a rejection.
func (m *JWTAuth) Authenticate(r *http.Request, tokenString string) (*AuthContext, bool) {
	claims, err := m.tokens.ValidateToken(tokenString)
	if err != nil {
		return nil, false
	}

	blacklisted, err := m.blacklist.IsBlacklisted(r.Context(), claims.ID)
	if err != nil || blacklisted {
		return nil, false
	}

	return &AuthContext{
		UserID:   claims.UserID(),
		Role:     claims.Role,
		SchoolID: claims.SchoolID,
		TokenID:  claims.ID,
		Token:    tokenString,
	}, true
}

// Middleware verifies the JWT and injects AuthContext
func (m *JWTAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString, ok := BearerToken(r)
		if !ok {
			unauthorized(w)
			return
		}

		ac, ok := m.Authenticate(r, tokenString)
		if !ok {
			unauthorized(w)
			return
		}

		ctx := WithAuthContext(r.Context(), ac)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
