package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// AuthConfig controls API key authentication. A plain key is compared in
// constant time; a bcrypt hash is preferred for deployments that keep the
// key out of config files. When both are empty, authentication is disabled.
type AuthConfig struct {
	APIKey     string
	APIKeyHash string
}

// Auth returns middleware that gates mutating requests behind an API key,
// read either from a Bearer token or the X-API-Key header. Read-only
// requests pass through so the market data surface stays public.
func Auth(cfg AuthConfig) func(http.Handler) http.Handler {
	enabled := cfg.APIKey != "" || cfg.APIKeyHash != ""

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !enabled || !mutating(r.Method) {
				next.ServeHTTP(w, r)
				return
			}

			token := extractToken(r)
			if token == "" {
				writeUnauthorized(w, "missing authentication token")
				return
			}
			if !validToken(cfg, token) {
				writeUnauthorized(w, "invalid authentication token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func mutating(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return false
	}
	return true
}

func validToken(cfg AuthConfig, token string) bool {
	if cfg.APIKeyHash != "" {
		return bcrypt.CompareHashAndPassword([]byte(cfg.APIKeyHash), []byte(token)) == nil
	}
	// Constant-time comparison to prevent timing attacks.
	return subtle.ConstantTimeCompare([]byte(token), []byte(cfg.APIKey)) == 1
}

// extractToken looks for a token in the Authorization header (Bearer
// scheme) or in the X-API-Key header.
func extractToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		parts := strings.SplitN(auth, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	if key := r.Header.Get("X-API-Key"); key != "" {
		return strings.TrimSpace(key)
	}
	return ""
}

// writeUnauthorized sends a 401 response with a JSON error body.
func writeUnauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"` + msg + `"}`))
}
