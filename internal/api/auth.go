package api

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"

	"github.com/FocuswithJustin/Granthalaya/internal/logging"
)

// MinAPIKeyLength is the shortest accepted admin key.
const MinAPIKeyLength = 16

// AuthConfig holds admin authentication configuration. With no keys the
// admin endpoints are disabled.
type AuthConfig struct {
	APIKeys []string
}

// Enabled reports whether any key is configured.
func (c AuthConfig) Enabled() bool { return len(c.APIKeys) > 0 }

// ValidateAuthConfig rejects keys that are too short to be secret.
func ValidateAuthConfig(cfg AuthConfig) error {
	for i, k := range cfg.APIKeys {
		if len(k) < MinAPIKeyLength {
			return fmt.Errorf("API key %d must be at least %d characters (got %d)", i+1, MinAPIKeyLength, len(k))
		}
	}
	return nil
}

// AuthMiddleware guards admin handlers. The key is read from X-API-Key or
// an "Authorization: Bearer" header.
func AuthMiddleware(cfg AuthConfig, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !cfg.Enabled() {
			logging.SecurityEvent("admin_disabled", "auth", "path", r.URL.Path)
			respondError(w, http.StatusForbidden, "FORBIDDEN", "Admin endpoints are disabled")
			return
		}

		key := requestAPIKey(r)
		if key == "" {
			logging.SecurityEvent("unauthorized_request", "auth",
				"path", r.URL.Path,
				"reason", "missing API key")
			respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Missing API key")
			return
		}
		if !matchesAny(key, cfg.APIKeys) {
			logging.SecurityEvent("unauthorized_request", "auth",
				"path", r.URL.Path,
				"reason", "invalid API key")
			respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid API key")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func requestAPIKey(r *http.Request) string {
	if k := r.Header.Get("X-API-Key"); k != "" {
		return k
	}
	if auth := r.Header.Get("Authorization"); len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}

// matchesAny compares key against every configured key in constant time.
func matchesAny(key string, keys []string) bool {
	ok := 0
	for _, k := range keys {
		ok |= subtle.ConstantTimeCompare([]byte(key), []byte(k))
	}
	return ok == 1
}
