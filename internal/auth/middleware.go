package auth

import (
	"context"
	"net/http"
	"strings"
)

// ContextKey is a type for context keys
type ContextKey string

const (
	// SessionKey is the context key for validated session claims
	SessionKey ContextKey = "session"

	// AdminTokenHeader carries the raw admin secret for script callers
	AdminTokenHeader = "X-Admin-Token"
)

// RequireAdmin allows the request through when it carries either a valid
// session token (Authorization: Bearer) or the admin secret in X-Admin-Token.
func (h *Handlers) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token := r.Header.Get(AdminTokenHeader); token != "" {
			if !h.verifier.Verify(token) {
				h.sendError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
			next.ServeHTTP(w, r)
			return
		}

		tokenString, ok := bearerToken(r)
		if !ok {
			h.sendError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		claims, err := h.sessions.Validate(tokenString)
		if err != nil {
			h.sendError(w, http.StatusUnauthorized, "Invalid or expired session")
			return
		}

		ctx := context.WithValue(r.Context(), SessionKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetSession extracts session claims from request context.
// Requests authorized through X-Admin-Token carry no session.
func GetSession(r *http.Request) (*SessionClaims, bool) {
	claims, ok := r.Context().Value(SessionKey).(*SessionClaims)
	return claims, ok
}

// bearerToken extracts the token from "Authorization: Bearer <token>"
func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
