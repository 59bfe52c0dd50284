package auth

import (
	"crypto/subtle"
	"fmt"

	"github.com/openlaptop/viewer/internal/config"
	"golang.org/x/crypto/bcrypt"
)

// AdminVerifier compares candidate strings against the configured admin secret.
//
// With ADMIN_TOKEN_HASH set the candidate is checked against the bcrypt hash;
// otherwise it is compared to ADMIN_TOKEN in constant time.
type AdminVerifier struct {
	token []byte
	hash  []byte
}

// NewAdminVerifier creates a verifier from configuration
func NewAdminVerifier(cfg *config.Config) *AdminVerifier {
	return &AdminVerifier{
		token: []byte(cfg.Auth.AdminToken),
		hash:  []byte(cfg.Auth.AdminTokenHash),
	}
}

// Configured reports whether an admin secret exists at all
func (v *AdminVerifier) Configured() bool {
	return len(v.token) > 0 || len(v.hash) > 0
}

// Verify reports whether candidate matches the admin secret.
// It always returns false when no secret is configured.
func (v *AdminVerifier) Verify(candidate string) bool {
	if candidate == "" || !v.Configured() {
		return false
	}
	if len(v.hash) > 0 {
		return bcrypt.CompareHashAndPassword(v.hash, []byte(candidate)) == nil
	}
	return subtle.ConstantTimeCompare(v.token, []byte(candidate)) == 1
}

// HashAdminToken produces a bcrypt hash suitable for ADMIN_TOKEN_HASH
func HashAdminToken(token string, cost int) (string, error) {
	if token == "" {
		return "", fmt.Errorf("admin token must not be empty")
	}
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(token), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash admin token: %w", err)
	}
	return string(hash), nil
}
