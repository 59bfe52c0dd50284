package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/openlaptop/viewer/internal/config"
)

func testSessionConfig() *config.Config {
	return &config.Config{
		Auth: config.AuthConfig{
			AdminToken:        "test_admin_token",
			SessionSecret:     "test_session_secret_key_32_bytes!!",
			SessionExpiration: 15 * time.Minute,
		},
	}
}

func TestSessionService_IssueAndValidate(t *testing.T) {
	service := NewSessionService(testSessionConfig())

	token, expiresAt, err := service.Issue()
	if err != nil {
		t.Fatalf("Issue() failed: %v", err)
	}
	if token == "" {
		t.Fatal("Issue() returned empty token")
	}
	if time.Until(expiresAt) > 15*time.Minute || time.Until(expiresAt) < 14*time.Minute {
		t.Errorf("Unexpected expiry %v", expiresAt)
	}

	claims, err := service.Validate(token)
	if err != nil {
		t.Fatalf("Validate() failed: %v", err)
	}
	if claims.Role != RoleAdmin {
		t.Errorf("Expected role %q, got %q", RoleAdmin, claims.Role)
	}
	if claims.Issuer != SessionIssuer {
		t.Errorf("Expected issuer %q, got %q", SessionIssuer, claims.Issuer)
	}
	if claims.ID == "" {
		t.Error("Expected token ID to be set")
	}
}

func TestSessionService_UniqueTokens(t *testing.T) {
	service := NewSessionService(testSessionConfig())

	first, _, err := service.Issue()
	if err != nil {
		t.Fatalf("Issue() failed: %v", err)
	}
	second, _, err := service.Issue()
	if err != nil {
		t.Fatalf("Issue() failed: %v", err)
	}
	if first == second {
		t.Error("Expected distinct tokens for distinct sessions")
	}
}

func TestSessionService_RejectsOtherSecret(t *testing.T) {
	service := NewSessionService(testSessionConfig())
	token, _, err := service.Issue()
	if err != nil {
		t.Fatalf("Issue() failed: %v", err)
	}

	other := testSessionConfig()
	other.Auth.SessionSecret = "a_completely_different_secret_value"
	if _, err := NewSessionService(other).Validate(token); err == nil {
		t.Error("Expected validation to fail with a different secret")
	}
}

func TestSessionService_RejectsExpired(t *testing.T) {
	cfg := testSessionConfig()
	service := NewSessionService(cfg)

	claims := &SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    SessionIssuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
		Role: RoleAdmin,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.Auth.SessionSecret))
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}

	if _, err := service.Validate(token); err == nil {
		t.Error("Expected validation to fail for expired token")
	}
}

func TestSessionService_RejectsWrongIssuer(t *testing.T) {
	cfg := testSessionConfig()
	service := NewSessionService(cfg)

	claims := &SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "someone-else",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Role: RoleAdmin,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.Auth.SessionSecret))
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}

	if _, err := service.Validate(token); err == nil {
		t.Error("Expected validation to fail for foreign issuer")
	}
}

func TestSessionService_EphemeralSecret(t *testing.T) {
	cfg := testSessionConfig()
	cfg.Auth.SessionSecret = ""

	service := NewSessionService(cfg)
	if !service.Ephemeral() {
		t.Error("Expected ephemeral secret when SESSION_SECRET is empty")
	}

	token, _, err := service.Issue()
	if err != nil {
		t.Fatalf("Issue() failed: %v", err)
	}
	if _, err := service.Validate(token); err != nil {
		t.Errorf("Validate() failed with ephemeral secret: %v", err)
	}
	if _, err := NewSessionService(cfg).Validate(token); err == nil {
		t.Error("Expected a second ephemeral service to reject the token")
	}
}

func TestSessionService_InvalidToken(t *testing.T) {
	service := NewSessionService(testSessionConfig())
	for _, token := range []string{"", "not-a-jwt", strings.Repeat("a.", 3)} {
		if _, err := service.Validate(token); err == nil {
			t.Errorf("Expected error for token %q", token)
		}
	}
}
