package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/openlaptop/viewer/internal/config"
)

const (
	// SessionIssuer is the issuer claim of every admin session token
	SessionIssuer = "openlaptop-viewer"
	// RoleAdmin is the only role a session can carry
	RoleAdmin = "admin"
)

// SessionClaims represents the JWT claims of an admin session
type SessionClaims struct {
	jwt.RegisteredClaims

	Role string `json:"role"`
}

// SessionService issues and validates admin session tokens.
// A session only records that the bearer presented the admin secret once.
type SessionService struct {
	secret    []byte
	expiry    time.Duration
	ephemeral bool
}

// NewSessionService creates a session service from configuration.
// Without SESSION_SECRET a random per-process secret is used, so sessions do
// not survive a restart.
func NewSessionService(cfg *config.Config) *SessionService {
	secret := []byte(cfg.Auth.SessionSecret)
	ephemeral := false
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			panic(fmt.Sprintf("auth: failed to generate session secret: %v", err))
		}
		ephemeral = true
	}

	expiry := cfg.Auth.SessionExpiration
	if expiry <= 0 {
		expiry = 8 * time.Hour
	}

	return &SessionService{
		secret:    secret,
		expiry:    expiry,
		ephemeral: ephemeral,
	}
}

// Ephemeral reports whether the signing secret was generated at startup
func (s *SessionService) Ephemeral() bool {
	return s.ephemeral
}

// Issue creates a new admin session token and returns it with its expiry time
func (s *SessionService) Issue() (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(s.expiry)

	tokenID, err := generateTokenID()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to generate token ID: %w", err)
	}

	claims := &SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    SessionIssuer,
			Subject:   RoleAdmin,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        tokenID,
		},
		Role: RoleAdmin,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, expiresAt, nil
}

// Validate validates a session token and returns its claims
func (s *SessionService) Validate(tokenString string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithIssuer(SessionIssuer))
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	if claims.Role != RoleAdmin {
		return nil, errors.New("invalid token role")
	}

	return claims, nil
}

// Expiry returns the lifetime of newly issued sessions
func (s *SessionService) Expiry() time.Duration {
	return s.expiry
}

func generateTokenID() (string, error) {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
