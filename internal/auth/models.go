package auth

import (
	"time"
)

// VerifyRequest represents an admin token verification request.
// A missing token is not a validation error; it fails verification with 401.
type VerifyRequest struct {
	Token string `json:"token" validate:"omitempty,max=512"`
}

// VerifyResponse is returned after a successful verification
type VerifyResponse struct {
	Success      bool      `json:"success"`
	SessionToken string    `json:"session_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
