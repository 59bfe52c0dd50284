package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// Handlers handles admin authentication HTTP endpoints
type Handlers struct {
	verifier  *AdminVerifier
	sessions  *SessionService
	validator *validator.Validate
	log       *zap.Logger
}

// NewHandlers creates a new auth handlers instance
func NewHandlers(verifier *AdminVerifier, sessions *SessionService, log *zap.Logger) *Handlers {
	return &Handlers{
		verifier:  verifier,
		sessions:  sessions,
		validator: validator.New(),
		log:       log,
	}
}

// Verify checks a candidate admin token and opens a session on success
// POST /api/admin/verify
func (h *Handlers) Verify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.sendError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	if !h.verifier.Configured() {
		h.sendError(w, http.StatusInternalServerError, "Admin token not configured")
		return
	}

	var req VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		h.sendValidationError(w, err)
		return
	}

	if !h.verifier.Verify(req.Token) {
		h.log.Warn("Admin verification failed", zap.String("remote_addr", r.RemoteAddr))
		h.sendError(w, http.StatusUnauthorized, "Invalid token")
		return
	}

	token, expiresAt, err := h.sessions.Issue()
	if err != nil {
		h.log.Error("Failed to issue admin session", zap.Error(err))
		h.sendError(w, http.StatusInternalServerError, "Failed to create session")
		return
	}

	h.log.Info("Admin session opened", zap.Time("expires_at", expiresAt))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(VerifyResponse{
		Success:      true,
		SessionToken: token,
		ExpiresAt:    expiresAt,
	}); err != nil {
		h.log.Warn("Failed to encode verify response", zap.Error(err))
	}
}

// Helper methods

func (h *Handlers) sendError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(ErrorResponse{Error: message}); err != nil {
		h.log.Warn("Failed to encode error response", zap.Error(err))
	}
}

func (h *Handlers) sendValidationError(w http.ResponseWriter, err error) {
	var validationErrors []string
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			validationErrors = append(validationErrors, fmt.Sprintf("%s: %s", fe.Field(), getValidationMessage(fe)))
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	if err := json.NewEncoder(w).Encode(ErrorResponse{
		Error:   "Invalid request",
		Details: strings.Join(validationErrors, "; "),
	}); err != nil {
		h.log.Warn("Failed to encode validation error", zap.Error(err))
	}
}

func getValidationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	default:
		return fmt.Sprintf("failed validation: %s", fe.Tag())
	}
}
