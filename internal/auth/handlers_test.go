package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/openlaptop/viewer/internal/config"
	"go.uber.org/zap"
)

func newTestHandlers(cfg *config.Config) *Handlers {
	return NewHandlers(NewAdminVerifier(cfg), NewSessionService(cfg), zap.NewNop())
}

func postVerify(h *Handlers, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/admin/verify", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.Verify(rr, req)
	return rr
}

func TestVerify(t *testing.T) {
	h := newTestHandlers(testSessionConfig())

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantError  string
	}{
		{"valid token", `{"token":"test_admin_token"}`, http.StatusOK, ""},
		{"wrong token", `{"token":"guess"}`, http.StatusUnauthorized, "Invalid token"},
		{"missing token", `{}`, http.StatusUnauthorized, "Invalid token"},
		{"empty token", `{"token":""}`, http.StatusUnauthorized, "Invalid token"},
		{"oversized token", `{"token":"` + strings.Repeat("x", 513) + `"}`, http.StatusBadRequest, "Invalid request"},
		{"malformed body", `{"token":`, http.StatusBadRequest, "Invalid request"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := postVerify(h, tt.body)
			if rr.Code != tt.wantStatus {
				t.Fatalf("Expected status %d, got %d: %s", tt.wantStatus, rr.Code, rr.Body.String())
			}
			if tt.wantError != "" {
				var resp ErrorResponse
				if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
					t.Fatalf("Failed to decode error: %v", err)
				}
				if resp.Error != tt.wantError {
					t.Errorf("Expected error %q, got %q", tt.wantError, resp.Error)
				}
				return
			}

			var resp VerifyResponse
			if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
			if !resp.Success || resp.SessionToken == "" {
				t.Errorf("Unexpected response: %+v", resp)
			}
		})
	}
}

func TestVerify_NotConfigured(t *testing.T) {
	h := newTestHandlers(&config.Config{})
	rr := postVerify(h, `{"token":"anything"}`)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("Expected status 500, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Admin token not configured") {
		t.Errorf("Unexpected body: %s", rr.Body.String())
	}
}

func TestVerify_MethodNotAllowed(t *testing.T) {
	h := newTestHandlers(testSessionConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/admin/verify", nil)
	rr := httptest.NewRecorder()
	h.Verify(rr, req)
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected status 405, got %d", rr.Code)
	}
}

func TestRequireAdmin(t *testing.T) {
	cfg := testSessionConfig()
	h := newTestHandlers(cfg)

	sessionToken, _, err := h.sessions.Issue()
	if err != nil {
		t.Fatalf("Issue() failed: %v", err)
	}

	var sawSession bool
	protected := h.RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, sawSession = GetSession(r)
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name        string
		headers     map[string]string
		wantStatus  int
		wantSession bool
	}{
		{"no credentials", nil, http.StatusUnauthorized, false},
		{"session token", map[string]string{"Authorization": "Bearer " + sessionToken}, http.StatusNoContent, true},
		{"malformed authorization", map[string]string{"Authorization": sessionToken}, http.StatusUnauthorized, false},
		{"garbage session", map[string]string{"Authorization": "Bearer nope"}, http.StatusUnauthorized, false},
		{"admin token header", map[string]string{AdminTokenHeader: "test_admin_token"}, http.StatusNoContent, false},
		{"wrong admin token header", map[string]string{AdminTokenHeader: "nope"}, http.StatusUnauthorized, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sawSession = false
			req := httptest.NewRequest(http.MethodPost, "/api/refresh", bytes.NewReader(nil))
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			rr := httptest.NewRecorder()
			protected.ServeHTTP(rr, req)

			if rr.Code != tt.wantStatus {
				t.Errorf("Expected status %d, got %d", tt.wantStatus, rr.Code)
			}
			if sawSession != tt.wantSession {
				t.Errorf("Expected session in context = %v, got %v", tt.wantSession, sawSession)
			}
		})
	}
}

func TestSecurityHeadersMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

	rr := httptest.NewRecorder()
	SecurityHeadersMiddleware(false)(next).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("Expected nosniff header")
	}
	if rr.Header().Get("Strict-Transport-Security") != "" {
		t.Error("Expected no HSTS outside production")
	}

	rr = httptest.NewRecorder()
	SecurityHeadersMiddleware(true)(next).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Header().Get("Strict-Transport-Security") == "" {
		t.Error("Expected HSTS in production")
	}
}
