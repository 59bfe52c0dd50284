package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestRateLimitMiddleware(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	wrappedHandler := RateLimitMiddleware(5, 1*time.Minute, false, zap.NewNop())(handler)

	for i := 0; i < 5; i++ {
		req := httptest.NewRequest("GET", "/api/models/validate", nil)
		req.RemoteAddr = "127.0.0.1:12345"
		w := httptest.NewRecorder()

		wrappedHandler.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("Request %d: Expected status 200, got %d", i+1, w.Code)
		}
		if limit := w.Header().Get("X-RateLimit-Limit"); limit != "5" {
			t.Errorf("Request %d: Expected X-RateLimit-Limit '5', got '%s'", i+1, limit)
		}
	}

	// 6th request should be rate limited
	req := httptest.NewRequest("GET", "/api/models/validate", nil)
	req.RemoteAddr = "127.0.0.1:12345"
	w := httptest.NewRecorder()
	wrappedHandler.ServeHTTP(w, req)

	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("Expected status 429 (Too Many Requests), got %d", w.Code)
	}

	var body map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if body["error"] != "Rate limit exceeded" {
		t.Errorf("Expected error 'Rate limit exceeded', got %v", body["error"])
	}
	if _, ok := body["retry_after"]; !ok {
		t.Error("Expected retry_after field")
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("Expected Retry-After header")
	}

	// Other clients are unaffected
	other := httptest.NewRequest("GET", "/api/models/validate", nil)
	other.RemoteAddr = "10.0.0.2:4000"
	w = httptest.NewRecorder()
	wrappedHandler.ServeHTTP(w, other)
	if w.Code != http.StatusOK {
		t.Errorf("Expected other client to pass, got %d", w.Code)
	}
}

func TestRateLimitMiddleware_Disabled(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	wrapped := RateLimitMiddleware(0, time.Minute, false, zap.NewNop())(handler)

	for i := 0; i < 20; i++ {
		w := httptest.NewRecorder()
		wrapped.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("Request %d: expected 200, got %d", i+1, w.Code)
		}
	}
}

func TestRateLimitMiddleware_IgnoresSpoofedForwardedFor(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	wrapped := RateLimitMiddleware(2, time.Minute, false, zap.NewNop())(handler)

	limited := 0
	for i := 0; i < 50; i++ {
		req := httptest.NewRequest("POST", "/api/admin/verify", nil)
		req.RemoteAddr = "203.0.113.9:40000"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("10.1.%d.%d", i/256, i%256))
		req.Header.Set("X-Real-IP", fmt.Sprintf("10.2.%d.%d", i/256, i%256))
		w := httptest.NewRecorder()
		wrapped.ServeHTTP(w, req)
		if w.Code == http.StatusTooManyRequests {
			limited++
		}
	}

	if limited != 48 {
		t.Errorf("Expected 48 of 50 requests to be limited, got %d", limited)
	}
}

func TestRateLimitMiddleware_TrustedProxy(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	wrapped := RateLimitMiddleware(1, time.Minute, true, zap.NewNop())(handler)

	// Two clients behind the same proxy get separate budgets
	for _, client := range []string{"198.51.100.1", "198.51.100.2"} {
		req := httptest.NewRequest("GET", "/", nil)
		req.RemoteAddr = "127.0.0.1:9000"
		req.Header.Set("X-Forwarded-For", client)
		w := httptest.NewRecorder()
		wrapped.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Errorf("Client %s: expected 200, got %d", client, w.Code)
		}
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		trustProxy bool
		want       string
	}{
		{"remote addr with port", "192.168.1.10:5555", nil, false, "192.168.1.10"},
		{"ipv6 remote addr", "[::1]:8080", nil, false, "::1"},
		{"remote addr without port", "192.168.1.10", nil, false, "192.168.1.10"},
		{"forwarded for ignored", "127.0.0.1:1", map[string]string{"X-Forwarded-For": "203.0.113.5"}, false, "127.0.0.1"},
		{"real ip ignored", "127.0.0.1:1", map[string]string{"X-Real-IP": "198.51.100.7"}, false, "127.0.0.1"},
		{"trusted forwarded for list", "127.0.0.1:1", map[string]string{"X-Forwarded-For": "203.0.113.5, 10.0.0.1"}, true, "203.0.113.5"},
		{"trusted real ip", "127.0.0.1:1", map[string]string{"X-Real-IP": "198.51.100.7"}, true, "198.51.100.7"},
		{"trusted without headers", "192.168.1.10:5555", nil, true, "192.168.1.10"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := getClientIP(req, tt.trustProxy); got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}
