package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
)

// HTTPTestHelper drives a handler in-process with httptest recorders.
type HTTPTestHelper struct {
	Handler http.Handler
	// RemoteAddr, when set, is used as the client address of every request.
	RemoteAddr string
}

// NewHTTPTestHelper wraps handler.
func NewHTTPTestHelper(handler http.Handler) *HTTPTestHelper {
	return &HTTPTestHelper{Handler: handler}
}

// MakeRequest sends body (JSON-encoded when non-nil) to path.
func (h *HTTPTestHelper) MakeRequest(method, path string, body interface{}) *httptest.ResponseRecorder {
	return h.MakeRequestWithHeaders(method, path, body, nil)
}

// MakeRequestWithHeaders is MakeRequest with extra request headers.
func (h *HTTPTestHelper) MakeRequestWithHeaders(method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			panic(fmt.Sprintf("testutil: encode request body: %v", err))
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if h.RemoteAddr != "" {
		req.RemoteAddr = h.RemoteAddr
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	rr := httptest.NewRecorder()
	h.Handler.ServeHTTP(rr, req)
	return rr
}

// ParseJSONResponse decodes the recorded body into target.
func ParseJSONResponse(rr *httptest.ResponseRecorder, target interface{}) error {
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		return fmt.Errorf("unexpected content type %q", ct)
	}
	return json.Unmarshal(rr.Body.Bytes(), target)
}

// AssertJSONResponse compares the recorded body with expected after
// normalizing both through encoding/json.
func AssertJSONResponse(rr *httptest.ResponseRecorder, expected interface{}) error {
	var actual interface{}
	if err := ParseJSONResponse(rr, &actual); err != nil {
		return err
	}

	expectedJSON, err := json.Marshal(expected)
	if err != nil {
		return err
	}
	var want interface{}
	if err := json.Unmarshal(expectedJSON, &want); err != nil {
		return err
	}

	if !reflect.DeepEqual(actual, want) {
		return fmt.Errorf("expected %s, got %s", expectedJSON, bytes.TrimSpace(rr.Body.Bytes()))
	}
	return nil
}
