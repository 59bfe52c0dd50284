package compression

import (
	"bytes"
	"compress/gzip"
	"net/http/httptest"
	"testing"
)

func TestCompressRoundTrip(t *testing.T) {
	data := bytes.Repeat([]byte("glTF"), 1000)

	compressed, err := Compress(data, gzip.DefaultCompression)
	if err != nil {
		t.Fatalf("Compress failed: %v", err)
	}
	if len(compressed) >= len(data) {
		t.Errorf("Expected compressed size < %d, got %d", len(data), len(compressed))
	}

	out, err := Decompress(compressed)
	if err != nil {
		t.Fatalf("Decompress failed: %v", err)
	}
	if !bytes.Equal(out, data) {
		t.Error("Round trip mismatch")
	}
}

func TestCompress_InvalidLevel(t *testing.T) {
	if _, err := Compress([]byte("x"), 42); err == nil {
		t.Error("Expected error for invalid level")
	}
}

func TestDecompress_Invalid(t *testing.T) {
	if _, err := Decompress([]byte("not gzip")); err == nil {
		t.Error("Expected error for non-gzip data")
	}
}

func TestAcceptsGzip(t *testing.T) {
	tests := []struct {
		header string
		want   bool
	}{
		{"", false},
		{"gzip", true},
		{"deflate, gzip", true},
		{"br;q=1.0, GZIP;q=0.5", true},
		{"gzip;q=0", false},
		{"identity", false},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/models/virgo.glb", nil)
			if tt.header != "" {
				req.Header.Set("Accept-Encoding", tt.header)
			}
			if got := AcceptsGzip(req); got != tt.want {
				t.Errorf("AcceptsGzip(%q) = %v, want %v", tt.header, got, tt.want)
			}
		})
	}
}

func TestNegotiate(t *testing.T) {
	large := bytes.Repeat([]byte{0}, 4*MinSize)

	req := httptest.NewRequest("GET", "/models/virgo.glb", nil)
	req.Header.Set("Accept-Encoding", "gzip")

	body, encoding := Negotiate(req, large)
	if encoding != "gzip" {
		t.Fatalf("Expected gzip encoding, got %q", encoding)
	}
	if len(body) >= len(large) {
		t.Error("Expected compressed body")
	}

	small, encoding := Negotiate(req, []byte("tiny"))
	if encoding != "" || string(small) != "tiny" {
		t.Errorf("Expected small payload to pass through, got %q", encoding)
	}

	plain := httptest.NewRequest("GET", "/models/virgo.glb", nil)
	if _, encoding := Negotiate(plain, large); encoding != "" {
		t.Errorf("Expected no encoding without Accept-Encoding, got %q", encoding)
	}
}
