// Package compression gzips model payloads for clients that accept it.
package compression

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// MinSize is the smallest payload worth compressing
const MinSize = 1024

// Compress compresses data using gzip at the given level
func Compress(data []byte, level int) ([]byte, error) {
	var buf bytes.Buffer

	writer, err := gzip.NewWriterLevel(&buf, level)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip writer: %w", err)
	}

	if _, err := writer.Write(data); err != nil {
		writer.Close()
		return nil, fmt.Errorf("failed to write to gzip: %w", err)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close gzip writer: %w", err)
	}

	return buf.Bytes(), nil
}

// Decompress reverses Compress
func Decompress(data []byte) ([]byte, error) {
	reader, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer reader.Close()

	out, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read gzip data: %w", err)
	}
	return out, nil
}

// AcceptsGzip reports whether the request's Accept-Encoding allows gzip
func AcceptsGzip(r *http.Request) bool {
	for _, part := range strings.Split(r.Header.Get("Accept-Encoding"), ",") {
		coding, params, _ := strings.Cut(strings.TrimSpace(part), ";")
		if !strings.EqualFold(strings.TrimSpace(coding), "gzip") {
			continue
		}
		params = strings.ReplaceAll(params, " ", "")
		return params != "q=0" && params != "q=0.0" && params != "q=0.00" && params != "q=0.000"
	}
	return false
}

// Negotiate returns the body to send for r and the Content-Encoding to set,
// which is empty when data is sent as is. Small payloads are never compressed.
func Negotiate(r *http.Request, data []byte) ([]byte, string) {
	if len(data) < MinSize || !AcceptsGzip(r) {
		return data, ""
	}
	compressed, err := Compress(data, gzip.BestSpeed)
	if err != nil || len(compressed) >= len(data) {
		return data, ""
	}
	return compressed, "gzip"
}
