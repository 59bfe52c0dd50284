// Package storage persists model assets and the manifest that indexes them.
package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"
)

// ManifestName is the object name of the model manifest.
const ManifestName = "manifest.json"

var (
	// ErrNotFound is returned when an object does not exist.
	ErrNotFound = errors.New("object not found")
	// ErrInvalidName is returned for names that escape the store root.
	ErrInvalidName = errors.New("invalid object name")
)

// Object describes a stored file.
type Object struct {
	Name      string    `json:"name"`
	Size      int64     `json:"size"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store is durable storage for model files.
type Store interface {
	Get(ctx context.Context, name string) ([]byte, error)
	Put(ctx context.Context, name string, data []byte) error
	List(ctx context.Context) ([]Object, error)
}

// CleanName validates an object name relative to the store root.
// Names use forward slashes and may not be absolute or contain "..".
func CleanName(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("%w: empty name", ErrInvalidName)
	}
	if strings.ContainsAny(name, "\\\x00") {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	if strings.HasPrefix(name, "/") {
		return "", fmt.Errorf("%w: %q is absolute", ErrInvalidName, name)
	}
	for _, part := range strings.Split(name, "/") {
		if part == ".." {
			return "", fmt.Errorf("%w: %q escapes the store root", ErrInvalidName, name)
		}
	}
	cleaned := path.Clean(name)
	if cleaned == "." {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return cleaned, nil
}

// NameFromURLPath maps a public URL path such as /models/virgo.glb to an
// object name. The path must live under /models/.
func NameFromURLPath(urlPath string) (string, error) {
	const prefix = "/models/"
	if !strings.HasPrefix(urlPath, prefix) {
		return "", fmt.Errorf("%w: %q is not under %s", ErrInvalidName, urlPath, prefix)
	}
	return CleanName(strings.TrimPrefix(urlPath, prefix))
}
