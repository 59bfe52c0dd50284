package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/openlaptop/viewer/internal/storage"
)

// ModelStorage keeps model files in the model_files table.
// It implements storage.Store.
type ModelStorage struct {
	db *sql.DB
}

// NewModelStorage creates a new model storage instance
func NewModelStorage(db *sql.DB) *ModelStorage {
	return &ModelStorage{db: db}
}

var _ storage.Store = (*ModelStorage)(nil)

// Get returns the contents of a stored file
func (s *ModelStorage) Get(ctx context.Context, name string) ([]byte, error) {
	cleaned, err := storage.CleanName(name)
	if err != nil {
		return nil, err
	}

	var data []byte
	err = s.db.QueryRowContext(ctx, `SELECT data FROM model_files WHERE name = $1`, cleaned).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, cleaned)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get model file %s: %w", cleaned, err)
	}
	return data, nil
}

// Put inserts or replaces a file
func (s *ModelStorage) Put(ctx context.Context, name string, data []byte) error {
	cleaned, err := storage.CleanName(name)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO model_files (name, data, size, updated_at)
		VALUES ($1, $2, $3, CURRENT_TIMESTAMP)
		ON CONFLICT (name)
		DO UPDATE SET
			data = EXCLUDED.data,
			size = EXCLUDED.size,
			updated_at = CURRENT_TIMESTAMP
	`
	if _, err := s.db.ExecContext(ctx, query, cleaned, data, len(data)); err != nil {
		return fmt.Errorf("failed to store model file %s: %w", cleaned, err)
	}
	return nil
}

// List returns metadata for all stored files ordered by name
func (s *ModelStorage) List(ctx context.Context) ([]storage.Object, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, size, updated_at FROM model_files ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list model files: %w", err)
	}
	defer rows.Close()

	var objects []storage.Object
	for rows.Next() {
		var obj storage.Object
		if err := rows.Scan(&obj.Name, &obj.Size, &obj.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan model file: %w", err)
		}
		objects = append(objects, obj)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate model files: %w", err)
	}
	return objects, nil
}
