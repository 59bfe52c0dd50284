package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Dispatch is one recorded attempt to trigger the CI workflow
type Dispatch struct {
	ID         int64     `json:"id"`
	Repository string    `json:"repository"`
	Workflow   string    `json:"workflow"`
	Ref        string    `json:"ref"`
	Success    bool      `json:"success"`
	StatusCode int       `json:"status_code"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// DispatchStorage records workflow dispatch attempts
type DispatchStorage struct {
	db *sql.DB
}

// NewDispatchStorage creates a new dispatch storage instance
func NewDispatchStorage(db *sql.DB) *DispatchStorage {
	return &DispatchStorage{db: db}
}

// Record stores a dispatch attempt and returns it with ID and timestamp set
func (s *DispatchStorage) Record(ctx context.Context, d Dispatch) (*Dispatch, error) {
	query := `
		INSERT INTO workflow_dispatches (repository, workflow, ref, success, status_code, error)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`
	err := s.db.QueryRowContext(ctx, query,
		d.Repository, d.Workflow, d.Ref, d.Success, d.StatusCode, d.Error,
	).Scan(&d.ID, &d.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to record dispatch: %w", err)
	}
	return &d, nil
}

// ListRecent returns the most recent dispatches, newest first
func (s *DispatchStorage) ListRecent(ctx context.Context, limit int) ([]Dispatch, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	query := `
		SELECT id, repository, workflow, ref, success, status_code, error, created_at
		FROM workflow_dispatches
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list dispatches: %w", err)
	}
	defer rows.Close()

	var dispatches []Dispatch
	for rows.Next() {
		var d Dispatch
		if err := rows.Scan(&d.ID, &d.Repository, &d.Workflow, &d.Ref, &d.Success, &d.StatusCode, &d.Error, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan dispatch: %w", err)
		}
		dispatches = append(dispatches, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate dispatches: %w", err)
	}
	return dispatches, nil
}
