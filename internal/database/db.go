// Package database stores model files and workflow dispatch history in PostgreSQL.
package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
	"github.com/openlaptop/viewer/internal/config"
)

// Open connects to PostgreSQL and verifies the connection.
func Open(ctx context.Context, cfg *config.DatabaseConfig) (*sql.DB, error) {
	connector, err := pq.NewConnector(cfg.DatabaseURL())
	if err != nil {
		return nil, fmt.Errorf("invalid database configuration: %w", err)
	}

	db := sql.OpenDB(connector)
	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// schema is applied by Migrate. Statements are idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS model_files (
		name       TEXT PRIMARY KEY,
		data       BYTEA NOT NULL,
		size       BIGINT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS workflow_dispatches (
		id          BIGSERIAL PRIMARY KEY,
		repository  TEXT NOT NULL,
		workflow    TEXT NOT NULL,
		ref         TEXT NOT NULL,
		success     BOOLEAN NOT NULL,
		status_code INTEGER NOT NULL DEFAULT 0,
		error       TEXT NOT NULL DEFAULT '',
		created_at  TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS workflow_dispatches_created_at_idx
		ON workflow_dispatches (created_at DESC)`,
}

// Migrate creates the tables used by this package.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration step %d failed: %w", i, err)
		}
	}
	return nil
}
