package bootstrap

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
	id BIGINT PRIMARY KEY,
	username VARCHAR(50) NOT NULL UNIQUE,
	email VARCHAR(255) NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
	`CREATE TABLE IF NOT EXISTS sign_gestures (
	id BIGSERIAL PRIMARY KEY,
	name VARCHAR(100) NOT NULL,
	description TEXT,
	language_code VARCHAR(10) NOT NULL DEFAULT 'ar',
	video_path VARCHAR(255),
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
	`CREATE INDEX IF NOT EXISTS sign_gestures_language_idx ON sign_gestures (language_code)`,
	`CREATE TABLE IF NOT EXISTS translation_history (
	id BIGINT PRIMARY KEY,
	user_id BIGINT NOT NULL REFERENCES users (id) ON DELETE CASCADE,
	translation_type VARCHAR(20) NOT NULL,
	input_content TEXT NOT NULL,
	output_content TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
	`CREATE INDEX IF NOT EXISTS translation_history_user_idx ON translation_history (user_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS token_blocklist (
	jti VARCHAR(64) PRIMARY KEY,
	revoked_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	expires_at TIMESTAMPTZ NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS token_blocklist_expires_idx ON token_blocklist (expires_at)`,
}

// EnsureSchema creates the tables the service needs when they are missing.
func EnsureSchema(lc fx.Lifecycle, pool *pgxpool.Pool, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return Apply(ctx, pool, logger)
		},
	})
}

// Apply runs every statement in one transaction.
func Apply(ctx context.Context, pool *pgxpool.Pool, logger *zap.Logger) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("schema begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, stmt := range schemaStatements {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("schema apply: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("schema commit: %w", err)
	}

	logger.Info("database schema ensured", zap.Int("statements", len(schemaStatements)))
	return nil
}
