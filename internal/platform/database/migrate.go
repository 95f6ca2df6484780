package database

import (
	"context"
	"database/sql"
	"fmt"

	"problem_solver/internal/platform/logger"
)

type migration struct {
	ID  string
	SQL string
}

// migrations run in order, each at most once, tracked in schema_migrations.
var migrations = []migration{
	{
		ID: "001_users",
		SQL: `CREATE TABLE IF NOT EXISTS users (
			id              TEXT PRIMARY KEY,
			username        TEXT NOT NULL UNIQUE,
			email           TEXT NOT NULL UNIQUE,
			hashed_password TEXT NOT NULL,
			role            TEXT NOT NULL DEFAULT 'user',
			plan            TEXT NOT NULL DEFAULT 'free',
			query_limit     INTEGER NOT NULL DEFAULT 10,
			monthly_queries INTEGER NOT NULL DEFAULT 0,
			total_queries   INTEGER NOT NULL DEFAULT 0,
			last_reset_date TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			created_at      TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at      TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
	},
	{
		ID: "002_problems",
		SQL: `CREATE TABLE IF NOT EXISTS problems (
			id             TEXT PRIMARY KEY,
			user_id        TEXT NOT NULL REFERENCES users(id),
			title          TEXT NOT NULL,
			slug           TEXT NOT NULL,
			description    TEXT NOT NULL,
			category       TEXT NOT NULL,
			language       TEXT,
			difficulty     TEXT NOT NULL DEFAULT '',
			tags           JSONB NOT NULL DEFAULT '[]',
			requested_model TEXT NOT NULL DEFAULT '',
			status         TEXT NOT NULL,
			solution_id    TEXT,
			failure_reason TEXT,
			views          INTEGER NOT NULL DEFAULT 0,
			is_bookmarked  BOOLEAN NOT NULL DEFAULT FALSE,
			created_at     TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at     TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_problems_user_created ON problems (user_id, created_at DESC)`,
	},
	{
		// No foreign key to problems: the cascade is done by the application.
		ID: "003_solutions",
		SQL: `CREATE TABLE IF NOT EXISTS solutions (
			id                 TEXT PRIMARY KEY,
			problem_id         TEXT NOT NULL UNIQUE,
			ai_model           TEXT NOT NULL,
			answer             TEXT NOT NULL,
			explanation        TEXT NOT NULL DEFAULT '',
			code               JSONB NOT NULL DEFAULT '{}',
			steps              JSONB NOT NULL DEFAULT '[]',
			execution_result   JSONB,
			tokens_used        JSONB NOT NULL DEFAULT '{}',
			processing_time_ms BIGINT NOT NULL DEFAULT 0,
			feedback           JSONB,
			created_at         TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at         TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
	},
}

func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		id         TEXT PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	for _, m := range migrations {
		var applied bool
		if err := db.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE id = $1)`, m.ID,
		).Scan(&applied); err != nil {
			return fmt.Errorf("failed to check migration %s: %w", m.ID, err)
		}
		if applied {
			continue
		}
		if err := applyMigration(ctx, db, m); err != nil {
			return err
		}
		logger.Info().Str("migration", m.ID).Msg("Applied migration")
	}
	return nil
}

func applyMigration(ctx context.Context, db *sql.DB, m migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin migration %s: %w", m.ID, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
		return fmt.Errorf("failed to apply migration %s: %w", m.ID, err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (id) VALUES ($1)`, m.ID); err != nil {
		return fmt.Errorf("failed to record migration %s: %w", m.ID, err)
	}
	return tx.Commit()
}
