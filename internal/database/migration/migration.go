// Package migration creates the share schema on first boot.
package migration

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

type migrationStep struct {
	Name string
	SQL  string
}

// sentinelTable is checked before running any step; its presence means the
// schema is already in place.
const sentinelTable = "public.shares"

var steps = []migrationStep{
	{
		Name: "create_table_users",
		SQL: `CREATE TABLE IF NOT EXISTS users (
  id            BIGSERIAL   PRIMARY KEY,
  username      TEXT        NOT NULL UNIQUE,
  email         TEXT        NOT NULL UNIQUE,
  password_hash TEXT        NOT NULL,
  created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_table_shares",
		SQL: `CREATE TABLE IF NOT EXISTS shares (
  id               BIGSERIAL   PRIMARY KEY,
  owner_id         BIGINT      NOT NULL REFERENCES users (id) ON DELETE RESTRICT,
  original_name    TEXT        NOT NULL,
  storage_location TEXT        NOT NULL UNIQUE,
  file_size        BIGINT      NOT NULL CHECK (file_size >= 0),
  mime_type        TEXT        NOT NULL,
  short_link       TEXT        NOT NULL UNIQUE,
  password         TEXT,
  download_count   BIGINT      NOT NULL DEFAULT 0,
  expires_at       TIMESTAMPTZ,
  created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_index_shares_owner_id",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_shares_owner_id ON shares (owner_id, created_at DESC);`,
	},
	{
		Name: "create_index_shares_expires_at",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_shares_expires_at ON shares (expires_at) WHERE expires_at IS NOT NULL;`,
	},
}

// EnsureMigrated runs every step unless the shares table already exists.
func EnsureMigrated(ctx context.Context, db *sql.DB, logger zerolog.Logger, dbHost string) error {
	start := time.Now()
	l := logger.With().Str("component", "database").Str("db_host", dbHost).Logger()

	l.Info().Str("event", "db_migration_check").Msg("checking schema")

	var exists bool
	err := db.QueryRowContext(ctx, "SELECT to_regclass($1) IS NOT NULL", sentinelTable).Scan(&exists)
	if err != nil {
		l.Error().Err(err).
			Str("event", "db_migration_failed").
			Int64("duration_ms", time.Since(start).Milliseconds()).
			Msg("failed to check sentinel table")
		return fmt.Errorf("failed to check sentinel table: %w", err)
	}

	if exists {
		l.Info().
			Str("event", "db_migration_skip").
			Int64("duration_ms", time.Since(start).Milliseconds()).
			Msg("schema already exists, skipping migration")
		return nil
	}

	l.Info().Str("event", "db_migration_start").Int("steps", len(steps)).Msg("applying schema")

	for _, step := range steps {
		stepStart := time.Now()
		if _, err := db.ExecContext(ctx, step.SQL); err != nil {
			l.Error().Err(err).
				Str("event", "db_migration_failed").
				Str("migration_step", step.Name).
				Int64("duration_ms", time.Since(start).Milliseconds()).
				Int64("step_duration_ms", time.Since(stepStart).Milliseconds()).
				Msg("migration step failed")
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}

		l.Debug().
			Str("event", "db_migration_step").
			Str("migration_step", step.Name).
			Int64("step_duration_ms", time.Since(stepStart).Milliseconds()).
			Msg("step applied")
	}

	l.Info().
		Str("event", "db_migration_success").
		Int64("duration_ms", time.Since(start).Milliseconds()).
		Msg("schema ready")
	return nil
}
