package database

import (
	"context"
	"database/sql"
	"fmt"

	"taskboard/config"
)

// Timestamps are unix milliseconds in both dialects so ordering and
// scanning behave the same everywhere.
var schemas = map[string][]string{
	config.DriverPostgres: {
		`CREATE TABLE IF NOT EXISTS tasks (
		   id TEXT PRIMARY KEY,
		   user_id TEXT NOT NULL,
		   title VARCHAR(255) NOT NULL,
		   description TEXT NOT NULL DEFAULT '',
		   status TEXT NOT NULL DEFAULT 'planning' CHECK (status IN ('planning', 'in_progress', 'completed')),
		   priority TEXT NOT NULL DEFAULT 'medium' CHECK (priority IN ('high', 'medium', 'low')),
		   estimated_hours DOUBLE PRECISION NOT NULL DEFAULT 0 CHECK (estimated_hours >= 0),
		   actual_hours DOUBLE PRECISION NOT NULL DEFAULT 0 CHECK (actual_hours >= 0),
		   due_date DATE,
		   created_at BIGINT NOT NULL,
		   updated_at BIGINT NOT NULL
		 )`,
		`CREATE INDEX IF NOT EXISTS tasks_user_created_idx ON tasks (user_id, created_at DESC)`,
	},
	config.DriverSQLite: {
		`CREATE TABLE IF NOT EXISTS tasks (
		   id TEXT PRIMARY KEY,
		   user_id TEXT NOT NULL,
		   title TEXT NOT NULL,
		   description TEXT NOT NULL DEFAULT '',
		   status TEXT NOT NULL DEFAULT 'planning' CHECK (status IN ('planning', 'in_progress', 'completed')),
		   priority TEXT NOT NULL DEFAULT 'medium' CHECK (priority IN ('high', 'medium', 'low')),
		   estimated_hours REAL NOT NULL DEFAULT 0 CHECK (estimated_hours >= 0),
		   actual_hours REAL NOT NULL DEFAULT 0 CHECK (actual_hours >= 0),
		   due_date TEXT,
		   created_at INTEGER NOT NULL,
		   updated_at INTEGER NOT NULL
		 )`,
		`CREATE INDEX IF NOT EXISTS tasks_user_created_idx ON tasks (user_id, created_at DESC)`,
	},
}

// Migrate creates the tasks table for driver if it does not exist.
func Migrate(ctx context.Context, db *sql.DB, driver string) error {
	stmts, ok := schemas[driver]
	if !ok {
		return fmt.Errorf("no schema for driver %q", driver)
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
