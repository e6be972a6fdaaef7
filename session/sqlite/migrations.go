package sqlite

import (
	"database/sql"
	"fmt"
	"sort"
	"time"
)

// Migration is one versioned schema step.
type Migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

func exec(stmts ...string) func(tx *sql.Tx) error {
	return func(tx *sql.Tx) error {
		for _, stmt := range stmts {
			if _, err := tx.Exec(stmt); err != nil {
				return err
			}
		}
		return nil
	}
}

var defaultMigrations = []Migration{
	{
		Version:     1,
		Description: "sessions and events",
		Up: exec(
			`CREATE TABLE IF NOT EXISTS sessions (
				app_name    TEXT NOT NULL,
				user_id     TEXT NOT NULL,
				id          TEXT NOT NULL,
				state       TEXT NOT NULL DEFAULT '{}',
				create_time TEXT NOT NULL,
				update_time TEXT NOT NULL,
				PRIMARY KEY (app_name, user_id, id)
			)`,
			`CREATE TABLE IF NOT EXISTS events (
				id            TEXT NOT NULL,
				app_name      TEXT NOT NULL,
				user_id       TEXT NOT NULL,
				session_id    TEXT NOT NULL,
				invocation_id TEXT NOT NULL,
				author        TEXT NOT NULL,
				branch        TEXT NOT NULL DEFAULT '',
				timestamp     TEXT NOT NULL,
				payload       TEXT NOT NULL,
				seq           INTEGER PRIMARY KEY AUTOINCREMENT,
				FOREIGN KEY (app_name, user_id, session_id)
					REFERENCES sessions(app_name, user_id, id) ON DELETE CASCADE
			)`,
			`CREATE INDEX IF NOT EXISTS idx_events_session ON events(app_name, user_id, session_id, seq)`,
		),
	},
	{
		Version:     2,
		Description: "app and user state",
		Up: exec(
			`CREATE TABLE IF NOT EXISTS app_states (
				app_name    TEXT PRIMARY KEY,
				state       TEXT NOT NULL DEFAULT '{}',
				update_time TEXT NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS user_states (
				app_name    TEXT NOT NULL,
				user_id     TEXT NOT NULL,
				state       TEXT NOT NULL DEFAULT '{}',
				update_time TEXT NOT NULL,
				PRIMARY KEY (app_name, user_id)
			)`,
		),
	},
}

// DefaultMigrations returns the schema steps of the store.
func DefaultMigrations() []Migration {
	out := make([]Migration, len(defaultMigrations))
	copy(out, defaultMigrations)
	return out
}

// RunMigrations applies every migration newer than the recorded version,
// each inside its own transaction.
func RunMigrations(db *sql.DB, migrations []Migration) error {
	if db == nil {
		return fmt.Errorf("run migrations: db is nil")
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER PRIMARY KEY,
		applied_at TEXT NOT NULL
	)`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	ordered := make([]Migration, len(migrations))
	copy(ordered, migrations)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Version < ordered[j].Version })

	var current int
	if err := db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&current); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	for _, m := range ordered {
		if m.Version <= current {
			continue
		}
		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration v%d: %w", m.Version, err)
		}
		if err := m.Up(tx); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration v%d (%s): %w", m.Version, m.Description, err)
		}
		if _, err := tx.Exec(`INSERT INTO schema_migrations(version, applied_at) VALUES (?, ?)`, m.Version, nowUTC()); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration v%d: %w", m.Version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration v%d: %w", m.Version, err)
		}
	}
	return nil
}

func nowUTC() string { return time.Now().UTC().Format(time.RFC3339Nano) }
