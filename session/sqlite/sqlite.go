// Package sqlite implements core.SessionStore on SQLite using the pure-Go
// modernc.org/sqlite driver.
//
// Sessions, events and the app and user state scopes each get a table.
// Events are stored as JSON payloads next to a few indexed columns, and
// sessions survive process restarts.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/seobando/agentkit/core"
	"github.com/seobando/agentkit/logging"
)

const (
	pragmaJournalModeWAL = `PRAGMA journal_mode=WAL`
	pragmaForeignKeysOn  = `PRAGMA foreign_keys=ON`
	pragmaBusyTimeout    = `PRAGMA busy_timeout=5000`
)

var _ core.SessionStore = (*Store)(nil)

// Options configures a Store.
type Options struct {
	Logger logging.Logger
}

// Store is a SQLite-backed session store.
type Store struct {
	db     *sql.DB
	path   string
	logger logging.Logger
}

// Open opens (or creates) the database at path and applies migrations.
func Open(path string, optFns ...func(o *Options)) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("open session store: empty path")
	}
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("open session store: create parent dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := configureSQLite(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := RunMigrations(db, DefaultMigrations()); err != nil {
		_ = db.Close()
		return nil, err
	}

	opts.Logger.Debug("session store opened", "path", path)
	return &Store{db: db, path: path, logger: opts.Logger}, nil
}

func configureSQLite(db *sql.DB) error {
	for _, stmt := range []string{pragmaJournalModeWAL, pragmaForeignKeysOn, pragmaBusyTimeout} {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("configure sqlite %q: %w", stmt, err)
		}
	}
	return nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB exposes the underlying handle.
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// Create inserts a new session and applies its initial state.
func (s *Store) Create(ctx context.Context, req core.CreateSessionRequest) (*core.Session, error) {
	id := req.SessionID
	if id == "" {
		id = uuid.NewString()
	}
	key := core.SessionKey{AppName: req.AppName, UserID: req.UserID, SessionID: id}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM sessions WHERE app_name = ? AND user_id = ? AND id = ?`,
			key.AppName, key.UserID, key.SessionID).Scan(&exists)
		switch {
		case err == nil:
			return fmt.Errorf("create session %s: %w", id, core.ErrSessionExists)
		case !errors.Is(err, sql.ErrNoRows):
			return fmt.Errorf("create session %s: %w", id, err)
		}

		now := nowUTC()
		if _, err := tx.ExecContext(ctx, `INSERT INTO sessions(app_name, user_id, id, state, create_time, update_time) VALUES (?, ?, ?, '{}', ?, ?)`,
			key.AppName, key.UserID, key.SessionID, now, now); err != nil {
			return fmt.Errorf("create session %s: %w", id, err)
		}
		return applyDelta(ctx, tx, key, req.State)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, key)
}

// Get loads a session with merged state and its full event history.
func (s *Store) Get(ctx context.Context, key core.SessionKey) (*core.Session, error) {
	sess, err := s.load(ctx, s.db, key)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT payload FROM events WHERE app_name = ? AND user_id = ? AND session_id = ? ORDER BY seq`,
		key.AppName, key.UserID, key.SessionID)
	if err != nil {
		return nil, fmt.Errorf("get session %s events: %w", key.SessionID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		var ev core.Event
		if err := json.Unmarshal([]byte(payload), &ev); err != nil {
			return nil, fmt.Errorf("decode event: %w", err)
		}
		sess.Events = append(sess.Events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get session %s events: %w", key.SessionID, err)
	}
	return sess, nil
}

// List returns a user's sessions ordered by id, without events.
func (s *Store) List(ctx context.Context, appName, userID string) ([]*core.Session, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM sessions WHERE app_name = ? AND user_id = ? ORDER BY id`, appName, userID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("list sessions: %w", err)
		}
		ids = append(ids, id)
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	out := make([]*core.Session, 0, len(ids))
	for _, id := range ids {
		sess, err := s.load(ctx, s.db, core.SessionKey{AppName: appName, UserID: userID, SessionID: id})
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, nil
}

// Delete removes a session and, through the foreign key, its events.
func (s *Store) Delete(ctx context.Context, key core.SessionKey) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE app_name = ? AND user_id = ? AND id = ?`,
		key.AppName, key.UserID, key.SessionID)
	if err != nil {
		return fmt.Errorf("delete session %s: %w", key.SessionID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete session %s: %w", key.SessionID, core.ErrSessionNotFound)
	}
	return nil
}

// AppendEvent applies the state delta and stores non-partial events in one
// transaction.
func (s *Store) AppendEvent(ctx context.Context, key core.SessionKey, ev core.Event) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM sessions WHERE app_name = ? AND user_id = ? AND id = ?`,
			key.AppName, key.UserID, key.SessionID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("append event to session %s: %w", key.SessionID, core.ErrSessionNotFound)
		}
		if err != nil {
			return fmt.Errorf("append event to session %s: %w", key.SessionID, err)
		}

		if err := applyDelta(ctx, tx, key, ev.Actions.StateDelta); err != nil {
			return err
		}
		if ev.Partial {
			return nil
		}

		payload, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("encode event %s: %w", ev.ID, err)
		}
		ts := ev.Timestamp
		if ts.IsZero() {
			ts = time.Now().UTC()
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO events(id, app_name, user_id, session_id, invocation_id, author, branch, timestamp, payload) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			ev.ID, key.AppName, key.UserID, key.SessionID, ev.InvocationID, ev.Author, ev.Branch, ts.UTC().Format(time.RFC3339Nano), string(payload)); err != nil {
			return fmt.Errorf("insert event %s: %w", ev.ID, err)
		}
		_, err = tx.ExecContext(ctx, `UPDATE sessions SET update_time = ? WHERE app_name = ? AND user_id = ? AND id = ?`,
			ts.UTC().Format(time.RFC3339Nano), key.AppName, key.UserID, key.SessionID)
		return err
	})
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// load reads the session row and merges the three state scopes.
func (s *Store) load(ctx context.Context, q querier, key core.SessionKey) (*core.Session, error) {
	var rawState, updated string
	err := q.QueryRowContext(ctx, `SELECT state, update_time FROM sessions WHERE app_name = ? AND user_id = ? AND id = ?`,
		key.AppName, key.UserID, key.SessionID).Scan(&rawState, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get session %s: %w", key.SessionID, core.ErrSessionNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get session %s: %w", key.SessionID, err)
	}

	local, err := decodeState(rawState)
	if err != nil {
		return nil, err
	}
	app, err := readState(ctx, q, `SELECT state FROM app_states WHERE app_name = ?`, key.AppName)
	if err != nil {
		return nil, err
	}
	user, err := readState(ctx, q, `SELECT state FROM user_states WHERE app_name = ? AND user_id = ?`, key.AppName, key.UserID)
	if err != nil {
		return nil, err
	}

	sess := core.NewSession(key)
	sess.State = core.MergeState(app, user, local)
	if t, err := time.Parse(time.RFC3339Nano, updated); err == nil {
		sess.LastUpdateTime = t
	}
	return sess, nil
}

// applyDelta splits delta by scope and rewrites each affected state row.
func applyDelta(ctx context.Context, tx *sql.Tx, key core.SessionKey, delta map[string]any) error {
	if len(delta) == 0 {
		return nil
	}
	app, user, local := core.SplitStateDelta(delta)
	now := nowUTC()

	if len(app) > 0 {
		st, err := readState(ctx, tx, `SELECT state FROM app_states WHERE app_name = ?`, key.AppName)
		if err != nil {
			return err
		}
		core.ApplyDelta(st, app)
		raw, err := json.Marshal(st)
		if err != nil {
			return fmt.Errorf("encode app state: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO app_states(app_name, state, update_time) VALUES (?, ?, ?)
			ON CONFLICT(app_name) DO UPDATE SET state = excluded.state, update_time = excluded.update_time`,
			key.AppName, string(raw), now); err != nil {
			return fmt.Errorf("write app state: %w", err)
		}
	}

	if len(user) > 0 {
		st, err := readState(ctx, tx, `SELECT state FROM user_states WHERE app_name = ? AND user_id = ?`, key.AppName, key.UserID)
		if err != nil {
			return err
		}
		core.ApplyDelta(st, user)
		raw, err := json.Marshal(st)
		if err != nil {
			return fmt.Errorf("encode user state: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO user_states(app_name, user_id, state, update_time) VALUES (?, ?, ?, ?)
			ON CONFLICT(app_name, user_id) DO UPDATE SET state = excluded.state, update_time = excluded.update_time`,
			key.AppName, key.UserID, string(raw), now); err != nil {
			return fmt.Errorf("write user state: %w", err)
		}
	}

	if len(local) > 0 {
		var rawState string
		if err := tx.QueryRowContext(ctx, `SELECT state FROM sessions WHERE app_name = ? AND user_id = ? AND id = ?`,
			key.AppName, key.UserID, key.SessionID).Scan(&rawState); err != nil {
			return fmt.Errorf("read session state: %w", err)
		}
		st, err := decodeState(rawState)
		if err != nil {
			return err
		}
		core.ApplyDelta(st, local)
		raw, err := json.Marshal(st)
		if err != nil {
			return fmt.Errorf("encode session state: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE sessions SET state = ?, update_time = ? WHERE app_name = ? AND user_id = ? AND id = ?`,
			string(raw), now, key.AppName, key.UserID, key.SessionID); err != nil {
			return fmt.Errorf("write session state: %w", err)
		}
	}
	return nil
}

func readState(ctx context.Context, q querier, query string, args ...any) (map[string]any, error) {
	var raw string
	err := q.QueryRowContext(ctx, query, args...).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return map[string]any{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read state: %w", err)
	}
	return decodeState(raw)
}

func decodeState(raw string) (map[string]any, error) {
	st := map[string]any{}
	if raw == "" {
		return st, nil
	}
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
	}
	return st, nil
}

func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
