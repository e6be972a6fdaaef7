package recipes

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/seobando/agentkit/logging"
	"github.com/seobando/agentkit/session/sqlite"
)

var migrations = []sqlite.Migration{
	{
		Version:     1,
		Description: "user state and conversation history",
		Up: func(tx *sql.Tx) error {
			for _, stmt := range []string{
				`CREATE TABLE IF NOT EXISTS user_state (
					user_id    TEXT PRIMARY KEY,
					app_name   TEXT NOT NULL,
					state_json TEXT NOT NULL,
					created_at TEXT NOT NULL,
					updated_at TEXT NOT NULL
				)`,
				`CREATE TABLE IF NOT EXISTS conversation_history (
					id        TEXT PRIMARY KEY,
					user_id   TEXT NOT NULL,
					app_name  TEXT NOT NULL,
					role      TEXT NOT NULL,
					content   TEXT NOT NULL,
					timestamp TEXT NOT NULL
				)`,
				`CREATE INDEX IF NOT EXISTS idx_history_user ON conversation_history(user_id, app_name, id)`,
			} {
				if _, err := tx.Exec(stmt); err != nil {
					return err
				}
			}
			return nil
		},
	},
}

// Message is one stored conversation turn.
type Message struct {
	ID        string
	Role      string
	Content   string
	Timestamp time.Time
}

// Store keeps recipe collections and conversation history in SQLite.
type Store struct {
	db     *sql.DB
	logger logging.Logger
}

// OpenStore opens (or creates) the database at path.
func OpenStore(path string, logger logging.Logger) (*Store, error) {
	if path == "" {
		return nil, errors.New("open recipe store: empty path")
	}
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("open recipe store: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open recipe store: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`PRAGMA busy_timeout=5000`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open recipe store: %w", err)
	}
	if err := sqlite.RunMigrations(db, migrations); err != nil {
		_ = db.Close()
		return nil, err
	}
	logger.Debug("recipe store opened", "path", path)
	return &Store{db: db, logger: logger}, nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// GetState returns the collection of userID, or DefaultState when none is
// saved.
func (s *Store) GetState(ctx context.Context, userID, appName string) (State, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT state_json FROM user_state WHERE user_id = ? AND app_name = ?`,
		userID, appName).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return DefaultState(), nil
	}
	if err != nil {
		return State{}, fmt.Errorf("get state of %s: %w", userID, err)
	}
	st := DefaultState()
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		return State{}, fmt.Errorf("decode state of %s: %w", userID, err)
	}
	if st.Recipes == nil {
		st.Recipes = []Recipe{}
	}
	st.TotalRecipes = len(st.Recipes)
	return st, nil
}

// SaveState replaces the collection of userID, keeping its creation time.
func (s *Store) SaveState(ctx context.Context, userID, appName string, st State) error {
	st.TotalRecipes = len(st.Recipes)
	b, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode state of %s: %w", userID, err)
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err = s.db.ExecContext(ctx, `INSERT OR REPLACE INTO user_state (user_id, app_name, state_json, created_at, updated_at)
		VALUES (?, ?, ?, COALESCE((SELECT created_at FROM user_state WHERE user_id = ? AND app_name = ?), ?), ?)`,
		userID, appName, string(b), userID, appName, now, now)
	if err != nil {
		return fmt.Errorf("save state of %s: %w", userID, err)
	}
	s.logger.Debug("recipe state saved", "user_id", userID, "recipes", st.TotalRecipes)
	return nil
}

// ListUsers returns the users with a saved collection for appName.
func (s *Store) ListUsers(ctx context.Context, appName string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT user_id FROM user_state WHERE app_name = ? ORDER BY user_id`, appName)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()
	users := []string{}
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("list users: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// AddMessage appends a conversation turn.
func (s *Store) AddMessage(ctx context.Context, userID, appName, role, content string) (Message, error) {
	msg := Message{ID: ulid.Make().String(), Role: role, Content: content, Timestamp: time.Now().UTC()}
	_, err := s.db.ExecContext(ctx, `INSERT INTO conversation_history (id, user_id, app_name, role, content, timestamp) VALUES (?, ?, ?, ?, ?, ?)`,
		msg.ID, userID, appName, role, content, msg.Timestamp.Format(time.RFC3339Nano))
	if err != nil {
		return Message{}, fmt.Errorf("add message: %w", err)
	}
	return msg, nil
}

// History returns the latest limit turns of userID in chronological order.
// limit <= 0 returns everything.
func (s *Store) History(ctx context.Context, userID, appName string, limit int) ([]Message, error) {
	query := `SELECT id, role, content, timestamp FROM (
		SELECT id, role, content, timestamp FROM conversation_history
		WHERE user_id = ? AND app_name = ? ORDER BY id DESC`
	args := []any{userID, appName}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	query += `) ORDER BY id ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("history of %s: %w", userID, err)
	}
	defer rows.Close()
	msgs := []Message{}
	for rows.Next() {
		var (
			m  Message
			ts string
		)
		if err := rows.Scan(&m.ID, &m.Role, &m.Content, &ts); err != nil {
			return nil, fmt.Errorf("history of %s: %w", userID, err)
		}
		if m.Timestamp, err = time.Parse(time.RFC3339Nano, ts); err != nil {
			return nil, fmt.Errorf("history of %s: %w", userID, err)
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}
