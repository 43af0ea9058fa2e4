package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNoSession is returned when no credential has been persisted.
var ErrNoSession = errors.New("no persisted session")

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
    id         INTEGER PRIMARY KEY CHECK (id = 1),
    email      TEXT NOT NULL,
    token      TEXT NOT NULL,
    device_id  TEXT NOT NULL,
    created_at TEXT NOT NULL
);
`

// Store persists the current session credential in SQLite so separate CLI
// invocations share one signed-in identity. A single row is kept; saving
// replaces it.
type Store struct {
	db   *sql.DB
	path string
}

// OpenStore initializes or connects to the session database at path.
func OpenStore(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create session db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply session schema: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Save replaces the persisted session.
func (s *Store) Save(ctx context.Context, session Session) error {
	createdAt := session.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO sessions (id, email, token, device_id, created_at)
         VALUES (1, ?, ?, ?, ?)
         ON CONFLICT(id) DO UPDATE SET
             email = excluded.email,
             token = excluded.token,
             device_id = excluded.device_id,
             created_at = excluded.created_at`,
		session.Email,
		session.Token,
		session.DeviceID,
		createdAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Current returns the persisted session or ErrNoSession.
func (s *Store) Current(ctx context.Context) (Session, error) {
	row := s.db.QueryRowContext(ctx, `SELECT email, token, device_id, created_at FROM sessions WHERE id = 1`)

	var session Session
	var createdAt string
	if err := row.Scan(&session.Email, &session.Token, &session.DeviceID, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Session{}, ErrNoSession
		}
		return Session{}, fmt.Errorf("read session: %w", err)
	}
	if parsed, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		session.CreatedAt = parsed
	}
	return session, nil
}

// Clear removes the persisted session. Clearing an empty store is a no-op.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = 1`); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}
