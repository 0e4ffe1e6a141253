// Package history records REPL evaluations in a SQLite database.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tliron/commonlog"
	_ "modernc.org/sqlite"
)

var log = commonlog.GetLogger("loxvm.history")

// Status values stored with each entry.
const (
	StatusOK           = "ok"
	StatusCompileError = "compile_error"
	StatusRuntimeError = "runtime_error"
)

// Entry is one recorded evaluation.
type Entry struct {
	ID        int64
	Session   string
	Source    string
	Result    string // formatted value, or the error text
	Status    string
	CreatedAt time.Time
}

// Store is an evaluation history backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
}

// Open opens (creating if needed) the history database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating history dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Set busy timeout for concurrent access
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS evaluations (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		session    TEXT NOT NULL,
		source     TEXT NOT NULL,
		result     TEXT NOT NULL,
		status     TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating table: %w", err)
	}

	log.Debugf("opened history database %s", path)
	return &Store{db: db, path: path}, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// NewSession returns a fresh session id.
func NewSession() string {
	return uuid.NewString()
}

// Record stores e. A zero CreatedAt is replaced with the current time.
func (s *Store) Record(ctx context.Context, e Entry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO evaluations (session, source, result, status, created_at) VALUES (?, ?, ?, ?, ?)`,
		e.Session, e.Source, e.Result, e.Status, e.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("recording evaluation: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	return s.query(ctx,
		`SELECT id, session, source, result, status, created_at FROM evaluations ORDER BY id DESC LIMIT ?`,
		limit)
}

// Session returns the entries recorded in one session, oldest first.
func (s *Store) Session(ctx context.Context, session string) ([]Entry, error) {
	return s.query(ctx,
		`SELECT id, session, source, result, status, created_at FROM evaluations WHERE session = ? ORDER BY id`,
		session)
}

func (s *Store) query(ctx context.Context, q string, args ...any) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var created string
		if err := rows.Scan(&e.ID, &e.Session, &e.Source, &e.Result, &e.Status, &created); err != nil {
			return nil, fmt.Errorf("scanning history row: %w", err)
		}
		e.CreatedAt, err = time.Parse(time.RFC3339Nano, created)
		if err != nil {
			return nil, fmt.Errorf("parsing timestamp %q: %w", created, err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
