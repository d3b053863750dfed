package thread

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

const threadSchema = `
CREATE TABLE IF NOT EXISTS threads (
	id TEXT PRIMARY KEY,
	created_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS messages (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	thread_id TEXT NOT NULL REFERENCES threads(id),
	role TEXT NOT NULL,
	content TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_thread ON messages(thread_id, id);
`

// SQLiteStore persists transcripts in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) a transcript database at the given path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open thread database: %w", err)
	}
	if _, err := db.Exec(threadSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize thread schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close releases the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Create opens a new thread and returns its ID.
func (s *SQLiteStore) Create(ctx context.Context) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO threads (id, created_at) VALUES (?, ?)",
		id, time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("failed to create thread: %w", err)
	}
	return id, nil
}

// Append adds a message to a thread's transcript.
func (s *SQLiteStore) Append(ctx context.Context, threadID, role, content string) error {
	var exists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM threads WHERE id = ?", threadID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to look up thread: %w", err)
	}
	if exists == 0 {
		return ErrThreadNotFound
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO messages (thread_id, role, content, created_at) VALUES (?, ?, ?, ?)",
		threadID, role, content, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}
	return nil
}

// Messages returns a thread's transcript in insertion order.
func (s *SQLiteStore) Messages(ctx context.Context, threadID string) ([]Message, error) {
	var exists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM threads WHERE id = ?", threadID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("failed to look up thread: %w", err)
	}
	if exists == 0 {
		return nil, ErrThreadNotFound
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT thread_id, role, content, created_at FROM messages WHERE thread_id = ? ORDER BY id",
		threadID)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var msgs []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ThreadID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}
