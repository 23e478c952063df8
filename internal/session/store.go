// Package session persists the active conversation to a local SQLite
// database so it survives process restarts and can be replaced wholesale
// by CompressionTask.
package session

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Role mirrors the handful of roles a conversation entry can carry.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Entry is one turn of the conversation.
type Entry struct {
	ID        int64
	Role      Role
	Text      string
	Tokens    int
	CreatedAt time.Time
}

// Store is the persistence surface ReplController and CompressionTask use.
// AppendEntry records a turn; ConversationTokens reports the running total
// CompressionTask's threshold check compares against; ReplaceConversation
// atomically swaps the whole history for a summary (CompressionTask's final
// step); Close releases the underlying database handle.
type Store interface {
	AppendEntry(ctx context.Context, e Entry) error
	Conversation(ctx context.Context) ([]Entry, error)
	ConversationTokens(ctx context.Context) (int, error)
	ReplaceConversation(ctx context.Context, entries []Entry) error
	Close() error
}

// SQLiteStore is the default Store, backed by a pure-Go (no cgo) SQLite
// driver so the binary stays a single static artifact.
type SQLiteStore struct {
	db        *sql.DB
	sessionID string
}

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS entries (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
	sequence INTEGER NOT NULL,
	role TEXT NOT NULL CHECK (role IN ('user', 'assistant', 'system')),
	text_content TEXT NOT NULL,
	tokens INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_entries_session ON entries(session_id, sequence);
`

// Open creates or attaches to the named session inside the database at
// path ("" resolves to the XDG data directory, ":memory:" for ephemeral
// use in tests).
func Open(ctx context.Context, path, sessionID string) (*SQLiteStore, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return nil, fmt.Errorf("session: resolve path: %w", err)
	}
	if resolved != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
			return nil, fmt.Errorf("session: mkdir: %w", err)
		}
	}

	dsn := resolved + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("session: open: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("session: init schema: %w", err)
	}
	if _, err := db.ExecContext(ctx, `INSERT OR IGNORE INTO sessions(id) VALUES (?)`, sessionID); err != nil {
		db.Close()
		return nil, fmt.Errorf("session: create session row: %w", err)
	}

	return &SQLiteStore{db: db, sessionID: sessionID}, nil
}

func resolvePath(path string) (string, error) {
	if path != "" {
		return path, nil
	}
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "sessions.db"), nil
}

// DataDir returns the XDG data directory the sessions database lives under.
func DataDir() (string, error) {
	if x := os.Getenv("XDG_DATA_HOME"); x != "" {
		return filepath.Join(x, "chatrepl"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("session: home dir: %w", err)
	}
	return filepath.Join(home, ".local", "share", "chatrepl"), nil
}

func (s *SQLiteStore) AppendEntry(ctx context.Context, e Entry) error {
	var seq int
	row := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(sequence), 0) + 1 FROM entries WHERE session_id = ?`, s.sessionID)
	if err := row.Scan(&seq); err != nil {
		return fmt.Errorf("session: next sequence: %w", err)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO entries(session_id, sequence, role, text_content, tokens) VALUES (?, ?, ?, ?, ?)`,
		s.sessionID, seq, e.Role, e.Text, e.Tokens)
	if err != nil {
		return fmt.Errorf("session: append entry: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Conversation(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, role, text_content, tokens, created_at FROM entries WHERE session_id = ? ORDER BY sequence`,
		s.sessionID)
	if err != nil {
		return nil, fmt.Errorf("session: query conversation: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Role, &e.Text, &e.Tokens, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("session: scan entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) ConversationTokens(ctx context.Context) (int, error) {
	var total int
	row := s.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(tokens), 0) FROM entries WHERE session_id = ?`, s.sessionID)
	if err := row.Scan(&total); err != nil {
		return 0, fmt.Errorf("session: sum tokens: %w", err)
	}
	return total, nil
}

// ReplaceConversation atomically drops every existing entry and re-inserts
// entries in order, used by CompressionTask to swap the full history for a
// summary turn.
func (s *SQLiteStore) ReplaceConversation(ctx context.Context, entries []Entry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("session: begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM entries WHERE session_id = ?`, s.sessionID); err != nil {
		return fmt.Errorf("session: clear entries: %w", err)
	}
	for i, e := range entries {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO entries(session_id, sequence, role, text_content, tokens) VALUES (?, ?, ?, ?, ?)`,
			s.sessionID, i+1, e.Role, e.Text, e.Tokens); err != nil {
			return fmt.Errorf("session: insert replacement entry: %w", err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) Close() error { return s.db.Close() }
