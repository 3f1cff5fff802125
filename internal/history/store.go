// Copyright 2026 The MedExa Gateway Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package history stores per-session chat transcripts and serves the
// trimmed conversation window that accompanies each model request.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
	log "github.com/sirupsen/logrus"

	"github.com/medexa/gateway/internal/config"
	"github.com/medexa/gateway/internal/router"
)

// Store persists chat turns in SQLite and returns recent windows of them.
type Store struct {
	db          *sql.DB
	maxMessages int
	tokenBudget int
	counter     *TokenCounter
}

const schema = `
CREATE TABLE IF NOT EXISTS messages (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL,
	role TEXT NOT NULL,
	content TEXT NOT NULL,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id, id);
`

// Open creates or opens the history database at the configured path.
func Open(ctx context.Context, cfg config.HistoryConfig) (*Store, error) {
	if cfg.DBPath == "" {
		return nil, fmt.Errorf("history database path cannot be empty")
	}
	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	// SQLite works best with a single writer connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create history schema: %w", err)
	}

	log.Infof("History store initialized (db: %s, window: %d messages)", cfg.DBPath, cfg.MaxMessages)
	return newStore(db, cfg), nil
}

func newStore(db *sql.DB, cfg config.HistoryConfig) *Store {
	return &Store{
		db:          db,
		maxMessages: cfg.MaxMessages,
		tokenBudget: cfg.TokenBudget,
		counter:     NewTokenCounter(),
	}
}

// Append records one chat turn for a session.
func (s *Store) Append(ctx context.Context, sessionID, role, content string) error {
	if sessionID == "" {
		return fmt.Errorf("session id cannot be empty")
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO messages (session_id, role, content) VALUES (?, ?, ?)",
		sessionID, role, content)
	if err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}
	return nil
}

// Recent returns the conversation window for a session, oldest first. The
// window holds at most the configured message count; when a token budget
// is set, oldest messages are dropped until the window fits.
func (s *Store) Recent(ctx context.Context, sessionID string) ([]router.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT role, content FROM messages WHERE session_id = ? ORDER BY id DESC LIMIT ?",
		sessionID, s.maxMessages)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var window []router.Message
	for rows.Next() {
		var m router.Message
		if err := rows.Scan(&m.Role, &m.Content); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		window = append(window, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read history rows: %w", err)
	}

	// Query returned newest first; restore chronological order.
	for i, j := 0, len(window)-1; i < j; i, j = i+1, j-1 {
		window[i], window[j] = window[j], window[i]
	}

	return s.trimToBudget(window), nil
}

// Clear removes all stored turns for a session.
func (s *Store) Clear(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM messages WHERE session_id = ?", sessionID)
	if err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) trimToBudget(window []router.Message) []router.Message {
	if s.tokenBudget <= 0 || len(window) == 0 {
		return window
	}

	total := 0
	for _, m := range window {
		total += s.counter.Count(m.Content)
	}
	for len(window) > 0 && total > s.tokenBudget {
		total -= s.counter.Count(window[0].Content)
		window = window[1:]
	}
	return window
}
