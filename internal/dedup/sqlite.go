package dedup

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// SQLite keeps processed keys in a local database file.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (and creates if needed) the database at path.
func NewSQLite(path string) (*SQLite, error) {
	if path == "" {
		return nil, errors.New("sqlite dedup store needs a path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// One writer; sqlite serializes anyway.
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS processed_messages (
			key TEXT PRIMARY KEY,
			channel_id INTEGER NOT NULL,
			processed_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create processed_messages table: %w", err)
	}

	return &SQLite{db: db}, nil
}

func (s *SQLite) IsProcessed(ctx context.Context, text string, channelID int64) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM processed_messages WHERE key = ?)",
		Key(text, channelID),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to look up processed message: %w", err)
	}
	return exists, nil
}

func (s *SQLite) MarkProcessed(ctx context.Context, text string, channelID int64) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO processed_messages (key, channel_id) VALUES (?, ?) ON CONFLICT(key) DO NOTHING",
		Key(text, channelID), channelID,
	)
	if err != nil {
		return fmt.Errorf("failed to mark message processed: %w", err)
	}
	return nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
