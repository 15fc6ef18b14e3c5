// Package dedup remembers which finalized announcements were already counted,
// so a restart or a repeated delivery never counts the same text twice.
package dedup

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
)

// Store records processed messages. A message is identified by its text and
// the channel it was posted in.
type Store interface {
	IsProcessed(ctx context.Context, text string, channelID int64) (bool, error)
	MarkProcessed(ctx context.Context, text string, channelID int64) error
	Close() error
}

// Config selects and configures a Store.
type Config struct {
	Driver string // memory, sqlite or postgres
	Path   string // sqlite database file
	DSN    string // postgres connection string
}

// Open returns the store selected by cfg.Driver.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case "", "memory":
		return NewMemory(), nil
	case "sqlite":
		return NewSQLite(cfg.Path)
	case "postgres":
		return NewPostgres(ctx, cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown dedup driver %q", cfg.Driver)
	}
}

// Key returns the digest under which a message is stored.
func Key(text string, channelID int64) string {
	h := sha256.New()
	h.Write([]byte(strconv.FormatInt(channelID, 10)))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}
