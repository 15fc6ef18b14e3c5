package dedup

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres keeps processed keys in a shared database, for deployments that
// run the bot on ephemeral disks.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres connects to dsn and creates the table if needed.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	if dsn == "" {
		return nil, errors.New("postgres dedup store needs a DSN")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to db: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("cannot ping db: %w", err)
	}

	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS processed_messages (
			key TEXT PRIMARY KEY,
			channel_id BIGINT NOT NULL,
			processed_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create processed_messages table: %w", err)
	}

	return &Postgres{pool: pool}, nil
}

func (p *Postgres) IsProcessed(ctx context.Context, text string, channelID int64) (bool, error) {
	var exists bool
	err := p.pool.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM processed_messages WHERE key = $1)",
		Key(text, channelID),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to look up processed message: %w", err)
	}
	return exists, nil
}

func (p *Postgres) MarkProcessed(ctx context.Context, text string, channelID int64) error {
	_, err := p.pool.Exec(ctx,
		"INSERT INTO processed_messages (key, channel_id) VALUES ($1, $2) ON CONFLICT (key) DO NOTHING",
		Key(text, channelID), channelID,
	)
	if err != nil {
		return fmt.Errorf("failed to mark message processed: %w", err)
	}
	return nil
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
