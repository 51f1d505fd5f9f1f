package session

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mmgame/tableclient/internal/config"
)

const createSessionsTable = `
CREATE TABLE IF NOT EXISTS client_sessions (
	profile     TEXT PRIMARY KEY,
	player_name TEXT NOT NULL,
	buy_in      INTEGER NOT NULL,
	joined      BOOLEAN NOT NULL,
	pid         TEXT NOT NULL,
	has_left    BOOLEAN NOT NULL,
	saved_at    TIMESTAMPTZ NOT NULL
)`

// PostgresStore persists the session record in PostgreSQL, one row per
// profile. Intended for headless bot deployments where a local file
// does not survive the host.
type PostgresStore struct {
	pool    *pgxpool.Pool
	profile string
}

// NewPostgresStore connects, verifies the connection, and ensures the
// sessions table exists.
func NewPostgresStore(ctx context.Context, cfg config.DBConfig, profile string) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(BuildConnString(cfg))
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}
	poolCfg.MinConns = int32(cfg.MinConns)
	poolCfg.MaxConns = int32(cfg.MaxConns)

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, createSessionsTable); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure sessions table: %w", err)
	}

	return &PostgresStore{pool: pool, profile: profile}, nil
}

// Save upserts the record for this profile.
func (ps *PostgresStore) Save(ctx context.Context, rec Record) error {
	_, err := ps.pool.Exec(ctx, `
		INSERT INTO client_sessions (profile, player_name, buy_in, joined, pid, has_left, saved_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (profile) DO UPDATE SET
			player_name = EXCLUDED.player_name,
			buy_in      = EXCLUDED.buy_in,
			joined      = EXCLUDED.joined,
			pid         = EXCLUDED.pid,
			has_left    = EXCLUDED.has_left,
			saved_at    = EXCLUDED.saved_at`,
		ps.profile, rec.PlayerName, rec.BuyIn, rec.Joined, rec.PlayerID, rec.HasLeft, rec.SavedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert session record: %w", err)
	}
	return nil
}

// Load reads the record for this profile.
func (ps *PostgresStore) Load(ctx context.Context) (Record, error) {
	var rec Record
	err := ps.pool.QueryRow(ctx, `
		SELECT player_name, buy_in, joined, pid, has_left, saved_at
		FROM client_sessions WHERE profile = $1`,
		ps.profile,
	).Scan(&rec.PlayerName, &rec.BuyIn, &rec.Joined, &rec.PlayerID, &rec.HasLeft, &rec.SavedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrNoRecord
		}
		return Record{}, fmt.Errorf("load session record: %w", err)
	}
	return rec, nil
}

// Clear deletes the record for this profile.
func (ps *PostgresStore) Clear(ctx context.Context) error {
	if _, err := ps.pool.Exec(ctx, `DELETE FROM client_sessions WHERE profile = $1`, ps.profile); err != nil {
		return fmt.Errorf("clear session record: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (ps *PostgresStore) Close() {
	ps.pool.Close()
}

// BuildConnString assembles the postgres:// URL for the session store.
// The password is query-escaped so punctuation in it survives.
func BuildConnString(cfg config.DBConfig) string {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "prefer"
	}

	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.User,
		url.QueryEscape(cfg.Password),
		cfg.Host,
		cfg.Port,
		cfg.Name,
		sslMode,
	)
}
