package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ov-vocsdb/vocsdb/internal/domain"
)

// PostgresBackend keeps a single latest-wins row of snapshot bytes, the
// simplest schema that satisfies the bridge's load/save contract while
// reusing the connection-pool and error-mapping conventions the rest of
// this codebase uses for its optional database dependency.
type PostgresBackend struct {
	pool *pgxpool.Pool
}

// NewPostgresBackend opens a pool against connString and ensures the
// snapshot table exists.
func NewPostgresBackend(ctx context.Context, connString string) (*PostgresBackend, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("persistence: parsing connection string: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("persistence: creating connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("persistence: pinging database: %w", err)
	}
	b := &PostgresBackend{pool: pool}
	if err := b.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return b, nil
}

func (b *PostgresBackend) ensureSchema(ctx context.Context) error {
	_, err := b.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS vocsdb_snapshots (
			id SMALLINT PRIMARY KEY DEFAULT 1 CHECK (id = 1),
			saved_at TIMESTAMPTZ NOT NULL,
			data JSONB NOT NULL
		)`)
	return mapError(err)
}

func (b *PostgresBackend) Close() {
	b.pool.Close()
}

func (b *PostgresBackend) Save(ctx context.Context, snap *Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("persistence: encoding snapshot: %w", err)
	}
	_, err = b.pool.Exec(ctx, `
		INSERT INTO vocsdb_snapshots (id, saved_at, data) VALUES (1, $1, $2)
		ON CONFLICT (id) DO UPDATE SET saved_at = EXCLUDED.saved_at, data = EXCLUDED.data`,
		snap.SavedAt, data)
	return mapError(err)
}

func (b *PostgresBackend) Load(ctx context.Context) (*Snapshot, error) {
	var data []byte
	err := b.pool.QueryRow(ctx, `SELECT data FROM vocsdb_snapshots WHERE id = 1`).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return &Snapshot{}, nil
	}
	if err != nil {
		return nil, mapError(err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("persistence: decoding snapshot: %w", err)
	}
	return &snap, nil
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	return err
}
