package blacklist

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "github.com/lib/pq"
)

// PostgresStore keeps blacklist entries in a shared postgres table so every
// engine instance sees the same exclusions.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore connects to dsn, pings it and ensures the schema.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	if dsn == "" {
		return nil, errors.New("postgres dsn is required")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	_, err = db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS request_blacklist (
        request_id TEXT NOT NULL,
        technician_id TEXT NOT NULL,
        actor_id TEXT,
        created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
        PRIMARY KEY(request_id, technician_id)
    )`)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &PostgresStore{db: db}, nil
}

func (p *PostgresStore) Get(ctx context.Context, requestID string) (map[string]struct{}, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT technician_id FROM request_blacklist WHERE request_id = $1`, requestID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	return scanIDs(rows)
}

func (p *PostgresStore) Add(ctx context.Context, requestID, technicianID, actorID string) error {
	_, err := p.db.ExecContext(ctx, `INSERT INTO request_blacklist (request_id, technician_id, actor_id, created_at)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (request_id, technician_id) DO NOTHING`,
		requestID, technicianID, actorID, time.Now().UTC())
	return err
}

// Close closes the connection pool.
func (p *PostgresStore) Close() error { return p.db.Close() }
