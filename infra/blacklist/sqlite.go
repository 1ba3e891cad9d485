// Package blacklist provides durable blacklist stores backed by sqlite,
// postgres and redis.
package blacklist

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "modernc.org/sqlite"

	core "github.com/kilianp07/roadside/core/blacklist"
)

// SQLiteStore persists blacklist entries in a local SQLite database.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore opens or creates the database at path and ensures the schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// One writer at a time.
	db.SetMaxOpenConns(1)
	schema := `CREATE TABLE IF NOT EXISTS request_blacklist (
        request_id TEXT NOT NULL,
        technician_id TEXT NOT NULL,
        actor_id TEXT,
        created_at INTEGER NOT NULL,
        PRIMARY KEY(request_id, technician_id)
    );`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

// Get returns the technicians excluded from requestID.
func (s *SQLiteStore) Get(ctx context.Context, requestID string) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT technician_id FROM request_blacklist WHERE request_id = ?`, requestID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	return scanIDs(rows)
}

// Add records technicianID as excluded. Repeated adds keep the first actor.
func (s *SQLiteStore) Add(ctx context.Context, requestID, technicianID, actorID string) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO request_blacklist (request_id, technician_id, actor_id, created_at)
        VALUES (?, ?, ?, ?)
        ON CONFLICT(request_id, technician_id) DO NOTHING`,
		requestID, technicianID, actorID, s.now().UnixMilli())
	return err
}

// Entries returns the stored rows for requestID in insertion order.
func (s *SQLiteStore) Entries(ctx context.Context, requestID string) ([]core.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT request_id, technician_id, actor_id, created_at
        FROM request_blacklist WHERE request_id = ? ORDER BY created_at, technician_id`, requestID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var res []core.Entry
	for rows.Next() {
		var e core.Entry
		var actor sql.NullString
		var ts int64
		if err := rows.Scan(&e.RequestID, &e.TechnicianID, &actor, &ts); err != nil {
			return nil, err
		}
		e.ActorID = actor.String
		e.CreatedAt = time.UnixMilli(ts).UTC()
		res = append(res, e)
	}
	return res, rows.Err()
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error { return s.db.Close() }

func scanIDs(rows *sql.Rows) (map[string]struct{}, error) {
	out := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
