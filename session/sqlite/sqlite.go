// Package sqlite is a durable session.Store backed by SQLite (pure Go,
// modernc.org/sqlite).
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hupe1980/appforge/core"
	"github.com/hupe1980/appforge/session"
	_ "modernc.org/sqlite"
)

// Store implements session.Store on a SQLite database.
type Store struct {
	db *sql.DB
}

// New opens (and migrates) the database at path. The parent directory is
// created when missing.
func New(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	// WAL lets readers follow a running chat; the busy timeout makes
	// writers retry instead of failing with SQLITE_BUSY.
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("exec %s: %w", p, err)
		}
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id          TEXT PRIMARY KEY,
			phase       TEXT NOT NULL,
			snapshot    TEXT NOT NULL,
			created_at  DATETIME,
			updated_at  DATETIME
		)`,
		`CREATE TABLE IF NOT EXISTS events (
			session_id  TEXT NOT NULL,
			seq         INTEGER NOT NULL,
			type        TEXT NOT NULL,
			role        TEXT,
			payload     TEXT NOT NULL,
			PRIMARY KEY (session_id, seq)
		)`,
		`CREATE TABLE IF NOT EXISTS outputs (
			session_id  TEXT NOT NULL,
			id          TEXT NOT NULL,
			role        TEXT NOT NULL,
			type        TEXT NOT NULL,
			title       TEXT NOT NULL,
			content     TEXT NOT NULL,
			format      TEXT NOT NULL,
			PRIMARY KEY (session_id, id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_outputs_type ON outputs(session_id, type)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("exec migration: %w", err)
		}
	}
	return nil
}

// AppendEvent implements session.Store.
func (s *Store) AppendEvent(ctx context.Context, sessionID string, ev core.StreamEvent) (int, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return 0, fmt.Errorf("marshal event: %w", err)
	}

	var seq int
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO events (session_id, seq, type, role, payload)
		SELECT ?, COALESCE(MAX(seq), 0) + 1, ?, ?, ?
		FROM events WHERE session_id = ?
		RETURNING seq`,
		sessionID, string(ev.Type), string(ev.Role), string(payload), sessionID,
	).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("append event: %w", err)
	}

	return seq, nil
}

// Events implements session.Store.
func (s *Store) Events(ctx context.Context, sessionID string) ([]core.StreamEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT payload FROM events
		WHERE session_id = ?
		ORDER BY seq`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get events: %w", err)
	}
	defer rows.Close()

	var events []core.StreamEvent
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		var ev core.StreamEvent
		if err := json.Unmarshal([]byte(payload), &ev); err != nil {
			return nil, fmt.Errorf("decode event: %w", err)
		}
		events = append(events, ev)
	}

	return events, rows.Err()
}

// SaveSnapshot implements session.Store. The snapshot's outputs are also
// written to the outputs table so they can be queried by type.
func (s *Store) SaveSnapshot(ctx context.Context, snap core.SessionSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO sessions (id, phase, snapshot, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			phase = excluded.phase,
			snapshot = excluded.snapshot,
			updated_at = excluded.updated_at`,
		snap.ID, snap.Phase, string(data), snap.Created, snap.Updated,
	); err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	for _, o := range snap.Outputs {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO outputs (session_id, id, role, type, title, content, format)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(session_id, id) DO NOTHING`,
			snap.ID, o.ID, string(o.Role), string(o.Type), o.Title, o.Content, o.Format,
		); err != nil {
			return fmt.Errorf("save output %s: %w", o.ID, err)
		}
	}

	return tx.Commit()
}

// Snapshot implements session.Store.
func (s *Store) Snapshot(ctx context.Context, sessionID string) (core.SessionSnapshot, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT snapshot FROM sessions WHERE id = ?`, sessionID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return core.SessionSnapshot{}, session.ErrNotFound
	}
	if err != nil {
		return core.SessionSnapshot{}, fmt.Errorf("get snapshot: %w", err)
	}

	var snap core.SessionSnapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return core.SessionSnapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, nil
}

// Sessions implements session.Store.
func (s *Store) Sessions(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id FROM sessions
		UNION
		SELECT DISTINCT session_id FROM events
		ORDER BY 1`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Outputs returns the stored outputs of sessionID, optionally filtered by
// type, in id order of recording.
func (s *Store) Outputs(ctx context.Context, sessionID string, typ core.OutputType) ([]core.Output, error) {
	query := `SELECT id, role, type, title, content, format FROM outputs WHERE session_id = ?`
	args := []any{sessionID}
	if typ != "" {
		query += ` AND type = ?`
		args = append(args, string(typ))
	}
	query += ` ORDER BY CAST(SUBSTR(id, 5) AS INTEGER), id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("get outputs: %w", err)
	}
	defer rows.Close()

	var outputs []core.Output
	for rows.Next() {
		var o core.Output
		var role, otype string
		if err := rows.Scan(&o.ID, &role, &otype, &o.Title, &o.Content, &o.Format); err != nil {
			return nil, fmt.Errorf("scan output: %w", err)
		}
		o.Role = core.Role(role)
		o.Type = core.OutputType(otype)
		outputs = append(outputs, o)
	}
	return outputs, rows.Err()
}
