package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/me/ytdl-agent/pkg/model"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and returns a Store.
// Use ":memory:" for an in-memory database (useful in tests).
func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	// One connection: every ":memory:" connection is its own database, and
	// SetAll relies on a single writer.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma wal: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		logger: logger.With("component", "store"),
	}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Migrate creates all required tables and indexes.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	s.logger.Debug("sql", "op", "migrate")
	return migrate(ctx, s.db)
}

// GetAll returns every record keyed by job key. An empty store yields an
// empty, non-nil map.
func (s *SQLiteStore) GetAll(ctx context.Context) (map[string]model.Record, error) {
	s.logger.Debug("sql", "op", "select", "table", "records")

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, link, state, created_at, updated_at FROM records ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]model.Record)
	for rows.Next() {
		var rec model.Record
		var state, createdAt, updatedAt string
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.Link, &state, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		rec.State = model.RecordState(state)
		rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		rec.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
		out[rec.ID] = rec
	}
	return out, rows.Err()
}

// SetAll replaces the stored map with records inside one transaction.
// Map keys win over Record.ID.
func (s *SQLiteStore) SetAll(ctx context.Context, records map[string]model.Record) error {
	s.logger.Debug("sql", "op", "replace", "table", "records", "count", len(records))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM records`); err != nil {
		return fmt.Errorf("clear records: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO records (id, name, link, state, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for key, rec := range records {
		state := rec.State
		if state == "" {
			state = model.RecordStatePending
		}
		if _, err := stmt.ExecContext(ctx, key, rec.Name, rec.Link, string(state),
			rec.CreatedAt.UTC().Format(time.RFC3339Nano), rec.UpdatedAt.UTC().Format(time.RFC3339Nano),
		); err != nil {
			return fmt.Errorf("insert record %s: %w", key, err)
		}
	}

	return tx.Commit()
}
