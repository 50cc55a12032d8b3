package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS tei_cache (
	hash      TEXT PRIMARY KEY,
	doi       TEXT NOT NULL DEFAULT '',
	tei       BLOB NOT NULL,
	stored_at INTEGER NOT NULL
)`

// SQLite is a Cache in a local database file.
type SQLite struct {
	db *sql.DB
}

func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One writer at a time; sqlite serializes writes anyway.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Get(ctx context.Context, hash string) (Entry, error) {
	var (
		e        = Entry{Hash: hash}
		storedAt int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT doi, tei, stored_at FROM tei_cache WHERE hash = ?`, hash,
	).Scan(&e.DOI, &e.TEI, &storedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, fmt.Errorf("query tei cache: %w", err)
	}
	e.StoredAt = time.Unix(storedAt, 0).UTC()
	return e, nil
}

func (s *SQLite) Put(ctx context.Context, e Entry) error {
	if e.StoredAt.IsZero() {
		e.StoredAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tei_cache (hash, doi, tei, stored_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(hash) DO UPDATE SET doi = excluded.doi, tei = excluded.tei, stored_at = excluded.stored_at`,
		e.Hash, e.DOI, e.TEI, e.StoredAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert tei cache: %w", err)
	}
	return nil
}

func (s *SQLite) Close(context.Context) error {
	return s.db.Close()
}
