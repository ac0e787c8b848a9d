// Package sqlstore implements history.Store over database/sql. The sqlite
// and postgres drivers share it and differ only in dialect.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/designlog/pkg/history"
)

// Dialect names the SQL flavour in use.
type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
)

const schema = `CREATE TABLE IF NOT EXISTS entries (
	id         TEXT PRIMARY KEY,
	created_at BIGINT NOT NULL,
	week_id    TEXT NOT NULL,
	day        INTEGER NOT NULL,
	provider   TEXT NOT NULL,
	model      TEXT NOT NULL,
	image_path TEXT NOT NULL DEFAULT '',
	terms      TEXT NOT NULL,
	raw        TEXT NOT NULL DEFAULT ''
)`

const weekIndex = `CREATE INDEX IF NOT EXISTS entries_week_id ON entries (week_id)`

const columns = "id, created_at, week_id, day, provider, model, image_path, terms, raw"

// Store implements history.Store on top of a *sql.DB.
type Store struct {
	DB      *sql.DB
	Dialect Dialect
}

// Open wraps db and creates the schema if needed.
func Open(ctx context.Context, db *sql.DB, dialect Dialect) (*Store, error) {
	for _, stmt := range []string{schema, weekIndex} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return &Store{DB: db, Dialect: dialect}, nil
}

// Put stores a new entry.
func (s *Store) Put(ctx context.Context, entry *history.Entry) error {
	if entry == nil {
		return history.ErrNilEntry
	}
	return s.insert(ctx, s.DB, entry)
}

// List returns entries matching filter ordered by creation time.
func (s *Store) List(ctx context.Context, filter history.Filter) ([]*history.Entry, error) {
	query := "SELECT " + columns + " FROM entries"
	args := []any{}
	if filter.WeekID != "" {
		query += " WHERE week_id = " + s.placeholder(1)
		args = append(args, filter.WeekID)
	}
	query += " ORDER BY created_at, id"

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	defer rows.Close()

	out := []*history.Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	return out, nil
}

// Weeks returns the ids of non-empty weeks in ascending order.
func (s *Store) Weeks(ctx context.Context) ([]string, error) {
	rows, err := s.DB.QueryContext(ctx, "SELECT DISTINCT week_id FROM entries ORDER BY week_id")
	if err != nil {
		return nil, fmt.Errorf("failed to list weeks: %w", err)
	}
	defer rows.Close()

	weeks := []string{}
	for rows.Next() {
		var week string
		if err := rows.Scan(&week); err != nil {
			return nil, fmt.Errorf("failed to scan week: %w", err)
		}
		weeks = append(weeks, week)
	}
	return weeks, rows.Err()
}

// Replace swaps the entries of weekID inside a single transaction.
func (s *Store) Replace(ctx context.Context, weekID string, entries []*history.Entry) (err error) {
	for _, e := range entries {
		if e == nil {
			return history.ErrNilEntry
		}
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, "DELETE FROM entries WHERE week_id = "+s.placeholder(1), weekID); err != nil {
		return fmt.Errorf("failed to clear week %s: %w", weekID, err)
	}
	for _, e := range entries {
		c := *e
		c.WeekID = weekID
		if err = s.insert(ctx, tx, &c); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.DB.Close()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) insert(ctx context.Context, db execer, e *history.Entry) error {
	id := e.ID
	if id == "" {
		id = uuid.NewString()
	}
	terms := e.Terms
	if terms == nil {
		terms = []string{}
	}
	encoded, err := json.Marshal(terms)
	if err != nil {
		return fmt.Errorf("failed to encode terms: %w", err)
	}

	placeholders := make([]string, 9)
	for i := range placeholders {
		placeholders[i] = s.placeholder(i + 1)
	}
	query := "INSERT INTO entries (" + columns + ") VALUES (" + strings.Join(placeholders, ", ") + ")"

	_, err = db.ExecContext(ctx, query,
		id,
		e.CreatedAt.UnixMilli(),
		e.WeekID,
		e.Day,
		e.Provider,
		e.Model,
		e.ImagePath,
		string(encoded),
		e.Raw,
	)
	if err != nil {
		return fmt.Errorf("failed to insert entry %s: %w", id, err)
	}
	return nil
}

func (s *Store) placeholder(n int) string {
	if s.Dialect == Postgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

func scanEntry(rows *sql.Rows) (*history.Entry, error) {
	var (
		e       history.Entry
		created int64
		terms   string
	)
	err := rows.Scan(&e.ID, &created, &e.WeekID, &e.Day, &e.Provider, &e.Model, &e.ImagePath, &terms, &e.Raw)
	if err != nil {
		return nil, fmt.Errorf("failed to scan entry: %w", err)
	}
	e.CreatedAt = time.UnixMilli(created).UTC()
	if err := json.Unmarshal([]byte(terms), &e.Terms); err != nil {
		return nil, fmt.Errorf("failed to decode terms of %s: %w", e.ID, err)
	}
	return &e, nil
}
