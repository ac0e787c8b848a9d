// Package sqlite provides a SQLite-backed history store.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/papercomputeco/designlog/pkg/history/sqlstore"
)

// Store implements history.Store using SQLite.
type Store struct {
	*sqlstore.Store
}

// NewStore opens the database at dbPath, which can be a file path or
// ":memory:", and creates the schema.
func NewStore(ctx context.Context, dbPath string) (*Store, error) {
	// github.com/mattn/go-sqlite3 registers itself as "sqlite3"
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A pool would hand each connection its own ":memory:" database.
	db.SetMaxOpenConns(1)

	inner, err := sqlstore.Open(ctx, db, sqlstore.SQLite)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{Store: inner}, nil
}
