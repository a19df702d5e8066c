// Package pg implements the persistence layer on PostgreSQL. Every aggregate
// write runs the same sequence: load, authorize, merge, validate, pre-flight
// uniqueness, then parent write plus child reconciliation inside one
// transaction. Storage failures are translated into the error taxonomy here
// and never escape raw.
package pg

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/qinshuxiang/server/internal/apperr"
)

type Store struct {
	db *sql.DB
}

// Open connects to PostgreSQL via the pgx stdlib driver with tuned pool
// defaults.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{db: db}, nil
}

// New wraps an existing connection pool. Used by tests with sqlmock.
func New(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

// withTx runs fn inside a single transaction; any error rolls back the whole
// unit of work so no partial aggregate write is ever visible. The returned
// error is always a taxonomy error: a unique violation that slipped past a
// pre-flight check still comes back as Conflict.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperr.FromStorage(err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return apperr.FromStorage(err)
	}
	if err := tx.Commit(); err != nil {
		return apperr.FromStorage(err)
	}
	return nil
}
