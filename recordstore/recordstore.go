// Package recordstore is the relational store for election metadata:
// elections, candidates and their counters, sealed voter credentials,
// anonymous registrations and published ballot addresses.
package recordstore

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
	"go.anonvote.io/avote/log"
	recorddb "go.anonvote.io/avote/recordstore/db"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

var (
	// ErrNotFound is returned when a looked up record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists is returned when an insert violates a uniqueness
	// constraint.
	ErrAlreadyExists = errors.New("record already exists")
)

// Store is the SQLite backed record store.
type Store struct {
	sqlDB *sql.DB
}

// New opens (creating if needed) the SQLite database at path and applies the
// pending migrations.
func New(path string) (*Store, error) {
	sqlDB, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000", path))
	if err != nil {
		return nil, err
	}
	// sqlite doesn't support multiple concurrent writers.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(2)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)
	sqlDB.SetConnMaxLifetime(time.Hour)

	goose.SetLogger(log.GooseLogger())
	goose.SetBaseFS(embedMigrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		sqlDB.Close()
		return nil, err
	}
	if err := goose.Up(sqlDB, "migrations"); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("goose up: %w", err)
	}
	log.Debugw("record store ready", "path", path)
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.sqlDB.Close()
}

// Queries returns the typed queries running outside any transaction.
func (s *Store) Queries() *recorddb.Queries {
	return recorddb.New(s.sqlDB)
}

// WithTx runs fn inside a transaction. The transaction is committed only if
// fn returns nil; otherwise, or if ctx is cancelled, nothing fn wrote is kept.
func (s *Store) WithTx(ctx context.Context, fn func(q *recorddb.Queries) error) error {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(recorddb.New(tx)); err != nil {
		return err
	}
	return tx.Commit()
}

// Err maps driver errors to the package errors. Other errors are returned
// unchanged.
func Err(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) &&
		(sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey) {
		return fmt.Errorf("%w: %v", ErrAlreadyExists, err)
	}
	return err
}
