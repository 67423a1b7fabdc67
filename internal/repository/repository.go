// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package repository provides sqlx data access for the lifecycle store.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vinovest/sqlx"
)

var (
	// ErrNotFound is returned when a record is not found.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when an optimistic update lost the race.
	// The caller must re-read and retry.
	ErrConflict = errors.New("concurrent update conflict")
	// ErrIntegrity is returned when a write would violate a ledger
	// invariant. The write is rejected entirely.
	ErrIntegrity = errors.New("data integrity violation")
)

// querier is satisfied by both *sqlx.DB and *sqlx.Tx so repository methods
// work inside and outside transactions.
type querier interface {
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Repository wraps the SQLite store.
type Repository struct {
	db *sqlx.DB // nil when transaction-bound
	q  querier
}

// New creates a new Repository instance.
func New(db *sqlx.DB) *Repository {
	return &Repository{db: db, q: db}
}

// WithTx runs fn against a transaction-bound repository. All writes in fn
// commit or roll back together. Calling WithTx on an already transaction-bound
// repository joins the current transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(*Repository) error) error {
	if r.db == nil {
		return fn(r)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if err := fn(&Repository{q: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// wrapGet converts sql.ErrNoRows to ErrNotFound.
func wrapGet(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
