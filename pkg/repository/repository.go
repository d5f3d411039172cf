// Package repository holds the database/sql plumbing shared by domain
// repositories: transactions, advisory locks, and typed row scanning.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"slices"
)

// Querier reads rows. *sql.DB, *sql.Tx, and *sql.Conn satisfy it.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Executor runs statements. *sql.DB, *sql.Tx, and *sql.Conn satisfy it.
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Scanner is the common surface of *sql.Row and *sql.Rows.
type Scanner interface {
	Scan(dest ...any) error
}

// ScanFunc reads one entity from a row.
type ScanFunc[T any] func(Scanner) (T, error)

// WithTx runs fn in a transaction and commits when fn succeeds.
func WithTx[T any](ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) (T, error)) (T, error) {
	return inTx(ctx, db, true, fn)
}

// RollbackOnly runs fn in a transaction that is always rolled back, so a
// write can be previewed without effect.
func RollbackOnly[T any](ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) (T, error)) (T, error) {
	return inTx(ctx, db, false, fn)
}

func inTx[T any](ctx context.Context, db *sql.DB, commit bool, fn func(tx *sql.Tx) (T, error)) (result T, err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return result, err
	}

	defer func() {
		if !commit || err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				err = errors.Join(err, rbErr)
			}
		}
		if err != nil {
			var zero T
			result = zero
		}
	}()

	if result, err = fn(tx); err != nil {
		return result, err
	}
	if commit {
		err = tx.Commit()
	}
	return result, err
}

// AdvisoryLock takes a transaction-scoped advisory lock per distinct key.
// Keys are locked in sorted order so overlapping callers cannot deadlock.
func AdvisoryLock(ctx context.Context, e Executor, keys ...string) error {
	sorted := slices.Compact(slices.Sorted(slices.Values(keys)))
	for _, k := range sorted {
		if _, err := e.ExecContext(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", k); err != nil {
			return err
		}
	}
	return nil
}

// QueryOne scans the first row of query. A missing row surfaces as
// sql.ErrNoRows from scan.
func QueryOne[T any](ctx context.Context, q Querier, query string, args []any, scan ScanFunc[T]) (T, error) {
	return scan(q.QueryRowContext(ctx, query, args...))
}

// QueryMany scans every row of query. No rows yields an empty, non-nil slice.
func QueryMany[T any](ctx context.Context, q Querier, query string, args []any, scan ScanFunc[T]) ([]T, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := []T{}
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, item)
	}
	return results, rows.Err()
}

// ExecExpectOne runs a statement that must touch at least one row;
// touching none returns sql.ErrNoRows.
func ExecExpectOne(ctx context.Context, e Executor, query string, args ...any) error {
	res, err := e.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	switch {
	case err != nil:
		return err
	case n == 0:
		return sql.ErrNoRows
	}
	return nil
}
