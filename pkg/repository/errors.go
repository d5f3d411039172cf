package repository

import (
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// PostgreSQL SQLSTATE codes the repositories react to.
const (
	codeUniqueViolation      = "23505"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

// MapError turns sql.ErrNoRows into notFoundErr and a unique violation
// into duplicateErr. Anything else is returned as is.
func MapError(err error, notFoundErr, duplicateErr error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return notFoundErr
	case IsUniqueViolation(err):
		return duplicateErr
	}
	return err
}

// IsUniqueViolation reports whether err carries a unique violation.
func IsUniqueViolation(err error) bool {
	return sqlState(err) == codeUniqueViolation
}

// IsConcurrencyFailure reports whether err is a serialization failure or a
// detected deadlock, both caused by a concurrent transaction.
func IsConcurrencyFailure(err error) bool {
	switch sqlState(err) {
	case codeSerializationFailure, codeDeadlockDetected:
		return true
	}
	return false
}

func sqlState(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}
