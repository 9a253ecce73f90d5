package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"numera/internal/core/apperror"
)

// PostgreSQL error codes we care about.
const (
	pgCodeUniqueViolation     = "23505"
	pgCodeSerializationFail   = "40001"
	pgCodeDeadlockDetected    = "40P01"
	pgCodeConnectionClassPref = "08" // connection exception class
)

// ClassifyError maps low-level pgx errors onto the apperror taxonomy.
// Serialization failures and deadlocks come back as PERSISTENCE_CONFLICT
// (retryable); connection-class failures, timeouts and cancellations as
// PERSISTENCE_UNAVAILABLE. Unique violations are surfaced separately so
// repositories can attach entity context. Anything unrecognized passes
// through unchanged.
func ClassifyError(err error) error {
	if err == nil {
		return nil
	}
	if apperror.IsAppError(err) {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgCodeSerializationFail, pgCodeDeadlockDetected:
			return apperror.NewPersistenceConflict(err)
		}
		if len(pgErr.Code) >= 2 && pgErr.Code[:2] == pgCodeConnectionClassPref {
			return apperror.NewPersistenceUnavailable(err)
		}
		return err
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return apperror.NewPersistenceUnavailable(err)
	}
	if pgconn.Timeout(err) {
		return apperror.NewPersistenceUnavailable(err)
	}

	return err
}

// IsUniqueViolation reports whether err is a unique constraint violation,
// optionally narrowed to a specific constraint name.
func IsUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgCodeUniqueViolation {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}
