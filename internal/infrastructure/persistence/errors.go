package persistence

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/leadflow/backend/internal/domain/shared"
	"github.com/lib/pq"
)

// PostgreSQL SQLSTATE codes a transaction may be retried after
const (
	sqlStateSerializationFailure = "40001"
	sqlStateDeadlockDetected     = "40P01"
)

// isRetryable reports whether err is a transient serialization failure or
// deadlock, from either the pgx driver used by gorm or lib/pq
func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == sqlStateSerializationFailure || pgErr.Code == sqlStateDeadlockDetected
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		code := string(pqErr.Code)
		return code == sqlStateSerializationFailure || code == sqlStateDeadlockDetected
	}
	return false
}

// translateError maps retryable driver errors to shared.ErrConcurrencyConflict
// and passes everything else through unchanged
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if isRetryable(err) {
		return shared.ErrConcurrencyConflict.Wrap(err)
	}
	return err
}
