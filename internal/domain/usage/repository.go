package usage

import (
	"context"
	"time"
)

// Store is the durable, transactional storage the ledger depends on
type Store interface {
	// FindByUserAndPeriod returns the record for the key, or shared.ErrNotFound
	FindByUserAndPeriod(ctx context.Context, userID string, period Period) (*UsageRecord, error)

	// Upsert atomically inserts the record with count = delta or adds delta to
	// the existing count, in a single transaction
	Upsert(ctx context.Context, userID string, period Period, delta int64, now time.Time) error

	// IncrementWithVersion performs one optimistic read-check-write attempt.
	// It returns shared.ErrConcurrencyConflict when another writer won the race
	// and the attempt must be retried.
	IncrementWithVersion(ctx context.Context, userID string, period Period, delta int64, now time.Time) error

	// ListByUser returns the user's records, newest period first
	ListByUser(ctx context.Context, userID string, limit int) ([]*UsageRecord, error)
}
