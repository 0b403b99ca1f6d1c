package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers request keys so a replayed request is not applied twice
type IdempotencyStore interface {
	// MarkProcessed marks a key as processed with a TTL
	// Returns true if the key was newly marked, false if it was already processed
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Release forgets a key so the request can be retried
	Release(ctx context.Context, key string) error

	// Close closes the store and releases resources
	Close() error
}
