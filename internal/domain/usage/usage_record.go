package usage

import (
	"time"

	"github.com/google/uuid"
)

// UsageRecord is the stored quota counter for one user and one month.
// Count only changes through the ledger's increment operation.
type UsageRecord struct {
	ID        uuid.UUID
	UserID    string
	Period    Period
	Count     int64
	Version   int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewUsageRecord creates the first record of a period with count = delta
func NewUsageRecord(userID string, period Period, delta int64, now time.Time) (*UsageRecord, error) {
	if userID == "" {
		return nil, ErrInvalidArgument.WithMessage("user ID cannot be empty")
	}
	if delta < 0 {
		return nil, ErrInvalidArgument.WithMessage("delta cannot be negative")
	}
	return &UsageRecord{
		ID:        uuid.New(),
		UserID:    userID,
		Period:    period,
		Count:     delta,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Usage is a read-side snapshot of quota consumption for the current period
type Usage struct {
	Used      int64 `json:"used"`
	Remaining int64 `json:"remaining"`
	Limit     int64 `json:"limit"`
}

// NewUsage computes remaining = max(0, limit - used)
func NewUsage(used, limit int64) Usage {
	remaining := limit - used
	if remaining < 0 {
		remaining = 0
	}
	return Usage{
		Used:      used,
		Remaining: remaining,
		Limit:     limit,
	}
}

// Allows reports whether n more units fit in the remaining quota
func (u Usage) Allows(n int64) bool {
	return n <= u.Remaining
}

// IsExhausted reports whether no quota remains
func (u Usage) IsExhausted() bool {
	return u.Remaining == 0
}
