package identity

import (
	"strings"
	"time"

	"github.com/leadflow/backend/internal/domain/shared"
)

// SubscriptionTier is the billing plan a user is on
type SubscriptionTier string

const (
	TierFree    SubscriptionTier = "free"
	TierStarter SubscriptionTier = "starter"
	TierPro     SubscriptionTier = "pro"
)

// IsValid reports whether the tier is one of the known plans
func (t SubscriptionTier) IsValid() bool {
	switch t {
	case TierFree, TierStarter, TierPro:
		return true
	}
	return false
}

// ParseTier normalizes a stored tier value; unknown or empty values fall back to free
func ParseTier(s string) SubscriptionTier {
	t := SubscriptionTier(strings.ToLower(strings.TrimSpace(s)))
	if !t.IsValid() {
		return TierFree
	}
	return t
}

// User is an account that owns campaigns and consumes quota.
// The ID is issued by the external auth provider and treated as opaque.
type User struct {
	ID               string
	Email            string
	SubscriptionTier SubscriptionTier
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// NewUser creates a user on the free tier
func NewUser(id, email string, now time.Time) (*User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, shared.NewDomainError("INVALID_USER", "User ID cannot be empty")
	}
	return &User{
		ID:               id,
		Email:            strings.ToLower(strings.TrimSpace(email)),
		SubscriptionTier: TierFree,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// Tier returns the user's plan, defaulting to free
func (u *User) Tier() SubscriptionTier {
	if u == nil || !u.SubscriptionTier.IsValid() {
		return TierFree
	}
	return u.SubscriptionTier
}
