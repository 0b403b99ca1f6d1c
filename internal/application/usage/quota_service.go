package usage

import (
	"context"
	"errors"

	"github.com/leadflow/backend/internal/domain/identity"
	"github.com/leadflow/backend/internal/domain/shared"
	"github.com/leadflow/backend/internal/domain/usage"
	"go.uber.org/zap"
)

// QuotaPolicy maps a subscription tier to its monthly limit
type QuotaPolicy interface {
	LimitFor(tier string) int64
}

// Quota is a user's plan and current-month consumption
type Quota struct {
	Tier   identity.SubscriptionTier
	Period usage.Period
	usage.Usage
}

// QuotaService resolves a user's tier and reads the ledger against it
type QuotaService struct {
	ledger *Ledger
	users  identity.UserRepository
	policy QuotaPolicy
	logger *zap.Logger
}

// NewQuotaService creates a new QuotaService
func NewQuotaService(ledger *Ledger, users identity.UserRepository, policy QuotaPolicy, logger *zap.Logger) *QuotaService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QuotaService{
		ledger: ledger,
		users:  users,
		policy: policy,
		logger: logger,
	}
}

// Tier returns the user's subscription tier. Users the store has never seen
// are on the free tier.
func (s *QuotaService) Tier(ctx context.Context, userID string) (identity.SubscriptionTier, error) {
	user, err := s.users.FindByID(ctx, userID)
	if errors.Is(err, shared.ErrNotFound) {
		return identity.TierFree, nil
	}
	if err != nil {
		s.logger.Error("Failed to load user tier", zap.String("user_id", userID), zap.Error(err))
		return "", usage.ErrStorageUnavailable.Wrap(err)
	}
	return user.Tier(), nil
}

// Current returns the user's tier and usage for the current month
func (s *QuotaService) Current(ctx context.Context, userID string) (Quota, error) {
	if userID == "" {
		return Quota{}, usage.ErrInvalidArgument.WithMessage("user ID cannot be empty")
	}
	tier, err := s.Tier(ctx, userID)
	if err != nil {
		return Quota{}, err
	}
	u, err := s.ledger.GetUsage(ctx, userID, s.policy.LimitFor(string(tier)))
	if err != nil {
		return Quota{}, err
	}
	return Quota{
		Tier:   tier,
		Period: usage.PeriodOf(s.ledger.clock.Now()),
		Usage:  u,
	}, nil
}

// History returns up to months past counters, newest first
func (s *QuotaService) History(ctx context.Context, userID string, months int) ([]*usage.UsageRecord, error) {
	return s.ledger.History(ctx, userID, months)
}

// Ledger exposes the underlying ledger
func (s *QuotaService) Ledger() *Ledger {
	return s.ledger
}
