// Package campaign implements campaign intake and the status callback
// received from the automation service.
package campaign

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/leadflow/backend/internal/domain/campaign"
	"github.com/leadflow/backend/internal/domain/identity"
	"github.com/leadflow/backend/internal/domain/shared"
	"github.com/leadflow/backend/internal/domain/usage"
	"go.uber.org/zap"
)

// Errors
var (
	ErrUsageLimitExceeded = shared.NewDomainError("USAGE_LIMIT_EXCEEDED", "Monthly usage limit exceeded")
	ErrDuplicateRequest   = shared.NewDomainError("DUPLICATE_REQUEST", "Request with this idempotency key was already received")
)

// Campaign outcomes reported to the OutcomeRecorder
const (
	OutcomeAccepted         = "accepted"
	OutcomeQuotaExceeded    = "quota_exceeded"
	OutcomeAutomationFailed = "automation_failed"
)

// DefaultListLimit caps List when no limit is given
const DefaultListLimit = 50

// QuotaExceededError rejects a campaign whose leads do not fit in the
// remaining monthly quota. It matches ErrUsageLimitExceeded with errors.Is.
type QuotaExceededError struct {
	Usage     usage.Usage
	Requested int64
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("usage limit exceeded: requested %d, remaining %d of %d",
		e.Requested, e.Usage.Remaining, e.Usage.Limit)
}

func (e *QuotaExceededError) Unwrap() error {
	return ErrUsageLimitExceeded
}

// UsageMeter reads and advances the usage ledger
type UsageMeter interface {
	GetUsage(ctx context.Context, userID string, limit int64) (usage.Usage, error)
	IncrementUsage(ctx context.Context, userID string, delta int64) error
}

// TierResolver looks up a user's subscription tier
type TierResolver interface {
	Tier(ctx context.Context, userID string) (identity.SubscriptionTier, error)
}

// QuotaPolicy maps a subscription tier to its monthly limit
type QuotaPolicy interface {
	LimitFor(tier string) int64
}

// OutcomeRecorder counts campaign intake outcomes
type OutcomeRecorder interface {
	CampaignOutcome(outcome string)
}

type nopOutcomeRecorder struct{}

func (nopOutcomeRecorder) CampaignOutcome(string) {}

// IntakeOption configures an IntakeService
type IntakeOption func(*IntakeService)

// WithIdempotency deduplicates requests carrying an idempotency key
func WithIdempotency(store shared.IdempotencyStore, ttl time.Duration) IntakeOption {
	return func(s *IntakeService) {
		s.idempotency = store
		if ttl > 0 {
			s.idempotencyTTL = ttl
		}
	}
}

// WithOutcomeRecorder reports intake outcomes to r
func WithOutcomeRecorder(r OutcomeRecorder) IntakeOption {
	return func(s *IntakeService) {
		if r != nil {
			s.outcomes = r
		}
	}
}

// IntakeService checks quota, persists campaigns and hands them to the
// automation service
type IntakeService struct {
	campaigns      campaign.Repository
	tiers          TierResolver
	policy         QuotaPolicy
	meter          UsageMeter
	automation     campaign.Automation
	clock          shared.Clock
	idempotency    shared.IdempotencyStore
	idempotencyTTL time.Duration
	outcomes       OutcomeRecorder
	logger         *zap.Logger
}

// NewIntakeService creates a new IntakeService
func NewIntakeService(
	campaigns campaign.Repository,
	tiers TierResolver,
	policy QuotaPolicy,
	meter UsageMeter,
	automation campaign.Automation,
	clock shared.Clock,
	logger *zap.Logger,
	opts ...IntakeOption,
) *IntakeService {
	if clock == nil {
		clock = shared.NewSystemClock(time.UTC)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &IntakeService{
		campaigns:      campaigns,
		tiers:          tiers,
		policy:         policy,
		meter:          meter,
		automation:     automation,
		clock:          clock,
		idempotencyTTL: 24 * time.Hour,
		outcomes:       nopOutcomeRecorder{},
		logger:         logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create validates the request against the caller's remaining quota, stores
// the campaign, triggers the automation service and meters the leads.
//
// Usage is only incremented after the automation service accepted the
// campaign. A metering failure after that point is logged and the campaign
// is still reported as created.
func (s *IntakeService) Create(ctx context.Context, input CreateCampaignInput) (result *CreateCampaignResult, err error) {
	if strings.TrimSpace(input.UserID) == "" {
		return nil, shared.ErrUnauthorized
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, shared.ErrInvalidInput.WithMessage("name is required")
	}
	if len(input.Leads) == 0 {
		return nil, shared.ErrInvalidInput.WithMessage("at least one lead is required")
	}

	release, err := s.claimKey(ctx, input.UserID, input.IdempotencyKey)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			release()
		}
	}()

	tier, err := s.tiers.Tier(ctx, input.UserID)
	if err != nil {
		return nil, err
	}
	limit := s.policy.LimitFor(string(tier))
	requested := int64(len(input.Leads))

	before, err := s.meter.GetUsage(ctx, input.UserID, limit)
	if err != nil {
		return nil, err
	}
	if !before.Allows(requested) {
		s.outcomes.CampaignOutcome(OutcomeQuotaExceeded)
		s.logger.Info("Campaign rejected, usage limit exceeded",
			zap.String("user_id", input.UserID),
			zap.String("tier", string(tier)),
			zap.Int64("requested", requested),
			zap.Int64("remaining", before.Remaining),
		)
		return nil, &QuotaExceededError{Usage: before, Requested: requested}
	}

	c, err := campaign.NewCampaign(input.UserID, input.Name, input.Template, len(input.Leads), input.Settings, s.clock.Now())
	if err != nil {
		return nil, err
	}
	if err := s.campaigns.Create(ctx, c); err != nil {
		s.logger.Error("Failed to create campaign", zap.String("user_id", input.UserID), zap.Error(err))
		return nil, err
	}

	err = s.automation.Trigger(ctx, campaign.Dispatch{
		UserID:       input.UserID,
		CampaignID:   c.ID,
		Name:         c.Name,
		Template:     c.Template,
		Leads:        input.Leads,
		Settings:     c.Settings,
		Subscription: string(tier),
	})
	if err != nil {
		s.outcomes.CampaignOutcome(OutcomeAutomationFailed)
		s.markFailed(ctx, c, err)
		return nil, err
	}

	current := usage.NewUsage(before.Used+requested, limit)
	if err := s.meter.IncrementUsage(ctx, input.UserID, requested); err != nil {
		s.logger.Error("Campaign accepted but not metered",
			zap.String("user_id", input.UserID),
			zap.String("campaign_id", c.ID.String()),
			zap.Int64("delta", requested),
			zap.Error(err),
		)
	} else if after, err := s.meter.GetUsage(ctx, input.UserID, limit); err == nil {
		current = after
	}

	s.outcomes.CampaignOutcome(OutcomeAccepted)
	s.logger.Info("Campaign accepted",
		zap.String("user_id", input.UserID),
		zap.String("campaign_id", c.ID.String()),
		zap.Int("leads", len(input.Leads)),
	)
	return &CreateCampaignResult{
		CampaignID: c.ID,
		Status:     c.Status,
		Usage:      current,
	}, nil
}

// Get returns a campaign owned by userID
func (s *IntakeService) Get(ctx context.Context, userID string, id uuid.UUID) (*CampaignResponse, error) {
	if userID == "" {
		return nil, shared.ErrUnauthorized
	}
	c, err := s.campaigns.FindByID(ctx, id)
	if errors.Is(err, shared.ErrNotFound) {
		return nil, campaign.ErrCampaignNotFound
	}
	if err != nil {
		return nil, err
	}
	// other users' campaigns are reported as missing
	if !c.IsOwnedBy(userID) {
		return nil, campaign.ErrCampaignNotFound
	}
	resp := ToCampaignResponse(c)
	return &resp, nil
}

// List returns the user's campaigns, newest first
func (s *IntakeService) List(ctx context.Context, userID string, limit int) ([]CampaignResponse, error) {
	if userID == "" {
		return nil, shared.ErrUnauthorized
	}
	if limit <= 0 || limit > DefaultListLimit {
		limit = DefaultListLimit
	}
	cs, err := s.campaigns.FindByUser(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	return ToCampaignResponses(cs), nil
}

// claimKey marks the idempotency key as in use. The returned func forgets the
// key again so a failed request can be retried with it. Store failures are
// logged and the request proceeds without deduplication.
func (s *IntakeService) claimKey(ctx context.Context, userID, key string) (func(), error) {
	noop := func() {}
	key = strings.TrimSpace(key)
	if key == "" || s.idempotency == nil {
		return noop, nil
	}
	scoped := userID + ":" + key

	isNew, err := s.idempotency.MarkProcessed(ctx, scoped, s.idempotencyTTL)
	if err != nil {
		s.logger.Warn("Idempotency store unavailable, continuing without deduplication",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return noop, nil
	}
	if !isNew {
		return nil, ErrDuplicateRequest
	}
	return func() {
		if err := s.idempotency.Release(context.WithoutCancel(ctx), scoped); err != nil {
			s.logger.Warn("Failed to release idempotency key", zap.String("user_id", userID), zap.Error(err))
		}
	}, nil
}

func (s *IntakeService) markFailed(ctx context.Context, c *campaign.Campaign, cause error) {
	now := s.clock.Now()
	c.MarkFailed(cause.Error(), now)
	err := s.campaigns.UpdateStatus(context.WithoutCancel(ctx), campaign.StatusUpdate{
		CampaignID:   c.ID,
		Status:       campaign.StatusFailed,
		ErrorMessage: c.ErrorMessage,
		At:           now,
	})
	if err != nil {
		s.logger.Error("Failed to mark campaign failed",
			zap.String("campaign_id", c.ID.String()),
			zap.Error(err),
		)
	}
}
