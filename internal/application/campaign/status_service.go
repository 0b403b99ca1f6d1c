package campaign

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/leadflow/backend/internal/domain/campaign"
	"github.com/leadflow/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// StatusInput is a progress report posted by the automation service
type StatusInput struct {
	CampaignID     uuid.UUID
	Status         string
	LeadsProcessed int
	Error          string
}

// StatusService applies automation progress reports to campaigns
type StatusService struct {
	campaigns campaign.Repository
	clock     shared.Clock
	logger    *zap.Logger
}

// NewStatusService creates a new StatusService
func NewStatusService(campaigns campaign.Repository, clock shared.Clock, logger *zap.Logger) *StatusService {
	if clock == nil {
		clock = shared.NewSystemClock(time.UTC)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatusService{campaigns: campaigns, clock: clock, logger: logger}
}

// Apply records the reported status, processed count and error message
func (s *StatusService) Apply(ctx context.Context, input StatusInput) error {
	update := campaign.StatusUpdate{
		CampaignID:     input.CampaignID,
		Status:         campaign.Status(input.Status),
		ProcessedCount: input.LeadsProcessed,
		ErrorMessage:   input.Error,
		At:             s.clock.Now(),
	}
	if err := update.Validate(); err != nil {
		return err
	}

	err := s.campaigns.UpdateStatus(ctx, update)
	if errors.Is(err, shared.ErrNotFound) {
		s.logger.Warn("Status report for unknown campaign", zap.String("campaign_id", input.CampaignID.String()))
		return campaign.ErrCampaignNotFound
	}
	if err != nil {
		s.logger.Error("Failed to update campaign status",
			zap.String("campaign_id", input.CampaignID.String()),
			zap.Error(err),
		)
		return err
	}

	s.logger.Info("Campaign status updated",
		zap.String("campaign_id", input.CampaignID.String()),
		zap.String("status", input.Status),
		zap.Int("processed", input.LeadsProcessed),
	)
	return nil
}
