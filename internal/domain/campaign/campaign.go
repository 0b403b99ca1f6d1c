package campaign

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/leadflow/backend/internal/domain/shared"
)

// Status is the processing state reported for a campaign
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// IsValid reports whether s is a known status
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Errors
var (
	ErrCampaignNotFound = shared.NewDomainError("CAMPAIGN_NOT_FOUND", "Campaign not found")
	ErrInvalidStatus    = shared.NewDomainError("INVALID_STATUS", "Invalid campaign status")
	ErrInvalidCampaign  = shared.NewDomainError("INVALID_CAMPAIGN", "Invalid campaign")
)

// Campaign is an outreach job submitted by a user and executed by the
// external automation service
type Campaign struct {
	shared.BaseEntity
	UserID         string
	Name           string
	Template       string
	LeadCount      int
	Settings       map[string]any
	Status         Status
	ProcessedCount int
	ErrorMessage   string
}

// NewCampaign creates a pending campaign
func NewCampaign(userID, name, template string, leadCount int, settings map[string]any, now time.Time) (*Campaign, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrInvalidCampaign.WithMessage("user ID cannot be empty")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidCampaign.WithMessage("campaign name cannot be empty")
	}
	if len(name) > 200 {
		return nil, ErrInvalidCampaign.WithMessage("campaign name cannot exceed 200 characters")
	}
	if leadCount <= 0 {
		return nil, ErrInvalidCampaign.WithMessage("campaign must contain at least one lead")
	}
	if settings == nil {
		settings = map[string]any{}
	}
	return &Campaign{
		BaseEntity: shared.NewBaseEntity(now),
		UserID:     userID,
		Name:       name,
		Template:   template,
		LeadCount:  leadCount,
		Settings:   settings,
		Status:     StatusPending,
	}, nil
}

// IsOwnedBy reports whether the campaign belongs to userID
func (c *Campaign) IsOwnedBy(userID string) bool {
	return c.UserID == userID
}

// MarkFailed records a failure that happened before the automation service
// accepted the campaign
func (c *Campaign) MarkFailed(reason string, now time.Time) {
	c.Status = StatusFailed
	c.ErrorMessage = reason
	c.UpdatedAt = now
}

// StatusUpdate is a progress report received from the automation service
type StatusUpdate struct {
	CampaignID     uuid.UUID
	Status         Status
	ProcessedCount int
	ErrorMessage   string
	At             time.Time
}

// Validate checks the update before it is applied
func (u StatusUpdate) Validate() error {
	if u.CampaignID == uuid.Nil {
		return ErrInvalidCampaign.WithMessage("campaign ID is required")
	}
	if !u.Status.IsValid() {
		return ErrInvalidStatus.WithMessage("unknown status: " + string(u.Status))
	}
	if u.ProcessedCount < 0 {
		return ErrInvalidCampaign.WithMessage("processed count cannot be negative")
	}
	return nil
}

// Apply copies the reported progress onto the campaign
func (c *Campaign) Apply(u StatusUpdate) error {
	if err := u.Validate(); err != nil {
		return err
	}
	c.Status = u.Status
	c.ProcessedCount = u.ProcessedCount
	c.ErrorMessage = u.ErrorMessage
	c.UpdatedAt = u.At
	return nil
}
