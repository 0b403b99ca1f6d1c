package campaign

import (
	"context"

	"github.com/google/uuid"
	"github.com/leadflow/backend/internal/domain/shared"
)

// ErrAutomationUnavailable is returned when the automation service could not
// accept a campaign
var ErrAutomationUnavailable = shared.NewDomainError("AUTOMATION_UNAVAILABLE", "Automation service unavailable")

// Lead is one contact row submitted with a campaign. Fields are passed
// through to the automation service untouched.
type Lead map[string]any

// Dispatch is the payload handed to the automation service
type Dispatch struct {
	UserID       string
	CampaignID   uuid.UUID
	Name         string
	Template     string
	Leads        []Lead
	Settings     map[string]any
	Subscription string
}

// Automation triggers the external workflow that executes a campaign
type Automation interface {
	Trigger(ctx context.Context, d Dispatch) error
}
