package campaign

import (
	"time"

	"github.com/google/uuid"
	"github.com/leadflow/backend/internal/domain/campaign"
	"github.com/leadflow/backend/internal/domain/usage"
)

// CreateCampaignInput is the request to create and dispatch a campaign
type CreateCampaignInput struct {
	UserID         string
	Name           string
	Template       string
	Leads          []campaign.Lead
	Settings       map[string]any
	IdempotencyKey string
}

// CreateCampaignResult is returned once the automation service accepted the campaign
type CreateCampaignResult struct {
	CampaignID uuid.UUID       `json:"campaign_id"`
	Status     campaign.Status `json:"status"`
	Usage      usage.Usage     `json:"usage"`
}

// CampaignResponse is the read view of a campaign
type CampaignResponse struct {
	ID             uuid.UUID       `json:"id"`
	Name           string          `json:"name"`
	Template       string          `json:"template"`
	LeadCount      int             `json:"lead_count"`
	Settings       map[string]any  `json:"settings"`
	Status         campaign.Status `json:"status"`
	ProcessedCount int             `json:"processed_count"`
	ErrorMessage   string          `json:"error_message,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// ToCampaignResponse converts a domain campaign into its read view
func ToCampaignResponse(c *campaign.Campaign) CampaignResponse {
	return CampaignResponse{
		ID:             c.ID,
		Name:           c.Name,
		Template:       c.Template,
		LeadCount:      c.LeadCount,
		Settings:       c.Settings,
		Status:         c.Status,
		ProcessedCount: c.ProcessedCount,
		ErrorMessage:   c.ErrorMessage,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
}

// ToCampaignResponses converts a list of campaigns
func ToCampaignResponses(cs []*campaign.Campaign) []CampaignResponse {
	out := make([]CampaignResponse, len(cs))
	for i, c := range cs {
		out[i] = ToCampaignResponse(c)
	}
	return out
}
