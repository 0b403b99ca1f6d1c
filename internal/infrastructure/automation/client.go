// Package automation sends campaigns to the external workflow service.
package automation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"net/http"
	"time"

	"github.com/leadflow/backend/internal/domain/campaign"
	"go.uber.org/zap"
)

// AuthHeader carries the shared secret in both directions
const AuthHeader = "n8n-auth"

const maxResponseSize = 64 * 1024

// Config configures the webhook client. CallbackURL is always sent as
// settings.callbackUrl and replaces any value supplied by the client.
type Config struct {
	WebhookURL  string
	Secret      string
	CallbackURL string
	Timeout     time.Duration
}

// Client posts campaign dispatches to the automation webhook
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a webhook client. A zero timeout falls back to 10s.
func NewClient(cfg Config, httpClient *http.Client, logger *zap.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{cfg: cfg, httpClient: httpClient, logger: logger}
}

type webhookPayload struct {
	UserID       string          `json:"userId"`
	CampaignID   string          `json:"campaignId"`
	Name         string          `json:"name"`
	Template     string          `json:"template"`
	Leads        []campaign.Lead `json:"leads"`
	Settings     map[string]any  `json:"settings"`
	Subscription string          `json:"subscription"`
}

// Trigger posts the dispatch. Transport errors and non-2xx responses are
// reported as campaign.ErrAutomationUnavailable.
func (c *Client) Trigger(ctx context.Context, d campaign.Dispatch) error {
	if c.cfg.WebhookURL == "" {
		return campaign.ErrAutomationUnavailable.WithMessage("automation webhook URL is not configured")
	}

	settings := make(map[string]any, len(d.Settings)+1)
	maps.Copy(settings, d.Settings)
	settings["callbackUrl"] = c.cfg.CallbackURL
	leads := d.Leads
	if leads == nil {
		leads = []campaign.Lead{}
	}

	body, err := json.Marshal(webhookPayload{
		UserID:       d.UserID,
		CampaignID:   d.CampaignID.String(),
		Name:         d.Name,
		Template:     d.Template,
		Leads:        leads,
		Settings:     settings,
		Subscription: d.Subscription,
	})
	if err != nil {
		return fmt.Errorf("automation: failed to encode payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("automation: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(AuthHeader, c.cfg.Secret)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("Automation webhook unreachable",
			zap.String("campaign_id", d.CampaignID.String()),
			zap.Error(err),
		)
		return campaign.ErrAutomationUnavailable.Wrap(err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("Automation webhook rejected campaign",
			zap.String("campaign_id", d.CampaignID.String()),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", respBody),
		)
		return campaign.ErrAutomationUnavailable.Wrap(fmt.Errorf("HTTP %d", resp.StatusCode))
	}

	c.logger.Debug("Automation webhook accepted campaign",
		zap.String("campaign_id", d.CampaignID.String()),
		zap.Int("leads", len(leads)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}
