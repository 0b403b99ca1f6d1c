package handler

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	campaignapp "github.com/leadflow/backend/internal/application/campaign"
	"github.com/leadflow/backend/internal/domain/shared"
	"github.com/leadflow/backend/internal/infrastructure/automation"
	"github.com/leadflow/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// StatusApplier records automation progress reports
type StatusApplier interface {
	Apply(ctx context.Context, input campaignapp.StatusInput) error
}

// CampaignStatusHandler receives progress callbacks from the automation service
type CampaignStatusHandler struct {
	BaseHandler
	service StatusApplier
	secret  []byte
}

// NewCampaignStatusHandler creates a handler accepting callbacks signed with secret
func NewCampaignStatusHandler(service StatusApplier, secret string) *CampaignStatusHandler {
	return &CampaignStatusHandler{service: service, secret: []byte(secret)}
}

// CampaignStatusRequest is the callback body
type CampaignStatusRequest struct {
	CampaignID     string `json:"campaignId" binding:"required,uuid"`
	Status         string `json:"status" binding:"required,campaign_status"`
	LeadsProcessed int    `json:"leadsProcessed" binding:"gte=0"`
	Error          string `json:"error"`
}

// Update applies a status report. The n8n-auth header must match the shared
// secret; an unset secret rejects every callback.
func (h *CampaignStatusHandler) Update(c *gin.Context) {
	if !h.authorized(c.GetHeader(automation.AuthHeader)) {
		h.Unauthorized(c, "Unauthorized")
		return
	}

	var req CampaignStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}
	id, err := uuid.Parse(req.CampaignID)
	if err != nil {
		h.BadRequest(c, "Invalid campaign ID")
		return
	}

	err = h.service.Apply(c.Request.Context(), campaignapp.StatusInput{
		CampaignID:     id,
		Status:         req.Status,
		LeadsProcessed: req.LeadsProcessed,
		Error:          req.Error,
	})
	if err != nil {
		var domainErr *shared.DomainError
		if errors.As(err, &domainErr) {
			h.HandleError(c, err)
			return
		}
		logger.L(c.Request.Context()).Error("Failed to update campaign status", zap.Error(err))
		h.InternalError(c, "Failed to update status")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *CampaignStatusHandler) authorized(got string) bool {
	if len(h.secret) == 0 || got == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), h.secret) == 1
}
