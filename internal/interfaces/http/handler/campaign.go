package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	campaignapp "github.com/leadflow/backend/internal/application/campaign"
	"github.com/leadflow/backend/internal/domain/campaign"
	"github.com/leadflow/backend/internal/interfaces/http/dto"
	"github.com/leadflow/backend/internal/interfaces/http/middleware"
)

// IdempotencyKeyHeader carries the client's deduplication key
const IdempotencyKeyHeader = "Idempotency-Key"

// CampaignService is the campaign intake used by CampaignHandler
type CampaignService interface {
	Create(ctx context.Context, input campaignapp.CreateCampaignInput) (*campaignapp.CreateCampaignResult, error)
	Get(ctx context.Context, userID string, id uuid.UUID) (*campaignapp.CampaignResponse, error)
	List(ctx context.Context, userID string, limit int) ([]campaignapp.CampaignResponse, error)
}

// CampaignHandler handles campaign HTTP requests
type CampaignHandler struct {
	BaseHandler
	service CampaignService
}

// NewCampaignHandler creates a new CampaignHandler
func NewCampaignHandler(service CampaignService) *CampaignHandler {
	return &CampaignHandler{service: service}
}

// CreateCampaignRequest is the body of POST /api/campaigns
type CreateCampaignRequest struct {
	Name     string          `json:"name" binding:"required,max=200"`
	Template string          `json:"template"`
	Leads    []campaign.Lead `json:"leads" binding:"required,min=1"`
	Settings map[string]any  `json:"settings"`
}

// Create accepts a campaign for the caller.
// Responds 201 {campaign_id, status, usage}, or 403 when the leads exceed the
// remaining quota.
func (h *CampaignHandler) Create(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	var req CreateCampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}

	result, err := h.service.Create(c.Request.Context(), campaignapp.CreateCampaignInput{
		UserID:         userID,
		Name:           req.Name,
		Template:       req.Template,
		Leads:          req.Leads,
		Settings:       req.Settings,
		IdempotencyKey: c.GetHeader(IdempotencyKeyHeader),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}

// Get returns one of the caller's campaigns
func (h *CampaignHandler) Get(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidArgument, "Invalid campaign ID")
		return
	}

	resp, err := h.service.Get(c.Request.Context(), userID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// List returns the caller's campaigns, newest first
func (h *CampaignHandler) List(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidArgument, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	list, err := h.service.List(c.Request.Context(), userID, limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, list)
}

func (h *BaseHandler) bindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		middleware.HandleValidationError(c, err)
		return
	}
	h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidJSON, "Request body is not valid JSON")
}
