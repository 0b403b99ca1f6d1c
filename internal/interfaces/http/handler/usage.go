package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	appusage "github.com/leadflow/backend/internal/application/usage"
	"github.com/leadflow/backend/internal/domain/usage"
	"github.com/leadflow/backend/internal/interfaces/http/dto"
)

// QuotaReader reads a user's quota and past usage
type QuotaReader interface {
	Current(ctx context.Context, userID string) (appusage.Quota, error)
	History(ctx context.Context, userID string, months int) ([]*usage.UsageRecord, error)
}

// UsageHandler exposes the caller's metered usage
type UsageHandler struct {
	BaseHandler
	quotas QuotaReader
}

// NewUsageHandler creates a new UsageHandler
func NewUsageHandler(quotas QuotaReader) *UsageHandler {
	return &UsageHandler{quotas: quotas}
}

// UsageResponse is the current-period view
type UsageResponse struct {
	Tier      string `json:"tier"`
	Period    string `json:"period"`
	Used      int64  `json:"used"`
	Remaining int64  `json:"remaining"`
	Limit     int64  `json:"limit"`
}

// UsagePeriodResponse is one month of history
type UsagePeriodResponse struct {
	Period string `json:"period"`
	Count  int64  `json:"count"`
}

// Current returns the caller's usage for the current month
func (h *UsageHandler) Current(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}
	q, err := h.quotas.Current(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, UsageResponse{
		Tier:      string(q.Tier),
		Period:    q.Period.String(),
		Used:      q.Used,
		Remaining: q.Remaining,
		Limit:     q.Limit,
	})
}

// History returns up to ?months= (default 12) past months, newest first
func (h *UsageHandler) History(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}
	months := 12
	if raw := c.Query("months"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 36 {
			h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidArgument, "months must be between 1 and 36")
			return
		}
		months = n
	}

	records, err := h.quotas.History(c.Request.Context(), userID, months)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	out := make([]UsagePeriodResponse, len(records))
	for i, r := range records {
		out[i] = UsagePeriodResponse{Period: r.Period.String(), Count: r.Count}
	}
	h.Success(c, out)
}
