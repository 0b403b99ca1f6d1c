package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	campaignapp "github.com/leadflow/backend/internal/application/campaign"
	leadapp "github.com/leadflow/backend/internal/application/lead"
	"github.com/leadflow/backend/internal/domain/campaign"
	"github.com/leadflow/backend/internal/domain/shared"
	"github.com/leadflow/backend/internal/domain/usage"
	"github.com/leadflow/backend/internal/interfaces/http/dto"
	"github.com/leadflow/backend/internal/interfaces/http/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	if err := middleware.SetupValidator(); err != nil {
		panic(err)
	}
}

// asUser simulates the JWT middleware
func asUser(userID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID != "" {
			c.Set(middleware.JWTUserIDKey, userID)
		}
		c.Next()
	}
}

func decode(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestGetRequestID(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, getRequestID(c))

	c.Request.Header.Set(middleware.RequestIDHeader, "header-id")
	assert.Equal(t, "header-id", getRequestID(c))

	c.Set(middleware.RequestIDKey, "ctx-id")
	assert.Equal(t, "ctx-id", getRequestID(c))
}

func TestBaseHandler_HandleError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"invalid argument", usage.ErrInvalidArgument, http.StatusBadRequest, dto.ErrCodeInvalidArgument},
		{"unauthorized", shared.ErrUnauthorized, http.StatusUnauthorized, dto.ErrCodeUnauthorized},
		{"campaign not found", campaign.ErrCampaignNotFound, http.StatusNotFound, dto.ErrCodeCampaignNotFound},
		{"duplicate request", campaignapp.ErrDuplicateRequest, http.StatusConflict, dto.ErrCodeDuplicateRequest},
		{"conflict retries", usage.ErrConflictExceededRetries, http.StatusConflict, dto.ErrCodeConflictExceededRetries},
		{"unsupported file", leadapp.ErrUnsupportedFileType, http.StatusUnsupportedMediaType, dto.ErrCodeUnsupportedFileType},
		{"automation down", campaign.ErrAutomationUnavailable.Wrap(errors.New("HTTP 500")), http.StatusBadGateway, dto.ErrCodeAutomationUnavailable},
		{"storage down", usage.ErrStorageUnavailable.Wrap(errors.New("timeout")), http.StatusServiceUnavailable, dto.ErrCodeStorageUnavailable},
		{"wrapped domain error", fmt.Errorf("create: %w", campaign.ErrInvalidStatus), http.StatusBadRequest, dto.ErrCodeInvalidStatus},
		{"plain error", errors.New("boom"), http.StatusInternalServerError, dto.ErrCodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			h := &BaseHandler{}
			h.HandleError(c, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)
			resp := decode(t, w)
			assert.False(t, resp.Success)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
		})
	}
}

func TestBaseHandler_HandleError_QuotaExceeded(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", nil)

	h := &BaseHandler{}
	h.HandleError(c, &campaignapp.QuotaExceededError{Usage: usage.NewUsage(4, 10), Requested: 8})

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.JSONEq(t, `{"used":4,"remaining":6,"limit":10}`, mustJSON(t, decode(t, w).Data))
	assert.Contains(t, w.Body.String(), dto.ErrCodeUsageLimitExceeded)
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}
