package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	appusage "github.com/leadflow/backend/internal/application/usage"
	"github.com/leadflow/backend/internal/domain/identity"
	"github.com/leadflow/backend/internal/domain/usage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockQuotaReader struct {
	mock.Mock
}

func (m *MockQuotaReader) Current(ctx context.Context, userID string) (appusage.Quota, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(appusage.Quota), args.Error(1)
}

func (m *MockQuotaReader) History(ctx context.Context, userID string, months int) ([]*usage.UsageRecord, error) {
	args := m.Called(ctx, userID, months)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*usage.UsageRecord), args.Error(1)
}

func newUsageRouter(q QuotaReader) *gin.Engine {
	h := NewUsageHandler(q)
	r := gin.New()
	r.Use(asUser("u1"))
	r.GET("/api/usage", h.Current)
	r.GET("/api/usage/history", h.History)
	return r
}

func TestUsageHandler_Current(t *testing.T) {
	q := new(MockQuotaReader)
	q.On("Current", mock.Anything, "u1").Return(appusage.Quota{
		Tier:   identity.TierStarter,
		Period: usage.Period{Year: 2024, Month: time.March},
		Usage:  usage.NewUsage(12, 10),
	}, nil)

	w := httptest.NewRecorder()
	newUsageRouter(q).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/usage", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t,
		`{"tier":"starter","period":"2024-03","used":12,"remaining":0,"limit":10}`,
		mustJSON(t, decode(t, w).Data))
}

func TestUsageHandler_Current_StorageUnavailable(t *testing.T) {
	q := new(MockQuotaReader)
	q.On("Current", mock.Anything, "u1").Return(appusage.Quota{}, usage.ErrStorageUnavailable)

	w := httptest.NewRecorder()
	newUsageRouter(q).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/usage", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestUsageHandler_History(t *testing.T) {
	q := new(MockQuotaReader)
	q.On("History", mock.Anything, "u1", 3).Return([]*usage.UsageRecord{
		{UserID: "u1", Period: usage.Period{Year: 2024, Month: time.March}, Count: 7},
		{UserID: "u1", Period: usage.Period{Year: 2024, Month: time.February}, Count: 40},
	}, nil)

	w := httptest.NewRecorder()
	newUsageRouter(q).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/usage/history?months=3", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t,
		`[{"period":"2024-03","count":7},{"period":"2024-02","count":40}]`,
		mustJSON(t, decode(t, w).Data))

	for _, bad := range []string{"0", "37", "x"} {
		w = httptest.NewRecorder()
		newUsageRouter(q).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/usage/history?months="+bad, nil))
		assert.Equal(t, http.StatusBadRequest, w.Code, bad)
	}
}
