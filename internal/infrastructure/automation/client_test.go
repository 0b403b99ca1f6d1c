package automation

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/leadflow/backend/internal/domain/campaign"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testDispatch() campaign.Dispatch {
	return campaign.Dispatch{
		UserID:       "user-1",
		CampaignID:   uuid.MustParse("7f8c3f0e-1b2a-4c55-9d0e-2b1f3c4d5e6f"),
		Name:         "Spring outreach",
		Template:     "Hi {{name}}",
		Leads:        []campaign.Lead{{"email": "a@example.com"}, {"email": "b@example.com"}},
		Settings:     map[string]any{"delay": float64(5)},
		Subscription: "pro",
	}
}

func TestClient_Trigger(t *testing.T) {
	t.Run("posts payload with secret header and callback url", func(t *testing.T) {
		var gotHeader, gotContentType string
		var got map[string]any
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotHeader = r.Header.Get(AuthHeader)
			gotContentType = r.Header.Get("Content-Type")
			assert.Equal(t, http.MethodPost, r.Method)
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		c := NewClient(Config{
			WebhookURL:  srv.URL,
			Secret:      "s3cret",
			CallbackURL: "https://app.example.com",
		}, nil, zap.NewNop())

		d := testDispatch()
		require.NoError(t, c.Trigger(context.Background(), d))

		assert.Equal(t, "s3cret", gotHeader)
		assert.Equal(t, "application/json", gotContentType)
		assert.Equal(t, "user-1", got["userId"])
		assert.Equal(t, d.CampaignID.String(), got["campaignId"])
		assert.Equal(t, "Spring outreach", got["name"])
		assert.Equal(t, "Hi {{name}}", got["template"])
		assert.Equal(t, "pro", got["subscription"])
		assert.Len(t, got["leads"], 2)

		settings := got["settings"].(map[string]any)
		assert.Equal(t, float64(5), settings["delay"])
		assert.Equal(t, "https://app.example.com", settings["callbackUrl"])

		_, mutated := d.Settings["callbackUrl"]
		assert.False(t, mutated)
	})

	t.Run("configured callback url replaces a client supplied one", func(t *testing.T) {
		var got struct {
			Settings map[string]any `json:"settings"`
		}
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		d := testDispatch()
		d.Settings = map[string]any{"callbackUrl": "https://attacker.example.com"}
		c := NewClient(Config{WebhookURL: srv.URL, CallbackURL: "https://app.example.com/api/campaign-status"}, nil, zap.NewNop())
		require.NoError(t, c.Trigger(context.Background(), d))
		assert.Equal(t, "https://app.example.com/api/campaign-status", got.Settings["callbackUrl"])
	})

	t.Run("non-2xx is automation unavailable", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "workflow inactive", http.StatusNotFound)
		}))
		defer srv.Close()

		c := NewClient(Config{WebhookURL: srv.URL}, nil, zap.NewNop())
		err := c.Trigger(context.Background(), testDispatch())

		require.Error(t, err)
		assert.True(t, errors.Is(err, campaign.ErrAutomationUnavailable))
		assert.Contains(t, err.Error(), "HTTP 404")
	})

	t.Run("transport failure is automation unavailable", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		url := srv.URL
		srv.Close()

		c := NewClient(Config{WebhookURL: url}, nil, zap.NewNop())
		err := c.Trigger(context.Background(), testDispatch())

		assert.ErrorIs(t, err, campaign.ErrAutomationUnavailable)
	})

	t.Run("timeout is automation unavailable", func(t *testing.T) {
		release := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}))
		defer srv.Close()
		defer close(release)

		c := NewClient(Config{WebhookURL: srv.URL, Timeout: 50 * time.Millisecond}, nil, zap.NewNop())
		err := c.Trigger(context.Background(), testDispatch())

		assert.ErrorIs(t, err, campaign.ErrAutomationUnavailable)
	})

	t.Run("missing webhook url", func(t *testing.T) {
		c := NewClient(Config{}, nil, zap.NewNop())
		err := c.Trigger(context.Background(), testDispatch())

		assert.ErrorIs(t, err, campaign.ErrAutomationUnavailable)
	})

	t.Run("nil leads encode as empty array", func(t *testing.T) {
		var raw map[string]json.RawMessage
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
			w.WriteHeader(http.StatusAccepted)
		}))
		defer srv.Close()

		d := testDispatch()
		d.Leads = nil
		c := NewClient(Config{WebhookURL: srv.URL}, nil, zap.NewNop())
		require.NoError(t, c.Trigger(context.Background(), d))
		assert.Equal(t, "[]", string(raw["leads"]))
	})
}
