package integration

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/leadflow/backend/internal/domain/campaign"
	"github.com/leadflow/backend/internal/domain/shared"
	"github.com/leadflow/backend/internal/infrastructure/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCampaignRepository_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := NewTestDB(t)
	repo := persistence.NewCampaignRepository(testDB.DB)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	t.Run("Create and FindByID keeps settings", func(t *testing.T) {
		c, err := campaign.NewCampaign("user_a", "Spring launch", "Hi {{name}}", 3,
			map[string]any{"sender": "sales@example.com"}, now)
		require.NoError(t, err)
		require.NoError(t, repo.Create(ctx, c))

		found, err := repo.FindByID(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, "Spring launch", found.Name)
		assert.Equal(t, 3, found.LeadCount)
		assert.Equal(t, campaign.StatusPending, found.Status)
		assert.Equal(t, "sales@example.com", found.Settings["sender"])
	})

	t.Run("FindByID unknown", func(t *testing.T) {
		_, err := repo.FindByID(ctx, uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("FindByUser newest first", func(t *testing.T) {
		for i, name := range []string{"first", "second", "third"} {
			c, err := campaign.NewCampaign("user_list", name, "", 1, nil, now.Add(time.Duration(i)*time.Minute))
			require.NoError(t, err)
			require.NoError(t, repo.Create(ctx, c))
		}

		cs, err := repo.FindByUser(ctx, "user_list", 2)
		require.NoError(t, err)
		require.Len(t, cs, 2)
		assert.Equal(t, "third", cs[0].Name)
		assert.Equal(t, "second", cs[1].Name)
	})

	t.Run("UpdateStatus", func(t *testing.T) {
		c, err := campaign.NewCampaign("user_status", "Status", "", 10, nil, now)
		require.NoError(t, err)
		require.NoError(t, repo.Create(ctx, c))

		err = repo.UpdateStatus(ctx, campaign.StatusUpdate{
			CampaignID:     c.ID,
			Status:         campaign.StatusFailed,
			ProcessedCount: 4,
			ErrorMessage:   "smtp quota",
			At:             now.Add(time.Minute),
		})
		require.NoError(t, err)

		found, err := repo.FindByID(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, campaign.StatusFailed, found.Status)
		assert.Equal(t, 4, found.ProcessedCount)
		assert.Equal(t, "smtp quota", found.ErrorMessage)
	})

	t.Run("UpdateStatus unknown campaign", func(t *testing.T) {
		err := repo.UpdateStatus(ctx, campaign.StatusUpdate{
			CampaignID: uuid.New(),
			Status:     campaign.StatusCompleted,
			At:         now,
		})
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}
