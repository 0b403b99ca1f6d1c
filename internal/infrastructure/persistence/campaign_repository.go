package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/leadflow/backend/internal/domain/campaign"
	"github.com/leadflow/backend/internal/domain/shared"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CampaignModel is the GORM model for campaigns
type CampaignModel struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID         string    `gorm:"type:varchar(255);not null;index"`
	Name           string    `gorm:"type:varchar(200);not null"`
	Template       string    `gorm:"type:text"`
	LeadCount      int       `gorm:"not null"`
	Settings       []byte    `gorm:"type:jsonb"`
	Status         string    `gorm:"type:varchar(20);not null;index"`
	ProcessedCount int       `gorm:"not null"`
	ErrorMessage   *string   `gorm:"type:text"`
	CreatedAt      time.Time `gorm:"not null"`
	UpdatedAt      time.Time `gorm:"not null"`
}

// TableName returns the table name for the model
func (CampaignModel) TableName() string {
	return "campaigns"
}

// ToEntity converts the model to a domain entity
func (m *CampaignModel) ToEntity() *campaign.Campaign {
	settings := make(map[string]any)
	if len(m.Settings) > 0 {
		if err := json.Unmarshal(m.Settings, &settings); err != nil {
			zap.L().Named("campaign.models").Warn("failed to parse campaign settings",
				zap.String("campaign_id", m.ID.String()),
				zap.Error(err))
		}
	}

	c := &campaign.Campaign{
		BaseEntity: shared.BaseEntity{
			ID:        m.ID,
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		UserID:         m.UserID,
		Name:           m.Name,
		Template:       m.Template,
		LeadCount:      m.LeadCount,
		Settings:       settings,
		Status:         campaign.Status(m.Status),
		ProcessedCount: m.ProcessedCount,
	}
	if m.ErrorMessage != nil {
		c.ErrorMessage = *m.ErrorMessage
	}
	return c
}

// CampaignModelFromEntity creates a model from a domain entity
func CampaignModelFromEntity(c *campaign.Campaign) (*CampaignModel, error) {
	settings, err := json.Marshal(c.Settings)
	if err != nil {
		return nil, err
	}
	return &CampaignModel{
		ID:             c.ID,
		UserID:         c.UserID,
		Name:           c.Name,
		Template:       c.Template,
		LeadCount:      c.LeadCount,
		Settings:       settings,
		Status:         string(c.Status),
		ProcessedCount: c.ProcessedCount,
		ErrorMessage:   nullableString(c.ErrorMessage),
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}, nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// CampaignRepository implements campaign.Repository
type CampaignRepository struct {
	db *gorm.DB
}

// NewCampaignRepository creates a new campaign repository
func NewCampaignRepository(db *gorm.DB) *CampaignRepository {
	return &CampaignRepository{db: db}
}

var _ campaign.Repository = (*CampaignRepository)(nil)

// Create inserts a new campaign
func (r *CampaignRepository) Create(ctx context.Context, c *campaign.Campaign) error {
	model, err := CampaignModelFromEntity(c)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(model).Error
}

// FindByID returns the campaign or shared.ErrNotFound
func (r *CampaignRepository) FindByID(ctx context.Context, id uuid.UUID) (*campaign.Campaign, error) {
	var model CampaignModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToEntity(), nil
}

// FindByUser lists a user's campaigns, newest first
func (r *CampaignRepository) FindByUser(ctx context.Context, userID string, limit int) ([]*campaign.Campaign, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var models []CampaignModel
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	campaigns := make([]*campaign.Campaign, len(models))
	for i := range models {
		campaigns[i] = models[i].ToEntity()
	}
	return campaigns, nil
}

// UpdateStatus applies a status report. An empty error message clears the column.
func (r *CampaignRepository) UpdateStatus(ctx context.Context, update campaign.StatusUpdate) error {
	result := r.db.WithContext(ctx).
		Model(&CampaignModel{}).
		Where("id = ?", update.CampaignID).
		Updates(map[string]any{
			"status":          string(update.Status),
			"processed_count": update.ProcessedCount,
			"error_message":   nullableString(update.ErrorMessage),
			"updated_at":      update.At,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}
