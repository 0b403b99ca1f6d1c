package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/leadflow/backend/internal/domain/identity"
	"github.com/leadflow/backend/internal/domain/shared"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserModel is the GORM model for user accounts
type UserModel struct {
	ID               string    `gorm:"type:varchar(255);primaryKey"`
	Email            string    `gorm:"type:varchar(255)"`
	SubscriptionTier string    `gorm:"type:varchar(20);not null"`
	CreatedAt        time.Time `gorm:"not null"`
	UpdatedAt        time.Time `gorm:"not null"`
}

// TableName returns the table name for the model
func (UserModel) TableName() string {
	return "users"
}

// ToEntity converts the model to a domain entity
func (m *UserModel) ToEntity() *identity.User {
	return &identity.User{
		ID:               m.ID,
		Email:            m.Email,
		SubscriptionTier: identity.ParseTier(m.SubscriptionTier),
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

// GormUserRepository implements identity.UserRepository
type GormUserRepository struct {
	db *gorm.DB
}

// NewGormUserRepository creates a new user repository
func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

var _ identity.UserRepository = (*GormUserRepository)(nil)

// FindByID finds a user by ID
func (r *GormUserRepository) FindByID(ctx context.Context, id string) (*identity.User, error) {
	var model UserModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToEntity(), nil
}

// Save creates the user or updates its email and tier
func (r *GormUserRepository) Save(ctx context.Context, user *identity.User) error {
	model := &UserModel{
		ID:               user.ID,
		Email:            user.Email,
		SubscriptionTier: string(user.Tier()),
		CreatedAt:        user.CreatedAt,
		UpdatedAt:        user.UpdatedAt,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"email", "subscription_tier", "updated_at"}),
	}).Create(model).Error
}
