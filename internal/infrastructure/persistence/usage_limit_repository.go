package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/leadflow/backend/internal/domain/shared"
	"github.com/leadflow/backend/internal/domain/usage"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UsageLimitModel is the GORM model for monthly usage counters.
// (user_id, year, month) is unique; see migrations/000001_init.up.sql.
type UsageLimitModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID    string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_usage_limits_user_period,priority:1"`
	Year      int       `gorm:"not null;uniqueIndex:idx_usage_limits_user_period,priority:2"`
	Month     int       `gorm:"not null;uniqueIndex:idx_usage_limits_user_period,priority:3"`
	Count     int64     `gorm:"not null"`
	Version   int       `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for the model
func (UsageLimitModel) TableName() string {
	return "usage_limits"
}

// ToEntity converts the model to a domain entity
func (m *UsageLimitModel) ToEntity() *usage.UsageRecord {
	return &usage.UsageRecord{
		ID:        m.ID,
		UserID:    m.UserID,
		Period:    usage.Period{Year: m.Year, Month: time.Month(m.Month)},
		Count:     m.Count,
		Version:   m.Version,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// UsageLimitModelFromEntity creates a model from a domain entity
func UsageLimitModelFromEntity(e *usage.UsageRecord) *UsageLimitModel {
	return &UsageLimitModel{
		ID:        e.ID,
		UserID:    e.UserID,
		Year:      e.Period.Year,
		Month:     int(e.Period.Month),
		Count:     e.Count,
		Version:   e.Version,
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}
}

var usageKeyColumns = []clause.Column{{Name: "user_id"}, {Name: "year"}, {Name: "month"}}

// UsageLimitRepository implements usage.Store on top of GORM
type UsageLimitRepository struct {
	db *gorm.DB
}

// NewUsageLimitRepository creates a new usage limit repository
func NewUsageLimitRepository(db *gorm.DB) *UsageLimitRepository {
	return &UsageLimitRepository{db: db}
}

var _ usage.Store = (*UsageLimitRepository)(nil)

// FindByUserAndPeriod returns the counter for the key or shared.ErrNotFound
func (r *UsageLimitRepository) FindByUserAndPeriod(ctx context.Context, userID string, period usage.Period) (*usage.UsageRecord, error) {
	var model UsageLimitModel
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND year = ? AND month = ?", userID, period.Year, int(period.Month)).
		Take(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, translateError(err)
	}
	return model.ToEntity(), nil
}

// Upsert inserts the counter with count = delta, or adds delta to the existing
// row. The row lock taken by ON CONFLICT DO UPDATE serializes same-key writers.
func (r *UsageLimitRepository) Upsert(ctx context.Context, userID string, period usage.Period, delta int64, now time.Time) error {
	record, err := usage.NewUsageRecord(userID, period, delta, now)
	if err != nil {
		return err
	}
	model := UsageLimitModelFromEntity(record)

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns: usageKeyColumns,
			DoUpdates: clause.Assignments(map[string]any{
				"count":      gorm.Expr("usage_limits.count + excluded.count"),
				"version":    gorm.Expr("usage_limits.version + 1"),
				"updated_at": gorm.Expr("excluded.updated_at"),
			}),
		}).Create(model).Error
	})
	return translateError(err)
}

// IncrementWithVersion performs one optimistic attempt: read the row, then
// either insert it (ON CONFLICT DO NOTHING) or update it guarded by version.
// Zero affected rows means another writer got there first.
func (r *UsageLimitRepository) IncrementWithVersion(ctx context.Context, userID string, period usage.Period, delta int64, now time.Time) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current UsageLimitModel
		err := tx.Where("user_id = ? AND year = ? AND month = ?", userID, period.Year, int(period.Month)).
			Take(&current).Error

		if errors.Is(err, gorm.ErrRecordNotFound) {
			record, err := usage.NewUsageRecord(userID, period, delta, now)
			if err != nil {
				return err
			}
			result := tx.Clauses(clause.OnConflict{Columns: usageKeyColumns, DoNothing: true}).
				Create(UsageLimitModelFromEntity(record))
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return shared.ErrConcurrencyConflict
			}
			return nil
		}
		if err != nil {
			return err
		}

		result := tx.Model(&UsageLimitModel{}).
			Where("id = ? AND version = ?", current.ID, current.Version).
			Updates(map[string]any{
				"count":      current.Count + delta,
				"version":    current.Version + 1,
				"updated_at": now,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrConcurrencyConflict
		}
		return nil
	})
	return translateError(err)
}

// ListByUser returns the user's counters, newest period first
func (r *UsageLimitRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*usage.UsageRecord, error) {
	if limit <= 0 {
		limit = 12
	}
	var models []UsageLimitModel
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("year DESC, month DESC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, translateError(err)
	}

	records := make([]*usage.UsageRecord, len(models))
	for i := range models {
		records[i] = models[i].ToEntity()
	}
	return records, nil
}
