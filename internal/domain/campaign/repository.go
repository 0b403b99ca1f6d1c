package campaign

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the interface for campaign persistence
type Repository interface {
	// Create inserts a new campaign
	Create(ctx context.Context, c *Campaign) error

	// FindByID returns the campaign or shared.ErrNotFound
	FindByID(ctx context.Context, id uuid.UUID) (*Campaign, error)

	// FindByUser lists a user's campaigns, newest first
	FindByUser(ctx context.Context, userID string, limit int) ([]*Campaign, error)

	// UpdateStatus applies a status report; shared.ErrNotFound when no campaign matched
	UpdateStatus(ctx context.Context, update StatusUpdate) error
}
