package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/tasyapp/billing/internal/domain/entity"
)

// SubscriptionRepository defines persistence for the subscriptions table
type SubscriptionRepository interface {
	// GetByProviderID returns the row for a Stripe subscription id, or nil if none exists
	GetByProviderID(ctx context.Context, stripeSubscriptionID string) (*entity.Subscription, error)

	// Create inserts a new row and fills in its generated id
	Create(ctx context.Context, sub *entity.Subscription) error

	// Update overwrites the mutable fields of an existing row, matched by Stripe subscription id
	Update(ctx context.Context, sub *entity.Subscription) error

	// UpdateStatus sets status and is_active on rows of the given product.
	// Returns the number of rows changed.
	UpdateStatus(ctx context.Context, change entity.StatusChange, product string) (int64, error)

	// GetLatestForUser returns the most recently updated row of the product for a user
	GetLatestForUser(ctx context.Context, userID uuid.UUID, product string) (*entity.Subscription, error)
}
