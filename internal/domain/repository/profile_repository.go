package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/tasyapp/billing/internal/domain/entity"
)

// ProfileRepository defines the profile operations used by reconciliation
type ProfileRepository interface {
	// GetByCustomerID returns the profile holding a Stripe customer id, or nil
	GetByCustomerID(ctx context.Context, customerID string) (*entity.Profile, error)

	// GetByID returns the profile for a user, or nil
	GetByID(ctx context.Context, userID uuid.UUID) (*entity.Profile, error)

	// SetCustomerID stores the Stripe customer id on the profile
	SetCustomerID(ctx context.Context, userID uuid.UUID, customerID string) error

	// LinkSubscription links a subscription row and marks onboarding complete
	LinkSubscription(ctx context.Context, userID, subscriptionID uuid.UUID) error
}
