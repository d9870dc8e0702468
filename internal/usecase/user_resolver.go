package usecase

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/tasyapp/billing/internal/domain/entity"
	domainErrors "github.com/tasyapp/billing/internal/domain/errors"
	domainRepo "github.com/tasyapp/billing/internal/domain/repository"
	"go.uber.org/zap"
)

// MetadataUserID is the subscription metadata key carrying the user id
const MetadataUserID = "user_id"

// UserResolver maps a Stripe customer to a profile
type UserResolver struct {
	profileRepo domainRepo.ProfileRepository
	logger      *zap.Logger
}

func NewUserResolver(profileRepo domainRepo.ProfileRepository, logger *zap.Logger) *UserResolver {
	return &UserResolver{
		profileRepo: profileRepo,
		logger:      logger,
	}
}

// Resolve looks the profile up by customer id first. When that fails it
// falls back to metadata["user_id"] and stores the customer id on that
// profile so the next lookup succeeds directly.
func (r *UserResolver) Resolve(ctx context.Context, customerID string, metadata map[string]string) (*entity.Profile, error) {
	if customerID != "" {
		profile, err := r.profileRepo.GetByCustomerID(ctx, customerID)
		if err != nil {
			return nil, fmt.Errorf("failed to look up profile by customer: %w", err)
		}
		if profile != nil {
			return profile, nil
		}
	}

	raw := metadata[MetadataUserID]
	if raw == "" {
		return nil, fmt.Errorf("%w: customer %q has no profile and no metadata user_id", domainErrors.ErrUserNotResolved, customerID)
	}

	userID, err := uuid.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid metadata user_id %q", domainErrors.ErrUserNotResolved, raw)
	}

	profile, err := r.profileRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up profile: %w", err)
	}
	if profile == nil {
		return nil, fmt.Errorf("%w: %w for user %s", domainErrors.ErrUserNotResolved, domainErrors.ErrProfileNotFound, userID)
	}

	if customerID != "" && profile.StripeCustomerID != customerID {
		// A failed backfill only costs the fast path on the next event.
		if err := r.profileRepo.SetCustomerID(ctx, userID, customerID); err != nil {
			r.logger.Warn("Failed to backfill Stripe customer id",
				zap.String("user_id", userID.String()),
				zap.String("customer_id", customerID),
				zap.Error(err))
		} else {
			profile.StripeCustomerID = customerID
			r.logger.Info("Backfilled Stripe customer id on profile",
				zap.String("user_id", userID.String()),
				zap.String("customer_id", customerID))
		}
	}

	return profile, nil
}
