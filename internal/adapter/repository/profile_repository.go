package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tasyapp/billing/internal/domain/entity"
	domainErrors "github.com/tasyapp/billing/internal/domain/errors"
	"github.com/tasyapp/billing/internal/domain/model"
	"github.com/tasyapp/billing/internal/domain/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type profileRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(db *gorm.DB, logger *zap.Logger) repository.ProfileRepository {
	return &profileRepository{
		db:     db,
		logger: logger,
	}
}

func (r *profileRepository) GetByCustomerID(ctx context.Context, customerID string) (*entity.Profile, error) {
	return r.first(ctx, "stripe_customer_id = ?", customerID)
}

func (r *profileRepository) GetByID(ctx context.Context, userID uuid.UUID) (*entity.Profile, error) {
	return r.first(ctx, "id = ?", userID)
}

func (r *profileRepository) first(ctx context.Context, query string, arg interface{}) (*entity.Profile, error) {
	var p model.Profile

	err := r.db.WithContext(ctx).Where(query, arg).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get profile",
			zap.String("query", query),
			zap.Any("arg", arg),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	return profileToEntity(&p), nil
}

func (r *profileRepository) SetCustomerID(ctx context.Context, userID uuid.UUID, customerID string) error {
	return r.update(ctx, userID, map[string]interface{}{
		"stripe_customer_id": customerID,
	})
}

func (r *profileRepository) LinkSubscription(ctx context.Context, userID, subscriptionID uuid.UUID) error {
	return r.update(ctx, userID, map[string]interface{}{
		"subscription_id":      subscriptionID,
		"onboarding_completed": true,
	})
}

func (r *profileRepository) update(ctx context.Context, userID uuid.UUID, values map[string]interface{}) error {
	values["updated_at"] = time.Now()

	result := r.db.WithContext(ctx).
		Model(&model.Profile{}).
		Where("id = ?", userID).
		Updates(values)

	if result.Error != nil {
		r.logger.Error("Failed to update profile",
			zap.String("user_id", userID.String()),
			zap.Error(result.Error))
		return fmt.Errorf("failed to update profile: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("user %s: %w", userID, domainErrors.ErrProfileNotFound)
	}
	return nil
}

func profileToEntity(p *model.Profile) *entity.Profile {
	e := &entity.Profile{
		UserID:              p.ID,
		Email:               p.Email,
		SubscriptionID:      p.SubscriptionID,
		Credits:             p.Credits,
		OnboardingCompleted: p.OnboardingCompleted,
	}
	if p.StripeCustomerID != nil {
		e.StripeCustomerID = *p.StripeCustomerID
	}
	return e
}
