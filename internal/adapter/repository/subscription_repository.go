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

type subscriptionRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewSubscriptionRepository creates a new subscription repository
func NewSubscriptionRepository(db *gorm.DB, logger *zap.Logger) repository.SubscriptionRepository {
	return &subscriptionRepository{
		db:     db,
		logger: logger,
	}
}

// GetByProviderID retrieves a subscription by Stripe subscription ID
func (r *subscriptionRepository) GetByProviderID(ctx context.Context, stripeSubscriptionID string) (*entity.Subscription, error) {
	var sub model.Subscription

	err := r.db.WithContext(ctx).
		Where("stripe_subscription_id = ?", stripeSubscriptionID).
		First(&sub).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get subscription by provider ID",
			zap.String("subscription_id", stripeSubscriptionID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}

	return modelToEntity(&sub), nil
}

// Create inserts a new subscription row
func (r *subscriptionRepository) Create(ctx context.Context, sub *entity.Subscription) error {
	row := entityToModel(sub)
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}

	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		r.logger.Error("Failed to create subscription",
			zap.String("subscription_id", sub.StripeSubscriptionID),
			zap.Error(err))
		return fmt.Errorf("failed to create subscription: %w", err)
	}

	sub.ID = row.ID
	sub.CreatedAt = row.CreatedAt
	sub.UpdatedAt = row.UpdatedAt
	return nil
}

// Update overwrites the mutable columns of the row with the same Stripe subscription ID
func (r *subscriptionRepository) Update(ctx context.Context, sub *entity.Subscription) error {
	now := time.Now()

	result := r.db.WithContext(ctx).
		Model(&model.Subscription{}).
		Where("stripe_subscription_id = ?", sub.StripeSubscriptionID).
		Updates(map[string]interface{}{
			"user_id":              sub.UserID,
			"email":                sub.Email,
			"stripe_customer_id":   sub.StripeCustomerID,
			"status":               sub.Status,
			"plan_type":            sub.PlanType,
			"billing_interval":     string(sub.BillingInterval),
			"price_id":             sub.PriceID,
			"current_period_start": sub.CurrentPeriodStart,
			"current_period_end":   sub.CurrentPeriodEnd,
			"cancel_at_period_end": sub.CancelAtPeriodEnd,
			"is_active":            sub.IsActive,
			"product":              sub.Product,
			"metadata":             metadataToJSONB(sub.Metadata),
			"updated_at":           now,
		})

	if result.Error != nil {
		r.logger.Error("Failed to update subscription",
			zap.String("subscription_id", sub.StripeSubscriptionID),
			zap.Error(result.Error))
		return fmt.Errorf("failed to update subscription: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return fmt.Errorf("subscription %s: %w", sub.StripeSubscriptionID, domainErrors.ErrSubscriptionNotFound)
	}

	sub.UpdatedAt = now
	return nil
}

// UpdateStatus sets status and is_active, scoped to one product line
func (r *subscriptionRepository) UpdateStatus(ctx context.Context, change entity.StatusChange, product string) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&model.Subscription{}).
		Where("stripe_subscription_id = ? AND product = ?", change.StripeSubscriptionID, product).
		Updates(map[string]interface{}{
			"status":     change.Status,
			"is_active":  change.IsActive,
			"updated_at": time.Now(),
		})

	if result.Error != nil {
		r.logger.Error("Failed to update subscription status",
			zap.String("subscription_id", change.StripeSubscriptionID),
			zap.String("status", change.Status),
			zap.Error(result.Error))
		return 0, fmt.Errorf("failed to update subscription status: %w", result.Error)
	}

	return result.RowsAffected, nil
}

// GetLatestForUser retrieves the most recently updated subscription of a product for a user
func (r *subscriptionRepository) GetLatestForUser(ctx context.Context, userID uuid.UUID, product string) (*entity.Subscription, error) {
	var sub model.Subscription

	err := r.db.WithContext(ctx).
		Where("user_id = ? AND product = ?", userID, product).
		Order("updated_at DESC").
		First(&sub).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get latest subscription",
			zap.String("user_id", userID.String()),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}

	return modelToEntity(&sub), nil
}

func modelToEntity(m *model.Subscription) *entity.Subscription {
	return &entity.Subscription{
		ID:                   m.ID,
		UserID:               m.UserID,
		Email:                m.Email,
		StripeCustomerID:     m.StripeCustomerID,
		StripeSubscriptionID: m.StripeSubscriptionID,
		Status:               m.Status,
		PlanType:             m.PlanType,
		BillingInterval:      entity.Interval(m.BillingInterval),
		PriceID:              m.PriceID,
		CurrentPeriodStart:   m.CurrentPeriodStart,
		CurrentPeriodEnd:     m.CurrentPeriodEnd,
		CancelAtPeriodEnd:    m.CancelAtPeriodEnd,
		IsActive:             m.IsActive,
		Product:              m.Product,
		Metadata:             jsonbToMetadata(m.Metadata),
		CreatedAt:            m.CreatedAt,
		UpdatedAt:            m.UpdatedAt,
	}
}

func entityToModel(e *entity.Subscription) *model.Subscription {
	return &model.Subscription{
		ID:                   e.ID,
		UserID:               e.UserID,
		Email:                e.Email,
		StripeCustomerID:     e.StripeCustomerID,
		StripeSubscriptionID: e.StripeSubscriptionID,
		Status:               e.Status,
		PlanType:             e.PlanType,
		BillingInterval:      string(e.BillingInterval),
		PriceID:              e.PriceID,
		CurrentPeriodStart:   e.CurrentPeriodStart,
		CurrentPeriodEnd:     e.CurrentPeriodEnd,
		CancelAtPeriodEnd:    e.CancelAtPeriodEnd,
		IsActive:             e.IsActive,
		Product:              e.Product,
		Metadata:             metadataToJSONB(e.Metadata),
	}
}

func metadataToJSONB(md map[string]string) model.JSONB {
	if md == nil {
		return nil
	}
	out := make(model.JSONB, len(md))
	for k, v := range md {
		out[k] = v
	}
	return out
}

func jsonbToMetadata(j model.JSONB) map[string]string {
	if j == nil {
		return nil
	}
	out := make(map[string]string, len(j))
	for k, v := range j {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out
}
