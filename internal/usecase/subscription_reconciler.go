package usecase

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/tasyapp/billing/internal/domain/entity"
	domainErrors "github.com/tasyapp/billing/internal/domain/errors"
	"github.com/tasyapp/billing/internal/domain/provider"
	domainRepo "github.com/tasyapp/billing/internal/domain/repository"
	"github.com/tasyapp/billing/internal/metrics"
	"go.uber.org/zap"
)

// MetadataProduct is the subscription metadata key naming the product line
const MetadataProduct = "product"

// ReconcileResult reports what Reconcile did
type ReconcileResult struct {
	// Ignored is set when the subscription belongs to another product
	Ignored bool
	// Inserted is set when no row existed for the provider subscription id
	Inserted     bool
	Subscription *entity.Subscription
	Grant        *entity.CreditGrant
}

// SubscriptionReconciler mirrors provider subscriptions into the
// subscriptions table and drives credit allocation.
type SubscriptionReconciler struct {
	subscriptionRepo domainRepo.SubscriptionRepository
	profileRepo      domainRepo.ProfileRepository
	resolver         *UserResolver
	allocator        *CreditAllocator
	subProvider      provider.SubscriptionProvider
	publisher        provider.EventPublisher
	prices           *entity.PriceTable
	product          string
	metrics          *metrics.Metrics
	logger           *zap.Logger
}

// ReconcilerDeps groups the collaborators of SubscriptionReconciler
type ReconcilerDeps struct {
	SubscriptionRepo domainRepo.SubscriptionRepository
	ProfileRepo      domainRepo.ProfileRepository
	Resolver         *UserResolver
	Allocator        *CreditAllocator
	Provider         provider.SubscriptionProvider
	Publisher        provider.EventPublisher
	Prices           *entity.PriceTable
	Product          string
	Metrics          *metrics.Metrics
	Logger           *zap.Logger
}

func NewSubscriptionReconciler(deps ReconcilerDeps) *SubscriptionReconciler {
	publisher := deps.Publisher
	if publisher == nil {
		publisher = provider.NopPublisher{}
	}
	return &SubscriptionReconciler{
		subscriptionRepo: deps.SubscriptionRepo,
		profileRepo:      deps.ProfileRepo,
		resolver:         deps.Resolver,
		allocator:        deps.Allocator,
		subProvider:      deps.Provider,
		publisher:        publisher,
		prices:           deps.Prices,
		product:          deps.Product,
		metrics:          deps.Metrics,
		logger:           deps.Logger,
	}
}

// Owns reports whether the subscription carries this product's marker.
func (s *SubscriptionReconciler) Owns(sub *entity.ProviderSubscription) bool {
	return sub.Metadata[MetadataProduct] == s.product
}

// Reconcile upserts the subscription row keyed by provider subscription id,
// links it on the owner's profile and runs the credit allocator with the
// live status. isNew is logged only; whether a row already exists decides
// between insert and update.
func (s *SubscriptionReconciler) Reconcile(ctx context.Context, sub *entity.ProviderSubscription, isNew bool) (*ReconcileResult, error) {
	return s.reconcile(ctx, sub, isNew, true)
}

// Sync is Reconcile without the credit allocator. The row and the profile
// link are repaired; balances are left untouched.
func (s *SubscriptionReconciler) Sync(ctx context.Context, sub *entity.ProviderSubscription) (*ReconcileResult, error) {
	return s.reconcile(ctx, sub, false, false)
}

func (s *SubscriptionReconciler) reconcile(ctx context.Context, sub *entity.ProviderSubscription, isNew, allocate bool) (*ReconcileResult, error) {
	if !s.Owns(sub) {
		s.logger.Info("Ignoring subscription of another product",
			zap.String("subscription_id", sub.ID),
			zap.String("product", sub.Metadata[MetadataProduct]))
		return &ReconcileResult{Ignored: true}, nil
	}

	price, err := s.priceOf(sub)
	if err != nil {
		return nil, err
	}
	interval := intervalOf(sub, price)

	profile, err := s.resolver.Resolve(ctx, sub.CustomerID, sub.Metadata)
	if err != nil {
		return nil, err
	}

	existing, err := s.subscriptionRepo.GetByProviderID(ctx, sub.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}

	record := &entity.Subscription{
		UserID:               profile.UserID,
		Email:                profile.Email,
		StripeCustomerID:     sub.CustomerID,
		StripeSubscriptionID: sub.ID,
		Status:               sub.Status,
		PlanType:             price.Plan.StoredType(),
		BillingInterval:      interval,
		PriceID:              sub.PriceID,
		CurrentPeriodStart:   sub.CurrentPeriodStart,
		CurrentPeriodEnd:     sub.CurrentPeriodEnd,
		CancelAtPeriodEnd:    sub.CancelAtPeriodEnd,
		IsActive:             sub.Status == entity.StatusActive,
		Product:              s.product,
		Metadata:             sub.Metadata,
	}

	result := &ReconcileResult{Subscription: record}
	if existing != nil {
		record.ID = existing.ID
		if err := s.subscriptionRepo.Update(ctx, record); err != nil {
			return nil, fmt.Errorf("failed to update subscription: %w", err)
		}
	} else {
		if err := s.subscriptionRepo.Create(ctx, record); err != nil {
			return nil, fmt.Errorf("failed to create subscription: %w", err)
		}
		result.Inserted = true
	}

	s.logger.Info("Subscription reconciled",
		zap.String("subscription_id", sub.ID),
		zap.String("user_id", profile.UserID.String()),
		zap.String("status", sub.Status),
		zap.String("plan", record.PlanType),
		zap.String("interval", string(interval)),
		zap.Bool("new_event", isNew),
		zap.Bool("inserted", result.Inserted))

	if err := s.profileRepo.LinkSubscription(ctx, profile.UserID, record.ID); err != nil {
		return nil, fmt.Errorf("failed to link subscription on profile: %w", err)
	}

	if !allocate {
		return result, nil
	}

	grant, err := s.allocator.Allocate(ctx, AllocationInput{
		UserID:      profile.UserID,
		Plan:        price.Plan,
		Status:      sub.Status,
		Interval:    interval,
		ReferenceID: sub.ID,
	})
	if err != nil {
		return nil, err
	}
	result.Grant = grant

	return result, nil
}

// MarkStatus applies a status transition to this product's row. A missing
// row is logged, not treated as an error.
func (s *SubscriptionReconciler) MarkStatus(ctx context.Context, change entity.StatusChange, eventID string) error {
	rows, err := s.subscriptionRepo.UpdateStatus(ctx, change, s.product)
	if err != nil {
		return fmt.Errorf("failed to update subscription status: %w", err)
	}

	if rows == 0 {
		s.logger.Warn("No subscription row matched status update",
			zap.String("subscription_id", change.StripeSubscriptionID),
			zap.String("status", change.Status),
			zap.String("event_id", eventID))
		return nil
	}

	s.logger.Info("Subscription status updated",
		zap.String("subscription_id", change.StripeSubscriptionID),
		zap.String("status", change.Status),
		zap.Bool("is_active", change.IsActive),
		zap.String("event_id", eventID))

	publish(ctx, s.publisher, s.metrics, s.logger, provider.TopicSubscriptionStatusChanged, provider.SubscriptionStatusChangedEvent{
		StripeSubscriptionID: change.StripeSubscriptionID,
		Status:               change.Status,
		IsActive:             change.IsActive,
		EventID:              eventID,
	})
	return nil
}

// HandleInvoicePaid marks the subscription active, fetches the live
// subscription from the provider and re-runs the allocator for its plan.
func (s *SubscriptionReconciler) HandleInvoicePaid(ctx context.Context, inv entity.InvoiceEvent, eventID string) (*entity.CreditGrant, error) {
	if inv.SubscriptionID == "" {
		s.logger.Info("Invoice is not tied to a subscription",
			zap.String("invoice_id", inv.InvoiceID),
			zap.String("event_id", eventID))
		return nil, nil
	}

	if err := s.MarkStatus(ctx, entity.StatusChange{
		StripeSubscriptionID: inv.SubscriptionID,
		Status:               entity.StatusActive,
		IsActive:             true,
	}, eventID); err != nil {
		return nil, err
	}

	live, err := s.subProvider.GetSubscription(ctx, inv.SubscriptionID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch subscription %s: %w", inv.SubscriptionID, err)
	}

	if !s.Owns(live) {
		s.logger.Info("Ignoring invoice for subscription of another product",
			zap.String("subscription_id", live.ID),
			zap.String("invoice_id", inv.InvoiceID))
		return nil, nil
	}

	price, err := s.priceOf(live)
	if err != nil {
		return nil, err
	}

	userID, err := s.ownerOf(ctx, live)
	if err != nil {
		return nil, err
	}

	return s.allocator.Allocate(ctx, AllocationInput{
		UserID:      userID,
		Plan:        price.Plan,
		Status:      entity.StatusActive,
		Interval:    intervalOf(live, price),
		ReferenceID: inv.InvoiceID,
	})
}

// ownerOf prefers the user recorded on the subscription row and falls back
// to customer/metadata resolution.
func (s *SubscriptionReconciler) ownerOf(ctx context.Context, sub *entity.ProviderSubscription) (uuid.UUID, error) {
	row, err := s.subscriptionRepo.GetByProviderID(ctx, sub.ID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to get subscription: %w", err)
	}
	if row != nil {
		return row.UserID, nil
	}

	profile, err := s.resolver.Resolve(ctx, sub.CustomerID, sub.Metadata)
	if err != nil {
		return uuid.Nil, err
	}
	return profile.UserID, nil
}

// intervalOf prefers the interval on the subscription item over the
// price table entry.
func intervalOf(sub *entity.ProviderSubscription, price entity.Price) entity.Interval {
	if iv := entity.IntervalFromRecurring(sub.RecurringInterval); iv != "" {
		return iv
	}
	return price.Interval
}

func (s *SubscriptionReconciler) priceOf(sub *entity.ProviderSubscription) (entity.Price, error) {
	if sub.PriceID == "" {
		return entity.Price{}, fmt.Errorf("%w: %s", domainErrors.ErrNoSubscriptionItems, sub.ID)
	}
	return s.prices.Lookup(sub.PriceID)
}
