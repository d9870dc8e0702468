package stripe

import (
	"context"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/subscription"
	"github.com/tasyapp/billing/internal/domain/entity"
	"github.com/tasyapp/billing/internal/domain/provider"
	"go.uber.org/zap"
)

const providerName = "stripe"

// StripeProvider implements provider.SubscriptionProvider on the Stripe API
type StripeProvider struct {
	client subscription.Client
	logger *zap.Logger
}

var _ provider.SubscriptionProvider = (*StripeProvider)(nil)

// NewStripeProvider creates a Stripe provider using the default API backend
func NewStripeProvider(secretKey string, logger *zap.Logger) *StripeProvider {
	return NewStripeProviderWithBackend(stripe.GetBackend(stripe.APIBackend), secretKey, logger)
}

// NewStripeProviderWithBackend creates a Stripe provider on an explicit backend
func NewStripeProviderWithBackend(backend stripe.Backend, secretKey string, logger *zap.Logger) *StripeProvider {
	return &StripeProvider{
		client: subscription.Client{B: backend, Key: secretKey},
		logger: logger,
	}
}

// GetProviderName returns the provider name
func (s *StripeProvider) GetProviderName() string {
	return providerName
}

// GetSubscription fetches the live subscription object
func (s *StripeProvider) GetSubscription(ctx context.Context, subscriptionID string) (*entity.ProviderSubscription, error) {
	params := &stripe.SubscriptionParams{}
	params.Context = ctx

	sub, err := s.client.Get(subscriptionID, params)
	if err != nil {
		s.logger.Error("Failed to retrieve Stripe subscription",
			zap.String("subscription_id", subscriptionID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to retrieve subscription %s: %w", subscriptionID, err)
	}

	return ToProviderSubscription(sub), nil
}

// ListSubscriptions pages through subscriptions with the given status
func (s *StripeProvider) ListSubscriptions(ctx context.Context, status string, fn func(*entity.ProviderSubscription) error) error {
	params := &stripe.SubscriptionListParams{}
	params.Context = ctx
	if status != "" {
		params.Status = stripe.String(status)
	}

	iter := s.client.List(params)
	for iter.Next() {
		if err := fn(ToProviderSubscription(iter.Subscription())); err != nil {
			return err
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to list subscriptions: %w", err)
	}
	return nil
}

// ToProviderSubscription maps a Stripe subscription to the reconciler's view
func ToProviderSubscription(sub *stripe.Subscription) *entity.ProviderSubscription {
	if sub == nil {
		return nil
	}

	out := &entity.ProviderSubscription{
		ID:                 sub.ID,
		Status:             string(sub.Status),
		CurrentPeriodStart: unixTime(sub.CurrentPeriodStart),
		CurrentPeriodEnd:   unixTime(sub.CurrentPeriodEnd),
		CancelAtPeriodEnd:  sub.CancelAtPeriodEnd,
		Metadata:           sub.Metadata,
	}
	if sub.Customer != nil {
		out.CustomerID = sub.Customer.ID
	}
	if sub.Items != nil && len(sub.Items.Data) > 0 {
		if price := sub.Items.Data[0].Price; price != nil {
			out.PriceID = price.ID
			if price.Recurring != nil {
				out.RecurringInterval = string(price.Recurring.Interval)
			}
		}
	}
	return out
}

func unixTime(sec int64) *time.Time {
	if sec <= 0 {
		return nil
	}
	t := time.Unix(sec, 0).UTC()
	return &t
}
