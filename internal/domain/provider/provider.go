package provider

import (
	"context"

	"github.com/tasyapp/billing/internal/domain/entity"
)

// SubscriptionProvider reads subscriptions from the payment provider
type SubscriptionProvider interface {
	// GetSubscription fetches the live subscription object
	GetSubscription(ctx context.Context, subscriptionID string) (*entity.ProviderSubscription, error)

	// ListSubscriptions calls fn for every subscription with the given status
	// ("all" for every status) until fn returns an error.
	ListSubscriptions(ctx context.Context, status string, fn func(*entity.ProviderSubscription) error) error

	// GetProviderName returns the provider name
	GetProviderName() string
}

// EventPublisher fans out billing events to other services. Implementations
// must be safe for concurrent use.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, payload interface{}) error
}

// Topics published by the billing service
const (
	TopicCreditsAllocated          = "credits.allocated"
	TopicSubscriptionStatusChanged = "subscription.status_changed"
)

// CreditsAllocatedEvent is published after a non-zero grant
type CreditsAllocatedEvent struct {
	UserID   string `json:"user_id"`
	Plan     string `json:"plan"`
	Interval string `json:"interval"`
	Granted  int    `json:"granted"`
	Balance  int    `json:"balance"`
}

// SubscriptionStatusChangedEvent is published after a status transition
type SubscriptionStatusChangedEvent struct {
	StripeSubscriptionID string `json:"stripe_subscription_id"`
	Status               string `json:"status"`
	IsActive             bool   `json:"is_active"`
	EventID              string `json:"event_id,omitempty"`
}

// NopPublisher discards events. Used when Redis is not configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, interface{}) error { return nil }
