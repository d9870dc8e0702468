package entity

import (
	"time"

	"github.com/google/uuid"
)

const (
	StatusActive   = "active"
	StatusPastDue  = "past_due"
	StatusCanceled = "canceled"
)

// ProviderSubscription is the subset of a Stripe subscription object the
// reconciler consumes.
type ProviderSubscription struct {
	ID         string
	CustomerID string
	Status     string
	// PriceID and RecurringInterval come from the first line item.
	PriceID            string
	RecurringInterval  string
	CurrentPeriodStart *time.Time
	CurrentPeriodEnd   *time.Time
	CancelAtPeriodEnd  bool
	Metadata           map[string]string
}

// Subscription is the normalized subscriptions row.
type Subscription struct {
	ID                   uuid.UUID         `json:"id"`
	UserID               uuid.UUID         `json:"user_id"`
	Email                string            `json:"email"`
	StripeCustomerID     string            `json:"stripe_customer_id"`
	StripeSubscriptionID string            `json:"stripe_subscription_id"`
	Status               string            `json:"status"`
	PlanType             string            `json:"plan_type"`
	BillingInterval      Interval          `json:"billing_interval"`
	PriceID              string            `json:"price_id"`
	CurrentPeriodStart   *time.Time        `json:"current_period_start,omitempty"`
	CurrentPeriodEnd     *time.Time        `json:"current_period_end,omitempty"`
	CancelAtPeriodEnd    bool              `json:"cancel_at_period_end"`
	IsActive             bool              `json:"is_active"`
	Product              string            `json:"product"`
	Metadata             map[string]string `json:"metadata,omitempty"`
	CreatedAt            time.Time         `json:"created_at"`
	UpdatedAt            time.Time         `json:"updated_at"`
}

// StatusChange is the update applied by deleted and invoice events.
type StatusChange struct {
	StripeSubscriptionID string
	Status               string
	IsActive             bool
}
