package entity

import "github.com/google/uuid"

type Profile struct {
	UserID              uuid.UUID  `json:"user_id"`
	Email               string     `json:"email"`
	StripeCustomerID    string     `json:"stripe_customer_id,omitempty"`
	SubscriptionID      *uuid.UUID `json:"subscription_id,omitempty"`
	Credits             int        `json:"credits"`
	OnboardingCompleted bool       `json:"onboarding_completed"`
}

// CreditGrant describes one applied allocation.
type CreditGrant struct {
	UserID   uuid.UUID
	Plan     Plan
	Interval Interval
	Before   int
	Granted  int
	After    int
}
