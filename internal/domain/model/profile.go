package model

import (
	"time"

	"github.com/google/uuid"
)

// Profile is the user row shared with the rest of the product. This service
// only touches the customer id, the subscription link, onboarding and credits.
type Profile struct {
	ID                  uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Email               string     `gorm:"size:255" json:"email"`
	StripeCustomerID    *string    `gorm:"size:100;uniqueIndex" json:"stripe_customer_id,omitempty"`
	SubscriptionID      *uuid.UUID `gorm:"type:uuid" json:"subscription_id,omitempty"`
	Credits             int        `gorm:"not null;default:0" json:"credits"`
	OnboardingCompleted bool       `gorm:"not null;default:false" json:"onboarding_completed"`
	CreatedAt           time.Time  `gorm:"default:now()" json:"created_at"`
	UpdatedAt           time.Time  `gorm:"default:now()" json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Profile) TableName() string {
	return "profiles"
}
