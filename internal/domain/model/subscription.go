package model

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Subscription mirrors one provider subscription. Rows of several product
// lines share this table and are told apart by Product.
type Subscription struct {
	ID                   uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	UserID               uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	Email                string     `gorm:"size:255" json:"email"`
	StripeCustomerID     string     `gorm:"not null;size:100;index" json:"stripe_customer_id"`
	StripeSubscriptionID string     `gorm:"uniqueIndex;not null;size:100" json:"stripe_subscription_id"`
	Status               string     `gorm:"not null;size:32" json:"status"`
	PlanType             string     `gorm:"not null;size:32" json:"plan_type"`
	BillingInterval      string     `gorm:"not null;size:16" json:"billing_interval"`
	PriceID              string     `gorm:"size:100" json:"price_id"`
	CurrentPeriodStart   *time.Time `json:"current_period_start,omitempty"`
	CurrentPeriodEnd     *time.Time `json:"current_period_end,omitempty"`
	CancelAtPeriodEnd    bool       `gorm:"not null;default:false" json:"cancel_at_period_end"`
	IsActive             bool       `gorm:"not null;default:false" json:"is_active"`
	Product              string     `gorm:"not null;size:50;index" json:"product"`
	Metadata             JSONB      `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt            time.Time  `gorm:"default:now()" json:"created_at"`
	UpdatedAt            time.Time  `gorm:"default:now()" json:"updated_at"`
}

// JSONB represents a JSONB database type
type JSONB map[string]interface{}

// Value implements driver.Valuer interface
func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan implements sql.Scanner interface
func (j *JSONB) Scan(src interface{}) error {
	if src == nil {
		*j = nil
		return nil
	}

	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, j)
	case string:
		return json.Unmarshal([]byte(v), j)
	default:
		*j = make(JSONB)
		return nil
	}
}

// TableName specifies the table name for GORM
func (Subscription) TableName() string {
	return "subscriptions"
}
