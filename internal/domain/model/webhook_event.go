package model

import "time"

// WebhookEventLog is the append-only audit row written once per verified
// delivery. It is never read back by the processing path.
type WebhookEventLog struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	EventID    string    `gorm:"column:event_id;uniqueIndex;not null;size:255" json:"event_id"`
	EventType  string    `gorm:"not null;size:100;index" json:"event_type"`
	CustomerID *string   `gorm:"size:100" json:"customer_id,omitempty"`
	Source     string    `gorm:"not null;size:50" json:"source"`
	CreatedAt  time.Time `gorm:"default:now();index" json:"created_at"`
}

// TableName specifies the table name for GORM
func (WebhookEventLog) TableName() string {
	return "webhook_event_log"
}
