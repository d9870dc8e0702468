package entity

// WebhookEventRecord is the audit row written for every verified delivery.
type WebhookEventRecord struct {
	EventID    string
	EventType  string
	CustomerID string
	Source     string
}
