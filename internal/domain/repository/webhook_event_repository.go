package repository

import (
	"context"

	"github.com/tasyapp/billing/internal/domain/entity"
)

// WebhookEventRepository appends rows to webhook_event_log
type WebhookEventRepository interface {
	// Record inserts the row. inserted is false when the event id was already logged.
	Record(ctx context.Context, rec *entity.WebhookEventRecord) (inserted bool, err error)
}
