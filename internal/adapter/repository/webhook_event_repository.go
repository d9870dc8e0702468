package repository

import (
	"context"
	"fmt"

	"github.com/tasyapp/billing/internal/domain/entity"
	"github.com/tasyapp/billing/internal/domain/model"
	domainRepo "github.com/tasyapp/billing/internal/domain/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type webhookEventRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewWebhookEventRepository creates a new webhook event log repository
func NewWebhookEventRepository(db *gorm.DB, logger *zap.Logger) domainRepo.WebhookEventRepository {
	return &webhookEventRepository{
		db:     db,
		logger: logger,
	}
}

// Record inserts one webhook_event_log row, doing nothing on a duplicate event id
func (r *webhookEventRepository) Record(ctx context.Context, rec *entity.WebhookEventRecord) (bool, error) {
	row := &model.WebhookEventLog{
		EventID:   rec.EventID,
		EventType: rec.EventType,
		Source:    rec.Source,
	}
	if rec.CustomerID != "" {
		customerID := rec.CustomerID
		row.CustomerID = &customerID
	}

	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "event_id"}},
			DoNothing: true,
		}).
		Create(row)

	if result.Error != nil {
		return false, fmt.Errorf("failed to save webhook event: %w", result.Error)
	}

	return result.RowsAffected > 0, nil
}
