package database

import (
	"fmt"

	"github.com/tasyapp/billing/internal/domain/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Migrate runs database migrations
func Migrate(db *gorm.DB, logger *zap.Logger) error {
	logger.Info("Running database migrations...")

	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "pgcrypto"`).Error; err != nil {
		logger.Error("Failed to create extensions", zap.Error(err))
		return fmt.Errorf("failed to create extensions: %w", err)
	}

	// profiles is owned by the auth schema; AutoMigrate only adds the columns
	// this service reads and writes.
	err := db.AutoMigrate(
		&model.Profile{},
		&model.Subscription{},
		&model.WebhookEventLog{},
		&model.CreditTransaction{},
	)
	if err != nil {
		logger.Error("Failed to run migrations", zap.Error(err))
		return fmt.Errorf("failed to auto-migrate: %w", err)
	}

	if err := createCustomIndexes(db); err != nil {
		logger.Error("Failed to create custom indexes", zap.Error(err))
		return err
	}

	logger.Info("Database migrations completed successfully")
	return nil
}

var customIndexes = []string{
	`CREATE INDEX IF NOT EXISTS idx_subscriptions_product_status ON subscriptions (product, status)`,
	`CREATE INDEX IF NOT EXISTS idx_webhook_event_log_created_at ON webhook_event_log (created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_credit_transactions_reference ON credit_transactions (reference_id) WHERE reference_id IS NOT NULL`,
}

// createCustomIndexes creates indexes GORM tags cannot express
func createCustomIndexes(db *gorm.DB) error {
	for _, stmt := range customIndexes {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}
	return nil
}
