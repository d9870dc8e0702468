package database

import (
	"github.com/tasyapp/billing/internal/adapter/repository"
	domainRepo "github.com/tasyapp/billing/internal/domain/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Repositories holds all repository instances
type Repositories struct {
	Subscription domainRepo.SubscriptionRepository
	Profile      domainRepo.ProfileRepository
	Credit       domainRepo.CreditRepository
	WebhookEvent domainRepo.WebhookEventRepository
}

// NewRepositories creates new repository instances with database connection
func NewRepositories(db *gorm.DB, logger *zap.Logger) *Repositories {
	return &Repositories{
		Subscription: repository.NewSubscriptionRepository(db, logger),
		Profile:      repository.NewProfileRepository(db, logger),
		Credit:       repository.NewCreditRepository(db, logger),
		WebhookEvent: repository.NewWebhookEventRepository(db, logger),
	}
}
