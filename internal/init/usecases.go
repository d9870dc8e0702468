package init

import (
	"fmt"

	"github.com/tasyapp/billing/internal/config"
	"github.com/tasyapp/billing/internal/domain/provider"
	"github.com/tasyapp/billing/internal/infrastructure/database"
	"github.com/tasyapp/billing/internal/infrastructure/messaging"
	"github.com/tasyapp/billing/internal/metrics"
	"github.com/tasyapp/billing/internal/usecase"
	pkgMessaging "github.com/tasyapp/billing/pkg/messaging"
	"go.uber.org/zap"
)

// UseCases holds every use case of the billing service
type UseCases struct {
	Reconciler *usecase.SubscriptionReconciler
	Dispatcher *usecase.WebhookDispatcher
	Auditor    *usecase.AuditRecorder
	Account    *usecase.AccountService
	Resync     *usecase.ResyncService
}

// NewUseCases wires the use cases on top of the repositories and the provider
func NewUseCases(
	cfg *config.Config,
	repos *database.Repositories,
	subProvider provider.SubscriptionProvider,
	publisher provider.EventPublisher,
	m *metrics.Metrics,
	logger *zap.Logger,
) *UseCases {
	product := cfg.Billing.Product

	resolver := usecase.NewUserResolver(repos.Profile, logger)
	allocator := usecase.NewCreditAllocator(repos.Credit, cfg.Billing.CreditCaps(), publisher, m, logger)

	reconciler := usecase.NewSubscriptionReconciler(usecase.ReconcilerDeps{
		SubscriptionRepo: repos.Subscription,
		ProfileRepo:      repos.Profile,
		Resolver:         resolver,
		Allocator:        allocator,
		Provider:         subProvider,
		Publisher:        publisher,
		Prices:           cfg.Billing.PriceTable(),
		Product:          product,
		Metrics:          m,
		Logger:           logger,
	})

	return &UseCases{
		Reconciler: reconciler,
		Dispatcher: usecase.NewWebhookDispatcher(reconciler, m, logger),
		Auditor:    usecase.NewAuditRecorder(repos.WebhookEvent, product, cfg.Billing.AuditTimeout, m, logger),
		Account:    usecase.NewAccountService(repos.Credit, repos.Subscription, product),
		Resync:     usecase.NewResyncService(subProvider, reconciler, logger),
	}
}

// NewEventPublisher connects to Redis when it is configured. The returned
// close function is always safe to call.
func NewEventPublisher(cfg config.RedisConfig, logger *zap.Logger) (provider.EventPublisher, func() error, error) {
	if !cfg.Enabled() {
		logger.Info("Redis not configured, billing events will not be published")
		return provider.NopPublisher{}, func() error { return nil }, nil
	}

	client, err := pkgMessaging.NewRedisClient(cfg.Addr, cfg.Password, cfg.DB)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("Publishing billing events to Redis",
		zap.String("addr", cfg.Addr),
		zap.String("channel_prefix", cfg.ChannelPrefix))
	return messaging.NewRedisEventPublisher(client, cfg.ChannelPrefix), client.Close, nil
}
