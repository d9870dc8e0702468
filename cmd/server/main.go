package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	handlers "github.com/tasyapp/billing/internal/adapter/handler/http"
	"github.com/tasyapp/billing/internal/config"
	"github.com/tasyapp/billing/internal/infrastructure/database"
	grpcServer "github.com/tasyapp/billing/internal/infrastructure/grpc"
	httpServer "github.com/tasyapp/billing/internal/infrastructure/http"
	stripeProvider "github.com/tasyapp/billing/internal/infrastructure/provider/stripe"
	appinit "github.com/tasyapp/billing/internal/init"
	"github.com/tasyapp/billing/internal/metrics"
	"github.com/tasyapp/billing/pkg/logger"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zapLogger, err := logger.NewZapLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger = zapLogger.With(
		zap.String("service", cfg.Service.Name),
		zap.String("env", cfg.Service.Environment),
	)

	if len(cfg.Stripe.WebhookSecrets()) == 0 {
		// Every webhook will be rejected with 400 until a secret is set.
		zapLogger.Warn("No Stripe webhook secret configured")
	}

	db, err := database.NewConnection(context.Background(), &cfg.Database, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := database.Close(db, zapLogger); err != nil {
			zapLogger.Error("Failed to close database connection", zap.Error(err))
		}
	}()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(db, zapLogger); err != nil {
			zapLogger.Fatal("Failed to run database migrations", zap.Error(err))
		}
	}

	repos := database.NewRepositories(db, zapLogger)

	publisher, closePublisher, err := appinit.NewEventPublisher(cfg.Redis, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to initialize event publisher", zap.Error(err))
	}
	defer closePublisher()

	m := metrics.New(prometheus.DefaultRegisterer)
	subProvider := stripeProvider.NewStripeProvider(cfg.Stripe.SecretKey, zapLogger)
	useCases := appinit.NewUseCases(cfg, repos, subProvider, publisher, m, zapLogger)

	grpcSrv := grpcServer.NewServer(cfg, zapLogger)
	httpSrv := httpServer.NewServer(cfg, zapLogger, httpServer.Handlers{
		Webhook: handlers.NewWebhookHandler(cfg.Stripe.WebhookSecrets(), useCases.Auditor, useCases.Dispatcher, m, zapLogger),
		Account: handlers.NewAccountHandler(zapLogger, useCases.Account),
	}, prometheus.DefaultGatherer)

	if cfg.Server.GRPC.Enabled {
		go func() {
			if err := grpcSrv.Start(); err != nil {
				zapLogger.Fatal("Failed to start gRPC server", zap.Error(err))
			}
		}()
	}

	go func() {
		if err := httpSrv.Start(); err != nil {
			zapLogger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	zapLogger.Info("Shutting down servers...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpSrv.Shutdown(ctx); err != nil {
		zapLogger.Error("Failed to shutdown HTTP server", zap.Error(err))
	}

	if cfg.Server.GRPC.Enabled {
		if err := grpcSrv.Shutdown(ctx); err != nil {
			zapLogger.Error("Failed to shutdown gRPC server", zap.Error(err))
		}
	}

	zapLogger.Info("Servers shut down successfully")
}
