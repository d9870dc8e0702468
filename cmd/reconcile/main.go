// Command reconcile replays Stripe subscriptions through the reconciler.
//
//	reconcile --subscription sub_123
//	reconcile --all [--status active] [--grant-credits]
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"
	"github.com/tasyapp/billing/internal/config"
	"github.com/tasyapp/billing/internal/infrastructure/database"
	stripeProvider "github.com/tasyapp/billing/internal/infrastructure/provider/stripe"
	appinit "github.com/tasyapp/billing/internal/init"
	"github.com/tasyapp/billing/internal/metrics"
	"github.com/tasyapp/billing/internal/usecase"
	"github.com/tasyapp/billing/pkg/logger"
	"go.uber.org/zap"
)

type options struct {
	subscriptionID string
	all            bool
	status         string
	grantCredits   bool
}

func parseFlags(args []string) (options, error) {
	var opts options

	fs := pflag.NewFlagSet("reconcile", pflag.ContinueOnError)
	fs.StringVar(&opts.subscriptionID, "subscription", "", "Stripe subscription id to reconcile")
	fs.BoolVar(&opts.all, "all", false, "reconcile every Stripe subscription with --status")
	fs.StringVar(&opts.status, "status", "active", "subscription status to list with --all (\"all\" for every status)")
	fs.BoolVar(&opts.grantCredits, "grant-credits", false, "also run the credit allocator; yearly plans are granted again on every run")

	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if (opts.subscriptionID == "") == !opts.all {
		return opts, fmt.Errorf("exactly one of --subscription or --all is required")
	}
	return opts, nil
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		log.Fatalf("Invalid arguments: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zapLogger, err := logger.NewZapLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()

	if cfg.Stripe.SecretKey == "" {
		zapLogger.Fatal("Stripe secret key not configured")
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

	publisher, closePublisher, err := appinit.NewEventPublisher(cfg.Redis, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to initialize event publisher", zap.Error(err))
	}
	defer closePublisher()

	repos := database.NewRepositories(db, zapLogger)
	subProvider := stripeProvider.NewStripeProvider(cfg.Stripe.SecretKey, zapLogger)
	useCases := appinit.NewUseCases(cfg, repos, subProvider, publisher, metrics.New(prometheus.NewRegistry()), zapLogger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	resyncOpts := usecase.ResyncOptions{GrantCredits: opts.grantCredits}

	if opts.subscriptionID != "" {
		result, err := useCases.Resync.ResyncOne(ctx, opts.subscriptionID, resyncOpts)
		if err != nil {
			zapLogger.Fatal("Failed to reconcile subscription",
				zap.String("subscription_id", opts.subscriptionID),
				zap.Error(err))
		}
		fields := []zap.Field{
			zap.String("subscription_id", opts.subscriptionID),
			zap.Bool("ignored", result.Ignored),
			zap.Bool("inserted", result.Inserted),
		}
		if result.Grant != nil {
			fields = append(fields,
				zap.Int("granted", result.Grant.Granted),
				zap.Int("balance", result.Grant.After))
		}
		zapLogger.Info("Subscription reconciled", fields...)
		return
	}

	stats, err := useCases.Resync.ResyncAll(ctx, opts.status, resyncOpts)
	if err != nil {
		zapLogger.Fatal("Resync aborted", zap.Error(err))
	}
	if stats.Failed > 0 {
		zapLogger.Warn("Some subscriptions failed to reconcile", zap.Int("failed", stats.Failed))
		os.Exit(1)
	}
}
