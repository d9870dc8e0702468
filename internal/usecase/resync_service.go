package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/tasyapp/billing/internal/domain/entity"
	"github.com/tasyapp/billing/internal/domain/provider"
	"go.uber.org/zap"
)

// ResyncStats summarizes a bulk resync
type ResyncStats struct {
	Seen       int
	Reconciled int
	Ignored    int
	Failed     int
}

// ResyncOptions controls what a resync may change.
type ResyncOptions struct {
	// GrantCredits runs the credit allocator as the webhook path does. Off by
	// default: yearly plans are granted cap×12 on every allocation, so each
	// run with it set grants another year.
	GrantCredits bool
}

// ResyncService replays provider subscriptions through the reconciler to
// repair rows whose webhook processing failed.
type ResyncService struct {
	subProvider provider.SubscriptionProvider
	reconciler  *SubscriptionReconciler
	logger      *zap.Logger
}

func NewResyncService(subProvider provider.SubscriptionProvider, reconciler *SubscriptionReconciler, logger *zap.Logger) *ResyncService {
	return &ResyncService{
		subProvider: subProvider,
		reconciler:  reconciler,
		logger:      logger,
	}
}

// ResyncOne fetches one subscription and reconciles it.
func (s *ResyncService) ResyncOne(ctx context.Context, subscriptionID string, opts ResyncOptions) (*ReconcileResult, error) {
	sub, err := s.subProvider.GetSubscription(ctx, subscriptionID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch subscription %s: %w", subscriptionID, err)
	}
	return s.reconcileOne(ctx, sub, opts)
}

func (s *ResyncService) reconcileOne(ctx context.Context, sub *entity.ProviderSubscription, opts ResyncOptions) (*ReconcileResult, error) {
	if opts.GrantCredits {
		return s.reconciler.Reconcile(ctx, sub, false)
	}
	return s.reconciler.Sync(ctx, sub)
}

// ResyncAll reconciles every provider subscription with the given status.
// Individual failures are logged and counted; only listing errors and
// context cancellation abort the run.
func (s *ResyncService) ResyncAll(ctx context.Context, status string, opts ResyncOptions) (ResyncStats, error) {
	var stats ResyncStats

	err := s.subProvider.ListSubscriptions(ctx, status, func(sub *entity.ProviderSubscription) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Seen++

		result, err := s.reconcileOne(ctx, sub, opts)
		if err != nil {
			stats.Failed++
			s.logger.Error("Failed to reconcile subscription",
				zap.String("subscription_id", sub.ID),
				zap.Error(err))
			return nil
		}
		if result.Ignored {
			stats.Ignored++
			return nil
		}
		stats.Reconciled++
		return nil
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return stats, fmt.Errorf("failed to list subscriptions: %w", err)
	}

	s.logger.Info("Subscription resync finished",
		zap.String("status", status),
		zap.Bool("grant_credits", opts.GrantCredits),
		zap.Int("seen", stats.Seen),
		zap.Int("reconciled", stats.Reconciled),
		zap.Int("ignored", stats.Ignored),
		zap.Int("failed", stats.Failed))

	return stats, err
}
