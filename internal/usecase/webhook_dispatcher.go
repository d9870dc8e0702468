package usecase

import (
	"context"
	"time"

	"github.com/tasyapp/billing/internal/domain/entity"
	"github.com/tasyapp/billing/internal/metrics"
	"go.uber.org/zap"
)

// WebhookDispatcher routes verified events to their handlers
type WebhookDispatcher struct {
	reconciler *SubscriptionReconciler
	metrics    *metrics.Metrics
	logger     *zap.Logger
}

func NewWebhookDispatcher(reconciler *SubscriptionReconciler, m *metrics.Metrics, logger *zap.Logger) *WebhookDispatcher {
	return &WebhookDispatcher{
		reconciler: reconciler,
		metrics:    m,
		logger:     logger,
	}
}

// Dispatch runs the handler for ev and returns its error. Callers decide
// whether the error reaches the provider; the HTTP receiver swallows it.
func (d *WebhookDispatcher) Dispatch(ctx context.Context, ev entity.Event) error {
	env := ev.Envelope()
	started := time.Now()

	outcome := metrics.OutcomeProcessed
	err := d.dispatch(ctx, ev)
	switch {
	case err != nil:
		outcome = metrics.OutcomeFailed
	case isIgnored(ev):
		outcome = metrics.OutcomeIgnored
	}
	d.metrics.ObserveWebhook(env.Type, outcome, started)

	return err
}

func (d *WebhookDispatcher) dispatch(ctx context.Context, ev entity.Event) error {
	env := ev.Envelope()

	switch e := ev.(type) {
	case *entity.CheckoutCompleted:
		// The subscription itself arrives as customer.subscription.created.
		d.logger.Info("Checkout session completed",
			zap.String("event_id", env.ID),
			zap.String("session_id", e.SessionID),
			zap.String("subscription_id", e.SubscriptionID),
			zap.String("customer_id", env.CustomerID))
		return nil

	case *entity.SubscriptionChanged:
		_, err := d.reconciler.Reconcile(ctx, &e.Subscription, e.Created)
		return err

	case *entity.SubscriptionDeleted:
		return d.reconciler.MarkStatus(ctx, entity.StatusChange{
			StripeSubscriptionID: e.Subscription.ID,
			Status:               entity.StatusCanceled,
			IsActive:             false,
		}, env.ID)

	case *entity.InvoicePaid:
		_, err := d.reconciler.HandleInvoicePaid(ctx, e.Invoice, env.ID)
		return err

	case *entity.InvoiceFailed:
		if e.Invoice.SubscriptionID == "" {
			d.logger.Info("Failed invoice is not tied to a subscription",
				zap.String("event_id", env.ID),
				zap.String("invoice_id", e.Invoice.InvoiceID))
			return nil
		}
		return d.reconciler.MarkStatus(ctx, entity.StatusChange{
			StripeSubscriptionID: e.Invoice.SubscriptionID,
			Status:               entity.StatusPastDue,
			IsActive:             false,
		}, env.ID)

	default:
		d.logger.Info("Unhandled event type",
			zap.String("event_id", env.ID),
			zap.String("type", env.Type))
		return nil
	}
}

func isIgnored(ev entity.Event) bool {
	switch ev.(type) {
	case *entity.Unhandled, *entity.CheckoutCompleted:
		return true
	}
	return false
}
