package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/tasyapp/billing/internal/domain/entity"
	domainErrors "github.com/tasyapp/billing/internal/domain/errors"
	stripeProvider "github.com/tasyapp/billing/internal/infrastructure/provider/stripe"
	"github.com/tasyapp/billing/internal/metrics"
	"go.uber.org/zap"
)

// SignatureHeader is the header Stripe signs webhook payloads with
const SignatureHeader = "Stripe-Signature"

// EventAuditor writes the audit row for a verified event
type EventAuditor interface {
	Record(ctx context.Context, env entity.EventEnvelope) *domainErrors.AuditError
}

// EventDispatcher runs the handler for a verified event
type EventDispatcher interface {
	Dispatch(ctx context.Context, ev entity.Event) error
}

type WebhookHandler struct {
	secrets    []string
	auditor    EventAuditor
	dispatcher EventDispatcher
	metrics    *metrics.Metrics
	logger     *zap.Logger
}

// NewWebhookHandler creates the Stripe webhook receiver. secrets are tried in order.
func NewWebhookHandler(secrets []string, auditor EventAuditor, dispatcher EventDispatcher, m *metrics.Metrics, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		secrets:    secrets,
		auditor:    auditor,
		dispatcher: dispatcher,
		metrics:    m,
		logger:     logger,
	}
}

// HandleWebhook handles POST /webhook
func (h *WebhookHandler) HandleWebhook(c echo.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("Panic while handling webhook",
				zap.Any("panic", r),
				zap.Stack("stack"))
			h.metrics.WebhookRejections.WithLabelValues("internal").Inc()
			err = c.JSON(http.StatusInternalServerError, echo.Map{"error": "Internal server error"})
		}
	}()

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		h.logger.Error("Error reading request body", zap.Error(err))
		h.metrics.WebhookRejections.WithLabelValues("body").Inc()
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Error reading request body"})
	}

	event, err := stripeProvider.VerifyEvent(body, c.Request().Header.Get(SignatureHeader), h.secrets)
	if err != nil {
		reason := "signature"
		switch {
		case errors.Is(err, stripeProvider.ErrMissingSignature):
			reason = "missing_signature"
		case errors.Is(err, stripeProvider.ErrNoWebhookSecret):
			reason = "no_secret"
			h.logger.Error("Webhook secret not configured")
		}
		h.metrics.WebhookRejections.WithLabelValues(reason).Inc()
		h.logger.Warn("Webhook rejected",
			zap.String("reason", reason),
			zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	// Processing runs to completion even if the sender hangs up.
	ctx := context.WithoutCancel(c.Request().Context())
	started := time.Now()

	ev, err := stripeProvider.DecodeEvent(event)
	if err != nil {
		env := entity.EventEnvelope{
			ID:      event.ID,
			Type:    string(event.Type),
			Created: time.Unix(event.Created, 0).UTC(),
		}
		h.audit(ctx, env)
		h.metrics.ObserveWebhook(env.Type, metrics.OutcomeFailed, started)
		h.logger.Error("Failed to decode webhook event",
			zap.String("event_id", env.ID),
			zap.String("type", env.Type),
			zap.Error(err))
		return h.received(c, event.ID)
	}

	env := ev.Envelope()
	h.logger.Info("Webhook event received",
		zap.String("event_id", env.ID),
		zap.String("type", env.Type),
		zap.String("customer_id", env.CustomerID))

	h.audit(ctx, env)

	if err := h.dispatcher.Dispatch(ctx, ev); err != nil {
		h.logger.Error("Webhook handler failed",
			zap.String("event_id", env.ID),
			zap.String("type", env.Type),
			zap.Error(err))
	}

	return h.received(c, env.ID)
}

// audit never affects the response; the recorder logs and counts its own
// failures.
func (h *WebhookHandler) audit(ctx context.Context, env entity.EventEnvelope) {
	_ = h.auditor.Record(ctx, env)
}

func (h *WebhookHandler) received(c echo.Context, eventID string) error {
	return c.JSON(http.StatusOK, echo.Map{
		"received": true,
		"eventId":  eventID,
	})
}
