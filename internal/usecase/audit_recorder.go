package usecase

import (
	"context"
	"time"

	"github.com/tasyapp/billing/internal/domain/entity"
	domainErrors "github.com/tasyapp/billing/internal/domain/errors"
	domainRepo "github.com/tasyapp/billing/internal/domain/repository"
	"github.com/tasyapp/billing/internal/metrics"
	"go.uber.org/zap"
)

// AuditRecorder writes the webhook_event_log row for each verified event.
// Its failures are reported as *AuditError and never affect dispatch.
type AuditRecorder struct {
	repo    domainRepo.WebhookEventRepository
	source  string
	timeout time.Duration
	metrics *metrics.Metrics
	logger  *zap.Logger
}

func NewAuditRecorder(repo domainRepo.WebhookEventRepository, source string, timeout time.Duration, m *metrics.Metrics, logger *zap.Logger) *AuditRecorder {
	return &AuditRecorder{
		repo:    repo,
		source:  source,
		timeout: timeout,
		metrics: m,
		logger:  logger,
	}
}

// Record writes the audit row. A client disconnect does not cancel the write;
// only the configured timeout bounds it.
func (r *AuditRecorder) Record(ctx context.Context, env entity.EventEnvelope) *domainErrors.AuditError {
	ctx = context.WithoutCancel(ctx)
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	inserted, err := r.repo.Record(ctx, &entity.WebhookEventRecord{
		EventID:    env.ID,
		EventType:  env.Type,
		CustomerID: env.CustomerID,
		Source:     r.source,
	})
	if err != nil {
		r.metrics.AuditFailures.Inc()
		r.logger.Error("Failed to write webhook event log",
			zap.String("event_id", env.ID),
			zap.String("type", env.Type),
			zap.Error(err))
		return domainErrors.NewAuditError(env.ID, err)
	}

	if !inserted {
		// Processing continues: the log is not an idempotency guard.
		r.logger.Warn("Webhook event already logged, processing duplicate delivery",
			zap.String("event_id", env.ID),
			zap.String("type", env.Type))
	}
	return nil
}
