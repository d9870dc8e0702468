package usecase

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/tasyapp/billing/internal/domain/entity"
	"github.com/tasyapp/billing/internal/domain/provider"
	domainRepo "github.com/tasyapp/billing/internal/domain/repository"
	"github.com/tasyapp/billing/internal/metrics"
	"go.uber.org/zap"
)

// AllocationInput is what the allocator needs to decide on a grant.
type AllocationInput struct {
	UserID   uuid.UUID
	Plan     entity.Plan
	Status   string
	Interval entity.Interval
	// ReferenceID is stored on the ledger row (event or subscription id)
	ReferenceID string
}

// CreditAllocator tops up balances according to the plan cap
type CreditAllocator struct {
	creditRepo domainRepo.CreditRepository
	caps       entity.CreditCaps
	publisher  provider.EventPublisher
	metrics    *metrics.Metrics
	logger     *zap.Logger
}

// NewCreditAllocator creates a new credit allocator
func NewCreditAllocator(
	creditRepo domainRepo.CreditRepository,
	caps entity.CreditCaps,
	publisher provider.EventPublisher,
	m *metrics.Metrics,
	logger *zap.Logger,
) *CreditAllocator {
	if publisher == nil {
		publisher = provider.NopPublisher{}
	}
	return &CreditAllocator{
		creditRepo: creditRepo,
		caps:       caps,
		publisher:  publisher,
		metrics:    m,
		logger:     logger,
	}
}

// creditGrant returns the number of credits to add to current.
// Yearly billing adds a full year of credits regardless of the balance;
// monthly billing only fills the shortfall up to the cap.
func creditGrant(limit int, interval entity.Interval, current int) int {
	if interval == entity.IntervalYearly {
		return limit * 12
	}
	if current >= limit {
		return 0
	}
	return limit - current
}

// Allocate applies the grant for in. It returns nil without touching the
// store when the subscription is not active or the plan has no cap.
func (a *CreditAllocator) Allocate(ctx context.Context, in AllocationInput) (*entity.CreditGrant, error) {
	if in.Status != entity.StatusActive {
		a.logger.Info("Skipping credit allocation for inactive subscription",
			zap.String("user_id", in.UserID.String()),
			zap.String("status", in.Status))
		return nil, nil
	}

	monthlyCap, ok := a.caps.Cap(in.Plan)
	if !ok {
		a.logger.Warn("Skipping credit allocation for plan without cap",
			zap.String("user_id", in.UserID.String()),
			zap.String("plan", string(in.Plan)))
		return nil, nil
	}

	interval := in.Interval
	if interval == "" {
		interval = entity.IntervalMonthly
	}

	req := domainRepo.CreditRequest{
		UserID:      in.UserID,
		Plan:        in.Plan,
		Interval:    interval,
		Description: fmt.Sprintf("%s %s credits", in.Plan, interval),
		ReferenceID: in.ReferenceID,
	}

	grant, err := a.creditRepo.ApplyGrant(ctx, req, func(current int) int {
		return creditGrant(monthlyCap, interval, current)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to allocate credits: %w", err)
	}

	a.logger.Info("Credits allocated",
		zap.String("user_id", in.UserID.String()),
		zap.String("plan", string(in.Plan)),
		zap.String("interval", string(interval)),
		zap.Int("before", grant.Before),
		zap.Int("granted", grant.Granted),
		zap.Int("after", grant.After))

	if grant.Granted > 0 {
		a.metrics.CreditsGranted.WithLabelValues(string(in.Plan), string(interval)).Add(float64(grant.Granted))
		publish(ctx, a.publisher, a.metrics, a.logger, provider.TopicCreditsAllocated, provider.CreditsAllocatedEvent{
			UserID:   in.UserID.String(),
			Plan:     string(in.Plan),
			Interval: string(interval),
			Granted:  grant.Granted,
			Balance:  grant.After,
		})
	}

	return grant, nil
}

// publish is best effort; failures are logged and counted only.
func publish(ctx context.Context, p provider.EventPublisher, m *metrics.Metrics, logger *zap.Logger, topic string, payload interface{}) {
	if err := p.Publish(ctx, topic, payload); err != nil {
		m.PublishFailures.WithLabelValues(topic).Inc()
		logger.Warn("Failed to publish billing event",
			zap.String("topic", topic),
			zap.Error(err))
	}
}
