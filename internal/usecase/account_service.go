package usecase

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/tasyapp/billing/internal/domain/entity"
	domainErrors "github.com/tasyapp/billing/internal/domain/errors"
	"github.com/tasyapp/billing/internal/domain/model"
	domainRepo "github.com/tasyapp/billing/internal/domain/repository"
)

// AccountService answers read-only questions about a signed-in user
type AccountService struct {
	creditRepo       domainRepo.CreditRepository
	subscriptionRepo domainRepo.SubscriptionRepository
	product          string
}

func NewAccountService(creditRepo domainRepo.CreditRepository, subscriptionRepo domainRepo.SubscriptionRepository, product string) *AccountService {
	return &AccountService{
		creditRepo:       creditRepo,
		subscriptionRepo: subscriptionRepo,
		product:          product,
	}
}

func (s *AccountService) GetCredits(ctx context.Context, userID uuid.UUID) (int, error) {
	credits, err := s.creditRepo.GetBalance(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to get credits: %w", err)
	}
	return credits, nil
}

// GetCurrentSubscription returns the user's latest subscription of this
// product or ErrSubscriptionNotFound.
func (s *AccountService) GetCurrentSubscription(ctx context.Context, userID uuid.UUID) (*entity.Subscription, error) {
	sub, err := s.subscriptionRepo.GetLatestForUser(ctx, userID, s.product)
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}
	if sub == nil {
		return nil, domainErrors.ErrSubscriptionNotFound
	}
	return sub, nil
}

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// GetCreditHistory returns ledger rows newest first. limit defaults to 20 and
// is capped at 100.
func (s *AccountService) GetCreditHistory(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*model.CreditTransaction, error) {
	switch {
	case limit <= 0:
		limit = defaultHistoryLimit
	case limit > maxHistoryLimit:
		limit = maxHistoryLimit
	}
	if offset < 0 {
		offset = 0
	}
	txs, err := s.creditRepo.GetTransactionHistory(ctx, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get credit history: %w", err)
	}
	return txs, nil
}
