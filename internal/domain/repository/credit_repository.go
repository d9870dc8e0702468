package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/tasyapp/billing/internal/domain/entity"
	"github.com/tasyapp/billing/internal/domain/model"
)

// GrantFunc computes how many credits to add given the current balance.
type GrantFunc func(current int) int

// CreditRequest describes one allocation attempt.
type CreditRequest struct {
	UserID      uuid.UUID
	Plan        entity.Plan
	Interval    entity.Interval
	Description string
	ReferenceID string
}

// CreditRepository defines the interface for credit balance operations
type CreditRepository interface {
	// GetBalance returns the user's current credits
	GetBalance(ctx context.Context, userID uuid.UUID) (int, error)

	// ApplyGrant locks the user's balance, evaluates grant against it and
	// persists the new total. A non-zero grant also writes a ledger row.
	ApplyGrant(ctx context.Context, req CreditRequest, grant GrantFunc) (*entity.CreditGrant, error)

	// GetTransactionHistory retrieves ledger rows for a user, newest first
	GetTransactionHistory(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*model.CreditTransaction, error)
}
