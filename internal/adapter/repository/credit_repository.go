package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tasyapp/billing/internal/domain/entity"
	domainErrors "github.com/tasyapp/billing/internal/domain/errors"
	"github.com/tasyapp/billing/internal/domain/model"
	domainRepo "github.com/tasyapp/billing/internal/domain/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// creditRepository keeps balances on profiles.credits with a ledger in credit_transactions
type creditRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewCreditRepository creates a new credit repository instance
func NewCreditRepository(db *gorm.DB, logger *zap.Logger) domainRepo.CreditRepository {
	return &creditRepository{
		db:     db,
		logger: logger,
	}
}

// GetBalance retrieves the current credit balance for a user
func (r *creditRepository) GetBalance(ctx context.Context, userID uuid.UUID) (int, error) {
	var p model.Profile

	err := r.db.WithContext(ctx).
		Select("id", "credits").
		Where("id = ?", userID).
		First(&p).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, domainErrors.ErrProfileNotFound
		}
		r.logger.Error("Failed to get credit balance",
			zap.String("user_id", userID.String()),
			zap.Error(err))
		return 0, fmt.Errorf("failed to get credit balance: %w", err)
	}

	return p.Credits, nil
}

// ApplyGrant reads the balance under a row lock, evaluates grant and writes
// the new total in the same transaction.
func (r *creditRepository) ApplyGrant(ctx context.Context, req domainRepo.CreditRequest, grant domainRepo.GrantFunc) (*entity.CreditGrant, error) {
	var result *entity.CreditGrant

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p model.Profile
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id", "credits").
			Where("id = ?", req.UserID).
			First(&p).Error

		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domainErrors.ErrProfileNotFound
			}
			return fmt.Errorf("failed to lock balance: %w", err)
		}

		before := p.Credits
		granted := grant(before)
		after := before + granted

		if err := tx.Model(&model.Profile{}).
			Where("id = ?", req.UserID).
			Updates(map[string]interface{}{
				"credits":    after,
				"updated_at": time.Now(),
			}).Error; err != nil {
			return fmt.Errorf("failed to update balance: %w", err)
		}

		if granted > 0 {
			txType := model.TransactionTypeMonthlyTopUp
			if req.Interval == entity.IntervalYearly {
				txType = model.TransactionTypeYearlyGrant
			}

			entry := &model.CreditTransaction{
				UserID:          req.UserID,
				TransactionType: txType,
				PlanType:        req.Plan.StoredType(),
				Amount:          decimal.NewFromInt(int64(granted)),
				BalanceBefore:   decimal.NewFromInt(int64(before)),
				BalanceAfter:    decimal.NewFromInt(int64(after)),
				Description:     req.Description,
			}
			if req.ReferenceID != "" {
				ref := req.ReferenceID
				entry.ReferenceID = &ref
			}

			if err := tx.Create(entry).Error; err != nil {
				return fmt.Errorf("failed to create transaction: %w", err)
			}
		}

		result = &entity.CreditGrant{
			UserID:   req.UserID,
			Plan:     req.Plan,
			Interval: req.Interval,
			Before:   before,
			Granted:  granted,
			After:    after,
		}
		return nil
	})

	if err != nil {
		r.logger.Error("Failed to apply credit grant",
			zap.String("user_id", req.UserID.String()),
			zap.String("plan", string(req.Plan)),
			zap.Error(err))
		return nil, fmt.Errorf("failed to apply credit grant: %w", err)
	}

	return result, nil
}

// GetTransactionHistory retrieves transaction history for a user
func (r *creditRepository) GetTransactionHistory(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*model.CreditTransaction, error) {
	var transactions []*model.CreditTransaction

	query := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC")

	if limit > 0 {
		query = query.Limit(limit)
	}

	if offset > 0 {
		query = query.Offset(offset)
	}

	err := query.Find(&transactions).Error
	if err != nil {
		r.logger.Error("Failed to get transaction history",
			zap.String("user_id", userID.String()),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get transaction history: %w", err)
	}

	return transactions, nil
}
