package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tasyapp/billing/internal/domain/entity"
	domainErrors "github.com/tasyapp/billing/internal/domain/errors"
)

var subscriptionColumns = []string{
	"id", "user_id", "email", "stripe_customer_id", "stripe_subscription_id", "status",
	"plan_type", "billing_interval", "price_id", "cancel_at_period_end", "is_active",
	"product", "metadata", "created_at", "updated_at",
}

func TestSubscriptionRepository_GetByProviderID(t *testing.T) {
	ctx := context.Background()
	selectSQL := regexp.QuoteMeta(`SELECT * FROM "subscriptions" WHERE stripe_subscription_id = $1`)

	t.Run("found", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewSubscriptionRepository(db, zap.NewNop())

		id := uuid.New()
		userID := uuid.New()
		now := time.Now()
		mock.ExpectQuery(selectSQL).
			WillReturnRows(sqlmock.NewRows(subscriptionColumns).AddRow(
				id.String(), userID.String(), "a@example.com", "cus_1", "sub_1", "active",
				"basic", "monthly", "price_starter_monthly", false, true,
				"tasy-viral", []byte(`{"product":"tasy-viral","user_id":"`+userID.String()+`"}`), now, now,
			))

		sub, err := repo.GetByProviderID(ctx, "sub_1")

		require.NoError(t, err)
		require.NotNil(t, sub)
		assert.Equal(t, id, sub.ID)
		assert.Equal(t, userID, sub.UserID)
		assert.Equal(t, entity.IntervalMonthly, sub.BillingInterval)
		assert.Equal(t, "tasy-viral", sub.Metadata["product"])
		assert.True(t, sub.IsActive)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewSubscriptionRepository(db, zap.NewNop())

		mock.ExpectQuery(selectSQL).WillReturnRows(sqlmock.NewRows(subscriptionColumns))

		sub, err := repo.GetByProviderID(ctx, "sub_missing")

		assert.NoError(t, err)
		assert.Nil(t, sub)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("database error", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewSubscriptionRepository(db, zap.NewNop())

		mock.ExpectQuery(selectSQL).WillReturnError(errors.New("connection reset"))

		_, err := repo.GetByProviderID(ctx, "sub_1")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "connection reset")
	})
}

func TestSubscriptionRepository_Create(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSubscriptionRepository(db, zap.NewNop())
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "subscriptions"`)).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
	mock.ExpectCommit()

	sub := &entity.Subscription{
		UserID:               uuid.New(),
		StripeCustomerID:     "cus_1",
		StripeSubscriptionID: "sub_1",
		Status:               "active",
		PlanType:             "pro",
		BillingInterval:      entity.IntervalMonthly,
		IsActive:             true,
		Product:              "tasy-viral",
	}
	err := repo.Create(context.Background(), sub)

	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, sub.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubscriptionRepository_Update(t *testing.T) {
	ctx := context.Background()
	updateSQL := regexp.QuoteMeta(`UPDATE "subscriptions" SET`)

	t.Run("updates by provider id", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewSubscriptionRepository(db, zap.NewNop())

		mock.ExpectBegin()
		mock.ExpectExec(updateSQL).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := repo.Update(ctx, &entity.Subscription{StripeSubscriptionID: "sub_1", Status: "past_due"})

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing row", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewSubscriptionRepository(db, zap.NewNop())

		mock.ExpectBegin()
		mock.ExpectExec(updateSQL).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()

		err := repo.Update(ctx, &entity.Subscription{StripeSubscriptionID: "sub_missing"})

		assert.True(t, errors.Is(err, domainErrors.ErrSubscriptionNotFound))
	})
}

func TestSubscriptionRepository_UpdateStatus(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSubscriptionRepository(db, zap.NewNop())

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "subscriptions" SET .* WHERE stripe_subscription_id = \$\d+ AND product = \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	rows, err := repo.UpdateStatus(context.Background(), entity.StatusChange{
		StripeSubscriptionID: "sub_1",
		Status:               entity.StatusCanceled,
		IsActive:             false,
	}, "tasy-viral")

	require.NoError(t, err)
	assert.Equal(t, int64(1), rows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubscriptionRepository_GetLatestForUser(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSubscriptionRepository(db, zap.NewNop())
	userID := uuid.New()

	mock.ExpectQuery(`SELECT \* FROM "subscriptions" WHERE user_id = \$1 AND product = \$2 ORDER BY updated_at DESC`).
		WillReturnRows(sqlmock.NewRows(subscriptionColumns))

	sub, err := repo.GetLatestForUser(context.Background(), userID, "tasy-viral")

	assert.NoError(t, err)
	assert.Nil(t, sub)
	assert.NoError(t, mock.ExpectationsWereMet())
}
