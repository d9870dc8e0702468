package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	domainErrors "github.com/tasyapp/billing/internal/domain/errors"
)

var profileColumns = []string{"id", "email", "stripe_customer_id", "subscription_id", "credits", "onboarding_completed"}

func TestProfileRepository_GetByCustomerID(t *testing.T) {
	ctx := context.Background()
	selectSQL := regexp.QuoteMeta(`SELECT * FROM "profiles" WHERE stripe_customer_id = $1`)

	t.Run("found", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewProfileRepository(db, zap.NewNop())
		userID := uuid.New()

		mock.ExpectQuery(selectSQL).
			WillReturnRows(sqlmock.NewRows(profileColumns).
				AddRow(userID.String(), "a@example.com", "cus_1", nil, 150, false))

		p, err := repo.GetByCustomerID(ctx, "cus_1")

		require.NoError(t, err)
		require.NotNil(t, p)
		assert.Equal(t, userID, p.UserID)
		assert.Equal(t, "cus_1", p.StripeCustomerID)
		assert.Equal(t, 150, p.Credits)
		assert.Nil(t, p.SubscriptionID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewProfileRepository(db, zap.NewNop())

		mock.ExpectQuery(selectSQL).WillReturnRows(sqlmock.NewRows(profileColumns))

		p, err := repo.GetByCustomerID(ctx, "cus_unknown")

		assert.NoError(t, err)
		assert.Nil(t, p)
	})
}

func TestProfileRepository_LinkSubscription(t *testing.T) {
	ctx := context.Background()
	updateSQL := `UPDATE "profiles" SET .*"onboarding_completed"=\$\d+.*"subscription_id"=\$\d+.* WHERE id = \$\d+`

	t.Run("links", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewProfileRepository(db, zap.NewNop())

		mock.ExpectBegin()
		mock.ExpectExec(updateSQL).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := repo.LinkSubscription(ctx, uuid.New(), uuid.New())

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing profile", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewProfileRepository(db, zap.NewNop())

		mock.ExpectBegin()
		mock.ExpectExec(updateSQL).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()

		err := repo.LinkSubscription(ctx, uuid.New(), uuid.New())

		assert.True(t, errors.Is(err, domainErrors.ErrProfileNotFound))
	})
}

func TestProfileRepository_SetCustomerID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewProfileRepository(db, zap.NewNop())

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "profiles" SET "stripe_customer_id"=\$1,"updated_at"=\$2 WHERE id = \$3`).
		WithArgs("cus_1", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.SetCustomerID(context.Background(), uuid.New(), "cus_1")

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
