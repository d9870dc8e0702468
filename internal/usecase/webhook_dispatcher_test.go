package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tasyapp/billing/internal/domain/entity"
	domainErrors "github.com/tasyapp/billing/internal/domain/errors"
	"github.com/tasyapp/billing/internal/metrics"
)

func envelope(id, typ string) entity.EventEnvelope {
	return entity.EventEnvelope{ID: id, Type: typ, Created: time.Now()}
}

func TestWebhookDispatcher_SubscriptionEvents(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	userID := f.store.addProfile("cus_1", 100)

	created := &entity.SubscriptionChanged{
		EventEnvelope: envelope("evt_1", entity.EventSubscriptionCreated),
		Created:       true,
		Subscription:  *viralSub("sub_1", "cus_1", "price_pro_monthly", "active"),
	}
	require.NoError(t, f.dispatcher.Dispatch(ctx, created))
	assert.Equal(t, 720, f.store.profile(userID).Credits)

	deleted := &entity.SubscriptionDeleted{
		EventEnvelope: envelope("evt_2", entity.EventSubscriptionDeleted),
		Subscription:  *viralSub("sub_1", "cus_1", "price_pro_monthly", "canceled"),
	}
	require.NoError(t, f.dispatcher.Dispatch(ctx, deleted))

	row := f.store.subscription("sub_1")
	assert.Equal(t, "canceled", row.Status)
	assert.False(t, row.IsActive)
	assert.Equal(t, 720, f.store.profile(userID).Credits)
	assert.Equal(t, 1, f.store.ledgerLen())

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.WebhookEvents.WithLabelValues(entity.EventSubscriptionDeleted, metrics.OutcomeProcessed)))
}

func TestWebhookDispatcher_InvoiceFailed(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.store.addProfile("cus_1", 0)
	_, err := f.reconciler.Reconcile(ctx, viralSub("sub_1", "cus_1", "price_pro_monthly", "active"), true)
	require.NoError(t, err)

	ev := &entity.InvoiceFailed{
		EventEnvelope: envelope("evt_f", entity.EventInvoicePaymentFailed),
		Invoice:       entity.InvoiceEvent{InvoiceID: "in_1", SubscriptionID: "sub_1"},
	}
	require.NoError(t, f.dispatcher.Dispatch(ctx, ev))

	row := f.store.subscription("sub_1")
	assert.Equal(t, "past_due", row.Status)
	assert.False(t, row.IsActive)
}

func TestWebhookDispatcher_InvoicePaid(t *testing.T) {
	ctx := context.Background()

	t.Run("reactivates and tops up from the live subscription", func(t *testing.T) {
		f := newFixture()
		userID := f.store.addProfile("cus_1", 0)
		_, err := f.reconciler.Reconcile(ctx, viralSub("sub_1", "cus_1", "price_pro_monthly", "past_due"), true)
		require.NoError(t, err)
		require.Equal(t, 0, f.store.profile(userID).Credits)

		// user spent some credits in the meantime
		f.store.profiles[userID].Credits = 300

		f.provider.On("GetSubscription", mock.Anything, "sub_1").
			Return(viralSub("sub_1", "cus_1", "price_pro_monthly", "active"), nil).Once()

		ev := &entity.InvoicePaid{
			EventEnvelope: envelope("evt_p", entity.EventInvoicePaymentSucceeded),
			Invoice:       entity.InvoiceEvent{InvoiceID: "in_1", SubscriptionID: "sub_1"},
		}
		require.NoError(t, f.dispatcher.Dispatch(ctx, ev))

		row := f.store.subscription("sub_1")
		assert.Equal(t, "active", row.Status)
		assert.True(t, row.IsActive)
		assert.Equal(t, 720, f.store.profile(userID).Credits)
		f.provider.AssertExpectations(t)
	})

	t.Run("yearly invoice grants a full year", func(t *testing.T) {
		f := newFixture()
		userID := f.store.addProfile("cus_1", 10)
		live := viralSub("sub_y", "cus_1", "price_business_yearly", "active")
		live.RecurringInterval = "year"
		f.provider.On("GetSubscription", mock.Anything, "sub_y").Return(live, nil)

		ev := &entity.InvoicePaid{
			EventEnvelope: envelope("evt_p", entity.EventInvoicePaymentSucceeded),
			Invoice:       entity.InvoiceEvent{InvoiceID: "in_1", SubscriptionID: "sub_y"},
		}
		require.NoError(t, f.dispatcher.Dispatch(ctx, ev))

		// no row yet: owner resolved from the customer id
		assert.Equal(t, 10+1999*12, f.store.profile(userID).Credits)
	})

	t.Run("invoice without subscription", func(t *testing.T) {
		f := newFixture()
		ev := &entity.InvoicePaid{
			EventEnvelope: envelope("evt_p", entity.EventInvoicePaymentSucceeded),
			Invoice:       entity.InvoiceEvent{InvoiceID: "in_1"},
		}
		require.NoError(t, f.dispatcher.Dispatch(ctx, ev))
		f.provider.AssertNotCalled(t, "GetSubscription", mock.Anything, mock.Anything)
	})

	t.Run("provider error surfaces", func(t *testing.T) {
		f := newFixture()
		f.provider.On("GetSubscription", mock.Anything, "sub_1").Return(nil, errors.New("stripe unavailable"))

		ev := &entity.InvoicePaid{
			EventEnvelope: envelope("evt_p", entity.EventInvoicePaymentSucceeded),
			Invoice:       entity.InvoiceEvent{InvoiceID: "in_1", SubscriptionID: "sub_1"},
		}
		err := f.dispatcher.Dispatch(ctx, ev)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "stripe unavailable")
		assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.WebhookEvents.WithLabelValues(entity.EventInvoicePaymentSucceeded, metrics.OutcomeFailed)))
	})
}

func TestWebhookDispatcher_IgnoredEvents(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	require.NoError(t, f.dispatcher.Dispatch(ctx, &entity.CheckoutCompleted{
		EventEnvelope: envelope("evt_c", entity.EventCheckoutCompleted),
		SessionID:     "cs_1",
	}))
	require.NoError(t, f.dispatcher.Dispatch(ctx, &entity.Unhandled{
		EventEnvelope: envelope("evt_u", "customer.created"),
	}))

	assert.Equal(t, 0, f.store.subWrite)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.WebhookEvents.WithLabelValues("customer.created", metrics.OutcomeIgnored)))
}

func TestWebhookDispatcher_HandlerErrorIsReturned(t *testing.T) {
	f := newFixture()
	f.store.addProfile("cus_1", 0)

	err := f.dispatcher.Dispatch(context.Background(), &entity.SubscriptionChanged{
		EventEnvelope: envelope("evt_1", entity.EventSubscriptionUpdated),
		Subscription:  *viralSub("sub_1", "cus_1", "price_unknown", "active"),
	})

	assert.True(t, errors.Is(err, domainErrors.ErrUnknownPrice))
}
