package stripe

import (
	"encoding/hex"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stripe/stripe-go/v79/webhook"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tasyapp/billing/internal/domain/entity"
)

func signPayload(payload []byte, secret string) string {
	now := time.Now()
	mac := webhook.ComputeSignature(now, payload, secret)
	return fmt.Sprintf("t=%d,v1=%s", now.Unix(), hex.EncodeToString(mac))
}

func eventPayload(id, eventType, object string) []byte {
	return []byte(fmt.Sprintf(`{"id":%q,"object":"event","type":%q,"created":1700000000,"api_version":"2020-08-27","data":{"object":%s}}`,
		id, eventType, object))
}

const subscriptionObject = `{
	"id": "sub_1",
	"object": "subscription",
	"customer": "cus_1",
	"status": "active",
	"cancel_at_period_end": false,
	"current_period_start": 1700000000,
	"current_period_end": 1702592000,
	"metadata": {"product": "tasy-viral", "user_id": "5b0d6c5e-8c1e-4f55-9d0f-1f9b2d9f1a11"},
	"items": {"object": "list", "data": [
		{"id": "si_1", "object": "subscription_item", "price": {"id": "price_pro_yearly", "object": "price", "recurring": {"interval": "year"}}}
	]}
}`

func TestVerifyEvent(t *testing.T) {
	payload := eventPayload("evt_1", "customer.subscription.created", subscriptionObject)

	t.Run("missing signature", func(t *testing.T) {
		_, err := VerifyEvent(payload, "", []string{"whsec_a"})
		assert.True(t, errors.Is(err, ErrMissingSignature))
	})

	t.Run("no secrets", func(t *testing.T) {
		_, err := VerifyEvent(payload, signPayload(payload, "whsec_a"), nil)
		assert.True(t, errors.Is(err, ErrNoWebhookSecret))
	})

	t.Run("falls back to shared secret", func(t *testing.T) {
		event, err := VerifyEvent(payload, signPayload(payload, "whsec_shared"), []string{"whsec_viral", "whsec_shared"})
		require.NoError(t, err)
		assert.Equal(t, "evt_1", event.ID)
	})

	t.Run("no secret matches", func(t *testing.T) {
		_, err := VerifyEvent(payload, signPayload(payload, "whsec_other"), []string{"whsec_viral", "whsec_shared"})
		assert.Error(t, err)
	})

	t.Run("tampered body", func(t *testing.T) {
		sig := signPayload(payload, "whsec_viral")
		tampered := eventPayload("evt_2", "customer.subscription.created", subscriptionObject)
		_, err := VerifyEvent(tampered, sig, []string{"whsec_viral"})
		assert.Error(t, err)
	})
}

func decodeSigned(t *testing.T, payload []byte) entity.Event {
	t.Helper()
	event, err := VerifyEvent(payload, signPayload(payload, "whsec_test"), []string{"whsec_test"})
	require.NoError(t, err)
	ev, err := DecodeEvent(event)
	require.NoError(t, err)
	return ev
}

func TestDecodeEvent_Subscription(t *testing.T) {
	ev := decodeSigned(t, eventPayload("evt_1", "customer.subscription.created", subscriptionObject))

	changed, ok := ev.(*entity.SubscriptionChanged)
	require.True(t, ok, "got %T", ev)
	assert.True(t, changed.Created)
	assert.Equal(t, "evt_1", changed.ID)
	assert.Equal(t, "cus_1", changed.CustomerID)

	sub := changed.Subscription
	assert.Equal(t, "sub_1", sub.ID)
	assert.Equal(t, "cus_1", sub.CustomerID)
	assert.Equal(t, "active", sub.Status)
	assert.Equal(t, "price_pro_yearly", sub.PriceID)
	assert.Equal(t, "year", sub.RecurringInterval)
	assert.Equal(t, "tasy-viral", sub.Metadata["product"])
	require.NotNil(t, sub.CurrentPeriodEnd)
	assert.Equal(t, int64(1702592000), sub.CurrentPeriodEnd.Unix())

	ev = decodeSigned(t, eventPayload("evt_2", "customer.subscription.updated", subscriptionObject))
	changed, ok = ev.(*entity.SubscriptionChanged)
	require.True(t, ok)
	assert.False(t, changed.Created)

	ev = decodeSigned(t, eventPayload("evt_3", "customer.subscription.deleted", subscriptionObject))
	deleted, ok := ev.(*entity.SubscriptionDeleted)
	require.True(t, ok)
	assert.Equal(t, "sub_1", deleted.Subscription.ID)
}

func TestDecodeEvent_Invoice(t *testing.T) {
	invoice := `{"id": "in_1", "object": "invoice", "customer": "cus_1", "subscription": "sub_1"}`

	ev := decodeSigned(t, eventPayload("evt_1", "invoice.payment_succeeded", invoice))
	paid, ok := ev.(*entity.InvoicePaid)
	require.True(t, ok, "got %T", ev)
	assert.Equal(t, "in_1", paid.Invoice.InvoiceID)
	assert.Equal(t, "sub_1", paid.Invoice.SubscriptionID)
	assert.Equal(t, "cus_1", paid.CustomerID)

	ev = decodeSigned(t, eventPayload("evt_2", "invoice.payment_failed",
		`{"id": "in_2", "object": "invoice", "customer": "cus_1", "subscription": null}`))
	failed, ok := ev.(*entity.InvoiceFailed)
	require.True(t, ok)
	assert.Empty(t, failed.Invoice.SubscriptionID)
}

func TestDecodeEvent_Checkout(t *testing.T) {
	ev := decodeSigned(t, eventPayload("evt_1", "checkout.session.completed",
		`{"id": "cs_1", "object": "checkout.session", "mode": "subscription", "customer": "cus_1", "subscription": "sub_1"}`))

	checkout, ok := ev.(*entity.CheckoutCompleted)
	require.True(t, ok, "got %T", ev)
	assert.Equal(t, "cs_1", checkout.SessionID)
	assert.Equal(t, "sub_1", checkout.SubscriptionID)
	assert.Equal(t, "subscription", checkout.Mode)
	assert.Equal(t, "cus_1", checkout.CustomerID)
}

func TestDecodeEvent_Unhandled(t *testing.T) {
	ev := decodeSigned(t, eventPayload("evt_1", "customer.updated",
		`{"id": "cus_1", "object": "customer", "customer": "cus_1"}`))

	unhandled, ok := ev.(*entity.Unhandled)
	require.True(t, ok, "got %T", ev)
	assert.Equal(t, "customer.updated", unhandled.Type)
	assert.Equal(t, "cus_1", unhandled.CustomerID)
}
