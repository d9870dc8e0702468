package stripe

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"
	"github.com/tasyapp/billing/internal/domain/entity"
)

var (
	ErrMissingSignature = errors.New("missing Stripe-Signature header")
	ErrNoWebhookSecret  = errors.New("webhook secret not configured")
)

// VerifyEvent checks the signature against each secret in order and returns
// the first event that verifies.
func VerifyEvent(payload []byte, signature string, secrets []string) (stripe.Event, error) {
	if signature == "" {
		return stripe.Event{}, ErrMissingSignature
	}
	if len(secrets) == 0 {
		return stripe.Event{}, ErrNoWebhookSecret
	}

	var lastErr error
	for _, secret := range secrets {
		event, err := webhook.ConstructEventWithOptions(payload, signature, secret,
			webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
		if err == nil {
			return event, nil
		}
		lastErr = err
	}
	return stripe.Event{}, fmt.Errorf("signature verification failed: %w", lastErr)
}

// DecodeEvent converts a verified Stripe event into its entity.Event kind.
// Types the dispatcher does not handle become *entity.Unhandled.
func DecodeEvent(event stripe.Event) (entity.Event, error) {
	env := entity.EventEnvelope{
		ID:      event.ID,
		Type:    string(event.Type),
		Created: time.Unix(event.Created, 0).UTC(),
	}

	var raw json.RawMessage
	if event.Data != nil {
		raw = event.Data.Raw
	}

	switch env.Type {
	case entity.EventCheckoutCompleted:
		var session stripe.CheckoutSession
		if err := decodeObject(raw, &session); err != nil {
			return nil, err
		}
		if session.Customer != nil {
			env.CustomerID = session.Customer.ID
		}
		ev := &entity.CheckoutCompleted{
			EventEnvelope: env,
			SessionID:     session.ID,
			Mode:          string(session.Mode),
		}
		if session.Subscription != nil {
			ev.SubscriptionID = session.Subscription.ID
		}
		return ev, nil

	case entity.EventSubscriptionCreated, entity.EventSubscriptionUpdated, entity.EventSubscriptionDeleted:
		var sub stripe.Subscription
		if err := decodeObject(raw, &sub); err != nil {
			return nil, err
		}
		mapped := ToProviderSubscription(&sub)
		env.CustomerID = mapped.CustomerID

		if env.Type == entity.EventSubscriptionDeleted {
			return &entity.SubscriptionDeleted{EventEnvelope: env, Subscription: *mapped}, nil
		}
		return &entity.SubscriptionChanged{
			EventEnvelope: env,
			Created:       env.Type == entity.EventSubscriptionCreated,
			Subscription:  *mapped,
		}, nil

	case entity.EventInvoicePaymentSucceeded, entity.EventInvoicePaymentFailed:
		var invoice stripe.Invoice
		if err := decodeObject(raw, &invoice); err != nil {
			return nil, err
		}
		if invoice.Customer != nil {
			env.CustomerID = invoice.Customer.ID
		}
		payload := entity.InvoiceEvent{InvoiceID: invoice.ID}
		if invoice.Subscription != nil {
			payload.SubscriptionID = invoice.Subscription.ID
		}

		if env.Type == entity.EventInvoicePaymentFailed {
			return &entity.InvoiceFailed{EventEnvelope: env, Invoice: payload}, nil
		}
		return &entity.InvoicePaid{EventEnvelope: env, Invoice: payload}, nil

	default:
		env.CustomerID = customerFromObject(event.Data)
		return &entity.Unhandled{EventEnvelope: env}, nil
	}
}

func decodeObject(raw json.RawMessage, out interface{}) error {
	if len(raw) == 0 {
		return errors.New("event has no data object")
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode event object: %w", err)
	}
	return nil
}

// customerFromObject reads "customer" from an arbitrary object, which is
// either an id string or an expanded customer.
func customerFromObject(data *stripe.EventData) string {
	if data == nil || data.Object == nil {
		return ""
	}
	switch c := data.Object["customer"].(type) {
	case string:
		return c
	case map[string]interface{}:
		id, _ := c["id"].(string)
		return id
	}
	return ""
}
