package entity

import "time"

// Event is a verified provider event. The concrete type determines which
// payload is present; Unhandled covers every type the dispatcher ignores.
type Event interface {
	Envelope() EventEnvelope
	isEvent()
}

// EventEnvelope carries the fields shared by every event kind.
type EventEnvelope struct {
	ID      string
	Type    string
	Created time.Time
	// CustomerID is derived from the payload when the object carries one.
	CustomerID string
}

func (e EventEnvelope) Envelope() EventEnvelope { return e }
func (EventEnvelope) isEvent() {}

const (
	EventCheckoutCompleted       = "checkout.session.completed"
	EventSubscriptionCreated     = "customer.subscription.created"
	EventSubscriptionUpdated     = "customer.subscription.updated"
	EventSubscriptionDeleted     = "customer.subscription.deleted"
	EventInvoicePaymentSucceeded = "invoice.payment_succeeded"
	EventInvoicePaymentFailed    = "invoice.payment_failed"
)

type CheckoutCompleted struct {
	EventEnvelope
	SessionID      string
	SubscriptionID string
	Mode           string
}

// SubscriptionChanged is emitted for both created and updated events.
// Created is informational only.
type SubscriptionChanged struct {
	EventEnvelope
	Created      bool
	Subscription ProviderSubscription
}

type SubscriptionDeleted struct {
	EventEnvelope
	Subscription ProviderSubscription
}

// InvoiceEvent is the payload shared by invoice events.
type InvoiceEvent struct {
	InvoiceID      string
	SubscriptionID string
}

type InvoicePaid struct {
	EventEnvelope
	Invoice InvoiceEvent
}

type InvoiceFailed struct {
	EventEnvelope
	Invoice InvoiceEvent
}

type Unhandled struct {
	EventEnvelope
}
