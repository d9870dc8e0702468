package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownPrice indicates that a price id is missing from the price table
	ErrUnknownPrice = errors.New("unknown price id")

	// ErrUserNotResolved indicates that neither the customer id nor metadata identified a user
	ErrUserNotResolved = errors.New("user could not be resolved")

	// ErrSubscriptionNotFound indicates that the specified subscription was not found
	ErrSubscriptionNotFound = errors.New("subscription not found")

	// ErrProfileNotFound indicates that no profile row exists for the user
	ErrProfileNotFound = errors.New("profile not found")

	// ErrNoSubscriptionItems indicates a subscription object without line items
	ErrNoSubscriptionItems = errors.New("subscription has no items")
)

// AuditError is returned by the webhook audit recorder. It is never merged
// into the dispatch result.
type AuditError struct {
	EventID string
	Err     error
}

func (e *AuditError) Error() string {
	return fmt.Sprintf("audit log write failed for event %s: %v", e.EventID, e.Err)
}

func (e *AuditError) Unwrap() error {
	return e.Err
}

// NewAuditError creates a new AuditError
func NewAuditError(eventID string, err error) *AuditError {
	return &AuditError{
		EventID: eventID,
		Err:     err,
	}
}
