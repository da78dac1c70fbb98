package x402hedera

import "time"

// PaymentEventType represents the type of payment event.
type PaymentEventType string

const (
	// PaymentEventAttempt indicates a payment is being attempted.
	PaymentEventAttempt PaymentEventType = "attempt"

	// PaymentEventSuccess indicates a payment succeeded.
	PaymentEventSuccess PaymentEventType = "success"

	// PaymentEventFailure indicates a payment failed.
	PaymentEventFailure PaymentEventType = "failure"
)

// PaymentEvent represents a payment lifecycle event. The payment flow and
// the HTTP transport emit these for logging, monitoring, and debugging.
type PaymentEvent struct {
	// Type is the event type (attempt, success, failure).
	Type PaymentEventType

	// Timestamp is when the event occurred.
	Timestamp time.Time

	// Step is the flow step during which the event occurred
	// ("create", "verify", "settle").
	Step string

	// Resource names the gated resource being paid for.
	Resource string

	// Amount is the payment amount in smallest units.
	Amount string

	// Asset is the asset identifier.
	Asset string

	// Network is the Hedera network identifier.
	Network string

	// Scheme is the payment scheme.
	Scheme string

	// Recipient is the payment recipient account.
	Recipient string

	// Payer is the account that made the payment.
	Payer string

	// Transaction is the settlement transaction ID (available on success).
	Transaction string

	// Error contains error details (available on failure).
	Error error

	// Duration is the time taken for the payment operation.
	Duration time.Duration
}

// PaymentCallback is a function that handles payment events.
// Callbacks are invoked synchronously during payment processing, so they
// should be fast to avoid blocking the payment flow.
type PaymentCallback func(PaymentEvent)
