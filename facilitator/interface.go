// Package facilitator implements the server side of the x402 Hedera
// protocol: payload assembly, verification, and ledger settlement.
package facilitator

import (
	"context"

	x402 "github.com/mark3labs/x402-hedera-go"
)

// Interface defines facilitator operations. Implemented by Service and by
// the HTTP client in the http package, so resource servers can run an
// in-process facilitator or delegate to a remote one.
type Interface interface {
	// CreatePayload assembles a settlement-ready PaymentPayload from
	// authorization material.
	CreatePayload(ctx context.Context, req *x402.CreatePayloadRequest) (*x402.PaymentPayload, error)

	// Verify checks a payment payload against requirements without
	// executing it. A false IsValid is a normal outcome, not an error.
	Verify(ctx context.Context, payload x402.PaymentPayload, requirements x402.PaymentRequirements) (*x402.VerifyResponse, error)

	// Settle executes a verified payment on the ledger.
	Settle(ctx context.Context, payload x402.PaymentPayload, requirements x402.PaymentRequirements) (*x402.SettleResponse, error)

	// Supported lists the payment kinds this facilitator accepts.
	Supported(ctx context.Context) (*x402.SupportedResponse, error)
}
