package x402hedera

import "context"

// AuthMethod identifies an authorization strategy.
type AuthMethod string

const (
	// AuthMethodDirectKey signs the transfer locally with a vaulted key.
	AuthMethodDirectKey AuthMethod = "direct-key"

	// AuthMethodWalletSignature authorizes via an off-chain wallet signature
	// that the facilitator re-validates and counter-signs.
	AuthMethodWalletSignature AuthMethod = "wallet-signature"
)

// Authorizer produces signature material sufficient for settlement.
// Implementations are mutually exclusive strategies: direct-key signing
// (authorizers/directkey) and wallet-signature authorization
// (authorizers/walletsig).
type Authorizer interface {
	// Method returns the strategy identifier.
	Method() AuthMethod

	// CanAuthorize checks whether this strategy can satisfy the given
	// payment requirements (network match, key or wallet available).
	CanAuthorize(requirements *PaymentRequirements) bool

	// Authorize builds the transfer and produces authorization material.
	// Wallet-backed implementations may suspend pending user confirmation;
	// ctx bounds the wait.
	Authorize(ctx context.Context, requirements *PaymentRequirements) (*AuthMaterial, error)
}
