// Package x402hedera implements the x402 payment protocol for the Hedera
// network.
//
// The protocol adapts the x402 "exact" scheme to an account-based ledger:
// payments are balanced transfer transactions whose transaction ID is scoped
// to a fee-paying facilitator account, so the facilitator bears network fees
// regardless of who authorizes the transfer. Clients authorize either by
// signing locally with a vaulted private key, or by producing an off-chain
// wallet signature that a facilitator re-validates and counter-signs.
//
// Import path: github.com/mark3labs/x402-hedera-go
package x402hedera

import "math/big"

// Protocol version constant
const X402Version = 1

// AssetHbar is the asset sentinel for native HBAR transfers.
// Any other asset value is interpreted as a token ID (e.g., "0.0.456858").
const AssetHbar = "HBAR"

// HbarDecimals is the number of decimal places for HBAR (tinybars).
const HbarDecimals = 8

// PaymentRequirements defines the exact terms a settlement must satisfy.
// It is immutable once constructed; verify and settle match every field
// value-for-value against the submitted payload.
type PaymentRequirements struct {
	// Scheme is the payment scheme identifier (always "exact").
	Scheme string `json:"scheme"`

	// Network is the Hedera network identifier ("testnet" or "mainnet").
	Network string `json:"network"`

	// MaxAmountRequired is the payment amount in the asset's smallest unit
	// (tinybars for HBAR), as a decimal string.
	MaxAmountRequired string `json:"maxAmountRequired"`

	// Asset is the asset identifier: AssetHbar for native transfers, or a
	// token ID in shard.realm.num form.
	Asset string `json:"asset"`

	// PayTo is the recipient account ID.
	PayTo string `json:"payTo"`

	// Resource is an opaque string naming the gated resource.
	Resource string `json:"resource,omitempty"`

	// Description is an optional human-readable description.
	Description string `json:"description,omitempty"`

	// MimeType is the content type of the gated resource.
	MimeType string `json:"mimeType,omitempty"`

	// MaxTimeoutSeconds is the validity period for the payment quote.
	MaxTimeoutSeconds int `json:"maxTimeoutSeconds"`

	// Extra contains scheme-specific additional data. The facilitator's
	// fee-paying account is published under Extra["feePayer"].
	Extra map[string]interface{} `json:"extra,omitempty"`
}

// FeePayer extracts the facilitator fee-payer account ID from Extra.
func (r *PaymentRequirements) FeePayer() (string, error) {
	if r.Extra == nil {
		return "", NewPaymentError(ErrCodeInvalidRequirements, "missing extra field in requirements", ErrInvalidRequirements)
	}
	feePayer, ok := r.Extra["feePayer"].(string)
	if !ok || feePayer == "" {
		return "", NewPaymentError(ErrCodeInvalidRequirements, "feePayer not found in extra field", ErrInvalidRequirements)
	}
	return feePayer, nil
}

// TransactionPayload carries the serialized ledger transaction.
type TransactionPayload struct {
	// Transaction is the base64-encoded frozen transaction bytes.
	// In the direct-key flow these bytes are already payer-signed; in the
	// wallet flow they are facilitator-signed after create-payload.
	Transaction string `json:"transaction"`
}

// PaymentPayload is produced once per payment attempt and consumed exactly
// once by verify then settle.
//
// A payload never carries private key material. The direct-key flow signs
// locally and ships only signed transaction bytes; the wallet flow ships a
// wallet signature that the facilitator converts into an on-ledger signature
// with its own key.
type PaymentPayload struct {
	// X402Version is the protocol version.
	X402Version int `json:"x402Version"`

	// Scheme is the payment scheme identifier.
	Scheme string `json:"scheme"`

	// Network is the Hedera network identifier.
	Network string `json:"network"`

	// Payload contains the serialized transfer transaction.
	Payload TransactionPayload `json:"payload"`

	// PayerAccount is the payer identity the authorization message names.
	// It may be an EVM-style alias; the transfer itself always debits the
	// resolved shard.realm.num account.
	PayerAccount string `json:"payerAccountId,omitempty"`

	// WalletSignature is the hex-encoded off-chain signature (wallet flow).
	WalletSignature string `json:"walletSignature,omitempty"`

	// WalletAddress is the EVM-style address of the signing wallet.
	WalletAddress string `json:"walletAddress,omitempty"`

	// SignedMessage is the exact message text the wallet signed.
	SignedMessage string `json:"signedMessage,omitempty"`
}

// WalletAuthorized reports whether this payload was authorized by an
// off-chain wallet signature rather than a locally held key.
func (p *PaymentPayload) WalletAuthorized() bool {
	return p.WalletSignature != "" || p.WalletAddress != "" || p.SignedMessage != ""
}

// AuthMaterial is what an authorization strategy hands to the payment flow:
// everything the facilitator's create-payload endpoint needs to assemble a
// PaymentPayload.
type AuthMaterial struct {
	// PayerAccount is the account being debited.
	PayerAccount string `json:"payerAccountId"`

	// TransactionBase64 is the frozen transfer transaction. Signed when
	// PreSigned is true, unsigned otherwise.
	TransactionBase64 string `json:"transactionBytes"`

	// TransactionID is the fee-payer-scoped transaction identifier.
	TransactionID string `json:"transactionId"`

	// PreSigned indicates the payer already signed the transaction locally.
	PreSigned bool `json:"-"`

	// WalletSignature, WalletAddress, and SignedMessage form the wallet
	// authorization triple. All empty in the direct-key flow.
	WalletSignature string `json:"walletSignature,omitempty"`
	WalletAddress   string `json:"walletAddress,omitempty"`
	SignedMessage   string `json:"signedMessage,omitempty"`
}

// CreatePayloadRequest is the body of POST /facilitator/create-payload.
type CreatePayloadRequest struct {
	PaymentRequirements PaymentRequirements `json:"paymentRequirements"`
	PayerAccountID      string              `json:"payerAccountId"`
	TransactionBytes    string              `json:"transactionBytes,omitempty"`
	TransactionID       string              `json:"transactionId,omitempty"`
	WalletSignature     string              `json:"walletSignature,omitempty"`
	WalletAddress       string              `json:"walletAddress,omitempty"`
	SignedMessage       string              `json:"signedMessage,omitempty"`
}

// VerifyRequest is the body of POST /facilitator/verify.
type VerifyRequest struct {
	X402Version         int                 `json:"x402Version"`
	PaymentPayload      PaymentPayload      `json:"paymentPayload"`
	PaymentRequirements PaymentRequirements `json:"paymentRequirements"`
}

// SettleRequest is the body of POST /facilitator/settle.
type SettleRequest struct {
	X402Version         int                 `json:"x402Version"`
	PaymentPayload      PaymentPayload      `json:"paymentPayload"`
	PaymentRequirements PaymentRequirements `json:"paymentRequirements"`
}

// VerifyResponse is returned by the facilitator verify endpoint.
// A false IsValid is a normal protocol outcome, not an error.
type VerifyResponse struct {
	// IsValid indicates whether the payment is valid.
	IsValid bool `json:"isValid"`

	// InvalidReason provides a human-readable reason if the payment is invalid.
	InvalidReason string `json:"invalidReason,omitempty"`
}

// SettleResponse is returned by the facilitator settle endpoint.
type SettleResponse struct {
	// Success indicates whether the payment was settled on the ledger.
	Success bool `json:"success"`

	// Transaction is the settlement transaction ID on success.
	Transaction string `json:"transaction,omitempty"`

	// ErrorReason carries the ledger rejection verbatim on failure.
	ErrorReason string `json:"errorReason,omitempty"`

	// Network is the network the payment was settled on.
	Network string `json:"network,omitempty"`
}

// SupportedKind describes a payment type supported by a facilitator.
type SupportedKind struct {
	// X402Version is the protocol version supported.
	X402Version int `json:"x402Version"`

	// Scheme is the payment scheme identifier.
	Scheme string `json:"scheme"`

	// Network is the Hedera network identifier.
	Network string `json:"network"`

	// Extra publishes the active fee-payer account under "feePayer".
	Extra map[string]interface{} `json:"extra,omitempty"`
}

// SupportedResponse is returned by GET /facilitator/supported.
type SupportedResponse struct {
	// Kinds lists the payment types supported by the facilitator.
	Kinds []SupportedKind `json:"kinds"`
}

// PaymentRequired is the 402 response body sent by gated resource servers.
type PaymentRequired struct {
	// X402Version is the protocol version.
	X402Version int `json:"x402Version"`

	// Error is a human-readable error message.
	Error string `json:"error,omitempty"`

	// Resource names the gated resource.
	Resource string `json:"resource,omitempty"`

	// Accepts is an array of payment options the server will accept.
	Accepts []PaymentRequirements `json:"accepts"`
}

// PaymentProof is the completion signal handed to the caller of a gated
// operation. The gated operation must refuse to execute without it.
type PaymentProof struct {
	// Status is always "completed" for a valid proof.
	Status string `json:"paymentStatus"`

	// TransactionID is the settlement transaction identifier.
	TransactionID string `json:"transactionId"`

	// Message is a human-readable settlement summary.
	Message string `json:"message,omitempty"`

	// ReadyForQuery signals that the gated query may be dispatched.
	ReadyForQuery bool `json:"readyForQuery"`
}

// AmountToBigInt converts a decimal amount string to *big.Int in smallest
// units. For example, "1.5" with 8 decimals becomes 150000000.
// Returns ErrInvalidAmount if the amount is negative or decimals is negative.
func AmountToBigInt(amount string, decimals int) (*big.Int, error) {
	if decimals < 0 {
		return nil, ErrInvalidAmount
	}

	value := new(big.Rat)
	if _, ok := value.SetString(amount); !ok {
		return nil, ErrInvalidAmount
	}

	if value.Sign() < 0 {
		return nil, ErrInvalidAmount
	}

	scale := new(big.Rat).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil))
	value.Mul(value, scale)

	if value.Denom().Cmp(big.NewInt(1)) != 0 {
		return nil, ErrInvalidAmount
	}
	return new(big.Int).Set(value.Num()), nil
}

// BigIntToAmount converts a *big.Int in smallest units to a decimal string.
// For example, 150000000 with 8 decimals becomes "1.50000000".
func BigIntToAmount(value *big.Int, decimals int) string {
	if value == nil {
		return "0"
	}

	rat := new(big.Rat).SetInt(value)
	scale := new(big.Rat).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil))
	rat.Quo(rat, scale)

	return rat.FloatString(decimals)
}
