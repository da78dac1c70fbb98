package x402hedera

import "errors"

// Sentinel errors for x402 Hedera payment operations.
var (
	// ErrValidation indicates user-correctable malformed input
	// (account ID, key, amount, or password rules).
	ErrValidation = errors.New("x402: validation failed")

	// ErrInvalidKey indicates an invalid private key.
	ErrInvalidKey = errors.New("x402: invalid private key")

	// ErrInvalidAmount indicates an invalid amount string.
	ErrInvalidAmount = errors.New("x402: invalid amount")

	// ErrInvalidRequirements indicates invalid payment requirements.
	ErrInvalidRequirements = errors.New("x402: invalid payment requirements")

	// ErrWrongPassword indicates a vault decryption failure. Recoverable:
	// callers should re-prompt, not abort the attempt.
	ErrWrongPassword = errors.New("x402: wrong password")

	// ErrSignatureMismatch indicates the recovered wallet address does not
	// match the declared address. Fatal to the attempt.
	ErrSignatureMismatch = errors.New("x402: wallet signature does not match declared address")

	// ErrMissingAuthorization indicates neither a stored key nor a wallet
	// signature is available for the payment.
	ErrMissingAuthorization = errors.New("x402: no authorization method available")

	// ErrUnsupportedNetwork indicates a network outside {testnet, mainnet}.
	ErrUnsupportedNetwork = errors.New("x402: unsupported network")

	// ErrUnsupportedAsset indicates an asset identifier that is neither the
	// native sentinel nor a parseable token ID.
	ErrUnsupportedAsset = errors.New("x402: unsupported asset")

	// ErrAccountResolution indicates an alias-derived account identifier
	// could not be resolved to an account ID.
	ErrAccountResolution = errors.New("x402: account alias could not be resolved")

	// ErrFacilitatorConfig indicates the facilitator is missing its signing
	// key or operator account. Operator-actionable, not user-actionable.
	ErrFacilitatorConfig = errors.New("x402: facilitator misconfigured")

	// ErrFacilitatorUnavailable indicates the facilitator service is unreachable.
	ErrFacilitatorUnavailable = errors.New("x402: facilitator service unavailable")

	// ErrVerificationFailed indicates payment verification failed at the
	// transport level (distinct from a false IsValid).
	ErrVerificationFailed = errors.New("x402: payment verification failed")

	// ErrSettlementFailed indicates payment settlement failed.
	ErrSettlementFailed = errors.New("x402: payment settlement failed")

	// ErrReplayedPayload indicates a payload whose transaction ID was
	// already settled.
	ErrReplayedPayload = errors.New("x402: payload already settled")

	// ErrInvalidTransition indicates a payment flow step was invoked out of
	// sequence.
	ErrInvalidTransition = errors.New("x402: invalid payment flow transition")

	// ErrFlowReset indicates an in-flight result arrived after the flow was
	// reset and was discarded.
	ErrFlowReset = errors.New("x402: payment flow was reset")

	// ErrMalformedHeader indicates the X-PAYMENT header is malformed.
	ErrMalformedHeader = errors.New("x402: malformed payment header")

	// ErrUnsupportedVersion indicates an unsupported protocol version.
	ErrUnsupportedVersion = errors.New("x402: unsupported protocol version")

	// ErrMissingProof indicates a gated operation was invoked without a
	// completed payment proof.
	ErrMissingProof = errors.New("x402: payment proof required")
)

// ErrorCode represents payment error codes for programmatic handling.
type ErrorCode string

const (
	// ErrCodeValidation indicates user-correctable malformed input.
	ErrCodeValidation ErrorCode = "VALIDATION"

	// ErrCodeWrongPassword indicates a vault decryption failure.
	ErrCodeWrongPassword ErrorCode = "WRONG_PASSWORD"

	// ErrCodeSignatureMismatch indicates wallet signature recovery mismatch.
	ErrCodeSignatureMismatch ErrorCode = "SIGNATURE_MISMATCH"

	// ErrCodeMissingAuthorization indicates no authorization method available.
	ErrCodeMissingAuthorization ErrorCode = "MISSING_AUTHORIZATION"

	// ErrCodeUnsupportedNetwork indicates an unrecognized network.
	ErrCodeUnsupportedNetwork ErrorCode = "UNSUPPORTED_NETWORK"

	// ErrCodeInvalidRequirements indicates invalid payment requirements.
	ErrCodeInvalidRequirements ErrorCode = "INVALID_REQUIREMENTS"

	// ErrCodeFacilitatorConfig indicates facilitator misconfiguration.
	ErrCodeFacilitatorConfig ErrorCode = "FACILITATOR_CONFIG"

	// ErrCodeSettlementFailed indicates ledger execution was rejected.
	ErrCodeSettlementFailed ErrorCode = "SETTLEMENT_FAILED"

	// ErrCodeNetworkError indicates network communication error.
	ErrCodeNetworkError ErrorCode = "NETWORK_ERROR"
)

// PaymentError provides structured error information.
type PaymentError struct {
	// Code is the error code for programmatic handling.
	Code ErrorCode

	// Message is the human-readable error message.
	Message string

	// Details contains additional error context.
	Details map[string]interface{}

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *PaymentError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *PaymentError) Unwrap() error {
	return e.Err
}

// NewPaymentError creates a new PaymentError with the given code and message.
func NewPaymentError(code ErrorCode, message string, err error) *PaymentError {
	return &PaymentError{
		Code:    code,
		Message: message,
		Err:     err,
		Details: make(map[string]interface{}),
	}
}

// WithDetails adds additional context to the error.
// Lazily initializes the Details map if nil.
func (e *PaymentError) WithDetails(key string, value interface{}) *PaymentError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}
