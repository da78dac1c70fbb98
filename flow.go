package x402hedera

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// FlowState is a payment flow state.
type FlowState string

// Payment flow states. Completed and Error are terminal.
const (
	StateIdle      FlowState = "idle"
	StateCreating  FlowState = "creating"
	StateVerifying FlowState = "verifying"
	StateVerified  FlowState = "verified"
	StateSettling  FlowState = "settling"
	StateCompleted FlowState = "completed"
	StateError     FlowState = "error"
)

// FlowFacilitator is the facilitator surface the payment flow needs.
// The HTTP client in package http implements it.
type FlowFacilitator interface {
	// CreatePayload asks the facilitator to assemble a PaymentPayload from
	// authorization material.
	CreatePayload(ctx context.Context, req *CreatePayloadRequest) (*PaymentPayload, error)

	// Verify validates a payload against the requirements without executing it.
	Verify(ctx context.Context, payload PaymentPayload, requirements PaymentRequirements) (*VerifyResponse, error)

	// Settle executes a verified payload on the ledger.
	Settle(ctx context.Context, payload PaymentPayload, requirements PaymentRequirements) (*SettleResponse, error)
}

// Flow drives one payment attempt through create, verify, and settle
// against a facilitator. It enforces strict sequencing: create must complete
// before verify, and verify must report valid before settle.
//
// A Flow is safe for use with concurrent timers and in-flight requests:
// Reset returns the flow to idle immediately, and results of requests that
// were in flight at reset time are discarded.
type Flow struct {
	facilitator FlowFacilitator
	authorizers []Authorizer
	onEvent     PaymentCallback

	mu           sync.Mutex
	requirements PaymentRequirements
	state        FlowState
	attempt      uint64
	payload      *PaymentPayload
	verifyResp   *VerifyResponse
	proof        *PaymentProof
	lastErr      error
}

// FlowOption configures a Flow.
type FlowOption func(*Flow)

// WithAuthorizers sets the authorization strategies, in selection order.
func WithAuthorizers(authorizers ...Authorizer) FlowOption {
	return func(f *Flow) {
		f.authorizers = append(f.authorizers, authorizers...)
	}
}

// WithEventCallback sets a callback for payment lifecycle events.
func WithEventCallback(cb PaymentCallback) FlowOption {
	return func(f *Flow) {
		f.onEvent = cb
	}
}

// NewFlow creates a payment flow for one set of payment requirements.
func NewFlow(facilitator FlowFacilitator, requirements PaymentRequirements, opts ...FlowOption) *Flow {
	f := &Flow{
		facilitator:  facilitator,
		requirements: requirements,
		state:        StateIdle,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// State returns the current flow state.
func (f *Flow) State() FlowState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Payload returns the payload produced by Create, if any.
func (f *Flow) Payload() *PaymentPayload {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.payload
}

// Proof returns the completion proof once the flow reaches StateCompleted.
func (f *Flow) Proof() (*PaymentProof, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.proof, f.proof != nil
}

// Err returns the error that moved the flow into StateError, if any.
func (f *Flow) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastErr
}

// Reset returns the flow to idle, discarding any in-flight results.
// Requests already on the wire may still complete; their results are ignored.
func (f *Flow) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempt++
	f.state = StateIdle
	f.payload = nil
	f.verifyResp = nil
	f.proof = nil
	f.lastErr = nil
}

// Create selects an authorization strategy, obtains authorization material,
// and asks the facilitator to assemble a PaymentPayload.
//
// If no strategy is available the flow reports ErrMissingAuthorization and
// stays in StateIdle so the caller can attach an authorizer and retry.
func (f *Flow) Create(ctx context.Context) (*PaymentPayload, error) {
	f.mu.Lock()
	if f.state != StateIdle {
		f.mu.Unlock()
		return nil, fmt.Errorf("%w: create from %s", ErrInvalidTransition, f.state)
	}

	authorizer, err := SelectAuthorizer(f.authorizers, &f.requirements)
	if err != nil {
		f.mu.Unlock()
		f.emit(PaymentEventFailure, "create", err, "", 0)
		return nil, err
	}

	f.state = StateCreating
	attempt := f.attempt
	requirements := f.requirements
	f.mu.Unlock()

	start := time.Now()
	f.emit(PaymentEventAttempt, "create", nil, "", 0)

	material, err := authorizer.Authorize(ctx, &requirements)
	if err != nil {
		return nil, f.fail(attempt, "create", err, start)
	}

	payload, err := f.facilitator.CreatePayload(ctx, &CreatePayloadRequest{
		PaymentRequirements: requirements,
		PayerAccountID:      material.PayerAccount,
		TransactionBytes:    material.TransactionBase64,
		TransactionID:       material.TransactionID,
		WalletSignature:     material.WalletSignature,
		WalletAddress:       material.WalletAddress,
		SignedMessage:       material.SignedMessage,
	})
	if err != nil {
		return nil, f.fail(attempt, "create", err, start)
	}

	f.mu.Lock()
	if f.attempt != attempt {
		f.mu.Unlock()
		return nil, ErrFlowReset
	}
	f.payload = payload
	f.mu.Unlock()
	f.emit(PaymentEventSuccess, "create", nil, "", time.Since(start))
	return payload, nil
}

// Verify submits the created payload to the facilitator for validation.
// A false IsValid is a normal protocol outcome returned without a Go error;
// it moves the flow to StateError and the attempt must restart from create.
func (f *Flow) Verify(ctx context.Context) (*VerifyResponse, error) {
	f.mu.Lock()
	if f.state != StateCreating || f.payload == nil {
		f.mu.Unlock()
		return nil, fmt.Errorf("%w: verify from %s", ErrInvalidTransition, f.state)
	}
	f.state = StateVerifying
	attempt := f.attempt
	payload := *f.payload
	requirements := f.requirements
	f.mu.Unlock()

	start := time.Now()
	f.emit(PaymentEventAttempt, "verify", nil, "", 0)

	resp, err := f.facilitator.Verify(ctx, payload, requirements)
	if err != nil {
		return nil, f.fail(attempt, "verify", err, start)
	}

	f.mu.Lock()
	if f.attempt != attempt {
		f.mu.Unlock()
		return nil, ErrFlowReset
	}
	f.verifyResp = resp
	if resp.IsValid {
		f.state = StateVerified
		f.mu.Unlock()
		f.emit(PaymentEventSuccess, "verify", nil, "", time.Since(start))
		return resp, nil
	}
	f.state = StateError
	f.lastErr = fmt.Errorf("%w: %s", ErrVerificationFailed, resp.InvalidReason)
	f.mu.Unlock()
	f.emit(PaymentEventFailure, "verify", f.Err(), "", time.Since(start))
	return resp, nil
}

// Settle submits the verified payload for ledger execution. On success the
// flow reaches StateCompleted and the settlement proof becomes available.
// A failed settlement is terminal; there are no automatic retries because
// replaying a signed transfer has financial consequences.
func (f *Flow) Settle(ctx context.Context) (*SettleResponse, error) {
	f.mu.Lock()
	if f.state != StateVerified || f.payload == nil {
		f.mu.Unlock()
		return nil, fmt.Errorf("%w: settle from %s", ErrInvalidTransition, f.state)
	}
	f.state = StateSettling
	attempt := f.attempt
	payload := *f.payload
	requirements := f.requirements
	f.mu.Unlock()

	start := time.Now()
	f.emit(PaymentEventAttempt, "settle", nil, "", 0)

	resp, err := f.facilitator.Settle(ctx, payload, requirements)
	if err != nil {
		return nil, f.fail(attempt, "settle", err, start)
	}

	f.mu.Lock()
	if f.attempt != attempt {
		f.mu.Unlock()
		return nil, ErrFlowReset
	}
	if resp.Success {
		f.state = StateCompleted
		f.proof = &PaymentProof{
			Status:        "completed",
			TransactionID: resp.Transaction,
			Message:       "Payment settled: " + resp.Transaction,
			ReadyForQuery: true,
		}
		f.mu.Unlock()
		f.emit(PaymentEventSuccess, "settle", nil, resp.Transaction, time.Since(start))
		return resp, nil
	}
	f.state = StateError
	f.lastErr = fmt.Errorf("%w: %s", ErrSettlementFailed, resp.ErrorReason)
	f.mu.Unlock()
	f.emit(PaymentEventFailure, "settle", f.Err(), "", time.Since(start))
	return resp, nil
}

// fail records a step failure, unless the flow was reset while the request
// was in flight, in which case the result is discarded.
func (f *Flow) fail(attempt uint64, step string, err error, start time.Time) error {
	f.mu.Lock()
	if f.attempt != attempt {
		f.mu.Unlock()
		return ErrFlowReset
	}
	f.state = StateError
	f.lastErr = err
	f.mu.Unlock()
	f.emit(PaymentEventFailure, step, err, "", time.Since(start))
	return err
}

func (f *Flow) emit(eventType PaymentEventType, step string, err error, transaction string, duration time.Duration) {
	if f.onEvent == nil {
		return
	}
	f.mu.Lock()
	req := f.requirements
	f.mu.Unlock()
	f.onEvent(PaymentEvent{
		Type:        eventType,
		Timestamp:   time.Now(),
		Step:        step,
		Resource:    req.Resource,
		Amount:      req.MaxAmountRequired,
		Asset:       req.Asset,
		Network:     req.Network,
		Scheme:      req.Scheme,
		Recipient:   req.PayTo,
		Transaction: transaction,
		Error:       err,
		Duration:    duration,
	})
}

// RequireProof guards a gated operation: it returns ErrMissingProof unless
// the proof signals a completed settlement with a transaction identifier.
func RequireProof(proof *PaymentProof) error {
	if proof == nil || proof.Status != "completed" || !proof.ReadyForQuery || proof.TransactionID == "" {
		return ErrMissingProof
	}
	return nil
}
