package x402hedera

import (
	"context"
	"errors"
	"testing"
)

// fakeAuthorizer is a test authorizer with configurable availability.
type fakeAuthorizer struct {
	method    AuthMethod
	available bool
	material  *AuthMaterial
	err       error
}

func (a *fakeAuthorizer) Method() AuthMethod { return a.method }

func (a *fakeAuthorizer) CanAuthorize(*PaymentRequirements) bool { return a.available }

func (a *fakeAuthorizer) Authorize(context.Context, *PaymentRequirements) (*AuthMaterial, error) {
	if a.err != nil {
		return nil, a.err
	}
	return a.material, nil
}

// fakeFacilitator is an in-memory FlowFacilitator with scripted responses.
type fakeFacilitator struct {
	createResp *PaymentPayload
	createErr  error
	verifyResp *VerifyResponse
	verifyErr  error
	settleResp *SettleResponse
	settleErr  error

	createCalls int
	verifyCalls int
	settleCalls int

	// onVerify runs between the verify request going out and the
	// response being recorded, to simulate concurrent resets.
	onVerify func()
}

func (f *fakeFacilitator) CreatePayload(context.Context, *CreatePayloadRequest) (*PaymentPayload, error) {
	f.createCalls++
	return f.createResp, f.createErr
}

func (f *fakeFacilitator) Verify(context.Context, PaymentPayload, PaymentRequirements) (*VerifyResponse, error) {
	f.verifyCalls++
	if f.onVerify != nil {
		f.onVerify()
	}
	return f.verifyResp, f.verifyErr
}

func (f *fakeFacilitator) Settle(context.Context, PaymentPayload, PaymentRequirements) (*SettleResponse, error) {
	f.settleCalls++
	return f.settleResp, f.settleErr
}

func testRequirements() PaymentRequirements {
	return PaymentRequirements{
		Scheme:            "exact",
		Network:           NetworkTestnet,
		MaxAmountRequired: "150000000",
		Asset:             AssetHbar,
		PayTo:             "0.0.2001",
		MaxTimeoutSeconds: 300,
		Extra:             map[string]interface{}{"feePayer": "0.0.3001"},
	}
}

func readyAuthorizer() *fakeAuthorizer {
	return &fakeAuthorizer{
		method:    AuthMethodDirectKey,
		available: true,
		material: &AuthMaterial{
			PayerAccount:      "0.0.1001",
			TransactionBase64: "dHg=",
			TransactionID:     "0.0.3001@1700000000.000000001",
			PreSigned:         true,
		},
	}
}

func TestFlowHappyPath(t *testing.T) {
	facilitator := &fakeFacilitator{
		createResp: &PaymentPayload{
			X402Version: X402Version,
			Scheme:      "exact",
			Network:     NetworkTestnet,
			Payload:     TransactionPayload{Transaction: "dHg="},
		},
		verifyResp: &VerifyResponse{IsValid: true},
		settleResp: &SettleResponse{Success: true, Transaction: "0.0.3001@1700000000.000000001", Network: NetworkTestnet},
	}

	var events []PaymentEvent
	flow := NewFlow(facilitator, testRequirements(),
		WithAuthorizers(readyAuthorizer()),
		WithEventCallback(func(e PaymentEvent) { events = append(events, e) }))

	if flow.State() != StateIdle {
		t.Fatalf("initial state = %s; want idle", flow.State())
	}

	payload, err := flow.Create(context.Background())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if payload.Payload.Transaction != "dHg=" {
		t.Errorf("payload transaction = %q; want dHg=", payload.Payload.Transaction)
	}
	if flow.State() != StateCreating {
		t.Errorf("state after Create = %s; want creating", flow.State())
	}

	verifyResp, err := flow.Verify(context.Background())
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if !verifyResp.IsValid {
		t.Fatal("Verify() IsValid = false")
	}
	if flow.State() != StateVerified {
		t.Errorf("state after Verify = %s; want verified", flow.State())
	}

	settleResp, err := flow.Settle(context.Background())
	if err != nil {
		t.Fatalf("Settle() error = %v", err)
	}
	if !settleResp.Success {
		t.Fatal("Settle() Success = false")
	}
	if flow.State() != StateCompleted {
		t.Errorf("state after Settle = %s; want completed", flow.State())
	}

	proof, ok := flow.Proof()
	if !ok {
		t.Fatal("Proof() not available after settlement")
	}
	if err := RequireProof(proof); err != nil {
		t.Errorf("RequireProof() error = %v", err)
	}
	if proof.TransactionID != settleResp.Transaction {
		t.Errorf("proof transaction = %q; want %q", proof.TransactionID, settleResp.Transaction)
	}

	if len(events) == 0 {
		t.Error("no payment events emitted")
	}
}

func TestFlowEmitsSuccessEventPerStep(t *testing.T) {
	facilitator := &fakeFacilitator{
		createResp: &PaymentPayload{X402Version: X402Version},
		verifyResp: &VerifyResponse{IsValid: true},
		settleResp: &SettleResponse{Success: true, Transaction: "0.0.3001@1700000000.000000001"},
	}

	var events []PaymentEvent
	flow := NewFlow(facilitator, testRequirements(),
		WithAuthorizers(readyAuthorizer()),
		WithEventCallback(func(e PaymentEvent) { events = append(events, e) }))

	if _, err := flow.Create(context.Background()); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := flow.Verify(context.Background()); err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if _, err := flow.Settle(context.Background()); err != nil {
		t.Fatalf("Settle() error = %v", err)
	}

	// Each step emits an attempt followed by a success.
	for _, step := range []string{"create", "verify", "settle"} {
		var attempts, successes int
		for _, e := range events {
			if e.Step != step {
				continue
			}
			switch e.Type {
			case PaymentEventAttempt:
				attempts++
			case PaymentEventSuccess:
				successes++
			case PaymentEventFailure:
				t.Errorf("step %s emitted a failure event", step)
			}
		}
		if attempts != 1 {
			t.Errorf("step %s attempt events = %d; want 1", step, attempts)
		}
		if successes != 1 {
			t.Errorf("step %s success events = %d; want 1", step, successes)
		}
	}
}

func TestFlowCreateWithoutAuthorizerStaysIdle(t *testing.T) {
	facilitator := &fakeFacilitator{}
	flow := NewFlow(facilitator, testRequirements())

	_, err := flow.Create(context.Background())
	if !errors.Is(err, ErrMissingAuthorization) {
		t.Fatalf("Create() error = %v; want ErrMissingAuthorization", err)
	}
	if flow.State() != StateIdle {
		t.Errorf("state = %s; want idle so an authorizer can be attached", flow.State())
	}
	if facilitator.createCalls != 0 {
		t.Errorf("facilitator called %d times; want 0", facilitator.createCalls)
	}
}

func TestFlowInvalidTransitions(t *testing.T) {
	facilitator := &fakeFacilitator{
		createResp: &PaymentPayload{X402Version: X402Version},
		verifyResp: &VerifyResponse{IsValid: true},
	}
	flow := NewFlow(facilitator, testRequirements(), WithAuthorizers(readyAuthorizer()))

	// Verify before create.
	if _, err := flow.Verify(context.Background()); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Verify() from idle error = %v; want ErrInvalidTransition", err)
	}

	// Settle before verify.
	if _, err := flow.Settle(context.Background()); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Settle() from idle error = %v; want ErrInvalidTransition", err)
	}

	if _, err := flow.Create(context.Background()); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// Create twice.
	if _, err := flow.Create(context.Background()); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("second Create() error = %v; want ErrInvalidTransition", err)
	}

	// Settle straight after create, skipping verify.
	if _, err := flow.Settle(context.Background()); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Settle() from creating error = %v; want ErrInvalidTransition", err)
	}
}

func TestFlowVerifyInvalidIsTerminal(t *testing.T) {
	facilitator := &fakeFacilitator{
		createResp: &PaymentPayload{X402Version: X402Version},
		verifyResp: &VerifyResponse{IsValid: false, InvalidReason: "amount mismatch"},
	}
	flow := NewFlow(facilitator, testRequirements(), WithAuthorizers(readyAuthorizer()))

	if _, err := flow.Create(context.Background()); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	resp, err := flow.Verify(context.Background())
	if err != nil {
		t.Fatalf("Verify() error = %v; invalid outcome is not a transport error", err)
	}
	if resp.IsValid {
		t.Fatal("Verify() IsValid = true; want false")
	}
	if flow.State() != StateError {
		t.Errorf("state = %s; want error", flow.State())
	}
	if !errors.Is(flow.Err(), ErrVerificationFailed) {
		t.Errorf("Err() = %v; want ErrVerificationFailed", flow.Err())
	}

	// Settlement must be refused after a failed verification.
	if _, err := flow.Settle(context.Background()); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Settle() after invalid verify error = %v; want ErrInvalidTransition", err)
	}
	if facilitator.settleCalls != 0 {
		t.Errorf("settle called %d times after failed verify; want 0", facilitator.settleCalls)
	}
}

func TestFlowSettleFailureIsTerminal(t *testing.T) {
	facilitator := &fakeFacilitator{
		createResp: &PaymentPayload{X402Version: X402Version},
		verifyResp: &VerifyResponse{IsValid: true},
		settleResp: &SettleResponse{Success: false, ErrorReason: "INSUFFICIENT_PAYER_BALANCE"},
	}
	flow := NewFlow(facilitator, testRequirements(), WithAuthorizers(readyAuthorizer()))

	if _, err := flow.Create(context.Background()); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := flow.Verify(context.Background()); err != nil {
		t.Fatalf("Verify() error = %v", err)
	}

	resp, err := flow.Settle(context.Background())
	if err != nil {
		t.Fatalf("Settle() error = %v; ledger rejection is not a transport error", err)
	}
	if resp.Success {
		t.Fatal("Settle() Success = true; want false")
	}
	if resp.ErrorReason != "INSUFFICIENT_PAYER_BALANCE" {
		t.Errorf("ErrorReason = %q; want ledger status verbatim", resp.ErrorReason)
	}
	if flow.State() != StateError {
		t.Errorf("state = %s; want error", flow.State())
	}
	if _, ok := flow.Proof(); ok {
		t.Error("Proof() available after failed settlement")
	}

	// No automatic retry: a second settle must be refused.
	if _, err := flow.Settle(context.Background()); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("second Settle() error = %v; want ErrInvalidTransition", err)
	}
	if facilitator.settleCalls != 1 {
		t.Errorf("settle called %d times; want 1", facilitator.settleCalls)
	}
}

func TestFlowResetDiscardsInFlightResult(t *testing.T) {
	facilitator := &fakeFacilitator{
		createResp: &PaymentPayload{X402Version: X402Version},
		verifyResp: &VerifyResponse{IsValid: true},
	}
	flow := NewFlow(facilitator, testRequirements(), WithAuthorizers(readyAuthorizer()))

	// Reset fires while the verify request is in flight.
	facilitator.onVerify = func() { flow.Reset() }

	if _, err := flow.Create(context.Background()); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	_, err := flow.Verify(context.Background())
	if !errors.Is(err, ErrFlowReset) {
		t.Fatalf("Verify() error = %v; want ErrFlowReset", err)
	}
	if flow.State() != StateIdle {
		t.Errorf("state = %s; want idle after reset", flow.State())
	}
	if flow.Payload() != nil {
		t.Error("payload survived reset")
	}
}

func TestFlowResetAllowsNewAttempt(t *testing.T) {
	facilitator := &fakeFacilitator{
		createResp: &PaymentPayload{X402Version: X402Version},
		verifyResp: &VerifyResponse{IsValid: false, InvalidReason: "expired"},
	}
	flow := NewFlow(facilitator, testRequirements(), WithAuthorizers(readyAuthorizer()))

	if _, err := flow.Create(context.Background()); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := flow.Verify(context.Background()); err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if flow.State() != StateError {
		t.Fatalf("state = %s; want error", flow.State())
	}

	flow.Reset()
	facilitator.verifyResp = &VerifyResponse{IsValid: true}

	if _, err := flow.Create(context.Background()); err != nil {
		t.Fatalf("Create() after reset error = %v", err)
	}
	if _, err := flow.Verify(context.Background()); err != nil {
		t.Fatalf("Verify() after reset error = %v", err)
	}
	if flow.State() != StateVerified {
		t.Errorf("state = %s; want verified", flow.State())
	}
}

func TestRequireProof(t *testing.T) {
	tests := []struct {
		name    string
		proof   *PaymentProof
		wantErr bool
	}{
		{
			name: "valid proof",
			proof: &PaymentProof{
				Status:        "completed",
				TransactionID: "0.0.3001@1700000000.000000001",
				ReadyForQuery: true,
			},
		},
		{name: "nil proof", proof: nil, wantErr: true},
		{
			name:    "wrong status",
			proof:   &PaymentProof{Status: "pending", TransactionID: "x", ReadyForQuery: true},
			wantErr: true,
		},
		{
			name:    "not ready",
			proof:   &PaymentProof{Status: "completed", TransactionID: "x", ReadyForQuery: false},
			wantErr: true,
		},
		{
			name:    "no transaction",
			proof:   &PaymentProof{Status: "completed", ReadyForQuery: true},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := RequireProof(tt.proof)
			if tt.wantErr {
				if !errors.Is(err, ErrMissingProof) {
					t.Errorf("RequireProof() error = %v; want ErrMissingProof", err)
				}
				return
			}
			if err != nil {
				t.Errorf("RequireProof() error = %v", err)
			}
		})
	}
}
