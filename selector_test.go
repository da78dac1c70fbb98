package x402hedera

import (
	"errors"
	"testing"
)

func TestSelectAuthorizer(t *testing.T) {
	direct := &fakeAuthorizer{method: AuthMethodDirectKey, available: true}
	wallet := &fakeAuthorizer{method: AuthMethodWalletSignature, available: true}
	unavailable := &fakeAuthorizer{method: AuthMethodDirectKey, available: false}

	requirements := testRequirements()

	tests := []struct {
		name        string
		authorizers []Authorizer
		want        AuthMethod
		wantErr     bool
	}{
		{
			name:        "first available wins",
			authorizers: []Authorizer{direct, wallet},
			want:        AuthMethodDirectKey,
		},
		{
			name:        "configuration order decides",
			authorizers: []Authorizer{wallet, direct},
			want:        AuthMethodWalletSignature,
		},
		{
			name:        "skips unavailable",
			authorizers: []Authorizer{unavailable, wallet},
			want:        AuthMethodWalletSignature,
		},
		{
			name:        "none configured",
			authorizers: nil,
			wantErr:     true,
		},
		{
			name:        "none available",
			authorizers: []Authorizer{unavailable},
			wantErr:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SelectAuthorizer(tt.authorizers, &requirements)
			if tt.wantErr {
				if !errors.Is(err, ErrMissingAuthorization) {
					t.Fatalf("SelectAuthorizer() error = %v; want ErrMissingAuthorization", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("SelectAuthorizer() error = %v", err)
			}
			if got.Method() != tt.want {
				t.Errorf("Method() = %s; want %s", got.Method(), tt.want)
			}
		})
	}
}

func TestFindMatchingRequirement(t *testing.T) {
	accepts := []PaymentRequirements{
		{Scheme: "exact", Network: NetworkMainnet, MaxAmountRequired: "1"},
		{Scheme: "exact", Network: NetworkTestnet, MaxAmountRequired: "2"},
	}

	payment := &PaymentPayload{Scheme: "exact", Network: NetworkTestnet}
	got, err := FindMatchingRequirement(payment, accepts)
	if err != nil {
		t.Fatalf("FindMatchingRequirement() error = %v", err)
	}
	if got.MaxAmountRequired != "2" {
		t.Errorf("matched requirement amount = %q; want 2", got.MaxAmountRequired)
	}

	noMatch := &PaymentPayload{Scheme: "exact", Network: "previewnet"}
	if _, err := FindMatchingRequirement(noMatch, accepts); !errors.Is(err, ErrInvalidRequirements) {
		t.Errorf("FindMatchingRequirement() error = %v; want ErrInvalidRequirements", err)
	}
}
