package transfer

import (
	"context"
	"errors"
	"fmt"
	"testing"

	hedera "github.com/hashgraph/hedera-sdk-go/v2"

	x402 "github.com/mark3labs/x402-hedera-go"
)

// fakeResolver maps aliases to account IDs without touching a mirror node.
type fakeResolver struct {
	accounts map[string]string
	calls    int
}

func (f *fakeResolver) Resolve(_ context.Context, alias string) (hedera.AccountID, error) {
	f.calls++
	id, ok := f.accounts[alias]
	if !ok {
		return hedera.AccountID{}, fmt.Errorf("unknown alias %s", alias)
	}
	return hedera.AccountIDFromString(id)
}

func testBuilder(t *testing.T, opts ...Option) *Builder {
	t.Helper()
	b, err := NewBuilder(x402.NetworkTestnet, opts...)
	if err != nil {
		t.Fatalf("NewBuilder() error = %v", err)
	}
	return b
}

func TestNewBuilderUnsupportedNetwork(t *testing.T) {
	if _, err := NewBuilder("goerli"); !errors.Is(err, x402.ErrUnsupportedNetwork) {
		t.Errorf("NewBuilder() error = %v; want ErrUnsupportedNetwork", err)
	}
}

func TestBuildHbarTransfer(t *testing.T) {
	b := testBuilder(t)

	tx, err := b.BuildTransfer(context.Background(), x402.AssetHbar, "150000000", "0.0.1001", "0.0.2001", "0.0.3001")
	if err != nil {
		t.Fatalf("BuildTransfer() error = %v", err)
	}

	summary, err := Summarize(tx)
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}
	if summary.Asset != x402.AssetHbar {
		t.Errorf("Asset = %s; want %s", summary.Asset, x402.AssetHbar)
	}
	if summary.Amount != "150000000" {
		t.Errorf("Amount = %s; want 150000000", summary.Amount)
	}
	if summary.From != "0.0.1001" || summary.To != "0.0.2001" {
		t.Errorf("From/To = %s/%s; want 0.0.1001/0.0.2001", summary.From, summary.To)
	}
	if summary.FeePayer != "0.0.3001" {
		t.Errorf("FeePayer = %s; want 0.0.3001", summary.FeePayer)
	}
	if !summary.Conserved {
		t.Error("Conserved = false; transfer entries must sum to zero")
	}
	if summary.ValidStart == nil {
		t.Error("ValidStart = nil; transaction ID must carry a validity window")
	}
}

func TestBuildTokenTransfer(t *testing.T) {
	b := testBuilder(t)

	tx, err := b.BuildTransfer(context.Background(), "0.0.4444", "5000", "0.0.1001", "0.0.2001", "0.0.3001")
	if err != nil {
		t.Fatalf("BuildTransfer() error = %v", err)
	}

	summary, err := Summarize(tx)
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}
	if summary.Asset != "0.0.4444" {
		t.Errorf("Asset = %s; want 0.0.4444", summary.Asset)
	}
	if summary.Amount != "5000" {
		t.Errorf("Amount = %s; want 5000", summary.Amount)
	}
	if !summary.Conserved {
		t.Error("Conserved = false; token entries must sum to zero")
	}
}

func TestBuildTransferBadAmount(t *testing.T) {
	b := testBuilder(t)

	tests := []struct {
		name   string
		amount string
	}{
		{name: "zero", amount: "0"},
		{name: "negative", amount: "-5"},
		{name: "not a number", amount: "1.5 hbar"},
		{name: "decimal", amount: "1.5"},
		{name: "empty", amount: ""},
		{name: "beyond int64", amount: "99999999999999999999999"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := b.BuildTransfer(context.Background(), x402.AssetHbar, tt.amount, "0.0.1001", "0.0.2001", "0.0.3001")
			if !errors.Is(err, x402.ErrInvalidAmount) {
				t.Errorf("BuildTransfer(%q) error = %v; want ErrInvalidAmount", tt.amount, err)
			}
		})
	}
}

func TestBuildTransferBadToken(t *testing.T) {
	b := testBuilder(t)
	_, err := b.BuildTransfer(context.Background(), "not-a-token", "100", "0.0.1001", "0.0.2001", "0.0.3001")
	if !errors.Is(err, x402.ErrUnsupportedAsset) {
		t.Errorf("BuildTransfer() error = %v; want ErrUnsupportedAsset", err)
	}
}

func TestBuildTransferIsFrozen(t *testing.T) {
	b := testBuilder(t)
	tx, err := b.BuildTransfer(context.Background(), x402.AssetHbar, "100", "0.0.1001", "0.0.2001", "0.0.3001")
	if err != nil {
		t.Fatalf("BuildTransfer() error = %v", err)
	}
	if !tx.IsFrozen() {
		t.Error("built transaction is not frozen")
	}
}

func TestResolveAccountAlias(t *testing.T) {
	alias := "0x" + "f39fd6e51aad88f6f4ce6ab8827279cfffb92266"
	resolver := &fakeResolver{accounts: map[string]string{alias: "0.0.7777"}}
	b := testBuilder(t, WithResolver(resolver))

	account, err := b.ResolveAccount(context.Background(), alias)
	if err != nil {
		t.Fatalf("ResolveAccount() error = %v", err)
	}
	if got := account.String(); got != "0.0.7777" {
		t.Errorf("ResolveAccount() = %s; want 0.0.7777", got)
	}
	if resolver.calls != 1 {
		t.Errorf("resolver called %d times; want 1", resolver.calls)
	}
}

func TestResolveAccountDirectIDSkipsResolver(t *testing.T) {
	resolver := &fakeResolver{accounts: map[string]string{}}
	b := testBuilder(t, WithResolver(resolver))

	if _, err := b.ResolveAccount(context.Background(), "0.0.1001"); err != nil {
		t.Fatalf("ResolveAccount() error = %v", err)
	}
	if resolver.calls != 0 {
		t.Errorf("resolver called %d times for a direct account ID; want 0", resolver.calls)
	}
}

func TestResolveAccountFailures(t *testing.T) {
	resolver := &fakeResolver{accounts: map[string]string{}}
	b := testBuilder(t, WithResolver(resolver))

	tests := []struct {
		name string
		id   string
		want error
	}{
		{name: "unknown alias", id: "0xf39fd6e51aad88f6f4ce6ab8827279cfffb92266", want: x402.ErrAccountResolution},
		{name: "garbage", id: "alice", want: x402.ErrValidation},
		{name: "empty", id: "", want: x402.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := b.ResolveAccount(context.Background(), tt.id); !errors.Is(err, tt.want) {
				t.Errorf("ResolveAccount(%q) error = %v; want %v", tt.id, err, tt.want)
			}
		})
	}
}

func TestSerializeRoundTrip(t *testing.T) {
	b := testBuilder(t)
	tx, err := b.BuildTransfer(context.Background(), x402.AssetHbar, "150000000", "0.0.1001", "0.0.2001", "0.0.3001")
	if err != nil {
		t.Fatalf("BuildTransfer() error = %v", err)
	}

	encoded, err := ToBase64(tx)
	if err != nil {
		t.Fatalf("ToBase64() error = %v", err)
	}

	decoded, err := FromBase64(encoded)
	if err != nil {
		t.Fatalf("FromBase64() error = %v", err)
	}

	want, err := Summarize(tx)
	if err != nil {
		t.Fatalf("Summarize(original) error = %v", err)
	}
	got, err := Summarize(decoded)
	if err != nil {
		t.Fatalf("Summarize(decoded) error = %v", err)
	}
	if got.TransactionID != want.TransactionID || got.Amount != want.Amount || got.From != want.From || got.To != want.To {
		t.Errorf("decoded summary %+v; want %+v", got, want)
	}
}

func TestFromBase64Garbage(t *testing.T) {
	if _, err := FromBase64("%%%not-base64%%%"); err == nil {
		t.Error("FromBase64() accepted invalid base64")
	}
	if _, err := FromBase64("aGVsbG8gd29ybGQ="); err == nil {
		t.Error("FromBase64() accepted bytes that are not a transaction")
	}
}

func TestHasSignatures(t *testing.T) {
	b := testBuilder(t)
	tx, err := b.BuildTransfer(context.Background(), x402.AssetHbar, "100", "0.0.1001", "0.0.2001", "0.0.3001")
	if err != nil {
		t.Fatalf("BuildTransfer() error = %v", err)
	}
	if HasSignatures(tx) {
		t.Error("HasSignatures() = true before signing")
	}

	key, err := hedera.PrivateKeyGenerateEd25519()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	signed := tx.Sign(key)
	if !HasSignatures(signed) {
		t.Error("HasSignatures() = false after signing")
	}
}
