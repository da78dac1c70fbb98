// Package transfer builds frozen Hedera transfer transactions for the x402
// "exact" scheme.
//
// A built transfer is a balanced two-entry instruction (debit payer, credit
// recipient) whose transaction ID is generated against the fee-paying
// facilitator account, so the facilitator bears the network fee regardless
// of who authorizes the transfer. Freezing is a hard boundary: a frozen
// transaction only accepts signature attachment.
package transfer

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	hedera "github.com/hashgraph/hedera-sdk-go/v2"

	x402 "github.com/mark3labs/x402-hedera-go"
)

// Builder constructs frozen transfer transactions for one network.
type Builder struct {
	cfg      x402.NetworkConfig
	node     hedera.AccountID
	resolver AccountResolver
}

// Option configures a Builder.
type Option func(*Builder) error

// NewBuilder creates a Builder for a Hedera network ("testnet" or "mainnet").
func NewBuilder(network string, opts ...Option) (*Builder, error) {
	cfg, err := x402.GetNetworkConfig(network)
	if err != nil {
		return nil, err
	}

	node, err := hedera.AccountIDFromString(cfg.NodeAccountID)
	if err != nil {
		return nil, fmt.Errorf("invalid node account in network config: %w", err)
	}

	b := &Builder{
		cfg:      cfg,
		node:     node,
		resolver: NewMirrorResolver(cfg.MirrorBaseURL),
	}

	for _, opt := range opts {
		if err := opt(b); err != nil {
			return nil, err
		}
	}

	return b, nil
}

// WithResolver sets a custom account-alias resolver.
func WithResolver(resolver AccountResolver) Option {
	return func(b *Builder) error {
		b.resolver = resolver
		return nil
	}
}

// Network returns the builder's network identifier.
func (b *Builder) Network() string {
	return b.cfg.Network
}

// ResolveAccount parses an account identifier, resolving EVM-style aliases
// through the mirror node when direct parsing is impossible. Resolution
// failures surface ErrAccountResolution so callers can distinguish them
// from password or signature failures.
func (b *Builder) ResolveAccount(ctx context.Context, id string) (hedera.AccountID, error) {
	if x402.IsAccountID(id) {
		account, err := hedera.AccountIDFromString(id)
		if err != nil {
			return hedera.AccountID{}, fmt.Errorf("%w: account ID %s: %v", x402.ErrValidation, id, err)
		}
		return account, nil
	}

	if x402.IsEVMAlias(id) {
		if b.resolver == nil {
			return hedera.AccountID{}, fmt.Errorf("%w: no resolver configured for alias %s", x402.ErrAccountResolution, id)
		}
		account, err := b.resolver.Resolve(ctx, id)
		if err != nil {
			return hedera.AccountID{}, fmt.Errorf("%w: %s: %v", x402.ErrAccountResolution, id, err)
		}
		return account, nil
	}

	return hedera.AccountID{}, fmt.Errorf("%w: not a valid account identifier: %s", x402.ErrValidation, id)
}

// BuildTransfer constructs a frozen transfer of amount (smallest units, as a
// decimal string) of asset from payer to recipient, with the transaction ID
// scoped to feePayer. Asset selects native HBAR (x402.AssetHbar) or a token
// transfer (token ID in shard.realm.num form).
func (b *Builder) BuildTransfer(ctx context.Context, asset, amount, from, to, feePayer string) (*hedera.TransferTransaction, error) {
	value, err := parseAmount(amount)
	if err != nil {
		return nil, err
	}

	fromID, err := b.ResolveAccount(ctx, from)
	if err != nil {
		return nil, err
	}
	toID, err := b.ResolveAccount(ctx, to)
	if err != nil {
		return nil, err
	}
	feePayerID, err := b.ResolveAccount(ctx, feePayer)
	if err != nil {
		return nil, err
	}

	tx := hedera.NewTransferTransaction()

	if asset == x402.AssetHbar {
		tx.AddHbarTransfer(fromID, hedera.HbarFromTinybar(-value)).
			AddHbarTransfer(toID, hedera.HbarFromTinybar(value))
	} else {
		tokenID, err := hedera.TokenIDFromString(asset)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", x402.ErrUnsupportedAsset, asset)
		}
		tx.AddTokenTransfer(tokenID, fromID, -value).
			AddTokenTransfer(tokenID, toID, value)
	}

	tx.SetTransactionID(hedera.TransactionIDGenerate(feePayerID))
	tx.SetNodeAccountIDs([]hedera.AccountID{b.node})

	frozen, err := tx.Freeze()
	if err != nil {
		return nil, fmt.Errorf("failed to freeze transaction: %w", err)
	}

	return frozen, nil
}

// parseAmount parses a positive smallest-unit decimal amount into int64.
func parseAmount(amount string) (int64, error) {
	value := new(big.Int)
	if _, ok := value.SetString(strings.TrimSpace(amount), 10); !ok {
		return 0, fmt.Errorf("%w: %q", x402.ErrInvalidAmount, amount)
	}
	if value.Sign() <= 0 {
		return 0, fmt.Errorf("%w: amount must be positive, got %q", x402.ErrInvalidAmount, amount)
	}
	if !value.IsInt64() {
		return 0, fmt.Errorf("%w: amount exceeds ledger range: %q", x402.ErrInvalidAmount, amount)
	}
	return value.Int64(), nil
}
