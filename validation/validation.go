// Package validation provides validation utilities for x402 Hedera payment
// data: account IDs, amounts, networks, and payment structures.
package validation

import (
	"fmt"
	"math/big"

	x402 "github.com/mark3labs/x402-hedera-go"
)

// ValidateAmount validates that an amount string is a positive integer in
// smallest units. Payments of zero are meaningless on an account ledger, so
// zero is rejected.
func ValidateAmount(amount string) error {
	if amount == "" {
		return fmt.Errorf("amount cannot be empty")
	}

	amt := new(big.Int)
	amt, ok := amt.SetString(amount, 10)
	if !ok {
		return fmt.Errorf("invalid amount format: %s", amount)
	}

	if amt.Sign() <= 0 {
		return fmt.Errorf("amount must be positive, got: %s", amount)
	}

	return nil
}

// ValidateNetwork validates a Hedera network identifier.
func ValidateNetwork(network string) error {
	return x402.ValidateNetwork(network)
}

// ValidateAccountID validates a payment account identifier. Both canonical
// shard.realm.num IDs and EVM-style aliases are accepted; aliases resolve
// to account IDs at transfer build time.
func ValidateAccountID(account string) error {
	if account == "" {
		return fmt.Errorf("account cannot be empty")
	}
	if x402.IsAccountID(account) || x402.IsEVMAlias(account) {
		return nil
	}
	return fmt.Errorf("invalid account format: %s (expected shard.realm.num or 0x alias)", account)
}

// ValidateAsset validates an asset identifier: the native HBAR sentinel or
// a token ID in shard.realm.num form.
func ValidateAsset(asset string) error {
	if asset == "" {
		return fmt.Errorf("asset cannot be empty")
	}
	if asset == x402.AssetHbar || x402.IsAccountID(asset) {
		return nil
	}
	return fmt.Errorf("invalid asset: %s (expected %s or a token ID)", asset, x402.AssetHbar)
}

// ValidatePaymentRequirements performs full validation of payment
// requirements: amount, network, recipient, asset, scheme, and timeout.
func ValidatePaymentRequirements(req x402.PaymentRequirements) error {
	if err := ValidateAmount(req.MaxAmountRequired); err != nil {
		return fmt.Errorf("invalid requirements: %w", err)
	}

	if err := ValidateNetwork(req.Network); err != nil {
		return fmt.Errorf("invalid requirements: %w", err)
	}

	if err := ValidateAccountID(req.PayTo); err != nil {
		return fmt.Errorf("invalid requirements: payTo %w", err)
	}

	if err := ValidateAsset(req.Asset); err != nil {
		return fmt.Errorf("invalid requirements: %w", err)
	}

	switch req.Scheme {
	case "exact":
	case "":
		return fmt.Errorf("invalid requirements: scheme cannot be empty")
	default:
		return fmt.Errorf("invalid requirements: unsupported scheme %s", req.Scheme)
	}

	if req.MaxTimeoutSeconds < 0 {
		return fmt.Errorf("invalid requirements: timeout cannot be negative: %d", req.MaxTimeoutSeconds)
	}

	return nil
}

// ValidatePaymentPayload validates a payment payload structure. Wallet
// authorization fields must be all present or all absent.
func ValidatePaymentPayload(payload x402.PaymentPayload) error {
	if payload.X402Version != x402.X402Version {
		return fmt.Errorf("unsupported x402 version: %d (expected %d)", payload.X402Version, x402.X402Version)
	}

	if payload.Scheme == "" {
		return fmt.Errorf("scheme cannot be empty")
	}

	if err := ValidateNetwork(payload.Network); err != nil {
		return fmt.Errorf("invalid payload network: %w", err)
	}

	if payload.Payload.Transaction == "" {
		return fmt.Errorf("payload transaction cannot be empty")
	}

	if payload.WalletAuthorized() {
		if payload.WalletSignature == "" || payload.WalletAddress == "" || payload.SignedMessage == "" {
			return fmt.Errorf("wallet authorization requires signature, address, and message")
		}
		if !x402.IsEVMAlias(payload.WalletAddress) {
			return fmt.Errorf("invalid wallet address format: %s", payload.WalletAddress)
		}
	}

	return nil
}

// ValidatePaymentRequired validates a complete 402 response structure.
func ValidatePaymentRequired(pr x402.PaymentRequired) error {
	if pr.X402Version != x402.X402Version {
		return fmt.Errorf("unsupported x402 version: %d (expected %d)", pr.X402Version, x402.X402Version)
	}

	if len(pr.Accepts) == 0 {
		return fmt.Errorf("invalid payment required: accepts cannot be empty")
	}

	for i, req := range pr.Accepts {
		if err := ValidatePaymentRequirements(req); err != nil {
			return fmt.Errorf("invalid payment required: accepts[%d] %w", i, err)
		}
	}

	return nil
}
