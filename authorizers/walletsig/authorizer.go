package walletsig

import (
	"context"
	"fmt"

	x402 "github.com/mark3labs/x402-hedera-go"
	"github.com/mark3labs/x402-hedera-go/transfer"
)

// WalletSigner signs a message in personal_sign format. Implementations
// range from an in-process key (LocalWallet) to a browser wallet bridge.
type WalletSigner interface {
	SignMessage(ctx context.Context, message string) (signature, address string, err error)
}

// LocalWallet signs with an in-memory EVM private key.
type LocalWallet struct {
	PrivateKeyHex string
}

func (w *LocalWallet) SignMessage(_ context.Context, message string) (string, string, error) {
	return SignMessage(w.PrivateKeyHex, message)
}

// Authorizer produces wallet-signature authorization material: an unsigned
// transfer plus the signature triple the facilitator needs to verify intent
// and counter-sign.
type Authorizer struct {
	builder *transfer.Builder
	wallet  WalletSigner
	payer   string
}

// NewAuthorizer creates a wallet-signature authorizer for the payer account.
func NewAuthorizer(builder *transfer.Builder, wallet WalletSigner, payerAccount string) (*Authorizer, error) {
	if builder == nil {
		return nil, fmt.Errorf("%w: transfer builder is required", x402.ErrValidation)
	}
	if wallet == nil {
		return nil, fmt.Errorf("%w: wallet signer is required", x402.ErrValidation)
	}
	if !x402.IsAccountID(payerAccount) && !x402.IsEVMAlias(payerAccount) {
		return nil, fmt.Errorf("%w: invalid payer account: %s", x402.ErrValidation, payerAccount)
	}
	return &Authorizer{builder: builder, wallet: wallet, payer: payerAccount}, nil
}

// Method implements x402.Authorizer.
func (a *Authorizer) Method() x402.AuthMethod {
	return x402.AuthMethodWalletSignature
}

// CanAuthorize implements x402.Authorizer.
func (a *Authorizer) CanAuthorize(requirements *x402.PaymentRequirements) bool {
	return requirements != nil && requirements.Network == a.builder.Network()
}

// Authorize builds the unsigned transfer, signs the canonical payment
// message with the wallet, and returns the material for the facilitator.
// The transaction ID is generated against the facilitator's fee payer, so
// requirements must carry one.
func (a *Authorizer) Authorize(ctx context.Context, requirements *x402.PaymentRequirements) (*x402.AuthMaterial, error) {
	feePayer, err := requirements.FeePayer()
	if err != nil {
		return nil, err
	}

	tx, err := a.builder.BuildTransfer(ctx, requirements.Asset, requirements.MaxAmountRequired, a.payer, requirements.PayTo, feePayer)
	if err != nil {
		return nil, err
	}

	encoded, err := transfer.ToBase64(tx)
	if err != nil {
		return nil, err
	}
	txID := tx.GetTransactionID().String()

	message := BuildMessage(requirements, a.payer, txID)
	signature, address, err := a.wallet.SignMessage(ctx, message)
	if err != nil {
		return nil, err
	}

	return &x402.AuthMaterial{
		PayerAccount:      a.payer,
		TransactionBase64: encoded,
		TransactionID:     txID,
		PreSigned:         false,
		WalletSignature:   signature,
		WalletAddress:     address,
		SignedMessage:     message,
	}, nil
}
