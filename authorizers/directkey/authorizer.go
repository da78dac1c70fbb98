// Package directkey implements direct-key payment authorization: the
// payer's vaulted private key signs the transfer locally, and only the
// signed transaction bytes leave the process. The raw key is never placed
// on the wire.
package directkey

import (
	"context"
	"fmt"

	hedera "github.com/hashgraph/hedera-sdk-go/v2"

	x402 "github.com/mark3labs/x402-hedera-go"
	"github.com/mark3labs/x402-hedera-go/transfer"
	"github.com/mark3labs/x402-hedera-go/vault"
)

// PasswordPrompt asks the user for the vault password. It is invoked only
// when the session has no live cached password.
type PasswordPrompt func(ctx context.Context) (string, error)

// Authorizer signs transfers with a key decrypted from the vault session.
type Authorizer struct {
	builder *transfer.Builder
	session *vault.Session
	prompt  PasswordPrompt
}

// NewAuthorizer creates a direct-key authorizer over a vault session.
func NewAuthorizer(builder *transfer.Builder, session *vault.Session, prompt PasswordPrompt) (*Authorizer, error) {
	if builder == nil {
		return nil, fmt.Errorf("%w: transfer builder is required", x402.ErrValidation)
	}
	if session == nil {
		return nil, fmt.Errorf("%w: vault session is required", x402.ErrValidation)
	}
	if prompt == nil {
		return nil, fmt.Errorf("%w: password prompt is required", x402.ErrValidation)
	}
	return &Authorizer{builder: builder, session: session, prompt: prompt}, nil
}

// Method implements x402.Authorizer.
func (a *Authorizer) Method() x402.AuthMethod {
	return x402.AuthMethodDirectKey
}

// CanAuthorize implements x402.Authorizer. Direct-key authorization is
// available only while the vault holds an unexpired record on a matching
// network.
func (a *Authorizer) CanAuthorize(requirements *x402.PaymentRequirements) bool {
	if requirements == nil || requirements.Network != a.builder.Network() {
		return false
	}
	_, ok := a.session.EncryptedKey()
	return ok
}

// Authorize decrypts the vaulted key, builds the transfer, and signs it.
// A live cached password is used silently; otherwise the prompt runs. A
// wrong password surfaces as ErrWrongPassword so the caller can re-prompt
// without aborting the flow.
func (a *Authorizer) Authorize(ctx context.Context, requirements *x402.PaymentRequirements) (*x402.AuthMaterial, error) {
	record, ok := a.session.EncryptedKey()
	if !ok {
		return nil, fmt.Errorf("%w: no vaulted key available", x402.ErrMissingAuthorization)
	}

	feePayer, err := requirements.FeePayer()
	if err != nil {
		return nil, err
	}

	password, cached := a.session.CachedPassword()
	if !cached {
		var err error
		password, err = a.prompt(ctx)
		if err != nil {
			return nil, fmt.Errorf("x402: password prompt: %w", err)
		}
	}

	rawKey, err := a.session.Decrypt(record, password)
	if err != nil {
		return nil, err
	}
	key, err := hedera.PrivateKeyFromString(rawKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", x402.ErrInvalidKey, err)
	}

	tx, err := a.builder.BuildTransfer(ctx, requirements.Asset, requirements.MaxAmountRequired, record.AccountID, requirements.PayTo, feePayer)
	if err != nil {
		return nil, err
	}
	signed := tx.Sign(key)

	encoded, err := transfer.ToBase64(signed)
	if err != nil {
		return nil, err
	}

	return &x402.AuthMaterial{
		PayerAccount:      record.AccountID,
		TransactionBase64: encoded,
		TransactionID:     signed.GetTransactionID().String(),
		PreSigned:         true,
	}, nil
}
