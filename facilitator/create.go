package facilitator

import (
	"context"
	"fmt"

	x402 "github.com/mark3labs/x402-hedera-go"
	"github.com/mark3labs/x402-hedera-go/authorizers/walletsig"
	"github.com/mark3labs/x402-hedera-go/transfer"
)

// CreatePayload implements Interface. Two authorization shapes are
// accepted:
//
//   - direct-key: TransactionBytes already carry the payer's signature and
//     are wrapped as-is; private keys are never part of the request.
//   - wallet-signature: the facilitator rebuilds the canonical payment
//     message, verifies the wallet signature against the declared address,
//     then counter-signs the transaction with the operator key.
//
// Requests carrying neither shape are rejected with ErrMissingAuthorization.
func (s *Service) CreatePayload(ctx context.Context, req *x402.CreatePayloadRequest) (*x402.PaymentPayload, error) {
	if req == nil {
		return nil, fmt.Errorf("%w: empty request", x402.ErrValidation)
	}
	if err := x402.ValidateNetwork(req.PaymentRequirements.Network); err != nil {
		return nil, err
	}
	if req.PaymentRequirements.Network != s.cfg.Network {
		return nil, fmt.Errorf("%w: facilitator settles on %s, requirements name %s",
			x402.ErrUnsupportedNetwork, s.cfg.Network, req.PaymentRequirements.Network)
	}
	if req.TransactionBytes == "" {
		return nil, fmt.Errorf("%w: transaction bytes are required", x402.ErrValidation)
	}

	walletAuthorized := req.WalletSignature != "" || req.WalletAddress != "" || req.SignedMessage != ""

	payload := &x402.PaymentPayload{
		X402Version:  x402.X402Version,
		Scheme:       req.PaymentRequirements.Scheme,
		Network:      req.PaymentRequirements.Network,
		PayerAccount: req.PayerAccountID,
	}

	switch {
	case walletAuthorized:
		if req.WalletSignature == "" || req.WalletAddress == "" || req.SignedMessage == "" {
			return nil, fmt.Errorf("%w: wallet authorization requires signature, address, and message", x402.ErrValidation)
		}
		signed, err := s.counterSign(ctx, req)
		if err != nil {
			return nil, err
		}
		payload.Payload = x402.TransactionPayload{Transaction: signed}
		payload.WalletSignature = req.WalletSignature
		payload.WalletAddress = req.WalletAddress
		payload.SignedMessage = req.SignedMessage

	default:
		// Direct-key: the payer signed locally. Reject unsigned bytes here
		// rather than letting them fail at verify.
		tx, err := transfer.FromBase64(req.TransactionBytes)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", x402.ErrValidation, err)
		}
		if !transfer.HasSignatures(tx) {
			return nil, fmt.Errorf("%w: transaction carries no payer signature and no wallet signature was provided", x402.ErrMissingAuthorization)
		}
		payload.Payload = x402.TransactionPayload{Transaction: req.TransactionBytes}
	}

	s.logger.Info("payload created",
		"network", payload.Network,
		"payer", req.PayerAccountID,
		"walletAuthorized", walletAuthorized)

	return payload, nil
}

// counterSign validates the wallet authorization and signs the transfer
// with the operator key.
func (s *Service) counterSign(_ context.Context, req *x402.CreatePayloadRequest) (string, error) {
	tx, err := transfer.FromBase64(req.TransactionBytes)
	if err != nil {
		return "", fmt.Errorf("%w: %v", x402.ErrValidation, err)
	}

	txID := tx.GetTransactionID().String()
	expected := walletsig.BuildMessage(&req.PaymentRequirements, req.PayerAccountID, txID)
	if req.SignedMessage != expected {
		return "", fmt.Errorf("%w: signed message does not match payment terms", x402.ErrSignatureMismatch)
	}
	if err := walletsig.Verify(req.SignedMessage, req.WalletSignature, req.WalletAddress); err != nil {
		return "", err
	}

	if s.operatorKey == nil {
		return "", fmt.Errorf("%w: no operator key configured for counter-signing", x402.ErrFacilitatorConfig)
	}

	signed := tx.Sign(*s.operatorKey)
	return transfer.ToBase64(signed)
}
