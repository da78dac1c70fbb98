package facilitator

import (
	"context"
	"fmt"
	"time"

	x402 "github.com/mark3labs/x402-hedera-go"
	"github.com/mark3labs/x402-hedera-go/authorizers/walletsig"
	"github.com/mark3labs/x402-hedera-go/transfer"
)

// Verify implements Interface. Every check failure is reported as an
// invalid outcome with a reason; the error return is reserved for
// facilitator-internal faults. Verification never touches the ledger.
func (s *Service) Verify(_ context.Context, payload x402.PaymentPayload, requirements x402.PaymentRequirements) (*x402.VerifyResponse, error) {
	reason := s.checkPayment(&payload, &requirements)
	if reason != "" {
		s.logger.Info("payment rejected", "reason", reason)
		return &x402.VerifyResponse{IsValid: false, InvalidReason: reason}, nil
	}
	return &x402.VerifyResponse{IsValid: true}, nil
}

// checkPayment runs the full verification sequence and returns an empty
// string when the payment satisfies the requirements.
func (s *Service) checkPayment(payload *x402.PaymentPayload, requirements *x402.PaymentRequirements) string {
	if payload.X402Version != x402.X402Version {
		return fmt.Sprintf("unsupported x402 version %d", payload.X402Version)
	}
	if payload.Scheme != requirements.Scheme {
		return fmt.Sprintf("scheme mismatch: payload %q, requirements %q", payload.Scheme, requirements.Scheme)
	}
	if payload.Network != requirements.Network {
		return fmt.Sprintf("network mismatch: payload %q, requirements %q", payload.Network, requirements.Network)
	}
	if payload.Network != s.cfg.Network {
		return fmt.Sprintf("facilitator settles on %q, payload names %q", s.cfg.Network, payload.Network)
	}

	tx, err := transfer.FromBase64(payload.Payload.Transaction)
	if err != nil {
		return fmt.Sprintf("transaction does not decode: %v", err)
	}
	summary, err := transfer.Summarize(tx)
	if err != nil {
		return fmt.Sprintf("transaction is not a payment transfer: %v", err)
	}

	if !summary.Conserved {
		return "transfer entries do not balance"
	}
	if summary.Asset != requirements.Asset {
		return fmt.Sprintf("asset mismatch: transfer moves %q, requirements name %q", summary.Asset, requirements.Asset)
	}
	if summary.Amount != requirements.MaxAmountRequired {
		return fmt.Sprintf("amount mismatch: transfer credits %s, requirements demand %s", summary.Amount, requirements.MaxAmountRequired)
	}
	if summary.To != requirements.PayTo {
		return fmt.Sprintf("recipient mismatch: transfer credits %s, requirements name %s", summary.To, requirements.PayTo)
	}

	feePayer, err := requirements.FeePayer()
	if err != nil {
		return "requirements carry no fee payer account"
	}
	if summary.FeePayer != feePayer {
		return fmt.Sprintf("fee payer mismatch: transaction ID scoped to %s, requirements name %s", summary.FeePayer, feePayer)
	}
	if summary.FeePayer != s.cfg.OperatorAccountID {
		return fmt.Sprintf("transaction ID is not scoped to this facilitator's operator account %s", s.cfg.OperatorAccountID)
	}

	if summary.ValidStart != nil && requirements.MaxTimeoutSeconds > 0 {
		expiry := summary.ValidStart.Add(time.Duration(requirements.MaxTimeoutSeconds) * time.Second)
		if s.now().After(expiry) {
			return "payment authorization has expired"
		}
	}

	if payload.WalletAuthorized() {
		if payload.WalletSignature == "" || payload.WalletAddress == "" || payload.SignedMessage == "" {
			return "wallet authorization is incomplete"
		}
		// The wallet signed the payer identity as declared at create time,
		// which may be an alias that the transfer embeds in resolved
		// shard.realm.num form. Rebuild the message from the declared
		// identity; a declared account ID must still match the debit entry.
		payer := payload.PayerAccount
		if payer == "" {
			payer = summary.From
		}
		if x402.IsAccountID(payer) && payer != summary.From {
			return fmt.Sprintf("declared payer %s does not match transfer debit account %s", payer, summary.From)
		}
		expected := walletsig.BuildMessage(requirements, payer, summary.TransactionID)
		if payload.SignedMessage != expected {
			return "signed message does not match payment terms"
		}
		if err := walletsig.Verify(payload.SignedMessage, payload.WalletSignature, payload.WalletAddress); err != nil {
			return "wallet signature does not match declared address"
		}
	}

	if !transfer.HasSignatures(tx) {
		return "transaction carries no signatures"
	}

	return ""
}
