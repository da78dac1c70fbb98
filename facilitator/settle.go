package facilitator

import (
	"context"

	x402 "github.com/mark3labs/x402-hedera-go"
	"github.com/mark3labs/x402-hedera-go/transfer"
)

// Settle implements Interface. The payload is re-verified from scratch:
// verify and settle may be served by different processes, so settlement
// never trusts a prior verify. Replays are rejected by the transaction ID
// embedded in the payload before the ledger is touched. Ledger rejections
// surface verbatim in ErrorReason; the error return is reserved for
// facilitator-internal faults.
func (s *Service) Settle(ctx context.Context, payload x402.PaymentPayload, requirements x402.PaymentRequirements) (*x402.SettleResponse, error) {
	if reason := s.checkPayment(&payload, &requirements); reason != "" {
		s.logger.Info("settlement rejected", "reason", reason)
		return &x402.SettleResponse{Success: false, ErrorReason: reason, Network: payload.Network}, nil
	}

	tx, err := transfer.FromBase64(payload.Payload.Transaction)
	if err != nil {
		return &x402.SettleResponse{Success: false, ErrorReason: err.Error(), Network: payload.Network}, nil
	}
	txID := tx.GetTransactionID().String()

	// Claim the transaction ID before touching the ledger so concurrent
	// settlements of the same payload execute at most once.
	if !s.settled.MarkIfUnseen(txID, s.now()) {
		s.logger.Warn("replayed payload rejected", "transactionID", txID)
		return &x402.SettleResponse{
			Success:     false,
			ErrorReason: "transaction already settled",
			Network:     payload.Network,
		}, nil
	}

	settledID, err := s.executor.Execute(ctx, tx)
	if err != nil {
		s.settled.Unmark(txID)
		s.logger.Error("settlement failed", "transactionID", txID, "error", err)
		return &x402.SettleResponse{
			Success:     false,
			ErrorReason: err.Error(),
			Network:     payload.Network,
		}, nil
	}
	s.logger.Info("payment settled", "transactionID", settledID, "network", payload.Network)

	return &x402.SettleResponse{
		Success:     true,
		Transaction: settledID,
		Network:     payload.Network,
	}, nil
}
