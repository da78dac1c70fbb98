package facilitator

import (
	"context"
	"fmt"

	hedera "github.com/hashgraph/hedera-sdk-go/v2"

	x402 "github.com/mark3labs/x402-hedera-go"
)

// LedgerExecutor submits a signed transfer to the ledger and waits for the
// consensus outcome. Tests substitute a fake; production uses HederaExecutor.
type LedgerExecutor interface {
	Execute(ctx context.Context, tx *hedera.TransferTransaction) (transactionID string, err error)
}

// HederaExecutor executes transfers against a Hedera network using the
// operator account for node fees.
type HederaExecutor struct {
	client *hedera.Client
}

// NewHederaExecutor builds an executor for the configured network and
// operator credentials.
func NewHederaExecutor(cfg *Config) (*HederaExecutor, error) {
	if cfg.OperatorKey == "" {
		return nil, fmt.Errorf("%w: operator key is required to execute transfers", x402.ErrFacilitatorConfig)
	}

	operatorID, err := hedera.AccountIDFromString(cfg.OperatorAccountID)
	if err != nil {
		return nil, fmt.Errorf("%w: operator account: %v", x402.ErrFacilitatorConfig, err)
	}
	operatorKey, err := hedera.PrivateKeyFromString(cfg.OperatorKey)
	if err != nil {
		return nil, fmt.Errorf("%w: operator key: %v", x402.ErrFacilitatorConfig, err)
	}

	var client *hedera.Client
	switch cfg.Network {
	case x402.NetworkMainnet:
		client = hedera.ClientForMainnet()
	case x402.NetworkTestnet:
		client = hedera.ClientForTestnet()
	default:
		return nil, fmt.Errorf("%w: %s", x402.ErrUnsupportedNetwork, cfg.Network)
	}
	client.SetOperator(operatorID, operatorKey)

	return &HederaExecutor{client: client}, nil
}

// Execute submits the transfer and waits for its receipt. Any non-success
// consensus status is returned verbatim so it can surface in ErrorReason.
func (e *HederaExecutor) Execute(ctx context.Context, tx *hedera.TransferTransaction) (string, error) {
	resp, err := tx.Execute(e.client)
	if err != nil {
		return "", err
	}

	receipt, err := resp.GetReceipt(e.client)
	if err != nil {
		return "", err
	}
	if receipt.Status != hedera.StatusSuccess {
		return "", fmt.Errorf("transaction failed with status %s", receipt.Status)
	}

	return resp.TransactionID.String(), nil
}

// Close releases the underlying network client.
func (e *HederaExecutor) Close() error {
	return e.client.Close()
}
