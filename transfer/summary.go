package transfer

import (
	"fmt"
	"strconv"
	"time"

	hedera "github.com/hashgraph/hedera-sdk-go/v2"

	x402 "github.com/mark3labs/x402-hedera-go"
)

// Summary is a normalized view of the transfer embedded in a transaction,
// used by the facilitator to match a payload against payment requirements.
type Summary struct {
	// TransactionID is the fee-payer-scoped transaction identifier.
	TransactionID string

	// FeePayer is the account the transaction ID is scoped to.
	FeePayer string

	// ValidStart is the transaction validity window start.
	ValidStart *time.Time

	// Asset is x402.AssetHbar or the token ID.
	Asset string

	// Amount is the credited amount in smallest units.
	Amount string

	// From is the debited account, To the credited account.
	From string
	To   string

	// Conserved reports whether the transfer entries sum to zero.
	Conserved bool
}

// Summarize extracts the transfer terms from a transaction. Fails if the
// transaction carries no transfer entries or mixes assets.
func Summarize(tx *hedera.TransferTransaction) (*Summary, error) {
	txID := tx.GetTransactionID()
	if txID.AccountID == nil {
		return nil, fmt.Errorf("transaction has no fee payer account")
	}

	s := &Summary{
		TransactionID: txID.String(),
		FeePayer:      txID.AccountID.String(),
		ValidStart:    txID.ValidStart,
	}

	hbarTransfers := tx.GetHbarTransfers()
	tokenTransfers := tx.GetTokenTransfers()

	switch {
	case len(hbarTransfers) > 0:
		if len(tokenTransfers) > 0 {
			return nil, fmt.Errorf("transaction mixes native and token transfers")
		}
		s.Asset = x402.AssetHbar
		var sum int64
		for account, amount := range hbarTransfers {
			tinybar := amount.AsTinybar()
			sum += tinybar
			if tinybar > 0 {
				s.To = account.String()
				s.Amount = strconv.FormatInt(tinybar, 10)
			} else if tinybar < 0 {
				s.From = account.String()
			}
		}
		s.Conserved = sum == 0

	case len(tokenTransfers) > 0:
		if len(tokenTransfers) > 1 {
			return nil, fmt.Errorf("transaction transfers more than one token")
		}
		for tokenID, entries := range tokenTransfers {
			s.Asset = tokenID.String()
			var sum int64
			for _, entry := range entries {
				sum += entry.Amount
				if entry.Amount > 0 {
					s.To = entry.AccountID.String()
					s.Amount = strconv.FormatInt(entry.Amount, 10)
				} else if entry.Amount < 0 {
					s.From = entry.AccountID.String()
				}
			}
			s.Conserved = sum == 0
		}

	default:
		return nil, fmt.Errorf("transaction carries no transfer entries")
	}

	if s.From == "" || s.To == "" {
		return nil, fmt.Errorf("transaction is not a two-party transfer")
	}

	return s, nil
}
