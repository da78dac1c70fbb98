// Package walletsig implements wallet-signature payment authorization.
//
// The payer never reveals a ledger private key. They sign a deterministic
// human-readable message with an EVM wallet key; the facilitator recovers
// the signer address, checks it against the declared address, and
// counter-signs the transfer with its own operator key.
package walletsig

import (
	"fmt"

	x402 "github.com/mark3labs/x402-hedera-go"
)

// BuildMessage renders the canonical payment message for wallet signing.
// Both sides build it independently from the same inputs, so any divergence
// in requirements or transaction identity breaks signature verification.
func BuildMessage(requirements *x402.PaymentRequirements, payerAccount, transactionID string) string {
	return fmt.Sprintf(
		"x402 payment authorization\nnetwork: %s\nasset: %s\namount: %s\nfrom: %s\nto: %s\nresource: %s\ndescription: %s\ntransaction: %s",
		requirements.Network,
		requirements.Asset,
		requirements.MaxAmountRequired,
		payerAccount,
		requirements.PayTo,
		requirements.Resource,
		requirements.Description,
		transactionID,
	)
}
