package transfer

import (
	"encoding/base64"
	"fmt"

	hedera "github.com/hashgraph/hedera-sdk-go/v2"
)

// ToBase64 serializes a frozen transaction to base64 bytes for transport.
func ToBase64(tx *hedera.TransferTransaction) (string, error) {
	data, err := tx.ToBytes()
	if err != nil {
		return "", fmt.Errorf("failed to serialize transaction: %w", err)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// FromBase64 deserializes base64 transaction bytes back into a transfer
// transaction. Fails if the bytes decode to some other transaction type.
func FromBase64(encoded string) (*hedera.TransferTransaction, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64 transaction: %w", err)
	}

	parsed, err := hedera.TransactionFromBytes(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse transaction bytes: %w", err)
	}

	tx, ok := parsed.(hedera.TransferTransaction)
	if !ok {
		return nil, fmt.Errorf("transaction bytes do not contain a transfer transaction")
	}
	return &tx, nil
}

// HasSignatures reports whether at least one signature is attached.
func HasSignatures(tx *hedera.TransferTransaction) bool {
	signatures, err := tx.GetSignatures()
	if err != nil {
		return false
	}
	for _, byKey := range signatures {
		if len(byKey) > 0 {
			return true
		}
	}
	return false
}
