package walletsig

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"

	x402 "github.com/mark3labs/x402-hedera-go"
)

// personalHash computes the EIP-191 personal_sign digest of a message.
func personalHash(message string) []byte {
	prefixed := fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(message), message)
	return crypto.Keccak256([]byte(prefixed))
}

// SignMessage signs a message with an EVM private key in personal_sign
// format and returns the 65-byte signature (hex, 0x-prefixed, v in
// {27, 28}) along with the signer address.
func SignMessage(privateKeyHex, message string) (signature, address string, err error) {
	keyHex := strings.TrimPrefix(strings.TrimSpace(privateKeyHex), "0x")
	key, err := crypto.HexToECDSA(keyHex)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", x402.ErrInvalidKey, err)
	}

	sig, err := crypto.Sign(personalHash(message), key)
	if err != nil {
		return "", "", fmt.Errorf("x402: sign message: %w", err)
	}
	// Wallets report the recovery byte as 27/28.
	sig[64] += 27

	addr := crypto.PubkeyToAddress(key.PublicKey).Hex()
	return "0x" + hex.EncodeToString(sig), addr, nil
}

// RecoverAddress recovers the signer address from a personal_sign
// signature over message.
func RecoverAddress(message, signature string) (string, error) {
	sigHex := strings.TrimPrefix(strings.TrimSpace(signature), "0x")
	sig, err := hex.DecodeString(sigHex)
	if err != nil {
		return "", fmt.Errorf("%w: signature is not hex: %v", x402.ErrValidation, err)
	}
	if len(sig) != 65 {
		return "", fmt.Errorf("%w: signature must be 65 bytes, got %d", x402.ErrValidation, len(sig))
	}

	// Normalize the recovery byte back to 0/1 for secp256k1 recovery.
	recovery := make([]byte, 65)
	copy(recovery, sig)
	if recovery[64] >= 27 {
		recovery[64] -= 27
	}

	pub, err := crypto.SigToPub(personalHash(message), recovery)
	if err != nil {
		return "", fmt.Errorf("%w: %v", x402.ErrSignatureMismatch, err)
	}
	return crypto.PubkeyToAddress(*pub).Hex(), nil
}

// Verify checks that signature over message was produced by the declared
// wallet address. Address comparison is case-insensitive.
func Verify(message, signature, declaredAddress string) error {
	recovered, err := RecoverAddress(message, signature)
	if err != nil {
		return err
	}
	if !strings.EqualFold(recovered, declaredAddress) {
		return fmt.Errorf("%w: recovered %s, declared %s", x402.ErrSignatureMismatch, recovered, declaredAddress)
	}
	return nil
}
