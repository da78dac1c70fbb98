package walletsig

import (
	"encoding/hex"
	"errors"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"

	x402 "github.com/mark3labs/x402-hedera-go"
)

func generateWallet(t *testing.T) (keyHex, address string) {
	t.Helper()
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return "0x" + hex.EncodeToString(crypto.FromECDSA(key)), crypto.PubkeyToAddress(key.PublicKey).Hex()
}

func TestSignAndRecoverRoundTrip(t *testing.T) {
	keyHex, address := generateWallet(t)
	message := "x402 payment authorization\nnetwork: testnet"

	signature, signerAddress, err := SignMessage(keyHex, message)
	if err != nil {
		t.Fatalf("SignMessage() error = %v", err)
	}
	if !strings.EqualFold(signerAddress, address) {
		t.Errorf("signer address = %s; want %s", signerAddress, address)
	}
	if !strings.HasPrefix(signature, "0x") || len(signature) != 2+65*2 {
		t.Errorf("signature %q is not a 65-byte hex string", signature)
	}

	recovered, err := RecoverAddress(message, signature)
	if err != nil {
		t.Fatalf("RecoverAddress() error = %v", err)
	}
	if !strings.EqualFold(recovered, address) {
		t.Errorf("recovered = %s; want %s", recovered, address)
	}

	if err := Verify(message, signature, address); err != nil {
		t.Errorf("Verify() error = %v", err)
	}
}

func TestVerifyRejectsAlteredMessage(t *testing.T) {
	keyHex, address := generateWallet(t)
	message := "pay 150000000 tinybars to 0.0.2001"

	signature, _, err := SignMessage(keyHex, message)
	if err != nil {
		t.Fatalf("SignMessage() error = %v", err)
	}

	// Recovery over a different message yields a different address.
	err = Verify(message+" plus more", signature, address)
	if !errors.Is(err, x402.ErrSignatureMismatch) {
		t.Errorf("Verify() with altered message error = %v; want ErrSignatureMismatch", err)
	}
}

func TestVerifyRejectsWrongSigner(t *testing.T) {
	keyHex, _ := generateWallet(t)
	_, otherAddress := generateWallet(t)
	message := "pay 150000000 tinybars to 0.0.2001"

	signature, _, err := SignMessage(keyHex, message)
	if err != nil {
		t.Fatalf("SignMessage() error = %v", err)
	}

	err = Verify(message, signature, otherAddress)
	if !errors.Is(err, x402.ErrSignatureMismatch) {
		t.Errorf("Verify() with wrong signer error = %v; want ErrSignatureMismatch", err)
	}
}

func TestRecoverAddressMalformedSignature(t *testing.T) {
	tests := []struct {
		name string
		sig  string
	}{
		{name: "not hex", sig: "0xzzzz"},
		{name: "too short", sig: "0xabcd"},
		{name: "empty", sig: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := RecoverAddress("msg", tt.sig); !errors.Is(err, x402.ErrValidation) {
				t.Errorf("RecoverAddress() error = %v; want ErrValidation", err)
			}
		})
	}
}

func TestSignMessageBadKey(t *testing.T) {
	if _, _, err := SignMessage("not-a-key", "msg"); !errors.Is(err, x402.ErrInvalidKey) {
		t.Errorf("SignMessage() error = %v; want ErrInvalidKey", err)
	}
}

func TestBuildMessageDeterministic(t *testing.T) {
	requirements := &x402.PaymentRequirements{
		Scheme:            "exact",
		Network:           "testnet",
		MaxAmountRequired: "150000000",
		Asset:             "HBAR",
		PayTo:             "0.0.2001",
		Resource:          "liquidity/premium",
		Description:       "Premium liquidity data",
	}

	a := BuildMessage(requirements, "0.0.1001", "0.0.3001@1700000000.000000001")
	b := BuildMessage(requirements, "0.0.1001", "0.0.3001@1700000000.000000001")
	if a != b {
		t.Error("BuildMessage() is not deterministic")
	}

	// Every payment term is bound into the message.
	for _, term := range []string{"testnet", "HBAR", "150000000", "0.0.1001", "0.0.2001", "liquidity/premium", "Premium liquidity data", "0.0.3001@1700000000.000000001"} {
		if !strings.Contains(a, term) {
			t.Errorf("message does not bind term %q: %s", term, a)
		}
	}

	c := BuildMessage(requirements, "0.0.1001", "0.0.3001@1700000000.000000002")
	if a == c {
		t.Error("messages for different transactions are identical")
	}
}
