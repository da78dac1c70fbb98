// Package helpers provides internal HTTP utilities for x402 protocol
// handling.
package helpers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	x402 "github.com/mark3labs/x402-hedera-go"
	"github.com/mark3labs/x402-hedera-go/encoding"
)

// ErrNilSettlement is returned when settlement is nil in AddPaymentResponseHeader.
var ErrNilSettlement = errors.New("settlement is nil")

// ErrNilPayment is returned when payment is nil in BuildPaymentHeader.
var ErrNilPayment = errors.New("payment is nil")

// ParsePaymentHeader extracts and decodes a PaymentPayload from the
// X-PAYMENT header. Returns ErrMalformedHeader if the header is missing
// or invalid.
func ParsePaymentHeader(r *http.Request) (*x402.PaymentPayload, error) {
	paymentHeader := r.Header.Get("X-PAYMENT")
	if paymentHeader == "" {
		return nil, x402.ErrMalformedHeader
	}

	payment, err := encoding.DecodePayment(paymentHeader)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", x402.ErrMalformedHeader, err)
	}

	if payment.X402Version != x402.X402Version {
		return nil, fmt.Errorf("%w: version %d", x402.ErrUnsupportedVersion, payment.X402Version)
	}

	return &payment, nil
}

// SendPaymentRequired writes a 402 Payment Required response with the
// given requirements.
func SendPaymentRequired(w http.ResponseWriter, resource string, requirements []x402.PaymentRequirements, errMsg string) error {
	response := x402.PaymentRequired{
		X402Version: x402.X402Version,
		Error:       errMsg,
		Resource:    resource,
		Accepts:     requirements,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusPaymentRequired)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		return fmt.Errorf("encoding PaymentRequired response: %w", err)
	}
	return nil
}

// AddPaymentResponseHeader adds the X-PAYMENT-RESPONSE header with
// settlement information.
func AddPaymentResponseHeader(w http.ResponseWriter, settlement *x402.SettleResponse) error {
	if settlement == nil {
		return fmt.Errorf("AddPaymentResponseHeader: %w", ErrNilSettlement)
	}
	encoded, err := encoding.EncodeSettlement(*settlement)
	if err != nil {
		return fmt.Errorf("AddPaymentResponseHeader: encode settlement: %w", err)
	}
	w.Header().Set("X-PAYMENT-RESPONSE", encoded)
	return nil
}

// ParsePaymentRequirements extracts PaymentRequired from a 402 response body.
func ParsePaymentRequirements(resp *http.Response) (*x402.PaymentRequired, error) {
	if resp == nil || resp.Body == nil {
		return nil, fmt.Errorf("%w: missing response or body", x402.ErrInvalidRequirements)
	}

	var paymentReq x402.PaymentRequired
	if err := json.NewDecoder(resp.Body).Decode(&paymentReq); err != nil {
		return nil, fmt.Errorf("%w: %v", x402.ErrInvalidRequirements, err)
	}

	if len(paymentReq.Accepts) == 0 {
		return nil, fmt.Errorf("%w: no payment requirements in response", x402.ErrInvalidRequirements)
	}

	return &paymentReq, nil
}

// ParseSettlement extracts settlement information from the
// X-PAYMENT-RESPONSE header. Returns nil if the header is empty or cannot
// be parsed.
func ParseSettlement(headerValue string) *x402.SettleResponse {
	if headerValue == "" {
		return nil
	}

	settlement, err := encoding.DecodeSettlement(headerValue)
	if err != nil {
		return nil
	}

	return &settlement
}

// BuildPaymentHeader creates the X-PAYMENT header value from a
// PaymentPayload.
func BuildPaymentHeader(payment *x402.PaymentPayload) (string, error) {
	if payment == nil {
		return "", fmt.Errorf("BuildPaymentHeader: %w", ErrNilPayment)
	}
	encoded, err := encoding.EncodePayment(*payment)
	if err != nil {
		return "", fmt.Errorf("BuildPaymentHeader: encode payment: %w", err)
	}
	return encoded, nil
}

// BuildResourceURL constructs the full URL of the protected resource.
func BuildResourceURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host + r.RequestURI
}
