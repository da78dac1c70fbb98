package http

import (
	"context"
	"net/http"
	"time"

	x402 "github.com/mark3labs/x402-hedera-go"
	"github.com/mark3labs/x402-hedera-go/http/internal/helpers"
)

// X402Transport is a RoundTripper that handles x402 payment flows. It
// wraps an existing http.RoundTripper and automatically pays when a 402
// Payment Required response arrives: it selects an authorization strategy,
// obtains a payload from the facilitator, and retries with X-PAYMENT set.
type X402Transport struct {
	// Base is the underlying RoundTripper (typically http.DefaultTransport).
	Base http.RoundTripper

	// Authorizers is the list of available authorization strategies,
	// tried in order.
	Authorizers []x402.Authorizer

	// Facilitator assembles payment payloads from authorization material.
	Facilitator *FacilitatorClient

	// OnPaymentAttempt is called when a payment attempt is made.
	OnPaymentAttempt x402.PaymentCallback

	// OnPaymentSuccess is called when a payment succeeds.
	OnPaymentSuccess x402.PaymentCallback

	// OnPaymentFailure is called when a payment fails.
	OnPaymentFailure x402.PaymentCallback
}

// RoundTrip implements http.RoundTripper. On a 402 response the payment
// terms are parsed, one accepted requirement is authorized and paid, and
// the request is retried once with the payment attached.
func (t *X402Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.Base == nil {
		t.Base = http.DefaultTransport
	}

	reqCopy := req.Clone(req.Context())
	resp, err := t.Base.RoundTrip(reqCopy)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusPaymentRequired {
		return resp, nil
	}

	paymentReq, err := helpers.ParsePaymentRequirements(resp)
	if err != nil {
		resp.Body.Close()
		return nil, x402.NewPaymentError(x402.ErrCodeInvalidRequirements, "failed to parse payment requirements", err)
	}
	resp.Body.Close()

	payment, requirement, err := t.authorize(req.Context(), paymentReq.Accepts)
	if err != nil {
		return nil, err
	}

	startTime := time.Now()

	if t.OnPaymentAttempt != nil {
		t.OnPaymentAttempt(x402.PaymentEvent{
			Type:      x402.PaymentEventAttempt,
			Timestamp: startTime,
			Step:      "create",
			Resource:  req.URL.String(),
			Network:   requirement.Network,
			Scheme:    requirement.Scheme,
			Amount:    requirement.MaxAmountRequired,
			Asset:     requirement.Asset,
			Recipient: requirement.PayTo,
		})
	}

	paymentHeader, err := helpers.BuildPaymentHeader(payment)
	if err != nil {
		t.emitFailure(req, err, time.Since(startTime))
		return nil, x402.NewPaymentError(x402.ErrCodeValidation, "failed to build payment header", err)
	}

	reqRetry := req.Clone(req.Context())
	reqRetry.Header.Set("X-PAYMENT", paymentHeader)

	respRetry, err := t.Base.RoundTrip(reqRetry)
	duration := time.Since(startTime)
	if err != nil {
		t.emitFailure(req, err, duration)
		return nil, err
	}

	settlement := helpers.ParseSettlement(respRetry.Header.Get("X-PAYMENT-RESPONSE"))
	if settlement != nil && settlement.Success && t.OnPaymentSuccess != nil {
		t.OnPaymentSuccess(x402.PaymentEvent{
			Type:        x402.PaymentEventSuccess,
			Timestamp:   time.Now(),
			Step:        "settle",
			Resource:    req.URL.String(),
			Transaction: settlement.Transaction,
			Network:     requirement.Network,
			Scheme:      requirement.Scheme,
			Amount:      requirement.MaxAmountRequired,
			Asset:       requirement.Asset,
			Recipient:   requirement.PayTo,
			Duration:    duration,
		})
	}

	return respRetry, nil
}

// authorize picks the first accepted requirement a configured strategy can
// satisfy and converts its authorization material into a payment payload.
func (t *X402Transport) authorize(ctx context.Context, accepts []x402.PaymentRequirements) (*x402.PaymentPayload, *x402.PaymentRequirements, error) {
	var lastErr error
	for i := range accepts {
		requirement := &accepts[i]

		authorizer, err := x402.SelectAuthorizer(t.Authorizers, requirement)
		if err != nil {
			lastErr = err
			continue
		}

		material, err := authorizer.Authorize(ctx, requirement)
		if err != nil {
			return nil, nil, err
		}

		payload, err := t.Facilitator.CreatePayload(ctx, &x402.CreatePayloadRequest{
			PaymentRequirements: *requirement,
			PayerAccountID:      material.PayerAccount,
			TransactionBytes:    material.TransactionBase64,
			TransactionID:       material.TransactionID,
			WalletSignature:     material.WalletSignature,
			WalletAddress:       material.WalletAddress,
			SignedMessage:       material.SignedMessage,
		})
		if err != nil {
			return nil, nil, err
		}
		return payload, requirement, nil
	}

	if lastErr == nil {
		lastErr = x402.ErrMissingAuthorization
	}
	return nil, nil, lastErr
}

func (t *X402Transport) emitFailure(req *http.Request, err error, duration time.Duration) {
	if t.OnPaymentFailure == nil {
		return
	}
	t.OnPaymentFailure(x402.PaymentEvent{
		Type:      x402.PaymentEventFailure,
		Timestamp: time.Now(),
		Resource:  req.URL.String(),
		Error:     err,
		Duration:  duration,
	})
}
