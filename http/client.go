package http

import (
	"fmt"
	"net/http"

	x402 "github.com/mark3labs/x402-hedera-go"
	"github.com/mark3labs/x402-hedera-go/http/internal/helpers"
)

// Client is an HTTP client that automatically handles x402 payment flows.
// It wraps a standard http.Client and adds payment handling via a custom
// RoundTripper.
type Client struct {
	*http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client) error

// NewClient creates a new x402-enabled HTTP client.
func NewClient(opts ...ClientOption) (*Client, error) {
	client := &Client{
		Client: &http.Client{},
	}

	if client.Transport == nil {
		client.Transport = http.DefaultTransport
	}

	for _, opt := range opts {
		if err := opt(client); err != nil {
			return nil, err
		}
	}

	return client, nil
}

// WithHTTPClient sets a custom underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) error {
		c.Client = httpClient
		if c.Transport == nil {
			c.Transport = http.DefaultTransport
		}
		return nil
	}
}

// WithFacilitator sets the facilitator used to assemble payment payloads.
func WithFacilitator(facilitator *FacilitatorClient) ClientOption {
	return func(c *Client) error {
		if facilitator == nil {
			return fmt.Errorf("%w: facilitator is required", x402.ErrValidation)
		}
		getOrCreateTransport(c).Facilitator = facilitator
		return nil
	}
}

// WithAuthorizer adds an authorization strategy to the client. Multiple
// strategies can be added; the first that can satisfy the payment terms
// wins, in the order they were added.
func WithAuthorizer(authorizer x402.Authorizer) ClientOption {
	return func(c *Client) error {
		if authorizer == nil {
			return fmt.Errorf("%w: authorizer is required", x402.ErrValidation)
		}
		transport := getOrCreateTransport(c)
		transport.Authorizers = append(transport.Authorizers, authorizer)
		return nil
	}
}

// WithPaymentCallbacks sets all payment callbacks at once.
// Pass nil for any callback you don't want to set.
func WithPaymentCallbacks(onAttempt, onSuccess, onFailure x402.PaymentCallback) ClientOption {
	return func(c *Client) error {
		transport := getOrCreateTransport(c)

		if onAttempt != nil {
			transport.OnPaymentAttempt = onAttempt
		}
		if onSuccess != nil {
			transport.OnPaymentSuccess = onSuccess
		}
		if onFailure != nil {
			transport.OnPaymentFailure = onFailure
		}

		return nil
	}
}

// getOrCreateTransport gets the X402Transport, wrapping the existing
// transport if needed.
func getOrCreateTransport(c *Client) *X402Transport {
	transport, ok := c.Transport.(*X402Transport)
	if !ok {
		transport = &X402Transport{
			Base: c.Transport,
		}
		c.Transport = transport
	}
	return transport
}

// GetSettlement extracts settlement information from an HTTP response.
// Returns nil if no settlement header is present or if parsing fails.
func GetSettlement(resp *http.Response) *x402.SettleResponse {
	settlementHeader := resp.Header.Get("X-PAYMENT-RESPONSE")
	if settlementHeader == "" {
		return nil
	}
	return helpers.ParseSettlement(settlementHeader)
}

// GetPaymentRequirements extracts the payment terms from a 402 response.
func GetPaymentRequirements(resp *http.Response) (*x402.PaymentRequired, error) {
	return helpers.ParsePaymentRequirements(resp)
}

// BuildPaymentHeader creates the X-PAYMENT header value from a payload.
func BuildPaymentHeader(payment *x402.PaymentPayload) (string, error) {
	return helpers.BuildPaymentHeader(payment)
}
