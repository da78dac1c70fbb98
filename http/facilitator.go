// Package http provides HTTP client and server pieces for the x402 Hedera
// protocol: a facilitator client and payment-gate middleware for resource
// servers.
package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	x402 "github.com/mark3labs/x402-hedera-go"
	"github.com/mark3labs/x402-hedera-go/facilitator"
	"github.com/mark3labs/x402-hedera-go/retry"
)

// AuthorizationProvider returns an Authorization header value per request.
// Useful for dynamic tokens (e.g., JWT refresh) where the value may change.
//
// The provider is called on every HTTP request, including retry attempts.
// If it touches shared state or performs I/O, it must be safe for
// concurrent use; FacilitatorClient does not serialize calls to it.
type AuthorizationProvider func(*http.Request) string

// OnBeforeFunc is a callback invoked before a verify or settle operation.
// Return an error to abort the operation.
type OnBeforeFunc func(context.Context, x402.PaymentPayload, x402.PaymentRequirements) error

// OnAfterVerifyFunc is invoked after Verify completes, success or failure.
type OnAfterVerifyFunc func(context.Context, x402.PaymentPayload, x402.PaymentRequirements, *x402.VerifyResponse, error)

// OnAfterSettleFunc is invoked after Settle completes, success or failure.
type OnAfterSettleFunc func(context.Context, x402.PaymentPayload, x402.PaymentRequirements, *x402.SettleResponse, error)

// FacilitatorClient talks to a remote facilitator service over HTTP. It
// implements facilitator.Interface, so clients are indifferent to whether
// the facilitator runs in-process or remotely.
type FacilitatorClient struct {
	// BaseURL is the facilitator service URL, without the /facilitator
	// path prefix.
	BaseURL string

	// Client is the HTTP client to use. If nil, http.DefaultClient is used.
	Client *http.Client

	// Timeouts contains timeout configuration for payment operations.
	Timeouts x402.TimeoutConfig

	// MaxRetries is the maximum number of retry attempts for failed
	// requests (default: 0). Set to 0 to disable retries.
	MaxRetries int

	// RetryDelay is the initial delay between retry attempts
	// (default: 100ms). Exponential backoff with a multiplier of 2.0.
	RetryDelay time.Duration

	// Authorization is a static Authorization header value. If
	// AuthorizationProvider is also set, the provider takes precedence.
	Authorization string

	// AuthorizationProvider returns a per-request Authorization value.
	AuthorizationProvider AuthorizationProvider

	// OnBeforeVerify is called before Verify. An error aborts the call.
	OnBeforeVerify OnBeforeFunc

	// OnAfterVerify is called after Verify completes.
	OnAfterVerify OnAfterVerifyFunc

	// OnBeforeSettle is called before Settle. An error aborts the call.
	OnBeforeSettle OnBeforeFunc

	// OnAfterSettle is called after Settle completes.
	OnAfterSettle OnAfterSettleFunc
}

// Verify that FacilitatorClient implements facilitator.Interface.
var _ facilitator.Interface = (*FacilitatorClient)(nil)

func (c *FacilitatorClient) httpClient() *http.Client {
	if c.Client != nil {
		return c.Client
	}
	return http.DefaultClient
}

// setAuthorizationHeader sets the Authorization header if configured.
func (c *FacilitatorClient) setAuthorizationHeader(req *http.Request) {
	var authValue string
	if c.AuthorizationProvider != nil {
		authValue = c.AuthorizationProvider(req)
	} else if c.Authorization != "" {
		authValue = c.Authorization
	}
	if authValue != "" {
		req.Header.Set("Authorization", authValue)
	}
}

func (c *FacilitatorClient) retryConfig() retry.Config {
	retryDelay := c.RetryDelay
	if retryDelay <= 0 {
		retryDelay = 100 * time.Millisecond
	}

	maxRetries := c.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	return retry.Config{
		MaxAttempts:  maxRetries + 1, // +1 because MaxRetries is retry count, not attempt count
		InitialDelay: retryDelay,
		MaxDelay:     retryDelay * 4,
		Multiplier:   2.0,
	}
}

// withTimeout applies a default timeout only when ctx has no deadline.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if _, hasDeadline := ctx.Deadline(); hasDeadline || d <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}

// post sends a JSON body to a facilitator endpoint and decodes the 200
// response into out. Non-200 responses are translated via baseErr.
func (c *FacilitatorClient) post(ctx context.Context, path string, body, out interface{}, baseErr error) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.BaseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	c.setAuthorizationHeader(httpReq)

	httpResp, err := c.httpClient().Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: %v", x402.ErrFacilitatorUnavailable, err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return parseErrorResponse(httpResp, baseErr)
	}

	if err := json.NewDecoder(httpResp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// CreatePayload asks the facilitator to assemble a settlement-ready
// payment payload from authorization material.
func (c *FacilitatorClient) CreatePayload(ctx context.Context, req *x402.CreatePayloadRequest) (*x402.PaymentPayload, error) {
	return retry.WithRetry(ctx, c.retryConfig(), isFacilitatorUnavailableError, func() (*x402.PaymentPayload, error) {
		reqCtx, cancel := withTimeout(ctx, c.Timeouts.CreateTimeout)
		defer cancel()

		var payload x402.PaymentPayload
		if err := c.post(reqCtx, "/facilitator/create-payload", req, &payload, x402.ErrValidation); err != nil {
			return nil, err
		}
		return &payload, nil
	})
}

// Verify verifies a payment payload without executing it.
func (c *FacilitatorClient) Verify(ctx context.Context, payload x402.PaymentPayload, requirements x402.PaymentRequirements) (*x402.VerifyResponse, error) {
	if c.OnBeforeVerify != nil {
		if err := c.OnBeforeVerify(ctx, payload, requirements); err != nil {
			return nil, err
		}
	}

	req := x402.VerifyRequest{
		X402Version:         x402.X402Version,
		PaymentPayload:      payload,
		PaymentRequirements: requirements,
	}

	resp, resultErr := retry.WithRetry(ctx, c.retryConfig(), isFacilitatorUnavailableError, func() (*x402.VerifyResponse, error) {
		reqCtx, cancel := withTimeout(ctx, c.Timeouts.VerifyTimeout)
		defer cancel()

		var verifyResp x402.VerifyResponse
		if err := c.post(reqCtx, "/facilitator/verify", req, &verifyResp, x402.ErrVerificationFailed); err != nil {
			return nil, err
		}
		return &verifyResp, nil
	})

	if c.OnAfterVerify != nil {
		c.OnAfterVerify(ctx, payload, requirements, resp, resultErr)
	}

	return resp, resultErr
}

// Settle executes a verified payment on the ledger.
func (c *FacilitatorClient) Settle(ctx context.Context, payload x402.PaymentPayload, requirements x402.PaymentRequirements) (*x402.SettleResponse, error) {
	if c.OnBeforeSettle != nil {
		if err := c.OnBeforeSettle(ctx, payload, requirements); err != nil {
			return nil, err
		}
	}

	req := x402.SettleRequest{
		X402Version:         x402.X402Version,
		PaymentPayload:      payload,
		PaymentRequirements: requirements,
	}

	resp, resultErr := retry.WithRetry(ctx, c.retryConfig(), isFacilitatorUnavailableError, func() (*x402.SettleResponse, error) {
		reqCtx, cancel := withTimeout(ctx, c.Timeouts.SettleTimeout)
		defer cancel()

		var settleResp x402.SettleResponse
		if err := c.post(reqCtx, "/facilitator/settle", req, &settleResp, x402.ErrSettlementFailed); err != nil {
			return nil, err
		}
		return &settleResp, nil
	})

	if c.OnAfterSettle != nil {
		c.OnAfterSettle(ctx, payload, requirements, resp, resultErr)
	}

	return resp, resultErr
}

// Supported queries the facilitator for supported payment types.
func (c *FacilitatorClient) Supported(ctx context.Context) (*x402.SupportedResponse, error) {
	reqCtx, cancel := withTimeout(ctx, c.Timeouts.VerifyTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(reqCtx, "GET", c.BaseURL+"/facilitator/supported", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setAuthorizationHeader(httpReq)

	httpResp, err := c.httpClient().Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", x402.ErrFacilitatorUnavailable, err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("supported endpoint failed: status %d", httpResp.StatusCode)
	}

	var supportedResp x402.SupportedResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&supportedResp); err != nil {
		return nil, fmt.Errorf("failed to decode supported response: %w", err)
	}

	return &supportedResp, nil
}

// EnrichRequirements fetches supported payment types from the facilitator
// and merges network-specific extra data, most importantly the feePayer
// account, into the provided requirements. User-specified values take
// precedence over facilitator-published ones.
func (c *FacilitatorClient) EnrichRequirements(ctx context.Context, requirements []x402.PaymentRequirements) ([]x402.PaymentRequirements, error) {
	supported, err := c.Supported(ctx)
	if err != nil {
		return requirements, fmt.Errorf("failed to fetch supported payment types: %w", err)
	}

	supportedMap := make(map[string]x402.SupportedKind)
	for _, kind := range supported.Kinds {
		key := kind.Network + "-" + kind.Scheme
		supportedMap[key] = kind
	}

	enriched := make([]x402.PaymentRequirements, len(requirements))
	for i, req := range requirements {
		enriched[i] = req
		key := req.Network + "-" + req.Scheme
		if kind, ok := supportedMap[key]; ok && kind.Extra != nil {
			if enriched[i].Extra == nil {
				enriched[i].Extra = make(map[string]interface{})
			}
			for k, v := range kind.Extra {
				if _, exists := enriched[i].Extra[k]; !exists {
					enriched[i].Extra[k] = v
				}
			}
		}
	}

	return enriched, nil
}

// parseErrorResponse extracts error details from a non-200 HTTP response.
// Server-side faults keep their facilitator sentinels so callers do not
// mistake an operator problem for bad input.
func parseErrorResponse(resp *http.Response, baseErr error) error {
	switch {
	case resp.StatusCode == http.StatusBadGateway,
		resp.StatusCode == http.StatusServiceUnavailable,
		resp.StatusCode == http.StatusGatewayTimeout:
		baseErr = x402.ErrFacilitatorUnavailable
	case resp.StatusCode >= http.StatusInternalServerError:
		baseErr = x402.ErrFacilitatorConfig
	}

	bodyBytes, _ := io.ReadAll(resp.Body)

	var errBody map[string]interface{}
	if err := json.Unmarshal(bodyBytes, &errBody); err == nil {
		for _, field := range []string{"invalidReason", "errorReason", "error"} {
			if reason, ok := errBody[field].(string); ok && reason != "" {
				return fmt.Errorf("%w: status %d, reason: %s", baseErr, resp.StatusCode, reason)
			}
		}
	}

	if len(bodyBytes) > 0 && len(bodyBytes) < 500 {
		return fmt.Errorf("%w: status %d, body: %s", baseErr, resp.StatusCode, string(bodyBytes))
	}

	return fmt.Errorf("%w: status %d", baseErr, resp.StatusCode)
}

func isFacilitatorUnavailableError(err error) bool {
	return errors.Is(err, x402.ErrFacilitatorUnavailable)
}
