package http

import (
	"context"
	"log/slog"
	"net/http"

	x402 "github.com/mark3labs/x402-hedera-go"
	"github.com/mark3labs/x402-hedera-go/http/internal/helpers"
)

// MiddlewareConfig holds the configuration for the payment-gate middleware.
type MiddlewareConfig struct {
	// Facilitator handles verify and settle. Either an in-process
	// facilitator.Service or a FacilitatorClient pointing at a remote one.
	Facilitator PaymentFacilitator

	// PaymentRequirements defines the accepted payment methods.
	PaymentRequirements []x402.PaymentRequirements

	// Resource names the protected resource. Derived from the request URL
	// when empty.
	Resource string

	// Logger defaults to slog.Default.
	Logger *slog.Logger
}

// PaymentFacilitator is the subset of facilitator operations the gate needs.
type PaymentFacilitator interface {
	Verify(ctx context.Context, payload x402.PaymentPayload, requirements x402.PaymentRequirements) (*x402.VerifyResponse, error)
	Settle(ctx context.Context, payload x402.PaymentPayload, requirements x402.PaymentRequirements) (*x402.SettleResponse, error)
}

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

// ProofContextKey is the context key for the settled payment proof.
const ProofContextKey = contextKey("x402_payment_proof")

// NewPaymentMiddleware wraps HTTP handlers with payment gating. Verify and
// settle both complete before the inner handler runs; the gated work is
// never dispatched on an unsettled payment. The settled proof is placed in
// the request context and the settlement is echoed in the
// X-PAYMENT-RESPONSE header.
func NewPaymentMiddleware(config MiddlewareConfig) func(http.Handler) http.Handler {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			resource := config.Resource
			if resource == "" {
				resource = helpers.BuildResourceURL(r)
			}

			paymentHeader := r.Header.Get("X-PAYMENT")
			if paymentHeader == "" {
				logger.Info("no payment header provided", "path", r.URL.Path)
				if err := helpers.SendPaymentRequired(w, resource, config.PaymentRequirements, "Payment required"); err != nil {
					logger.Error("failed to send payment required response", "error", err)
				}
				return
			}

			payment, err := helpers.ParsePaymentHeader(r)
			if err != nil {
				logger.Warn("invalid payment header", "error", err)
				http.Error(w, "Invalid payment header", http.StatusBadRequest)
				return
			}

			requirement, err := x402.FindMatchingRequirement(payment, config.PaymentRequirements)
			if err != nil {
				logger.Warn("no matching requirement", "error", err)
				if err := helpers.SendPaymentRequired(w, resource, config.PaymentRequirements, "No matching payment requirement"); err != nil {
					logger.Error("failed to send payment required response", "error", err)
				}
				return
			}

			verifyResp, err := config.Facilitator.Verify(r.Context(), *payment, *requirement)
			if err != nil {
				logger.Error("facilitator verification failed", "error", err)
				http.Error(w, "Payment verification failed", http.StatusServiceUnavailable)
				return
			}
			if !verifyResp.IsValid {
				logger.Warn("payment verification failed", "reason", verifyResp.InvalidReason)
				if err := helpers.SendPaymentRequired(w, resource, config.PaymentRequirements, verifyResp.InvalidReason); err != nil {
					logger.Error("failed to send payment required response", "error", err)
				}
				return
			}

			settleResp, err := config.Facilitator.Settle(r.Context(), *payment, *requirement)
			if err != nil {
				logger.Error("settlement failed", "error", err)
				http.Error(w, "Payment settlement failed", http.StatusServiceUnavailable)
				return
			}
			if !settleResp.Success {
				logger.Warn("settlement unsuccessful", "reason", settleResp.ErrorReason)
				if err := helpers.SendPaymentRequired(w, resource, config.PaymentRequirements, settleResp.ErrorReason); err != nil {
					logger.Error("failed to send payment required response", "error", err)
				}
				return
			}

			logger.Info("payment settled", "transaction", settleResp.Transaction)

			if err := helpers.AddPaymentResponseHeader(w, settleResp); err != nil {
				logger.Warn("failed to add payment response header", "error", err)
			}

			proof := &x402.PaymentProof{
				Status:        "completed",
				TransactionID: settleResp.Transaction,
				Message:       "Payment settled: " + settleResp.Transaction,
				ReadyForQuery: true,
			}
			ctx := context.WithValue(r.Context(), ProofContextKey, proof)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetProofFromContext extracts the settled payment proof from the request
// context. Returns nil when no payment was settled for this request.
func GetProofFromContext(ctx context.Context) *x402.PaymentProof {
	value := ctx.Value(ProofContextKey)
	if value == nil {
		return nil
	}
	proof, ok := value.(*x402.PaymentProof)
	if !ok {
		return nil
	}
	return proof
}
