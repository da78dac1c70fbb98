// Package gin provides Gin-compatible middleware for x402 payment gating.
// It is a thin adapter that translates gin.Context to stdlib http patterns
// and delegates verification and settlement to the http package.
package gin

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	x402 "github.com/mark3labs/x402-hedera-go"
	x402http "github.com/mark3labs/x402-hedera-go/http"
	"github.com/mark3labs/x402-hedera-go/http/internal/helpers"
)

// Config is an alias for x402http.MiddlewareConfig for convenience.
type Config = x402http.MiddlewareConfig

// ProofContextKey is the gin context key for the settled payment proof.
const ProofContextKey = "x402_payment_proof"

// NewPaymentMiddleware creates a payment-gate middleware for Gin. Verify
// and settle both complete before the protected handler runs; on failure
// the chain is aborted with a 402 carrying the accepted requirements.
//
// Example usage:
//
//	config := gin.Config{
//	    Facilitator: &x402http.FacilitatorClient{BaseURL: "http://localhost:8402"},
//	    PaymentRequirements: []x402.PaymentRequirements{{
//	        Scheme:            "exact",
//	        Network:           "testnet",
//	        MaxAmountRequired: "150000000",
//	        Asset:             "HBAR",
//	        PayTo:             "0.0.2001",
//	        MaxTimeoutSeconds: 300,
//	    }},
//	}
//	r := gin.Default()
//	r.Use(ginx402.NewPaymentMiddleware(config))
func NewPaymentMiddleware(config Config) gin.HandlerFunc {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return func(c *gin.Context) {
		resource := config.Resource
		if resource == "" {
			resource = helpers.BuildResourceURL(c.Request)
		}

		paymentHeader := c.GetHeader("X-PAYMENT")
		if paymentHeader == "" {
			logger.Info("no payment header provided", "path", c.Request.URL.Path)
			c.JSON(http.StatusPaymentRequired, x402.PaymentRequired{
				X402Version: x402.X402Version,
				Error:       "Payment required",
				Resource:    resource,
				Accepts:     config.PaymentRequirements,
			})
			c.Abort()
			return
		}

		payment, err := helpers.ParsePaymentHeader(c.Request)
		if err != nil {
			logger.Warn("invalid payment header", "error", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payment header"})
			c.Abort()
			return
		}

		requirement, err := x402.FindMatchingRequirement(payment, config.PaymentRequirements)
		if err != nil {
			logger.Warn("no matching requirement", "error", err)
			c.JSON(http.StatusPaymentRequired, x402.PaymentRequired{
				X402Version: x402.X402Version,
				Error:       "No matching payment requirement",
				Resource:    resource,
				Accepts:     config.PaymentRequirements,
			})
			c.Abort()
			return
		}

		verifyResp, err := config.Facilitator.Verify(c.Request.Context(), *payment, *requirement)
		if err != nil {
			logger.Error("facilitator verification failed", "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Payment verification failed"})
			c.Abort()
			return
		}
		if !verifyResp.IsValid {
			logger.Warn("payment verification failed", "reason", verifyResp.InvalidReason)
			c.JSON(http.StatusPaymentRequired, x402.PaymentRequired{
				X402Version: x402.X402Version,
				Error:       verifyResp.InvalidReason,
				Resource:    resource,
				Accepts:     config.PaymentRequirements,
			})
			c.Abort()
			return
		}

		settleResp, err := config.Facilitator.Settle(c.Request.Context(), *payment, *requirement)
		if err != nil {
			logger.Error("settlement failed", "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Payment settlement failed"})
			c.Abort()
			return
		}
		if !settleResp.Success {
			logger.Warn("settlement unsuccessful", "reason", settleResp.ErrorReason)
			c.JSON(http.StatusPaymentRequired, x402.PaymentRequired{
				X402Version: x402.X402Version,
				Error:       settleResp.ErrorReason,
				Resource:    resource,
				Accepts:     config.PaymentRequirements,
			})
			c.Abort()
			return
		}

		logger.Info("payment settled", "transaction", settleResp.Transaction)

		if err := helpers.AddPaymentResponseHeader(c.Writer, settleResp); err != nil {
			logger.Warn("failed to add payment response header", "error", err)
		}

		c.Set(ProofContextKey, &x402.PaymentProof{
			Status:        "completed",
			TransactionID: settleResp.Transaction,
			Message:       "Payment settled: " + settleResp.Transaction,
			ReadyForQuery: true,
		})
		c.Next()
	}
}

// GetProofFromContext extracts the settled payment proof from a gin context.
func GetProofFromContext(c *gin.Context) *x402.PaymentProof {
	value, exists := c.Get(ProofContextKey)
	if !exists {
		return nil
	}
	proof, ok := value.(*x402.PaymentProof)
	if !ok {
		return nil
	}
	return proof
}
