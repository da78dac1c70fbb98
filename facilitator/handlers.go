package facilitator

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	x402 "github.com/mark3labs/x402-hedera-go"
)

// RegisterRoutes mounts the facilitator HTTP interface on a gin router:
//
//	GET  /facilitator/supported
//	POST /facilitator/create-payload
//	POST /facilitator/verify
//	POST /facilitator/settle
//
// Verify and settle report protocol failures in the response body with
// status 200; HTTP error codes are reserved for malformed requests and
// facilitator faults.
func RegisterRoutes(router gin.IRouter, svc Interface) {
	group := router.Group("/facilitator")
	group.GET("/supported", handleSupported(svc))
	group.POST("/create-payload", handleCreatePayload(svc))
	group.POST("/verify", handleVerify(svc))
	group.POST("/settle", handleSettle(svc))
}

func handleSupported(svc Interface) gin.HandlerFunc {
	return func(c *gin.Context) {
		supported, err := svc.Supported(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, supported)
	}
}

func handleCreatePayload(svc Interface) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req x402.CreatePayloadRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
			return
		}

		payload, err := svc.CreatePayload(c.Request.Context(), &req)
		if err != nil {
			c.JSON(statusForError(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, payload)
	}
}

func handleVerify(svc Interface) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req x402.VerifyRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
			return
		}

		resp, err := svc.Verify(c.Request.Context(), req.PaymentPayload, req.PaymentRequirements)
		if err != nil {
			c.JSON(statusForError(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

func handleSettle(svc Interface) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req x402.SettleRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
			return
		}

		resp, err := svc.Settle(c.Request.Context(), req.PaymentPayload, req.PaymentRequirements)
		if err != nil {
			c.JSON(statusForError(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

// statusForError maps sentinel errors to HTTP status codes. Client-side
// problems get 400; facilitator faults get 500.
func statusForError(err error) int {
	switch {
	case errors.Is(err, x402.ErrValidation),
		errors.Is(err, x402.ErrInvalidRequirements),
		errors.Is(err, x402.ErrMissingAuthorization),
		errors.Is(err, x402.ErrSignatureMismatch),
		errors.Is(err, x402.ErrUnsupportedNetwork),
		errors.Is(err, x402.ErrUnsupportedAsset),
		errors.Is(err, x402.ErrUnsupportedVersion):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
