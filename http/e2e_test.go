package http

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	hedera "github.com/hashgraph/hedera-sdk-go/v2"

	x402 "github.com/mark3labs/x402-hedera-go"
	"github.com/mark3labs/x402-hedera-go/authorizers/directkey"
	"github.com/mark3labs/x402-hedera-go/facilitator"
	"github.com/mark3labs/x402-hedera-go/transfer"
	"github.com/mark3labs/x402-hedera-go/vault"
)

// recordingExecutor settles without a ledger and counts executions.
type recordingExecutor struct {
	calls int
}

func (r *recordingExecutor) Execute(_ context.Context, tx *hedera.TransferTransaction) (string, error) {
	r.calls++
	return tx.GetTransactionID().String(), nil
}

// startFacilitator runs a facilitator service behind a gin test server.
func startFacilitator(t *testing.T, executor facilitator.LedgerExecutor) *httptest.Server {
	t.Helper()

	operatorKey, err := hedera.PrivateKeyGenerateEd25519()
	if err != nil {
		t.Fatalf("generate operator key: %v", err)
	}
	svc, err := facilitator.NewService(&facilitator.Config{
		Network:           x402.NetworkTestnet,
		OperatorAccountID: "0.0.3001",
		OperatorKey:       operatorKey.String(),
	},
		facilitator.WithExecutor(executor),
		facilitator.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}

	gin.SetMode(gin.TestMode)
	router := gin.New()
	facilitator.RegisterRoutes(router, svc)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server
}

// payingClient builds an auto-paying HTTP client with a vaulted key.
func payingClient(t *testing.T, facilitatorURL string) *Client {
	t.Helper()

	payerKey, err := hedera.PrivateKeyGenerateEd25519()
	if err != nil {
		t.Fatalf("generate payer key: %v", err)
	}

	session := vault.NewSession(vault.NewMemoryStore())
	t.Cleanup(session.Close)
	if _, err := session.ImportKey("0.0.1001", payerKey.String(), "correct horse battery", "correct horse battery"); err != nil {
		t.Fatalf("ImportKey() error = %v", err)
	}

	builder, err := transfer.NewBuilder(x402.NetworkTestnet)
	if err != nil {
		t.Fatalf("NewBuilder() error = %v", err)
	}
	authorizer, err := directkey.NewAuthorizer(builder, session, func(context.Context) (string, error) {
		return "correct horse battery", nil
	})
	if err != nil {
		t.Fatalf("NewAuthorizer() error = %v", err)
	}

	client, err := NewClient(
		WithFacilitator(&FacilitatorClient{BaseURL: facilitatorURL}),
		WithAuthorizer(authorizer),
	)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return client
}

func TestEndToEndPaymentFlow(t *testing.T) {
	executor := &recordingExecutor{}
	facServer := startFacilitator(t, executor)
	facClient := &FacilitatorClient{BaseURL: facServer.URL}

	requirements := []x402.PaymentRequirements{{
		Scheme:            "exact",
		Network:           x402.NetworkTestnet,
		MaxAmountRequired: "150000000",
		Asset:             x402.AssetHbar,
		PayTo:             "0.0.2001",
		Resource:          "/premium",
		MaxTimeoutSeconds: 300,
	}}
	enriched, err := facClient.EnrichRequirements(context.Background(), requirements)
	if err != nil {
		t.Fatalf("EnrichRequirements() error = %v", err)
	}
	if enriched[0].Extra["feePayer"] != "0.0.3001" {
		t.Fatalf("enrichment did not pick up the operator fee payer: %v", enriched[0].Extra)
	}

	handlerRan := false
	gate := NewPaymentMiddleware(MiddlewareConfig{
		Facilitator:         facClient,
		PaymentRequirements: enriched,
		Resource:            "/premium",
		Logger:              slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	resourceServer := httptest.NewServer(gate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerRan = true
		proof := GetProofFromContext(r.Context())
		if err := x402.RequireProof(proof); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Write([]byte("premium data"))
	})))
	defer resourceServer.Close()

	client := payingClient(t, facServer.URL)
	resp, err := client.Get(resourceServer.URL + "/premium")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("status = %d, body = %s", resp.StatusCode, body)
	}
	if !handlerRan {
		t.Fatal("gated handler never ran")
	}
	if executor.calls != 1 {
		t.Errorf("ledger executed %d times; want 1", executor.calls)
	}

	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "premium data") {
		t.Errorf("body = %s", body)
	}

	settlement := GetSettlement(resp)
	if settlement == nil || !settlement.Success {
		t.Error("response carries no successful settlement header")
	}
}

func TestEndToEndRejectsForeignFeePayer(t *testing.T) {
	executor := &recordingExecutor{}
	facServer := startFacilitator(t, executor)
	facClient := &FacilitatorClient{BaseURL: facServer.URL}

	// The resource server demands a fee payer the facilitator does not
	// operate; the payment the client builds can never verify.
	requirements := []x402.PaymentRequirements{{
		Scheme:            "exact",
		Network:           x402.NetworkTestnet,
		MaxAmountRequired: "150000000",
		Asset:             x402.AssetHbar,
		PayTo:             "0.0.2001",
		Resource:          "/premium",
		MaxTimeoutSeconds: 300,
		Extra:             map[string]any{"feePayer": "0.0.9999"},
	}}

	handlerRan := false
	gate := NewPaymentMiddleware(MiddlewareConfig{
		Facilitator:         facClient,
		PaymentRequirements: requirements,
		Resource:            "/premium",
		Logger:              slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	resourceServer := httptest.NewServer(gate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerRan = true
	})))
	defer resourceServer.Close()

	client := payingClient(t, facServer.URL)
	resp, err := client.Get(resourceServer.URL + "/premium")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusPaymentRequired {
		t.Fatalf("status = %d; want 402", resp.StatusCode)
	}
	if handlerRan {
		t.Error("gated handler ran on an unverifiable payment")
	}
	if executor.calls != 0 {
		t.Errorf("ledger executed %d times; want 0", executor.calls)
	}
}
