package facilitator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	hedera "github.com/hashgraph/hedera-sdk-go/v2"

	x402 "github.com/mark3labs/x402-hedera-go"
)

// Service is the in-process facilitator implementation.
type Service struct {
	cfg        *Config
	operatorID hedera.AccountID

	// operatorKey is nil in verify-only deployments.
	operatorKey *hedera.PrivateKey

	executor LedgerExecutor
	settled  *settledStore
	logger   *slog.Logger
	now      func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithExecutor overrides the ledger executor. Required in tests; when not
// set, a HederaExecutor is built from the config.
func WithExecutor(executor LedgerExecutor) ServiceOption {
	return func(s *Service) { s.executor = executor }
}

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) { s.logger = logger }
}

// WithNow overrides the service clock.
func WithNow(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// NewService constructs a facilitator service from configuration.
func NewService(cfg *Config, opts ...ServiceOption) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	operatorID, err := hedera.AccountIDFromString(cfg.OperatorAccountID)
	if err != nil {
		return nil, fmt.Errorf("%w: operator account: %v", x402.ErrFacilitatorConfig, err)
	}

	s := &Service{
		cfg:        cfg,
		operatorID: operatorID,
		settled:    newSettledStore(),
		logger:     slog.Default(),
		now:        time.Now,
	}

	if cfg.OperatorKey != "" {
		key, err := hedera.PrivateKeyFromString(cfg.OperatorKey)
		if err != nil {
			return nil, fmt.Errorf("%w: operator key: %v", x402.ErrFacilitatorConfig, err)
		}
		s.operatorKey = &key
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.executor == nil {
		executor, err := NewHederaExecutor(cfg)
		if err != nil {
			return nil, err
		}
		s.executor = executor
	}

	return s, nil
}

// Supported implements Interface. The published kind carries the operator
// account as feePayer so clients can scope transaction IDs correctly.
func (s *Service) Supported(_ context.Context) (*x402.SupportedResponse, error) {
	return &x402.SupportedResponse{
		Kinds: []x402.SupportedKind{
			{
				X402Version: x402.X402Version,
				Scheme:      "exact",
				Network:     s.cfg.Network,
				Extra: map[string]interface{}{
					"feePayer": s.cfg.OperatorAccountID,
				},
			},
		},
	}, nil
}
