package facilitator

import (
	"fmt"
	"os"

	x402 "github.com/mark3labs/x402-hedera-go"
)

// Environment variable names for facilitator configuration.
const (
	EnvNetwork     = "X402H_NETWORK"
	EnvOperatorID  = "X402H_OPERATOR_ID"
	EnvOperatorKey = "X402H_OPERATOR_KEY"
	EnvListenAddr  = "X402H_LISTEN_ADDR"
)

// Config holds facilitator service configuration. The operator account
// both pays network fees and counter-signs wallet-authorized transfers.
type Config struct {
	// Network is the Hedera network to settle on.
	Network string

	// OperatorAccountID is the fee-paying operator account.
	OperatorAccountID string

	// OperatorKey is the operator's private key string. May be empty for
	// verify-only deployments; create-payload and settle then fail with
	// ErrFacilitatorConfig.
	OperatorKey string

	// ListenAddr is the HTTP listen address for the facilitator server.
	ListenAddr string
}

// FromEnv loads facilitator configuration from the environment.
func FromEnv() (*Config, error) {
	cfg := &Config{
		Network:           os.Getenv(EnvNetwork),
		OperatorAccountID: os.Getenv(EnvOperatorID),
		OperatorKey:       os.Getenv(EnvOperatorKey),
		ListenAddr:        os.Getenv(EnvListenAddr),
	}
	if cfg.Network == "" {
		cfg.Network = x402.NetworkTestnet
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8402"
	}
	return cfg, cfg.Validate()
}

// Validate checks the configuration is usable.
func (c *Config) Validate() error {
	if err := x402.ValidateNetwork(c.Network); err != nil {
		return err
	}
	if c.OperatorAccountID == "" {
		return fmt.Errorf("%w: operator account ID is not set", x402.ErrFacilitatorConfig)
	}
	if !x402.IsAccountID(c.OperatorAccountID) {
		return fmt.Errorf("%w: operator account ID %q is malformed", x402.ErrFacilitatorConfig, c.OperatorAccountID)
	}
	return nil
}
