package x402hedera

import (
	"fmt"
	"regexp"
)

// Hedera network identifiers.
const (
	// NetworkTestnet is the Hedera test network.
	NetworkTestnet = "testnet"

	// NetworkMainnet is the Hedera main network.
	NetworkMainnet = "mainnet"
)

// accountIDRegex matches Hedera account IDs in shard.realm.num form.
var accountIDRegex = regexp.MustCompile(`^\d+\.\d+\.\d+$`)

// evmAliasRegex matches EVM-style account aliases (0x followed by 40 hex chars).
var evmAliasRegex = regexp.MustCompile(`^0x[a-fA-F0-9]{40}$`)

// NetworkConfig holds configuration for a Hedera network.
type NetworkConfig struct {
	// Network is the network identifier.
	Network string

	// MirrorBaseURL is the mirror node REST API base URL, used for
	// account-alias resolution.
	MirrorBaseURL string

	// NodeAccountID is the consensus node the transfer is addressed to.
	// Pinning a node lets transactions freeze without a live client.
	NodeAccountID string
}

// Predefined network configurations.
var (
	// Testnet is the configuration for the Hedera test network.
	Testnet = NetworkConfig{
		Network:       NetworkTestnet,
		MirrorBaseURL: "https://testnet.mirrornode.hedera.com",
		NodeAccountID: "0.0.3",
	}

	// Mainnet is the configuration for the Hedera main network.
	Mainnet = NetworkConfig{
		Network:       NetworkMainnet,
		MirrorBaseURL: "https://mainnet-public.mirrornode.hedera.com",
		NodeAccountID: "0.0.3",
	}
)

// networkConfigByName maps network identifiers to configurations.
var networkConfigByName = map[string]NetworkConfig{
	NetworkTestnet: Testnet,
	NetworkMainnet: Mainnet,
}

// GetNetworkConfig returns the configuration for a network identifier.
// Returns ErrUnsupportedNetwork if the network is not recognized.
func GetNetworkConfig(network string) (NetworkConfig, error) {
	config, ok := networkConfigByName[network]
	if !ok {
		return NetworkConfig{}, fmt.Errorf("%w: %s", ErrUnsupportedNetwork, network)
	}
	return config, nil
}

// ValidateNetwork checks that a network identifier is one of the recognized
// Hedera networks.
func ValidateNetwork(network string) error {
	if network == "" {
		return fmt.Errorf("%w: network cannot be empty", ErrUnsupportedNetwork)
	}
	if _, ok := networkConfigByName[network]; !ok {
		return fmt.Errorf("%w: %s", ErrUnsupportedNetwork, network)
	}
	return nil
}

// IsAccountID reports whether s is a well-formed shard.realm.num account ID.
func IsAccountID(s string) bool {
	return accountIDRegex.MatchString(s)
}

// IsEVMAlias reports whether s looks like an EVM-style account alias that
// needs mirror-node resolution before it can be used in a transfer.
func IsEVMAlias(s string) bool {
	return evmAliasRegex.MatchString(s)
}
