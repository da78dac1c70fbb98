package transfer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	hedera "github.com/hashgraph/hedera-sdk-go/v2"
)

// AccountResolver resolves an alias-derived account identifier to a Hedera
// account ID. Implementations may consult external services; the mirror-node
// implementation is the default.
type AccountResolver interface {
	Resolve(ctx context.Context, alias string) (hedera.AccountID, error)
}

// MirrorResolver resolves EVM-style aliases via the mirror node REST API.
type MirrorResolver struct {
	baseURL string
	client  *http.Client
}

// NewMirrorResolver creates a resolver against a mirror node base URL.
func NewMirrorResolver(baseURL string) *MirrorResolver {
	return &MirrorResolver{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// mirrorAccount is the subset of the mirror node account response we read.
type mirrorAccount struct {
	Account string `json:"account"`
}

// Resolve looks up /api/v1/accounts/{alias} and returns the account ID.
func (m *MirrorResolver) Resolve(ctx context.Context, alias string) (hedera.AccountID, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.baseURL+"/api/v1/accounts/"+alias, nil)
	if err != nil {
		return hedera.AccountID{}, fmt.Errorf("failed to create mirror request: %w", err)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return hedera.AccountID{}, fmt.Errorf("mirror node unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return hedera.AccountID{}, fmt.Errorf("mirror node returned status %d for alias %s", resp.StatusCode, alias)
	}

	var account mirrorAccount
	if err := json.NewDecoder(resp.Body).Decode(&account); err != nil {
		return hedera.AccountID{}, fmt.Errorf("failed to decode mirror response: %w", err)
	}
	if account.Account == "" {
		return hedera.AccountID{}, fmt.Errorf("mirror node response missing account for alias %s", alias)
	}

	return hedera.AccountIDFromString(account.Account)
}
