package secrets

import (
	"context"
	"os"

	atel "github.com/atelier-labs/atelier/pkg/atelier/v1/secrets"
)

// TokenEnvVar is the environment variable consulted for the backend API token.
const TokenEnvVar = "ATELIER_API_TOKEN"

// EnvProvider implements the secrets Provider interface, retrieving secrets
// from environment variables. The well-known api_token key maps to
// ATELIER_API_TOKEN; any other key is looked up verbatim.
type EnvProvider struct{}

// NewEnvProvider creates a new environment variable secrets provider.
func NewEnvProvider() *EnvProvider {
	return &EnvProvider{}
}

// GetSecret retrieves the value of an environment variable.
// It returns the value and true if the variable is set, otherwise empty string and false.
func (p *EnvProvider) GetSecret(_ context.Context, key string) (string, bool, error) {
	if key == atel.TokenKey {
		key = TokenEnvVar
	}
	value, found := os.LookupEnv(key)
	return value, found, nil
}

// Ensure EnvProvider implements the interface
var _ atel.Provider = (*EnvProvider)(nil)

// StaticProvider serves a fixed token, typically the one persisted in the
// prefs file. An empty token reads as not found.
type StaticProvider struct {
	token string
}

// NewStaticProvider creates a provider serving the given token.
func NewStaticProvider(token string) *StaticProvider {
	return &StaticProvider{token: token}
}

// GetSecret returns the fixed token for the well-known api_token key.
func (p *StaticProvider) GetSecret(_ context.Context, key string) (string, bool, error) {
	if key != atel.TokenKey || p.token == "" {
		return "", false, nil
	}
	return p.token, true, nil
}

var _ atel.Provider = (*StaticProvider)(nil)
