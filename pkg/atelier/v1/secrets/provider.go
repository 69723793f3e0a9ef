package secrets

import "context"

// Provider defines the interface for retrieving secrets, most importantly the
// backend API token attached to every HTTP request.
// Implementations could fetch secrets from environment variables, the prefs
// file, a keychain, etc.
type Provider interface {
	// GetSecret retrieves the value of a secret identified by the given key.
	// Returns the secret value and true if found, or an empty string and false
	// if not found. Returns an error if retrieval fails for reasons other than
	// not found (e.g., permissions, backend connection issues).
	// The context can be used for cancellation or passing request-scoped information.
	GetSecret(ctx context.Context, key string) (string, bool, error)
}

// TokenKey is the well-known secret key under which providers expose the
// backend API token.
const TokenKey = "api_token"
