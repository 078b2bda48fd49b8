package driven

import "context"

// TokenInfo is the identity provider's introspection verdict for a bearer
// token. Error is non-empty when the provider rejected the token; ExpiresIn
// is the remaining lifetime in seconds when it accepted it.
type TokenInfo struct {
	Error     string
	ExpiresIn float64
}

// IdentityClient defines the driven port for the external identity provider.
// Introspect checks whether a token is currently accepted; RequestToken asks
// for a replacement token non-interactively (no user prompt).
type IdentityClient interface {
	Introspect(ctx context.Context, token string) (*TokenInfo, error)
	RequestToken(ctx context.Context, subjectID string) (string, error)
}
