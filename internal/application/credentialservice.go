package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/echopad/echopad/internal/domain/model"
	"github.com/echopad/echopad/internal/domain/port/driven"
)

// minTokenLifetime is the remaining-lifetime floor below which a token is
// treated as expiring and refreshed proactively.
const minTokenLifetime = 300.0 // seconds

// CredentialService validates and refreshes the bearer credential that gates
// every upload. Validation fails closed: any doubt about the token (network
// error, malformed response, provider rejection, near expiry) counts as
// invalid.
type CredentialService struct {
	identity driven.IdentityClient
	store    driven.CredentialStore
	provider *CredentialProvider
	logger   *slog.Logger
}

// NewCredentialService creates a CredentialService with all required
// dependencies.
func NewCredentialService(
	identity driven.IdentityClient,
	store driven.CredentialStore,
	provider *CredentialProvider,
	logger *slog.Logger,
) *CredentialService {
	return &CredentialService{
		identity: identity,
		store:    store,
		provider: provider,
		logger:   logger,
	}
}

// Validate reports whether the token is currently accepted by the identity
// provider and not near expiry. Every negative outcome emits a security log
// entry with its reason.
func (s *CredentialService) Validate(ctx context.Context, token string) bool {
	info, err := s.identity.Introspect(ctx, token)
	if err != nil {
		s.logger.Warn("security event", "reason", "token_validation_error", "error", err)
		return false
	}

	if info.Error != "" {
		s.logger.Warn("security event", "reason", "invalid_token", "provider_error", info.Error)
		return false
	}

	if info.ExpiresIn < minTokenLifetime {
		s.logger.Warn("security event", "reason", "token_expiring_soon", "expires_in", info.ExpiresIn)
		return false
	}

	return true
}

// RefreshIfNeeded returns the credential unchanged when it validates.
// Otherwise it requests a non-interactive replacement, persists it, swaps
// it into the provider, and returns it. When no replacement can be obtained
// it returns ErrReauthRequired; callers must send the user back through
// sign-in rather than retry.
func (s *CredentialService) RefreshIfNeeded(ctx context.Context, cred model.Credential) (*model.Credential, error) {
	if s.Validate(ctx, cred.BearerToken) {
		out := cred
		return &out, nil
	}

	token, err := s.identity.RequestToken(ctx, cred.SubjectID)
	if err != nil {
		s.logger.Warn("security event", "reason", "token_refresh_failed", "subject", cred.SubjectID, "error", err)
		return nil, ErrReauthRequired
	}

	fresh := model.Credential{
		SubjectID:   cred.SubjectID,
		BearerToken: token,
		ObtainedAt:  time.Now().UTC(),
	}

	if err := s.store.Save(ctx, fresh); err != nil {
		return nil, fmt.Errorf("persist refreshed credential: %w", err)
	}
	s.provider.Replace(fresh)

	s.logger.Info("credential refreshed", "subject", fresh.SubjectID)
	return &fresh, nil
}

// SignIn stores a new credential and makes it current.
func (s *CredentialService) SignIn(ctx context.Context, subjectID, token string) error {
	cred := model.Credential{
		SubjectID:   subjectID,
		BearerToken: token,
		ObtainedAt:  time.Now().UTC(),
	}

	if err := s.store.Save(ctx, cred); err != nil {
		return fmt.Errorf("persist credential: %w", err)
	}
	s.provider.Replace(cred)

	s.logger.Info("credential stored", "subject", subjectID)
	return nil
}

// SignOut deletes the stored credential and clears the provider.
func (s *CredentialService) SignOut(ctx context.Context) error {
	if err := s.store.Delete(ctx); err != nil {
		return fmt.Errorf("delete credential: %w", err)
	}
	s.provider.Clear()

	s.logger.Info("credential deleted")
	return nil
}
