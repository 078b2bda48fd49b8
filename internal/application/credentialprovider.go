package application

import (
	"sync"

	"github.com/echopad/echopad/internal/domain/model"
)

// CredentialProvider enables runtime hot-swap of the current credential.
// It holds a mutex-protected copy, allowing sign-in and token refresh to
// take effect without restarting the application. Reads always return a
// copy; the stored credential is never shared by reference.
type CredentialProvider struct {
	mu   sync.RWMutex
	cred *model.Credential
}

// NewCredentialProvider creates a provider seeded with the given credential.
// cred may be nil when no credential is available at startup.
func NewCredentialProvider(cred *model.Credential) *CredentialProvider {
	return &CredentialProvider{cred: cred}
}

// Get returns a copy of the current credential. ok is false when no
// credential is held.
func (p *CredentialProvider) Get() (model.Credential, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.cred == nil {
		return model.Credential{}, false
	}
	return *p.cred, true
}

// Replace swaps the held credential wholesale. Used on sign-in and on
// successful token refresh.
func (p *CredentialProvider) Replace(cred model.Credential) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cred = &cred
}

// Clear drops the held credential. Used on sign-out.
func (p *CredentialProvider) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cred = nil
}
