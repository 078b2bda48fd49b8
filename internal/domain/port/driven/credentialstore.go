package driven

import (
	"context"
	"errors"

	"github.com/echopad/echopad/internal/domain/model"
)

// ErrEncryptionKeyNotSet is returned by credential operations when no
// encryption key was configured. Credentials are never stored in plaintext.
var ErrEncryptionKeyNotSet = errors.New("credential encryption key not set")

// CredentialStore defines the driven port for durable credential storage.
// At most one credential exists at a time; Save replaces it wholesale.
// Load returns nil (no error) when no credential is stored.
type CredentialStore interface {
	Save(ctx context.Context, cred model.Credential) error
	Load(ctx context.Context) (*model.Credential, error)
	Delete(ctx context.Context) error
}
