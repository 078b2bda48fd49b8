package sqlite

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"github.com/echopad/echopad/internal/domain/model"
	"github.com/echopad/echopad/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.CredentialStore = (*CredentialRepo)(nil)

// CredentialRepo is the SQLite implementation of the CredentialStore port.
// The bearer token is encrypted with AES-256-GCM before write and decrypted
// after read; a single row (id = 1) holds the current credential, so Save is
// a wholesale replacement.
type CredentialRepo struct {
	db  *DB
	key []byte // 32-byte AES-256 key; nil when encryption is disabled.
}

// NewCredentialRepo creates a new CredentialRepo. key must be 32 bytes for
// AES-256-GCM, or nil to disable credential storage (all operations will
// return ErrEncryptionKeyNotSet).
func NewCredentialRepo(db *DB, key []byte) *CredentialRepo {
	return &CredentialRepo{db: db, key: key}
}

// Save stores or replaces the credential. The previous credential, if any,
// is overwritten wholesale.
func (r *CredentialRepo) Save(ctx context.Context, cred model.Credential) error {
	encrypted, err := r.encrypt(cred.BearerToken)
	if err != nil {
		return err
	}

	const query = `
		INSERT INTO credentials (id, subject_id, bearer_token, obtained_at)
		VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			subject_id = excluded.subject_id,
			bearer_token = excluded.bearer_token,
			obtained_at = excluded.obtained_at
	`
	_, err = r.db.Writer.ExecContext(ctx, query, cred.SubjectID, encrypted, formatTime(cred.ObtainedAt))
	if err != nil {
		return fmt.Errorf("save credential: %w", err)
	}
	return nil
}

// Load retrieves the stored credential with the bearer token decrypted.
// Returns (nil, nil) when no credential is stored.
func (r *CredentialRepo) Load(ctx context.Context) (*model.Credential, error) {
	if r.key == nil {
		return nil, driven.ErrEncryptionKeyNotSet
	}

	const query = `SELECT subject_id, bearer_token, obtained_at FROM credentials WHERE id = 1`

	var cred model.Credential
	var encrypted, obtainedAt string
	err := r.db.Reader.QueryRowContext(ctx, query).Scan(&cred.SubjectID, &encrypted, &obtainedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load credential: %w", err)
	}

	cred.BearerToken, err = r.decrypt(encrypted)
	if err != nil {
		return nil, fmt.Errorf("decrypt credential: %w", err)
	}

	cred.ObtainedAt, err = parseTime(obtainedAt)
	if err != nil {
		return nil, fmt.Errorf("parse obtained_at: %w", err)
	}

	return &cred, nil
}

// Delete removes the stored credential. Deleting when none exists is not an
// error; sign-out is idempotent.
func (r *CredentialRepo) Delete(ctx context.Context) error {
	const query = `DELETE FROM credentials WHERE id = 1`
	if _, err := r.db.Writer.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("delete credential: %w", err)
	}
	return nil
}

// encrypt encrypts plaintext using AES-256-GCM and returns a base64-encoded
// string containing the nonce (12 bytes) prepended to the ciphertext.
func (r *CredentialRepo) encrypt(plaintext string) (string, error) {
	if r.key == nil {
		return "", driven.ErrEncryptionKeyNotSet
	}

	block, err := aes.NewCipher(r.key)
	if err != nil {
		return "", fmt.Errorf("aes.NewCipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("cipher.NewGCM: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("rand nonce: %w", err)
	}

	// Seal appends the ciphertext to nonce, producing: nonce || ciphertext || tag.
	ciphertext := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// decrypt decrypts a base64-encoded AES-256-GCM ciphertext.
func (r *CredentialRepo) decrypt(encoded string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("base64 decode: %w", err)
	}

	block, err := aes.NewCipher(r.key)
	if err != nil {
		return "", fmt.Errorf("aes.NewCipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("cipher.NewGCM: %w", err)
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return "", errors.New("ciphertext too short")
	}

	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("gcm.Open: %w", err)
	}

	return string(plaintext), nil
}
