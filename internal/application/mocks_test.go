package application_test

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/echopad/echopad/internal/domain/model"
	"github.com/echopad/echopad/internal/domain/port/driven"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- Mock implementations ---

// memTranscriptStore is a mutex-guarded in-memory TranscriptStore that
// enforces the same guarded terminal transitions as the SQLite repo.
type memTranscriptStore struct {
	mu      sync.Mutex
	records map[string]model.TranscriptRecord
	order   []string
}

func newMemTranscriptStore() *memTranscriptStore {
	return &memTranscriptStore{records: make(map[string]model.TranscriptRecord)}
}

func (m *memTranscriptStore) Insert(_ context.Context, rec model.TranscriptRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[rec.ID] = rec
	m.order = append(m.order, rec.ID)
	return nil
}

func (m *memTranscriptStore) GetByID(_ context.Context, id string) (*model.TranscriptRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return nil, driven.ErrRecordNotFound
	}
	return &rec, nil
}

func (m *memTranscriptStore) ListAll(_ context.Context) ([]model.TranscriptRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	recs := make([]model.TranscriptRecord, 0, len(m.order))
	for i := len(m.order) - 1; i >= 0; i-- {
		recs = append(recs, m.records[m.order[i]])
	}
	return recs, nil
}

func (m *memTranscriptStore) MarkSuccess(_ context.Context, id, transcript string, words []model.WordSpan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return driven.ErrRecordNotFound
	}
	if rec.Status != model.StatusPending {
		return driven.ErrAlreadyTerminal
	}
	rec.Status = model.StatusSuccess
	rec.Transcript = transcript
	rec.Words = words
	m.records[id] = rec
	return nil
}

func (m *memTranscriptStore) MarkError(_ context.Context, id, message string, quota bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return driven.ErrRecordNotFound
	}
	if rec.Status != model.StatusPending {
		return driven.ErrAlreadyTerminal
	}
	rec.Status = model.StatusError
	rec.ErrorMessage = message
	rec.QuotaExceeded = quota
	m.records[id] = rec
	return nil
}

func (m *memTranscriptStore) UpdateFilename(_ context.Context, id, filename string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return driven.ErrRecordNotFound
	}
	rec.Filename = filename
	m.records[id] = rec
	return nil
}

func (m *memTranscriptStore) UpdateTranscript(_ context.Context, id, transcript string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return driven.ErrRecordNotFound
	}
	rec.Transcript = transcript
	m.records[id] = rec
	return nil
}

func (m *memTranscriptStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[id]; !ok {
		return driven.ErrRecordNotFound
	}
	delete(m.records, id)
	for i, rid := range m.order {
		if rid == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

// mockSpeechClient delegates to a configurable function.
type mockSpeechClient struct {
	transcribe func(ctx context.Context, req driven.UploadRequest) (*model.TranscriptionResult, error)
}

func (m *mockSpeechClient) Transcribe(ctx context.Context, req driven.UploadRequest) (*model.TranscriptionResult, error) {
	return m.transcribe(ctx, req)
}

// mockIdentityClient delegates to configurable functions; nil funcs behave
// as "token valid" / "refresh unavailable".
type mockIdentityClient struct {
	introspect   func(ctx context.Context, token string) (*driven.TokenInfo, error)
	requestToken func(ctx context.Context, subjectID string) (string, error)
}

func (m *mockIdentityClient) Introspect(ctx context.Context, token string) (*driven.TokenInfo, error) {
	if m.introspect == nil {
		return &driven.TokenInfo{ExpiresIn: 3600}, nil
	}
	return m.introspect(ctx, token)
}

func (m *mockIdentityClient) RequestToken(ctx context.Context, subjectID string) (string, error) {
	if m.requestToken == nil {
		return "", context.Canceled
	}
	return m.requestToken(ctx, subjectID)
}

// memCredentialStore is an in-memory CredentialStore.
type memCredentialStore struct {
	mu   sync.Mutex
	cred *model.Credential
}

func (m *memCredentialStore) Save(_ context.Context, cred model.Credential) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cred = &cred
	return nil
}

func (m *memCredentialStore) Load(_ context.Context) (*model.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cred == nil {
		return nil, nil
	}
	out := *m.cred
	return &out, nil
}

func (m *memCredentialStore) Delete(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cred = nil
	return nil
}
