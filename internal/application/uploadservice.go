package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/echopad/echopad/internal/domain/model"
	"github.com/echopad/echopad/internal/domain/port/driven"
)

// UploadService is the upload/transcript lifecycle orchestrator. Submit
// gates the request (input, credential, rate limit), creates a pending
// record, and returns its id immediately; the network exchange runs on its
// own goroutine and ends in exactly one terminal transition. Failures after
// acceptance never propagate to the caller -- they are expressed only as
// record state.
type UploadService struct {
	store    driven.TranscriptStore
	speech   driven.SpeechClient
	creds    *CredentialService
	provider *CredentialProvider
	limiter  *RateLimiter
	notifier *Notifier
	logger   *slog.Logger

	inflight sync.WaitGroup
}

// NewUploadService creates an UploadService with all required dependencies.
func NewUploadService(
	store driven.TranscriptStore,
	speech driven.SpeechClient,
	creds *CredentialService,
	provider *CredentialProvider,
	limiter *RateLimiter,
	notifier *Notifier,
	logger *slog.Logger,
) *UploadService {
	return &UploadService{
		store:    store,
		speech:   speech,
		creds:    creds,
		provider: provider,
		limiter:  limiter,
		notifier: notifier,
		logger:   logger,
	}
}

// Submit accepts an upload and returns the new record's id. The caller does
// not wait for the exchange; it observes completion through the store or a
// Notifier subscription. Synchronous failures are ErrInvalidInput,
// ErrUnauthorized, and ErrRateLimited; each new submission of the same file
// creates a new, independent record.
func (s *UploadService) Submit(ctx context.Context, filename string, audio []byte, mimeType string) (string, error) {
	if filename == "" || len(audio) == 0 {
		return "", ErrInvalidInput
	}

	cred, ok := s.provider.Get()
	if !ok {
		return "", ErrUnauthorized
	}

	refreshed, err := s.creds.RefreshIfNeeded(ctx, cred)
	if err != nil {
		if errors.Is(err, ErrReauthRequired) {
			return "", ErrUnauthorized
		}
		return "", err
	}

	if !s.limiter.Allow(refreshed.SubjectID) {
		return "", ErrRateLimited
	}

	now := time.Now().UTC()
	rec := model.TranscriptRecord{
		ID:        uuid.NewString(),
		Filename:  filename,
		Status:    model.StatusPending,
		Words:     []model.WordSpan{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.store.Insert(ctx, rec); err != nil {
		return "", fmt.Errorf("create transcript record: %w", err)
	}

	s.logger.Info("upload accepted", "id", rec.ID, "filename", filename, "bytes", len(audio))

	// The exchange must outlive the submitting request, so it runs with the
	// cancellation stripped; the transport timeout still bounds it.
	s.inflight.Add(1)
	go s.process(context.WithoutCancel(ctx), rec.ID, driven.UploadRequest{
		Filename:    filename,
		Audio:       audio,
		MimeType:    mimeType,
		BearerToken: refreshed.BearerToken,
	})

	return rec.ID, nil
}

// Wait blocks until all in-flight uploads have reached a terminal state.
// Used by the composition root during shutdown and by tests.
func (s *UploadService) Wait() {
	s.inflight.Wait()
}

// process performs the network exchange and the single terminal transition.
// It is the failure-containment boundary: every error, including a panic,
// becomes an error-state record instead of escaping the goroutine.
func (s *UploadService) process(ctx context.Context, id string, req driven.UploadRequest) {
	defer s.inflight.Done()
	defer func() {
		if v := recover(); v != nil {
			s.logger.Error("upload panic recovered", "id", id, "panic", v)
			s.markError(ctx, id, fmt.Sprintf("internal error: %v", v), false)
		}
	}()

	result, err := s.speech.Transcribe(ctx, req)
	if err != nil {
		s.markError(ctx, id, errorMessage(err), isQuotaErr(err))
		return
	}

	if err := s.store.MarkSuccess(ctx, id, result.Transcript, result.Words); err != nil {
		s.logger.Error("mark success failed", "id", id, "error", err)
		return
	}

	s.logger.Info("transcription complete", "id", id, "words", len(result.Words))
	s.notifier.Publish(TranscriptEvent{ID: id, Status: model.StatusSuccess})
}

// markError records the terminal error transition and publishes the event.
// A record that is somehow already terminal is logged, not overwritten.
func (s *UploadService) markError(ctx context.Context, id, message string, quota bool) {
	if err := s.store.MarkError(ctx, id, message, quota); err != nil {
		s.logger.Error("mark error failed", "id", id, "error", err)
		return
	}

	s.logger.Info("transcription failed", "id", id, "message", message, "quota_exceeded", quota)
	s.notifier.Publish(TranscriptEvent{ID: id, Status: model.StatusError, QuotaExceeded: quota})
}

// errorMessage maps a transcription failure to the record's error message.
func errorMessage(err error) string {
	if errors.Is(err, driven.ErrMalformedResponse) {
		return "Invalid response format"
	}

	var quotaErr *driven.QuotaError
	if errors.As(err, &quotaErr) && quotaErr.Message == "" {
		return "Insufficient balance"
	}

	return err.Error()
}

func isQuotaErr(err error) bool {
	var quotaErr *driven.QuotaError
	return errors.As(err, &quotaErr)
}
