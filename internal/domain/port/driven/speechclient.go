package driven

import (
	"context"
	"errors"
	"fmt"

	"github.com/echopad/echopad/internal/domain/model"
)

// ErrMalformedResponse is returned when the transcription service answered
// with a success status but the body could not be normalized, even after the
// best-effort repair pass.
var ErrMalformedResponse = errors.New("Invalid response format")

// QuotaError is the server-reported insufficient-balance condition. It is
// distinct from ServerError so callers can present a dedicated remediation
// path instead of a generic failure message.
type QuotaError struct {
	Message string
}

func (e *QuotaError) Error() string {
	return e.Message
}

// ServerError is a non-success HTTP response from the transcription service.
// Message carries the server-provided explanation when one was parseable,
// otherwise a generic "HTTP <status>" string.
type ServerError struct {
	StatusCode int
	Message    string
}

func (e *ServerError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

// UploadRequest is a single transcription exchange: one audio file uploaded
// under the caller's bearer token.
type UploadRequest struct {
	Filename    string
	Audio       []byte
	MimeType    string
	BearerToken string
}

// SpeechClient defines the driven port for the external transcription
// service. Transcribe performs exactly one POST; retries, if any, are the
// caller's decision (the upload orchestrator never retries).
type SpeechClient interface {
	Transcribe(ctx context.Context, req UploadRequest) (*model.TranscriptionResult, error)
}
