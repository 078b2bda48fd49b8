package driven

import (
	"context"
	"errors"

	"github.com/echopad/echopad/internal/domain/model"
)

// ErrRecordNotFound is returned by store operations that address a record
// which does not exist.
var ErrRecordNotFound = errors.New("transcript record not found")

// ErrAlreadyTerminal is returned when a terminal transition is attempted on
// a record that has already left the pending state. Status transitions are
// monotonic: pending -> success | error, exactly once.
var ErrAlreadyTerminal = errors.New("transcript record already in terminal state")

// TranscriptStore defines the driven port for transcript record persistence.
//
// MarkSuccess and MarkError are the only paths out of the pending state and
// are guarded: they fail with ErrAlreadyTerminal rather than overwrite a
// terminal record. UpdateFilename and UpdateTranscript are the explicit
// user-edit operations and never change the record's status.
type TranscriptStore interface {
	Insert(ctx context.Context, rec model.TranscriptRecord) error
	GetByID(ctx context.Context, id string) (*model.TranscriptRecord, error)
	ListAll(ctx context.Context) ([]model.TranscriptRecord, error)
	MarkSuccess(ctx context.Context, id, transcript string, words []model.WordSpan) error
	MarkError(ctx context.Context, id, message string, quotaExceeded bool) error
	UpdateFilename(ctx context.Context, id, filename string) error
	UpdateTranscript(ctx context.Context, id, transcript string) error
	Delete(ctx context.Context, id string) error
}
