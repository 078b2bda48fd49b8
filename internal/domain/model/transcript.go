package model

import "time"

// TranscriptStatus represents the lifecycle state of a transcription job.
// A record starts pending and transitions exactly once to success or error;
// terminal states are never left.
type TranscriptStatus string

const (
	StatusPending TranscriptStatus = "pending"
	StatusSuccess TranscriptStatus = "success"
	StatusError   TranscriptStatus = "error"
)

// IsTerminal reports whether no further automatic transition can occur.
func (s TranscriptStatus) IsTerminal() bool {
	return s == StatusSuccess || s == StatusError
}

// WordSpan is a single recognized token with optional timing. Start and End
// are seconds from the beginning of the audio; nil means the service did not
// report timing for this word. Unknown timing is valid and must not be
// collapsed into a zero offset.
type WordSpan struct {
	Text  string   `json:"word"`
	Start *float64 `json:"start"`
	End   *float64 `json:"end"`
}

// TranscriptionResult is the canonical shape produced by response
// normalization: a transcript string plus the ordered word list.
type TranscriptionResult struct {
	Transcript string
	Words      []WordSpan
}

// TranscriptRecord is a single tracked transcription job.
type TranscriptRecord struct {
	ID            string
	Filename      string
	Status        TranscriptStatus
	Transcript    string
	Words         []WordSpan
	ErrorMessage  string
	QuotaExceeded bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
