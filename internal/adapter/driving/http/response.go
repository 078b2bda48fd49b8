package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/echopad/echopad/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// UploadAcceptedResponse is returned when an upload has been accepted for
// asynchronous processing.
type UploadAcceptedResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// TranscriptResponse is the JSON representation of a transcript record.
type TranscriptResponse struct {
	ID            string           `json:"id"`
	Filename      string           `json:"filename"`
	Status        string           `json:"status"`
	Transcript    string           `json:"transcript"`
	Words         []model.WordSpan `json:"words"`
	ErrorMessage  string           `json:"error_message,omitempty"`
	QuotaExceeded bool             `json:"quota_exceeded"`
	CreatedAt     string           `json:"created_at"`
	UpdatedAt     string           `json:"updated_at"`
}

// toTranscriptResponse converts a domain record to its JSON representation.
func toTranscriptResponse(rec model.TranscriptRecord) TranscriptResponse {
	words := rec.Words
	if words == nil {
		words = []model.WordSpan{}
	}
	return TranscriptResponse{
		ID:            rec.ID,
		Filename:      rec.Filename,
		Status:        string(rec.Status),
		Transcript:    rec.Transcript,
		Words:         words,
		ErrorMessage:  rec.ErrorMessage,
		QuotaExceeded: rec.QuotaExceeded,
		CreatedAt:     rec.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:     rec.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// UpdateTranscriptRequest is the PATCH body for user edits. Nil fields are
// left unchanged; at least one must be present.
type UpdateTranscriptRequest struct {
	Filename   *string `json:"filename"`
	Transcript *string `json:"transcript"`
}

// CredentialRequest is the PUT body for storing a bearer credential.
type CredentialRequest struct {
	SubjectID string `json:"subject_id"`
	Token     string `json:"token"`
}

// HealthResponse is the health check response body.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}
