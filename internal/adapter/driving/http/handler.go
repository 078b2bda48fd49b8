package httphandler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/echopad/echopad/internal/application"
	"github.com/echopad/echopad/internal/domain/port/driven"
)

// maxUploadBytes bounds the multipart form held in memory per request.
const maxUploadBytes = 32 << 20

// Handler is the HTTP driving adapter that serves the REST API.
type Handler struct {
	store   driven.TranscriptStore
	uploads *application.UploadService
	creds   *application.CredentialService
	logger  *slog.Logger
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(
	store driven.TranscriptStore,
	uploads *application.UploadService,
	creds *application.CredentialService,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		store:   store,
		uploads: uploads,
		creds:   creds,
		logger:  logger,
	}
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with logging and recovery middleware.
func NewServeMux(h *Handler, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/uploads", h.SubmitUpload)
	mux.HandleFunc("GET /api/v1/transcripts", h.ListTranscripts)
	mux.HandleFunc("GET /api/v1/transcripts/{id}", h.GetTranscript)
	mux.HandleFunc("PATCH /api/v1/transcripts/{id}", h.UpdateTranscript)
	mux.HandleFunc("DELETE /api/v1/transcripts/{id}", h.DeleteTranscript)
	mux.HandleFunc("PUT /api/v1/credential", h.PutCredential)
	mux.HandleFunc("DELETE /api/v1/credential", h.DeleteCredential)
	mux.HandleFunc("GET /api/v1/health", h.Health)

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, mux)
	wrapped = loggingMiddleware(logger, wrapped)

	return wrapped
}

// SubmitUpload accepts a multipart audio upload and returns 202 with the new
// record's id. Processing continues asynchronously; the caller observes the
// outcome through the transcript endpoints.
func (h *Handler) SubmitUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("audio_file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "audio_file field is required")
		return
	}
	defer file.Close()

	audio, err := io.ReadAll(file)
	if err != nil {
		h.logger.Error("failed to read upload body", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	id, err := h.uploads.Submit(r.Context(), header.Filename, audio, mimeType)
	if err != nil {
		switch {
		case errors.Is(err, application.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, "filename and audio data are required")
		case errors.Is(err, application.ErrUnauthorized):
			writeError(w, http.StatusUnauthorized, "sign-in required")
		case errors.Is(err, application.ErrRateLimited):
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
		default:
			h.logger.Error("failed to submit upload", "filename", header.Filename, "error", err)
			writeError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	writeJSON(w, http.StatusAccepted, UploadAcceptedResponse{ID: id, Status: "pending"})
}

// ListTranscripts returns all transcript records, most recent first.
func (h *Handler) ListTranscripts(w http.ResponseWriter, r *http.Request) {
	recs, err := h.store.ListAll(r.Context())
	if err != nil {
		h.logger.Error("failed to list transcripts", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]TranscriptResponse, 0, len(recs))
	for _, rec := range recs {
		resp = append(resp, toTranscriptResponse(rec))
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetTranscript returns a single transcript record by id.
func (h *Handler) GetTranscript(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	rec, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, driven.ErrRecordNotFound) {
			writeError(w, http.StatusNotFound, "transcript not found")
			return
		}
		h.logger.Error("failed to get transcript", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, toTranscriptResponse(*rec))
}

// UpdateTranscript applies a user edit to the record's filename and/or
// transcript text and returns the updated record.
func (h *Handler) UpdateTranscript(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req UpdateTranscriptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Filename == nil && req.Transcript == nil {
		writeError(w, http.StatusBadRequest, "nothing to update")
		return
	}

	if req.Filename != nil {
		if err := h.store.UpdateFilename(r.Context(), id, *req.Filename); err != nil {
			h.writeStoreError(w, id, err)
			return
		}
	}
	if req.Transcript != nil {
		if err := h.store.UpdateTranscript(r.Context(), id, *req.Transcript); err != nil {
			h.writeStoreError(w, id, err)
			return
		}
	}

	rec, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		h.writeStoreError(w, id, err)
		return
	}

	writeJSON(w, http.StatusOK, toTranscriptResponse(*rec))
}

// DeleteTranscript deletes exactly the identified record.
func (h *Handler) DeleteTranscript(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if err := h.store.Delete(r.Context(), id); err != nil {
		h.writeStoreError(w, id, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// PutCredential stores a bearer credential (sign-in).
func (h *Handler) PutCredential(w http.ResponseWriter, r *http.Request) {
	var req CredentialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.SubjectID == "" || req.Token == "" {
		writeError(w, http.StatusBadRequest, "subject_id and token are required")
		return
	}

	if err := h.creds.SignIn(r.Context(), req.SubjectID, req.Token); err != nil {
		if errors.Is(err, driven.ErrEncryptionKeyNotSet) {
			writeError(w, http.StatusServiceUnavailable, "credential persistence is not configured")
			return
		}
		h.logger.Error("failed to store credential", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// DeleteCredential deletes the stored credential (sign-out).
func (h *Handler) DeleteCredential(w http.ResponseWriter, r *http.Request) {
	if err := h.creds.SignOut(r.Context()); err != nil {
		h.logger.Error("failed to delete credential", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Health returns a simple health check response.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}

// writeStoreError maps a store error to the appropriate HTTP response.
func (h *Handler) writeStoreError(w http.ResponseWriter, id string, err error) {
	if errors.Is(err, driven.ErrRecordNotFound) {
		writeError(w, http.StatusNotFound, "transcript not found")
		return
	}
	h.logger.Error("transcript store operation failed", "id", id, "error", err)
	writeError(w, http.StatusInternalServerError, "internal server error")
}
