// Package speechapi implements the SpeechClient port against the external
// transcription service's multipart upload endpoint.
package speechapi

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/echopad/echopad/internal/domain/model"
	"github.com/echopad/echopad/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.SpeechClient = (*Client)(nil)

// Config contains the transcription client configuration.
type Config struct {
	Endpoint string
	Timeout  time.Duration
}

// Client performs the multipart exchange with the transcription service.
// One POST per Transcribe call; the orchestrator owns the no-retry policy.
type Client struct {
	config     Config
	httpClient *http.Client
}

// NewClient creates a transcription client. The HTTP client timeout is the
// only deadline imposed on an exchange; a stalled request is bounded here,
// not by the orchestrator.
func NewClient(config Config) (*Client, error) {
	if config.Endpoint == "" {
		return nil, fmt.Errorf("endpoint cannot be empty")
	}
	if config.Timeout <= 0 {
		config.Timeout = 60 * time.Second
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}, nil
}

// NewClientWithHTTPClient creates a Client with a custom http.Client.
// This constructor is intended for testing, allowing injection of an
// httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, endpoint string) *Client {
	return &Client{
		config:     Config{Endpoint: endpoint},
		httpClient: httpClient,
	}
}

// Transcribe uploads one audio file and returns the normalized result.
// Non-success statuses surface as *driven.ServerError, the quota envelope as
// *driven.QuotaError, and unparseable success bodies as
// driven.ErrMalformedResponse.
func (c *Client) Transcribe(ctx context.Context, req driven.UploadRequest) (*model.TranscriptionResult, error) {
	body, contentType, err := buildMultipart(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("create upload request: %w", err)
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Authorization", "Bearer "+req.BearerToken)
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w", req.Filename, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Body read is best-effort on a failure status.
		return nil, &driven.ServerError{
			StatusCode: resp.StatusCode,
			Message:    extractMessage(respBody),
		}
	}
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	return Normalize(respBody)
}

// buildMultipart assembles the upload payload: the audio bytes under the
// audio_file field with the original filename, plus a single-use random
// nonce field to reduce exact request replay.
func buildMultipart(req driven.UploadRequest) (io.Reader, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	fileWriter, err := writer.CreateFormFile("audio_file", req.Filename)
	if err != nil {
		return nil, "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := fileWriter.Write(req.Audio); err != nil {
		return nil, "", fmt.Errorf("write audio data: %w", err)
	}

	nonce, err := newNonce()
	if err != nil {
		return nil, "", err
	}
	if err := writer.WriteField("nonce", nonce); err != nil {
		return nil, "", fmt.Errorf("write nonce field: %w", err)
	}

	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart writer: %w", err)
	}

	return &buf, writer.FormDataContentType(), nil
}

// newNonce returns a 32-character random hex string, fresh per request.
func newNonce() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("rand nonce: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// extractMessage pulls a human-readable explanation out of an error response
// body when one is present. Returns "" when nothing parseable was found, in
// which case the caller falls back to a generic "HTTP <status>" message.
func extractMessage(body []byte) string {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}

	for _, key := range []string{"message", "error", "detail"} {
		if s, ok := payload[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}
