// Package identity implements the IdentityClient port against the external
// identity provider's introspection and token endpoints.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/echopad/echopad/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.IdentityClient = (*Client)(nil)

// Config contains the identity provider endpoints.
type Config struct {
	IntrospectURL string
	TokenURL      string
	Timeout       time.Duration
}

// Client talks to the identity provider. Introspection carries the bearer
// token as a query parameter, matching the provider's tokeninfo contract.
type Client struct {
	config     Config
	httpClient *http.Client
}

// NewClient creates an identity client.
func NewClient(config Config) (*Client, error) {
	if config.IntrospectURL == "" {
		return nil, fmt.Errorf("introspect URL cannot be empty")
	}
	if config.TokenURL == "" {
		return nil, fmt.Errorf("token URL cannot be empty")
	}
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}

	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
	}, nil
}

// NewClientWithHTTPClient creates a Client with a custom http.Client.
// Intended for testing against an httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, introspectURL, tokenURL string) *Client {
	return &Client{
		config:     Config{IntrospectURL: introspectURL, TokenURL: tokenURL},
		httpClient: httpClient,
	}
}

// introspectResponse is the provider's tokeninfo body: an error field when
// the token is rejected, or expires_in seconds when it is accepted.
type introspectResponse struct {
	Error     string  `json:"error"`
	ExpiresIn float64 `json:"expires_in"`
}

// Introspect checks the token against the provider. A transport failure or
// unparseable body is returned as an error so the caller can fail closed.
func (c *Client) Introspect(ctx context.Context, token string) (*driven.TokenInfo, error) {
	u := c.config.IntrospectURL + "?token=" + url.QueryEscape(token)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create introspect request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("introspect token: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read introspect response: %w", err)
	}

	var parsed introspectResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("parse introspect response: %w", err)
	}

	return &driven.TokenInfo{Error: parsed.Error, ExpiresIn: parsed.ExpiresIn}, nil
}

// tokenRequest asks the provider for a replacement token without user
// interaction.
type tokenRequest struct {
	SubjectID   string `json:"subject_id"`
	Interactive bool   `json:"interactive"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	Error       string `json:"error"`
}

// RequestToken obtains a fresh bearer token for the subject. A provider-
// reported error is an error; the caller decides whether that means
// re-authentication.
func (c *Client) RequestToken(ctx context.Context, subjectID string) (string, error) {
	payload, err := json.Marshal(tokenRequest{SubjectID: subjectID, Interactive: false})
	if err != nil {
		return "", fmt.Errorf("marshal token request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.TokenURL, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request token: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token endpoint returned HTTP %d", resp.StatusCode)
	}

	var parsed tokenResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("parse token response: %w", err)
	}
	if parsed.Error != "" {
		return "", fmt.Errorf("token endpoint error: %s", parsed.Error)
	}
	if parsed.AccessToken == "" {
		return "", fmt.Errorf("token endpoint returned empty token")
	}

	return parsed.AccessToken, nil
}
