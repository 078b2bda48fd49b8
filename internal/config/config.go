// Package config loads application configuration from environment variables.
package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"time"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	ListenAddr    string
	DBPath        string
	SpeechURL     string
	IntrospectURL string
	TokenURL      string
	UploadTimeout time.Duration
	// SecretKey is the 32-byte AES-256 key for credential-at-rest
	// encryption, or nil when not configured. Without it the app starts
	// but cannot persist a credential across restarts.
	SecretKey []byte
}

// Load reads configuration from environment variables and returns a validated
// Config. ECHOPAD_SPEECH_URL, ECHOPAD_INTROSPECT_URL, and ECHOPAD_TOKEN_URL
// are required. Optional variables with defaults: ECHOPAD_LISTEN_ADDR
// (127.0.0.1:8090), ECHOPAD_DB_PATH (echopad.db), ECHOPAD_UPLOAD_TIMEOUT
// (60s). ECHOPAD_SECRET_KEY is optional; when set it must be 64 hex
// characters.
func Load() (*Config, error) {
	speechURL := os.Getenv("ECHOPAD_SPEECH_URL")
	if speechURL == "" {
		return nil, fmt.Errorf("ECHOPAD_SPEECH_URL is required")
	}

	introspectURL := os.Getenv("ECHOPAD_INTROSPECT_URL")
	if introspectURL == "" {
		return nil, fmt.Errorf("ECHOPAD_INTROSPECT_URL is required")
	}

	tokenURL := os.Getenv("ECHOPAD_TOKEN_URL")
	if tokenURL == "" {
		return nil, fmt.Errorf("ECHOPAD_TOKEN_URL is required")
	}

	listenAddr := "127.0.0.1:8090"
	if v, ok := os.LookupEnv("ECHOPAD_LISTEN_ADDR"); ok {
		listenAddr = v
	}

	dbPath := "echopad.db"
	if v, ok := os.LookupEnv("ECHOPAD_DB_PATH"); ok {
		dbPath = v
	}

	uploadTimeout := 60 * time.Second
	if v, ok := os.LookupEnv("ECHOPAD_UPLOAD_TIMEOUT"); ok {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("ECHOPAD_UPLOAD_TIMEOUT has invalid duration %q: %w", v, err)
		}
		uploadTimeout = parsed
	}

	var secretKey []byte
	if v, ok := os.LookupEnv("ECHOPAD_SECRET_KEY"); ok && v != "" {
		decoded, err := hex.DecodeString(v)
		if err != nil {
			return nil, fmt.Errorf("ECHOPAD_SECRET_KEY is not valid hex: %w", err)
		}
		if len(decoded) != 32 {
			return nil, fmt.Errorf("ECHOPAD_SECRET_KEY must decode to 32 bytes, got %d", len(decoded))
		}
		secretKey = decoded
	}

	return &Config{
		ListenAddr:    listenAddr,
		DBPath:        dbPath,
		SpeechURL:     speechURL,
		IntrospectURL: introspectURL,
		TokenURL:      tokenURL,
		UploadTimeout: uploadTimeout,
		SecretKey:     secretKey,
	}, nil
}
