package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// allConfigKeys lists every ECHOPAD_ env var that Load() reads.
var allConfigKeys = []string{
	"ECHOPAD_SPEECH_URL",
	"ECHOPAD_INTROSPECT_URL",
	"ECHOPAD_TOKEN_URL",
	"ECHOPAD_LISTEN_ADDR",
	"ECHOPAD_DB_PATH",
	"ECHOPAD_UPLOAD_TIMEOUT",
	"ECHOPAD_SECRET_KEY",
}

// isolateConfigEnv saves and unsets all ECHOPAD_ env vars so tests don't
// inherit values from the host environment. t.Cleanup restores original
// values after the test.
func isolateConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range allConfigKeys {
		if orig, ok := os.LookupEnv(key); ok {
			t.Cleanup(func() { os.Setenv(key, orig) })
		} else {
			t.Cleanup(func() { os.Unsetenv(key) })
		}
		os.Unsetenv(key)
	}
}

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("ECHOPAD_SPEECH_URL", "https://speech.example.com/transcribe")
	t.Setenv("ECHOPAD_INTROSPECT_URL", "https://id.example.com/introspect")
	t.Setenv("ECHOPAD_TOKEN_URL", "https://id.example.com/token")
}

func TestLoad_Success(t *testing.T) {
	isolateConfigEnv(t)
	setRequiredEnv(t)
	t.Setenv("ECHOPAD_LISTEN_ADDR", "0.0.0.0:9090")
	t.Setenv("ECHOPAD_DB_PATH", "/tmp/test.db")
	t.Setenv("ECHOPAD_UPLOAD_TIMEOUT", "90s")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "https://speech.example.com/transcribe", cfg.SpeechURL)
	assert.Equal(t, "https://id.example.com/introspect", cfg.IntrospectURL)
	assert.Equal(t, "https://id.example.com/token", cfg.TokenURL)
	assert.Equal(t, "0.0.0.0:9090", cfg.ListenAddr)
	assert.Equal(t, "/tmp/test.db", cfg.DBPath)
	assert.Equal(t, 90*time.Second, cfg.UploadTimeout)
}

func TestLoad_Defaults(t *testing.T) {
	isolateConfigEnv(t)
	setRequiredEnv(t)

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8090", cfg.ListenAddr)
	assert.Equal(t, "echopad.db", cfg.DBPath)
	assert.Equal(t, 60*time.Second, cfg.UploadTimeout)
	assert.Nil(t, cfg.SecretKey)
}

func TestLoad_MissingSpeechURL(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("ECHOPAD_INTROSPECT_URL", "https://id.example.com/introspect")
	t.Setenv("ECHOPAD_TOKEN_URL", "https://id.example.com/token")

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ECHOPAD_SPEECH_URL")
}

func TestLoad_MissingIntrospectURL(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("ECHOPAD_SPEECH_URL", "https://speech.example.com/transcribe")
	t.Setenv("ECHOPAD_TOKEN_URL", "https://id.example.com/token")

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ECHOPAD_INTROSPECT_URL")
}

func TestLoad_InvalidUploadTimeout(t *testing.T) {
	isolateConfigEnv(t)
	setRequiredEnv(t)
	t.Setenv("ECHOPAD_UPLOAD_TIMEOUT", "not-a-duration")

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ECHOPAD_UPLOAD_TIMEOUT")
}

func TestLoad_SecretKey_Valid(t *testing.T) {
	isolateConfigEnv(t)
	setRequiredEnv(t)
	// 64 hex chars = 32 bytes
	t.Setenv("ECHOPAD_SECRET_KEY", "0102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f20")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Len(t, cfg.SecretKey, 32)
}

func TestLoad_SecretKey_TooShort(t *testing.T) {
	isolateConfigEnv(t)
	setRequiredEnv(t)
	t.Setenv("ECHOPAD_SECRET_KEY", "deadbeef")

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ECHOPAD_SECRET_KEY")
}

func TestLoad_SecretKey_NotHex(t *testing.T) {
	isolateConfigEnv(t)
	setRequiredEnv(t)
	t.Setenv("ECHOPAD_SECRET_KEY", "zzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzz")

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ECHOPAD_SECRET_KEY")
}
