package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, dir, name string, data map[string]any) string {
	t.Helper()
	if dir == "" {
		dir = t.TempDir()
	}
	if name == "" {
		name = "cfg.json"
	}
	path := filepath.Join(dir, name)
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJson_SourcesAndPrecedence(t *testing.T) {
	t.Setenv("GOPHAUTH_CONFIG", "")

	dir := t.TempDir()
	pathFlag := writeTempJSON(t, dir, "flag.json", map[string]any{
		"api_base_url":     "https://www.example/api",
		"request_timeout":  "30s",
		"otp_ttl":          "5m",
		"resend_cooldown":  float64(2 * time.Second),
		"secure":           true,
		"persist_cookies":  false,
		"resend_endpoints": map[string]string{"login": "/resend-otp/", "reset": "/password-reset/resend/"},
	})

	t.Run("loads from flags", func(t *testing.T) {
		cfg := &Config{}
		cfg.LoadDefaults()
		require.NoError(t, parseJson(cfg, []string{"-config", pathFlag}))

		assert.Equal(t, "https://www.example/api", cfg.APIBaseURL)
		assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
		assert.Equal(t, 5*time.Minute, cfg.OTPTTL)
		assert.Equal(t, 2*time.Second, cfg.ResendCooldown)
		assert.True(t, cfg.Secure)
		assert.False(t, cfg.PersistCookies)
		assert.Equal(t, "/password-reset/resend/", cfg.ResendEndpoints["reset"])
		assert.Equal(t, "gophauth.db", cfg.DatabasePath, "fields absent from the file keep their value")
	})

	t.Run("loads from env", func(t *testing.T) {
		t.Setenv("GOPHAUTH_CONFIG", pathFlag)
		cfg := &Config{}
		require.NoError(t, parseJson(cfg, nil))
		assert.Equal(t, "https://www.example/api", cfg.APIBaseURL)
	})

	t.Run("no CONFIG and no flags → no changes", func(t *testing.T) {
		cfg := &Config{APIBaseURL: "http://defaults", OTPTTL: 42 * time.Second}
		require.NoError(t, parseJson(cfg, nil))

		assert.Equal(t, "http://defaults", cfg.APIBaseURL)
		assert.Equal(t, 42*time.Second, cfg.OTPTTL)
	})

	t.Run("invalid JSON → error", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{ this is not valid json`), 0o600))

		require.Error(t, parseJson(&Config{}, []string{"-config", bad}))
	})

	t.Run("missing file → error", func(t *testing.T) {
		require.Error(t, parseJson(&Config{}, []string{"-c", filepath.Join(dir, "nope.json")}))
	})
}
