package app

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/traian1744/openai-nim-proxy/internal/config"
	"github.com/traian1744/openai-nim-proxy/internal/credentials"
)

func TestCredentialsOrder(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	keyFile := filepath.Join(t.TempDir(), "key")
	require.NoError(t, os.WriteFile(keyFile, []byte("from-file"), 0600))

	cfg := config.Defaults()
	cfg.Upstream.APIKeyFile = keyFile

	t.Setenv(credentials.APIKeyEnvVar, "")
	key, err := Credentials(&cfg).APIKey()
	require.NoError(t, err)
	assert.Equal(t, "from-file", key)

	cfg.Upstream.APIKey = "from-config"
	key, err = Credentials(&cfg).APIKey()
	require.NoError(t, err)
	assert.Equal(t, "from-config", key)

	t.Setenv(credentials.APIKeyEnvVar, "from-env")
	key, err = Credentials(&cfg).APIKey()
	require.NoError(t, err)
	assert.Equal(t, "from-env", key)
}

func TestCredentialsNoneConfigured(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv(credentials.APIKeyEnvVar, "")
	cfg := config.Defaults()

	_, err := Credentials(&cfg).APIKey()
	assert.ErrorIs(t, err, credentials.ErrMissingAPIKey)
}

func TestNewServerWiresConfig(t *testing.T) {
	nim := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		io.WriteString(w, `{"choices":[{"index":0,"message":{"role":"assistant","content":"ok"},"finish_reason":"stop"}]}`)
	}))
	defer nim.Close()

	cfg := config.Defaults()
	cfg.Upstream.BaseURL = nim.URL + "/v1"
	cfg.Metrics.Enabled = false
	cfg.Reasoning.Show = true
	s := NewServer(&cfg, credentials.NewStaticFetcher("k"), zerolog.Nop())

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/chat/completions",
		strings.NewReader(`{"model":"gpt-4o","messages":[{"role":"user","content":"hi"}]}`)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"model":"gpt-4o"`)

	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Contains(t, rec.Body.String(), `"reasoning_display":true`)

	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
