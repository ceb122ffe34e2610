package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newViper(t *testing.T) *viper.Viper {
	t.Helper()
	t.Chdir(t.TempDir())
	v := viper.New()
	Configure(v)
	return v
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(newViper(t), "")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "/v1", cfg.Server.BasePath)
	assert.Equal(t, 30*time.Second, cfg.Server.Timeout)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, time.Second, cfg.Retry.InitialDelay)
	assert.Equal(t, 10*time.Second, cfg.Retry.MaxDelay)
	assert.Equal(t, 3, cfg.Retry.MaxRetries)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	v := newViper(t)
	file := filepath.Join(t.TempDir(), "docsmith.yaml")
	require.NoError(t, os.WriteFile(file, []byte("llm:\n  provider: Anthropic\n  model: claude-sonnet-4-20250514\nretry:\n  max_retries: 5\n  initial_delay: 250ms\n"), 0o600))
	t.Setenv("DOCSMITH_RETRY_MAX_RETRIES", "1")
	t.Setenv("DOCSMITH_SERVER_ADDR", "127.0.0.1:9000")

	cfg, err := Load(v, file)
	require.NoError(t, err)

	assert.Equal(t, "anthropic", cfg.LLM.Provider)
	assert.Equal(t, "claude-sonnet-4-20250514", cfg.LLM.Model)
	assert.Equal(t, 250*time.Millisecond, cfg.Retry.InitialDelay)
	assert.Equal(t, 1, cfg.Retry.MaxRetries)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
}

func TestLoad_ExplicitMissingFileFails(t *testing.T) {
	_, err := Load(newViper(t), filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoad_RejectsNegativeRetries(t *testing.T) {
	v := newViper(t)
	t.Setenv("DOCSMITH_RETRY_MAX_RETRIES", "-1")
	_, err := Load(v, "")
	assert.Error(t, err)
}

type keyStore map[string]string

func (k keyStore) GetApiKey(provider string) (string, error) {
	if v, ok := k[provider]; ok {
		return v, nil
	}
	return "", errors.New("not found")
}

func TestAPIKey_Precedence(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "env-gemini")
	cfg := &Config{LLM: LLMConfig{Provider: "openai", APIKey: "configured"}}
	keys := keyStore{"openai": "ring-openai", "gemini": "ring-gemini", "anthropic": "ring-anthropic"}

	assert.Equal(t, "configured", cfg.APIKey("OpenAI", keys))
	assert.Equal(t, "env-gemini", cfg.APIKey("gemini", keys))
	assert.Equal(t, "ring-anthropic", cfg.APIKey("anthropic", keys))

	cfg.LLM.APIKey = ""
	assert.Equal(t, "ring-openai", cfg.APIKey("openai", keys))
	assert.Empty(t, cfg.APIKey("openai", nil))
}
