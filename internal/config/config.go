// Package config resolves docsmith settings from .env, DOCSMITH_* variables,
// an optional docsmith.yaml and bound CLI flags, in viper's precedence order.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"docsmith/internal/utils"
)

const EnvPrefix = "DOCSMITH"

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Database DatabaseConfig `mapstructure:"database"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Retry    RetryConfig    `mapstructure:"retry"`
	GitHub   GitHubConfig   `mapstructure:"github"`
	Log      LogConfig      `mapstructure:"log"`
	Keyring  KeyringConfig  `mapstructure:"keyring"`
}

type ServerConfig struct {
	Addr     string        `mapstructure:"addr"`
	BasePath string        `mapstructure:"base_path"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

type DatabaseConfig struct {
	// Path empty means the platform default location.
	Path string `mapstructure:"path"`
}

type LLMConfig struct {
	Provider  string `mapstructure:"provider"`
	Model     string `mapstructure:"model"`
	APIKey    string `mapstructure:"api_key"`
	MaxTokens int    `mapstructure:"max_tokens"`
}

type RetryConfig struct {
	InitialDelay time.Duration `mapstructure:"initial_delay"`
	MaxDelay     time.Duration `mapstructure:"max_delay"`
	MaxRetries   int           `mapstructure:"max_retries"`
}

type GitHubConfig struct {
	BaseURL string `mapstructure:"base_url"`
	// Token is used by the CLI; the HTTP API takes tokens from the session.
	Token string `mapstructure:"token"`
}

// KeyringConfig selects the encrypted file backend when Passphrase is set;
// otherwise the OS keychain is used.
type KeyringConfig struct {
	FileDir    string `mapstructure:"file_dir"`
	Passphrase string `mapstructure:"passphrase"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// SetDefaults registers every key so AutomaticEnv can resolve it.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.base_path", "/v1")
	v.SetDefault("server.timeout", 30*time.Second)
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("database.path", "")
	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.max_tokens", 0)
	v.SetDefault("retry.initial_delay", time.Second)
	v.SetDefault("retry.max_delay", 10*time.Second)
	v.SetDefault("retry.max_retries", 3)
	v.SetDefault("github.base_url", "")
	v.SetDefault("github.token", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)
	v.SetDefault("keyring.file_dir", "")
	v.SetDefault("keyring.passphrase", "")
}

// Configure prepares v: defaults, DOCSMITH_ env binding and config search
// paths. Nested keys map to env vars with dots replaced, so llm.api_key is
// DOCSMITH_LLM_API_KEY.
func Configure(v *viper.Viper) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	v.SetConfigName("docsmith")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(home + "/.config/docsmith")
	}
}

// Load reads .env, the config file named by file (or found on the search
// path) and the environment into a Config. A missing config file is fine.
func Load(v *viper.Viper, file string) (*Config, error) {
	if err := utils.LoadEnv(); err != nil {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	if file != "" {
		v.SetConfigFile(file)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.LLM.Provider = strings.ToLower(strings.TrimSpace(cfg.LLM.Provider))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch {
	case c.Retry.MaxRetries < 0:
		return errors.New("retry.max_retries must not be negative")
	case c.Retry.InitialDelay < 0 || c.Retry.MaxDelay < 0:
		return errors.New("retry delays must not be negative")
	case c.Server.Timeout <= 0:
		return errors.New("server.timeout must be positive")
	case c.LLM.MaxTokens < 0:
		return errors.New("llm.max_tokens must not be negative")
	}
	return nil
}

// KeyStore is the subset of the keyring used as an API key fallback.
type KeyStore interface {
	GetApiKey(provider string) (string, error)
}

var providerEnvVars = map[string]string{
	"openai":    "OPENAI_API_KEY",
	"anthropic": "ANTHROPIC_API_KEY",
	"gemini":    "GEMINI_API_KEY",
}

// APIKey returns the key for provider: llm.api_key when it applies to the
// configured provider, then the provider's conventional env var, then keys.
// An empty result means no key is configured anywhere.
func (c *Config) APIKey(provider string, keys KeyStore) string {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if provider == c.LLM.Provider && strings.TrimSpace(c.LLM.APIKey) != "" {
		return strings.TrimSpace(c.LLM.APIKey)
	}
	if name, ok := providerEnvVars[provider]; ok {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			return v
		}
	}
	if keys != nil {
		if v, err := keys.GetApiKey(provider); err == nil {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// Providers lists the providers APIKey knows env vars for, in a stable order.
func Providers() []string {
	return []string{"openai", "anthropic", "gemini"}
}
