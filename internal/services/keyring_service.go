package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/99designs/keyring"
)

const serviceName = "docsmith"

// KeyringOptions selects where provider API keys are stored. With no file
// passphrase only the OS keychain backends are allowed.
type KeyringOptions struct {
	FileDir        string
	FilePassphrase string
}

// OpenKeyring opens the platform keyring for docsmith.
func OpenKeyring(opts KeyringOptions) (keyring.Keyring, error) {
	cfg := keyring.Config{
		ServiceName:              serviceName,
		KeychainTrustApplication: true,
		LibSecretCollectionName:  serviceName,
		KWalletAppID:             serviceName,
		KWalletFolder:            serviceName,
		WinCredPrefix:            serviceName,
	}
	if opts.FilePassphrase != "" {
		cfg.FileDir = opts.FileDir
		if cfg.FileDir == "" {
			cfg.FileDir = "~/.config/docsmith/keys"
		}
		cfg.FilePasswordFunc = keyring.FixedStringPrompt(opts.FilePassphrase)
	} else {
		cfg.AllowedBackends = []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.KWalletBackend,
			keyring.WinCredBackend,
		}
	}
	ring, err := keyring.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open keyring: %w", err)
	}
	return ring, nil
}

type KeyringService struct {
	ring keyring.Keyring
}

func NewKeyringService(ring keyring.Keyring) *KeyringService {
	return &KeyringService{ring: ring}
}

func (s *KeyringService) StoreApiKey(provider string, apiKey []byte) error {
	if len(apiKey) == 0 {
		return errors.New("API key is empty")
	}
	provider = normalizeProvider(provider)
	if provider == "" {
		return errors.New("provider is required")
	}
	return s.ring.Set(keyring.Item{
		Key:         provider,
		Data:        apiKey,
		Label:       provider + " API key",
		Description: "API key for " + provider + " used by docsmith",
	})
}

func (s *KeyringService) GetApiKey(provider string) (string, error) {
	provider = normalizeProvider(provider)
	if provider == "" {
		return "", errors.New("provider is required")
	}
	item, err := s.ring.Get(provider)
	if err != nil {
		return "", fmt.Errorf("read %s API key: %w", provider, err)
	}
	return string(item.Data), nil
}

// HasApiKey reports whether a non-empty key is stored for provider.
func (s *KeyringService) HasApiKey(provider string) bool {
	key, err := s.GetApiKey(provider)
	return err == nil && key != ""
}

func (s *KeyringService) DeleteApiKey(provider string) error {
	provider = normalizeProvider(provider)
	if provider == "" {
		return errors.New("provider is required")
	}
	if err := s.ring.Remove(provider); err != nil {
		return fmt.Errorf("delete %s API key: %w", provider, err)
	}
	return nil
}

func (s *KeyringService) ListApiKeys() ([]map[string]string, error) {
	keys, err := s.ring.Keys()
	if err != nil {
		return nil, fmt.Errorf("list keyring entries: %w", err)
	}
	sort.Strings(keys)

	results := make([]map[string]string, 0, len(keys))
	for _, provider := range keys {
		if _, err := s.ring.Get(provider); err != nil {
			continue
		}
		results = append(results, map[string]string{
			"provider":    provider,
			"label":       provider + " API key",
			"description": "API key for " + provider + " used by docsmith",
		})
	}
	return results, nil
}

func normalizeProvider(p string) string {
	return strings.ToLower(strings.TrimSpace(p))
}
