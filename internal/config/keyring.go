package config

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/zalando/go-keyring"
)

const (
	// KeyringService is the service name in the OS keychain
	KeyringService = "codegraph"

	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// keyringItem maps a provider to its keychain entry name.
func keyringItem(provider string) string {
	return provider + "-api-key"
}

// KeyringManager handles secure credential storage in OS keychain
type KeyringManager struct {
	logger *slog.Logger
}

// NewKeyringManager creates a new keyring manager
func NewKeyringManager() *KeyringManager {
	return &KeyringManager{
		logger: slog.Default().With("component", "keyring"),
	}
}

// SaveAPIKey stores a provider API key in the OS keychain
// (macOS Keychain, Windows Credential Manager, Linux Secret Service).
func (km *KeyringManager) SaveAPIKey(provider, apiKey string) error {
	if apiKey == "" {
		return fmt.Errorf("api key cannot be empty")
	}
	if err := validProvider(provider); err != nil {
		return err
	}

	if err := keyring.Set(KeyringService, keyringItem(provider), apiKey); err != nil {
		km.logger.Error("failed to save API key to keychain", "provider", provider, "error", err)
		return fmt.Errorf("failed to save to OS keychain: %w", err)
	}

	km.logger.Info("api key saved to keychain", "service", KeyringService, "provider", provider)
	return nil
}

// GetAPIKey returns "" without error when no key is stored.
func (km *KeyringManager) GetAPIKey(provider string) (string, error) {
	apiKey, err := keyring.Get(KeyringService, keyringItem(provider))
	if err == keyring.ErrNotFound {
		return "", nil
	}
	if err != nil {
		km.logger.Error("failed to get API key from keychain", "provider", provider, "error", err)
		return "", fmt.Errorf("failed to read from OS keychain: %w", err)
	}

	km.logger.Debug("api key retrieved from keychain", "provider", provider)
	return apiKey, nil
}

// DeleteAPIKey removes a provider key; a missing key is not an error.
func (km *KeyringManager) DeleteAPIKey(provider string) error {
	err := keyring.Delete(KeyringService, keyringItem(provider))
	if err == keyring.ErrNotFound {
		return nil
	}
	if err != nil {
		km.logger.Error("failed to delete API key from keychain", "provider", provider, "error", err)
		return fmt.Errorf("failed to delete from OS keychain: %w", err)
	}

	km.logger.Info("api key deleted from keychain", "provider", provider)
	return nil
}

// IsAvailable returns false on headless systems without a secret service.
func (km *KeyringManager) IsAvailable() bool {
	_, err := keyring.Get(KeyringService, "availability-probe")
	if err == nil || err == keyring.ErrNotFound {
		return true
	}
	km.logger.Debug("keychain not available", "error", err)
	return false
}

// KeySource describes where the active API key for a provider came from.
func (km *KeyringManager) KeySource(cfg *Config, provider string) string {
	envVar := "GEMINI_API_KEY"
	if provider == ProviderOpenAI {
		envVar = "OPENAI_API_KEY"
	}
	if os.Getenv(envVar) != "" {
		return "env"
	}
	if key, _ := km.GetAPIKey(provider); key != "" {
		return "keychain"
	}
	if cfg.LLM.APIKey(provider) != "" {
		return "config"
	}
	return "none"
}

func validProvider(provider string) error {
	switch provider {
	case ProviderGemini, ProviderOpenAI:
		return nil
	default:
		return fmt.Errorf("unknown provider %q (expected %s or %s)", provider, ProviderGemini, ProviderOpenAI)
	}
}

// MaskAPIKey shows the first 7 and last 4 characters of a key.
func MaskAPIKey(apiKey string) string {
	if apiKey == "" {
		return "(not set)"
	}
	if len(apiKey) < 12 {
		return "***"
	}
	return fmt.Sprintf("%s...%s", apiKey[:7], apiKey[len(apiKey)-4:])
}
