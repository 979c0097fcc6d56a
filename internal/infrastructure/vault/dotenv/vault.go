// Package dotenv provides a dotenv-based vault for development setups.
package dotenv

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/joho/godotenv"

	"github.com/unifiedui/entity-store/internal/core/vault"
)

// Vault resolves "dotenv://KEY" references from the process environment,
// falling back to the values of an optional .env file.
type Vault struct {
	mu      sync.RWMutex
	secrets map[string]string
}

// NewVault creates a vault. When files are given they are read with
// godotenv without touching the process environment; missing files are an error.
func NewVault(files ...string) (*Vault, error) {
	secrets := make(map[string]string)
	if len(files) > 0 {
		values, err := godotenv.Read(files...)
		if err != nil {
			return nil, fmt.Errorf("failed to read secrets file: %w", err)
		}
		secrets = values
	}
	return &Vault{secrets: secrets}, nil
}

// Scheme returns vault.TypeDotEnv.
func (v *Vault) Scheme() vault.Type {
	return vault.TypeDotEnv
}

// GetSecret looks the key up in the environment first, then in the file values.
func (v *Vault) GetSecret(ctx context.Context, ref string) (string, error) {
	key := vault.Key(vault.TypeDotEnv, ref)

	if value := os.Getenv(key); value != "" {
		return value, nil
	}

	v.mu.RLock()
	defer v.mu.RUnlock()

	if value, ok := v.secrets[key]; ok {
		return value, nil
	}
	return "", fmt.Errorf("secret not found: %s", key)
}

// Set stores a secret in memory.
func (v *Vault) Set(key, value string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.secrets[key] = value
}

// Ping always succeeds.
func (v *Vault) Ping(ctx context.Context) error {
	return nil
}

// Close is a no-op.
func (v *Vault) Close() error {
	return nil
}
