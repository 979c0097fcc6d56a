// Package config handles application configuration loading and management.
package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/unifiedui/entity-store/internal/core/vault"
	"github.com/unifiedui/entity-store/internal/services/entitystore"
)

// Config holds all configuration for the application.
type Config struct {
	Server ServerConfig
	Store  StoreConfig
	Cache  CacheConfig
	Vault  VaultConfig
	Log    LogConfig
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Host    string
	Port    int
	GinMode string
}

// Address returns the server address in host:port format.
func (c ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// StoreConfig holds the entity store connection settings. URL, when set,
// takes precedence over the structured fields.
type StoreConfig struct {
	Type           string
	URL            string
	Host           string
	Server         string
	Port           int
	Name           string
	Username       string
	User           string
	Password       string
	Pass           string
	RawURL         string
	Options        map[string]string
	Connect        bool
	ConnectTimeout time.Duration
}

// Descriptor returns the connection descriptor the store resolves.
func (c StoreConfig) Descriptor() entitystore.Descriptor {
	connect := c.Connect
	if c.URL != "" {
		return entitystore.URLConfig{URL: c.URL, Options: c.Options, Connect: &connect}
	}
	return entitystore.DirectConfig{
		Host:     c.Host,
		Server:   c.Server,
		Port:     c.Port,
		Name:     c.Name,
		Username: c.Username,
		User:     c.User,
		Password: c.Password,
		Pass:     c.Pass,
		URL:      c.RawURL,
		Options:  c.Options,
		Connect:  &connect,
	}
}

// CacheConfig holds cache-related configuration.
type CacheConfig struct {
	Enabled  bool
	Type     string
	Host     string
	Port     string
	Password string
	DB       int
	TTL      time.Duration
}

// VaultConfig holds secret resolution configuration.
type VaultConfig struct {
	Type          string
	EnvFile       string
	EncryptionKey string
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string
	Format string
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	options, err := parseOptions(getEnv("STORE_OPTIONS", ""))
	if err != nil {
		return nil, fmt.Errorf("invalid STORE_OPTIONS: %w", err)
	}

	connect, err := getEnvAsBool("STORE_CONNECT", true)
	if err != nil {
		return nil, err
	}

	cacheEnabled, err := getEnvAsBool("CACHE_ENABLED", false)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:    getEnv("SERVER_HOST", "0.0.0.0"),
			Port:    getEnvAsInt("SERVER_PORT", 8080),
			GinMode: getEnv("GIN_MODE", "debug"),
		},
		Store: StoreConfig{
			Type:           getEnv("STORE_TYPE", "mongodb"),
			URL:            getEnv("STORE_URL", ""),
			Host:           getEnv("STORE_HOST", ""),
			Server:         getEnv("STORE_SERVER", ""),
			Port:           getEnvAsInt("STORE_PORT", 0),
			Name:           getEnv("STORE_NAME", ""),
			Username:       getEnv("STORE_USERNAME", ""),
			User:           getEnv("STORE_USER", ""),
			Password:       getEnv("STORE_PASSWORD", ""),
			Pass:           getEnv("STORE_PASS", ""),
			RawURL:         getEnv("STORE_RAW_URL", ""),
			Options:        options,
			Connect:        connect,
			ConnectTimeout: time.Duration(getEnvAsInt("STORE_CONNECT_TIMEOUT_SECONDS", 10)) * time.Second,
		},
		Cache: CacheConfig{
			Enabled:  cacheEnabled,
			Type:     getEnv("CACHE_TYPE", "redis"),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			TTL:      time.Duration(getEnvAsInt("CACHE_TTL_SECONDS", 180)) * time.Second,
		},
		Vault: VaultConfig{
			Type:          getEnv("VAULT_TYPE", "dotenv"),
			EnvFile:       getEnv("VAULT_ENV_FILE", ""),
			EncryptionKey: getEnv("SECRETS_ENCRYPTION_KEY", ""),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	return cfg, nil
}

// ResolveSecrets replaces secret references in credentials with their values.
func (c *Config) ResolveSecrets(ctx context.Context, r vault.Resolver) error {
	for _, field := range []*string{&c.Store.Password, &c.Store.Pass, &c.Cache.Password} {
		value, err := vault.Resolve(ctx, r, *field)
		if err != nil {
			return err
		}
		*field = value
	}
	return nil
}

// parseOptions parses "k=v,k=v" driver options.
func parseOptions(raw string) (map[string]string, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	opts := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		k, v, ok := strings.Cut(pair, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("malformed option %q", pair)
		}
		opts[k] = strings.TrimSpace(v)
	}
	return opts, nil
}

// getEnv gets an environment variable with a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer with a default value.
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}
