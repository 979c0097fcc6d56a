// Package vault resolves secret references used in configuration.
package vault

import (
	"context"
	"fmt"
	"strings"
)

// Type represents the vault backend.
type Type string

const (
	// TypeDotEnv reads secrets from the environment and an optional .env file.
	TypeDotEnv Type = "dotenv"
)

// Resolver resolves secret references such as "dotenv://STORE_PASSWORD".
type Resolver interface {
	// Scheme returns the reference scheme the resolver handles.
	Scheme() Type

	// GetSecret returns the secret a reference points to.
	GetSecret(ctx context.Context, ref string) (string, error)

	Ping(ctx context.Context) error
	Close() error
}

// IsReference reports whether value is a reference in the given scheme.
func IsReference(scheme Type, value string) bool {
	return strings.HasPrefix(value, string(scheme)+"://")
}

// Key strips the scheme from a reference.
func Key(scheme Type, ref string) string {
	return strings.TrimPrefix(ref, string(scheme)+"://")
}

// Resolve returns value unchanged unless it is a reference handled by r.
func Resolve(ctx context.Context, r Resolver, value string) (string, error) {
	if r == nil || !IsReference(r.Scheme(), value) {
		return value, nil
	}
	secret, err := r.GetSecret(ctx, value)
	if err != nil {
		return "", fmt.Errorf("failed to resolve secret %s: %w", value, err)
	}
	return secret, nil
}
