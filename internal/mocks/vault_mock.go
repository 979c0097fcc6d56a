package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/unifiedui/entity-store/internal/core/vault"
)

// MockResolver is a mock implementation of vault.Resolver.
type MockResolver struct {
	mock.Mock
}

// Scheme returns vault.TypeDotEnv.
func (m *MockResolver) Scheme() vault.Type {
	return vault.TypeDotEnv
}

// GetSecret resolves a secret reference.
func (m *MockResolver) GetSecret(ctx context.Context, ref string) (string, error) {
	args := m.Called(ctx, ref)
	return args.String(0), args.Error(1)
}

// Ping checks the vault connection.
func (m *MockResolver) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// Close closes the vault connection.
func (m *MockResolver) Close() error {
	args := m.Called()
	return args.Error(0)
}
