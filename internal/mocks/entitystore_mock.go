package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/unifiedui/entity-store/internal/domain/models"
	"github.com/unifiedui/entity-store/internal/services/entitystore"
)

// MockEntityStore is a mock implementation of entitystore.Service.
type MockEntityStore struct {
	mock.Mock
}

// Save saves an entity.
func (m *MockEntityStore) Save(ctx context.Context, ent *models.Entity) (*models.Entity, error) {
	args := m.Called(ctx, ent)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Entity), args.Error(1)
}

// Load loads an entity.
func (m *MockEntityStore) Load(ctx context.Context, canon models.Canon, q *entitystore.Query) (*models.Entity, error) {
	args := m.Called(ctx, canon, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Entity), args.Error(1)
}

// List lists entities.
func (m *MockEntityStore) List(ctx context.Context, canon models.Canon, q *entitystore.Query) ([]*models.Entity, error) {
	args := m.Called(ctx, canon, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Entity), args.Error(1)
}

// Remove removes entities.
func (m *MockEntityStore) Remove(ctx context.Context, canon models.Canon, q *entitystore.Query) (*models.Entity, error) {
	args := m.Called(ctx, canon, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Entity), args.Error(1)
}

// Ping checks the store connection.
func (m *MockEntityStore) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// Close closes the store.
func (m *MockEntityStore) Close(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
