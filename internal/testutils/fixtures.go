package testutils

import (
	"github.com/unifiedui/entity-store/internal/domain/models"
)

// Test constants
const (
	TestBase     = "sys"
	TestName     = "user"
	TestEntityID = "5f1d7a3b9c8e4a2b1c0d9e8f"
)

// TestCanon returns the canon used across handler tests.
func TestCanon() models.Canon {
	return models.Canon{Base: TestBase, Name: TestName}
}

// NewTestEntity creates a stored test entity with default fields.
func NewTestEntity() *models.Entity {
	return models.NewEntity(TestCanon(), map[string]interface{}{
		"id":    TestEntityID,
		"name":  "Ada",
		"email": "ada@example.com",
	})
}
