// Package dto provides Data Transfer Objects for API requests and responses.
package dto

import (
	"github.com/unifiedui/entity-store/internal/domain/models"
)

// EntityResponse represents a single entity in API responses.
type EntityResponse struct {
	Canon  string                 `json:"canon"`
	Entity map[string]interface{} `json:"entity"`
}

// ListEntitiesResponse represents the response for listing entities.
type ListEntitiesResponse struct {
	Canon string                   `json:"canon"`
	Items []map[string]interface{} `json:"items"`
	Count int                      `json:"count"`
}

// NewEntityResponse converts an entity to its response form.
func NewEntityResponse(ent *models.Entity) EntityResponse {
	return EntityResponse{
		Canon:  ent.Canon().String(),
		Entity: ent.Data(),
	}
}

// NewListEntitiesResponse converts a list of entities to its response form.
func NewListEntitiesResponse(canon models.Canon, list []*models.Entity) ListEntitiesResponse {
	items := make([]map[string]interface{}, 0, len(list))
	for _, ent := range list {
		items = append(items, ent.Data())
	}
	return ListEntitiesResponse{
		Canon: canon.String(),
		Items: items,
		Count: len(items),
	}
}
