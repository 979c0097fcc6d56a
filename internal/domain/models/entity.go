// Package models contains the generic entity model shared by the store and its callers.
package models

import (
	"sort"
	"strings"
)

// Canon is the logical namespace of an entity.
type Canon struct {
	Zone string `json:"zone,omitempty"`
	Base string `json:"base,omitempty"`
	Name string `json:"name"`
}

// CollectionID returns the physical collection name for the canon: base_name, or name when base is empty.
func (c Canon) CollectionID() string {
	if c.Base != "" {
		return c.Base + "_" + c.Name
	}
	return c.Name
}

// String renders the canon as zone/base/name, using "-" for empty parts.
func (c Canon) String() string {
	parts := []string{c.Zone, c.Base, c.Name}
	for i, p := range parts {
		if p == "" {
			parts[i] = "-"
		}
	}
	return strings.Join(parts, "/")
}

// Entity is a generic record addressed by canon and id.
// An entity without ID is an insert candidate; ExplicitID (id$) lets the
// caller choose the primary key of that insert.
type Entity struct {
	canon      Canon
	ID         string
	ExplicitID interface{}
	data       map[string]interface{}
}

// NewEntity creates an entity in the given canon with the given data fields.
// The "id" and "id$" keys of data are lifted into ID and ExplicitID. A
// non-string id is ignored; callers validate ids at the boundary.
func NewEntity(canon Canon, data map[string]interface{}) *Entity {
	e := &Entity{
		canon: canon,
		data:  make(map[string]interface{}, len(data)),
	}
	for k, v := range data {
		switch k {
		case "id":
			if s, ok := v.(string); ok {
				e.ID = s
			}
		case "id$":
			e.ExplicitID = v
		default:
			e.data[k] = v
		}
	}
	return e
}

// Canon returns the entity's namespace.
func (e *Entity) Canon() Canon {
	return e.canon
}

// Make creates a new entity in the same canon from a plain document.
func (e *Entity) Make(data map[string]interface{}) *Entity {
	return NewEntity(e.canon, data)
}

// FieldNames returns the declared data field names in sorted order.
func (e *Entity) FieldNames() []string {
	names := make([]string, 0, len(e.data))
	for k := range e.data {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Get returns the value of a data field.
func (e *Entity) Get(field string) interface{} {
	return e.data[field]
}

// Set assigns a data field. Setting "id" updates ID.
func (e *Entity) Set(field string, value interface{}) {
	if field == "id" {
		if s, ok := value.(string); ok {
			e.ID = s
		}
		return
	}
	if e.data == nil {
		e.data = make(map[string]interface{})
	}
	e.data[field] = value
}

// Data returns a copy of the entity's fields including id when set.
func (e *Entity) Data() map[string]interface{} {
	out := make(map[string]interface{}, len(e.data)+1)
	for k, v := range e.data {
		out[k] = v
	}
	if e.ID != "" {
		out["id"] = e.ID
	}
	return out
}
