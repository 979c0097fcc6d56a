// Package docdb defines the document database interface.
package docdb

import (
	"context"
	"errors"
)

// ErrNoDocuments is returned by SingleResult when no document matched.
var ErrNoDocuments = errors.New("docdb: no documents in result")

// SingleResult represents the result of a FindOne or FindOneAndDelete operation.
type SingleResult interface {
	// Decode decodes the result into the provided interface.
	Decode(v interface{}) error
	// Err returns any error from the operation. ErrNoDocuments when nothing matched.
	Err() error
}

// Cursor represents a cursor for iterating over query results.
type Cursor interface {
	// Next advances the cursor to the next document.
	Next(ctx context.Context) bool
	// Decode decodes the current document.
	Decode(v interface{}) error
	// Err returns any cursor error.
	Err() error
	// Close closes the cursor.
	Close(ctx context.Context) error
}

// SortOrder represents the sort direction.
type SortOrder string

const (
	// SortOrderAsc represents ascending order.
	SortOrderAsc SortOrder = "ascending"
	// SortOrderDesc represents descending order.
	SortOrderDesc SortOrder = "descending"
)

// SortField is one entry of a sort specification.
type SortField struct {
	Field string
	Order SortOrder
}

// FindOptions represents options for find operations.
// Zero values mean "not set".
type FindOptions struct {
	Sort       []SortField
	Limit      int64
	Skip       int64
	Projection []string
}

// IsEmpty reports whether no option is set.
func (o *FindOptions) IsEmpty() bool {
	return o == nil || (len(o.Sort) == 0 && o.Limit == 0 && o.Skip == 0 && len(o.Projection) == 0)
}

// UpdateResult represents the result of an update operation.
type UpdateResult struct {
	MatchedCount  int64
	ModifiedCount int64
	UpsertedCount int64
	UpsertedID    interface{}
}

// DeleteResult represents the result of a delete operation.
type DeleteResult struct {
	DeletedCount int64
}

// Collection defines the interface for document collection operations.
type Collection interface {
	// Name returns the collection name.
	Name() string

	// InsertOne inserts a single document and returns its id.
	InsertOne(ctx context.Context, document interface{}) (interface{}, error)

	// UpdateOne updates a single document, inserting it when upsert is set and nothing matched.
	UpdateOne(ctx context.Context, filter interface{}, update interface{}, upsert bool) (*UpdateResult, error)

	// FindOne finds a single document.
	FindOne(ctx context.Context, filter interface{}, opts *FindOptions) SingleResult

	// Find finds multiple documents.
	Find(ctx context.Context, filter interface{}, opts *FindOptions) (Cursor, error)

	// FindOneAndDelete deletes the first matching document and returns it.
	FindOneAndDelete(ctx context.Context, filter interface{}, opts *FindOptions) SingleResult

	// DeleteMany deletes all documents matching the filter.
	DeleteMany(ctx context.Context, filter interface{}) (*DeleteResult, error)
}

// Database defines the interface for database operations.
type Database interface {
	// Name returns the database name.
	Name() string

	// Collection returns a collection by name.
	Collection(name string) Collection

	// ListCollectionNames lists all collection names.
	ListCollectionNames(ctx context.Context) ([]string, error)
}
