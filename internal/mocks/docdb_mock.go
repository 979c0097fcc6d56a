// Package mocks provides mock implementations for testing.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/unifiedui/entity-store/internal/core/docdb"
)

// MockCollection is a mock implementation of docdb.Collection.
type MockCollection struct {
	mock.Mock
	name string
}

// NewMockCollection creates a new MockCollection with the given name.
func NewMockCollection(name string) *MockCollection {
	return &MockCollection{name: name}
}

// Name returns the collection name.
func (m *MockCollection) Name() string {
	return m.name
}

// InsertOne inserts a single document.
func (m *MockCollection) InsertOne(ctx context.Context, document interface{}) (interface{}, error) {
	args := m.Called(ctx, document)
	return args.Get(0), args.Error(1)
}

// UpdateOne updates a single document.
func (m *MockCollection) UpdateOne(ctx context.Context, filter interface{}, update interface{}, upsert bool) (*docdb.UpdateResult, error) {
	args := m.Called(ctx, filter, update, upsert)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*docdb.UpdateResult), args.Error(1)
}

// FindOne finds a single document.
func (m *MockCollection) FindOne(ctx context.Context, filter interface{}, opts *docdb.FindOptions) docdb.SingleResult {
	args := m.Called(ctx, filter, opts)
	return args.Get(0).(docdb.SingleResult)
}

// Find finds multiple documents.
func (m *MockCollection) Find(ctx context.Context, filter interface{}, opts *docdb.FindOptions) (docdb.Cursor, error) {
	args := m.Called(ctx, filter, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(docdb.Cursor), args.Error(1)
}

// FindOneAndDelete deletes and returns the first matching document.
func (m *MockCollection) FindOneAndDelete(ctx context.Context, filter interface{}, opts *docdb.FindOptions) docdb.SingleResult {
	args := m.Called(ctx, filter, opts)
	return args.Get(0).(docdb.SingleResult)
}

// DeleteMany deletes multiple documents.
func (m *MockCollection) DeleteMany(ctx context.Context, filter interface{}) (*docdb.DeleteResult, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*docdb.DeleteResult), args.Error(1)
}

// MockDatabase is a mock implementation of docdb.Database.
type MockDatabase struct {
	mock.Mock
}

// Name returns the database name.
func (m *MockDatabase) Name() string {
	return "test"
}

// Collection returns a collection from the database.
func (m *MockDatabase) Collection(name string) docdb.Collection {
	args := m.Called(name)
	return args.Get(0).(docdb.Collection)
}

// ListCollectionNames lists all collection names.
func (m *MockDatabase) ListCollectionNames(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// MockDocDBClient is a mock implementation of docdb.Client.
type MockDocDBClient struct {
	mock.Mock
	database *MockDatabase
}

// NewMockDocDBClient creates a new MockDocDBClient.
func NewMockDocDBClient() *MockDocDBClient {
	return &MockDocDBClient{
		database: &MockDatabase{},
	}
}

// Database returns the database.
func (m *MockDocDBClient) Database() docdb.Database {
	return m.database
}

// GetDatabase returns the mock database for setup.
func (m *MockDocDBClient) GetDatabase() *MockDatabase {
	return m.database
}

// Ping checks the database connection.
func (m *MockDocDBClient) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// Close closes the database connection.
func (m *MockDocDBClient) Close(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// SingleResult is a canned docdb.SingleResult.
type SingleResult struct {
	doc bson.M
	err error
}

// NewSingleResult returns a result holding doc, or failing with err.
func NewSingleResult(doc bson.M, err error) *SingleResult {
	return &SingleResult{doc: doc, err: err}
}

// NoDocuments returns a result with no match.
func NoDocuments() *SingleResult {
	return &SingleResult{err: docdb.ErrNoDocuments}
}

// Decode copies the document into a *bson.M or *map[string]interface{}.
func (r *SingleResult) Decode(v interface{}) error {
	if r.err != nil {
		return r.err
	}
	return decodeInto(r.doc, v)
}

// Err returns the configured error.
func (r *SingleResult) Err() error {
	return r.err
}

// Cursor is a slice backed docdb.Cursor.
type Cursor struct {
	docs      []bson.M
	pos       int
	decodeErr map[int]error
	err       error
	Closed    bool
}

// NewCursor returns a cursor over docs.
func NewCursor(docs ...bson.M) *Cursor {
	return &Cursor{docs: docs, pos: -1, decodeErr: map[int]error{}}
}

// WithDecodeError makes decoding the document at index fail.
func (c *Cursor) WithDecodeError(index int, err error) *Cursor {
	c.decodeErr[index] = err
	return c
}

// WithErr sets the error reported after iteration.
func (c *Cursor) WithErr(err error) *Cursor {
	c.err = err
	return c
}

// Next advances the cursor.
func (c *Cursor) Next(ctx context.Context) bool {
	if c.pos+1 >= len(c.docs) {
		return false
	}
	c.pos++
	return true
}

// Decode decodes the current document.
func (c *Cursor) Decode(v interface{}) error {
	if err, ok := c.decodeErr[c.pos]; ok {
		return err
	}
	return decodeInto(c.docs[c.pos], v)
}

// Err returns the configured iteration error.
func (c *Cursor) Err() error {
	return c.err
}

// Close marks the cursor closed.
func (c *Cursor) Close(ctx context.Context) error {
	c.Closed = true
	return nil
}

func decodeInto(doc bson.M, v interface{}) error {
	var copied bson.M
	if doc != nil {
		copied = make(bson.M, len(doc))
		for k, val := range doc {
			copied[k] = val
		}
	}

	switch out := v.(type) {
	case *bson.M:
		*out = copied
	case *map[string]interface{}:
		*out = copied
	default:
		raw, err := bson.Marshal(doc)
		if err != nil {
			return err
		}
		return bson.Unmarshal(raw, v)
	}
	return nil
}
