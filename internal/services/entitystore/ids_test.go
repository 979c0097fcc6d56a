package entitystore_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/unifiedui/entity-store/internal/services/entitystore"
)

func TestMakeID_RoundTrip(t *testing.T) {
	for i := 0; i < 5; i++ {
		oid := primitive.NewObjectID()

		got := entitystore.MakeID(entitystore.IDString(oid))

		assert.Equal(t, oid, got)
	}
}

func TestMakeID_PassThrough(t *testing.T) {
	tests := []struct {
		name string
		in   interface{}
	}{
		{"short string", "abc"},
		{"empty string", ""},
		{"24 chars not hex", "zzzzzzzzzzzzzzzzzzzzzzzz"},
		{"25 hex chars", "5f1d7a3b9c8e4a2b1c0d9e8f0"},
		{"integer", 42},
		{"nil", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.in, entitystore.MakeID(tt.in))
		})
	}
}

func TestMakeID_HexString(t *testing.T) {
	got := entitystore.MakeID("5f1d7a3b9c8e4a2b1c0d9e8f")

	oid, ok := got.(primitive.ObjectID)
	assert.True(t, ok)
	assert.Equal(t, "5f1d7a3b9c8e4a2b1c0d9e8f", oid.Hex())
}

func TestIDString(t *testing.T) {
	oid := primitive.NewObjectID()

	assert.Equal(t, oid.Hex(), entitystore.IDString(oid))
	assert.Equal(t, "custom", entitystore.IDString("custom"))
	assert.Equal(t, "42", entitystore.IDString(42))
	assert.Equal(t, "", entitystore.IDString(nil))
}
