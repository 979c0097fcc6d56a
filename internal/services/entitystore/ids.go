package entitystore

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// objectIDHexLen is the length of an ObjectID rendered as hex.
const objectIDHexLen = 24

// MakeID normalizes an id for querying or storing: a 24 character hex
// string becomes an ObjectID, anything else passes through unchanged.
func MakeID(id interface{}) interface{} {
	s, ok := id.(string)
	if !ok || len(s) != objectIDHexLen {
		return id
	}
	oid, err := primitive.ObjectIDFromHex(s)
	if err != nil {
		return id
	}
	return oid
}

// IDString renders a native id as the entity's string id.
func IDString(id interface{}) string {
	switch v := id.(type) {
	case nil:
		return ""
	case primitive.ObjectID:
		return v.Hex()
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}
