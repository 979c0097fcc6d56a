package entitystore

import (
	"go.mongodb.org/mongo-driver/bson"

	"github.com/unifiedui/entity-store/internal/core/docdb"
	"github.com/unifiedui/entity-store/internal/domain/models"
)

// BuildFilter converts a query into the native filter document. The entity
// "id" field becomes "_id" with MakeID applied. A native query's filter is
// returned as is.
func BuildFilter(q *Query) interface{} {
	if q == nil {
		return bson.M{}
	}
	if q.Native != nil {
		return q.Native.Filter
	}

	filter := make(bson.M, len(q.Filter))
	for k, v := range q.Filter {
		filter[k] = v
	}
	if id, ok := filter["id"]; ok {
		delete(filter, "id")
		filter["_id"] = MakeID(id)
	} else if id, ok := filter["_id"]; ok {
		filter["_id"] = MakeID(id)
	}
	return filter
}

// BuildOptions converts the query modifiers into native find options. A
// native query yields its own options, or none when it only carries a filter.
func BuildOptions(q *Query) *docdb.FindOptions {
	opts := &docdb.FindOptions{}
	if q == nil {
		return opts
	}
	if q.Native != nil {
		if q.Native.Options != nil {
			*opts = *q.Native.Options
		}
		return opts
	}

	if q.Sort != nil {
		order := docdb.SortOrderAsc
		if q.Sort.Direction < 0 {
			order = docdb.SortOrderDesc
		}
		opts.Sort = []docdb.SortField{{Field: q.Sort.Field, Order: order}}
	}
	if q.Limit > 0 {
		opts.Limit = q.Limit
	}
	if q.Skip > 0 {
		opts.Skip = q.Skip
	}
	if len(q.Fields) > 0 {
		opts.Projection = q.Fields
	}
	return opts
}

// toDocument copies the entity's declared fields into a native document.
// On insert a caller chosen id$ becomes the document's _id.
func toDocument(ent *models.Entity, insert bool) bson.M {
	doc := make(bson.M)
	for _, field := range ent.FieldNames() {
		doc[field] = ent.Get(field)
	}
	if insert && ent.ExplicitID != nil {
		doc["_id"] = MakeID(ent.ExplicitID)
	}
	return doc
}

// fromDocument builds an entity from a native document, moving _id to id.
// A nil document yields a nil entity.
func fromDocument(canon models.Canon, doc bson.M) *models.Entity {
	if doc == nil {
		return nil
	}
	data := make(map[string]interface{}, len(doc))
	for k, v := range doc {
		if k == "_id" {
			continue
		}
		data[k] = v
	}
	data["id"] = IDString(doc["_id"])
	return models.NewEntity(canon, data)
}
