package dto

// SaveEntityRequest is the body of a save request: the entity's fields.
// "id" selects an upsert; "id$" chooses the id of an insert.
type SaveEntityRequest map[string]interface{}

// QueryRequest is a generic query in wire form. Plain keys are field
// equality constraints; keys ending in "$" are modifiers (sort$, limit$,
// skip$, fields$, native$, all$, load$).
type QueryRequest map[string]interface{}
