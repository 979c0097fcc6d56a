package entitystore

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/unifiedui/entity-store/internal/core/docdb"
	domainerrors "github.com/unifiedui/entity-store/internal/domain/errors"
)

// Sort orders results by a single field. A negative Direction sorts descending.
type Sort struct {
	Field     string
	Direction int
}

// NativeQuery bypasses translation. Filter is used verbatim; Options is nil
// when only a filter was supplied, which means no options at all.
type NativeQuery struct {
	Filter  interface{}
	Options *docdb.FindOptions
}

// Query is a generic entity query: plain filter fields plus explicit modifiers.
// When Native is set every other modifier and the filter are ignored.
type Query struct {
	Filter map[string]interface{}
	Sort   *Sort
	Limit  int64
	Skip   int64
	Fields []string
	Native *NativeQuery
	// All makes Remove delete every matching document.
	All bool
	// Load controls whether Remove returns the removed entity. Nil means true.
	Load *bool
}

// NewQuery creates a query over the given filter fields.
func NewQuery(filter map[string]interface{}) *Query {
	if filter == nil {
		filter = map[string]interface{}{}
	}
	return &Query{Filter: filter}
}

// ByID creates a query matching a single entity id.
func ByID(id string) *Query {
	return NewQuery(map[string]interface{}{"id": id})
}

// WithSort sorts by one field.
func (q *Query) WithSort(field string, direction int) *Query {
	q.Sort = &Sort{Field: field, Direction: direction}
	return q
}

// WithLimit limits the number of results.
func (q *Query) WithLimit(limit int64) *Query {
	q.Limit = limit
	return q
}

// WithSkip skips leading results.
func (q *Query) WithSkip(skip int64) *Query {
	q.Skip = skip
	return q
}

// WithFields projects results onto the given fields.
func (q *Query) WithFields(fields ...string) *Query {
	q.Fields = fields
	return q
}

// WithNative replaces the whole query with a native filter and optional options.
func (q *Query) WithNative(filter interface{}, opts *docdb.FindOptions) *Query {
	q.Native = &NativeQuery{Filter: filter, Options: opts}
	return q
}

// WithAll marks a remove as remove-all.
func (q *Query) WithAll(all bool) *Query {
	q.All = all
	return q
}

// WithLoad sets whether a remove returns the removed entity.
func (q *Query) WithLoad(load bool) *Query {
	q.Load = &load
	return q
}

// ShouldLoad reports whether Remove returns the removed entity.
func (q *Query) ShouldLoad() bool {
	return q.Load == nil || *q.Load
}

// Validate checks the query's structure.
func (q *Query) Validate() error {
	for k := range q.Filter {
		if strings.HasSuffix(k, "$") {
			return domainerrors.NewValidationError("invalid query", fmt.Sprintf("filter field %q is a modifier key", k))
		}
	}
	if q.Sort != nil && q.Sort.Field == "" {
		return domainerrors.NewValidationError("invalid query", "sort field is required")
	}
	if q.Limit < 0 || q.Skip < 0 {
		return domainerrors.NewValidationError("invalid query", "limit and skip must not be negative")
	}
	if q.Native != nil && q.Native.Filter == nil {
		return domainerrors.NewValidationError("invalid query", "native filter is required")
	}
	return nil
}

// ParseQuery converts the wire form, where keys ending in "$" are modifiers
// (sort$, limit$, skip$, fields$, native$, all$, load$), into a Query.
// Unknown modifiers are ignored.
func ParseQuery(raw map[string]interface{}) (*Query, error) {
	q := NewQuery(nil)
	for k, v := range raw {
		if !strings.HasSuffix(k, "$") {
			q.Filter[k] = v
			continue
		}

		var err error
		switch k {
		case "sort$":
			q.Sort, err = parseSort(v)
		case "limit$":
			q.Limit, err = toInt64(v)
		case "skip$":
			q.Skip, err = toInt64(v)
		case "fields$":
			q.Fields, err = parseFields(v)
		case "native$":
			q.Native, err = parseNative(v)
		case "all$":
			q.All, err = toBool(v)
		case "load$":
			var load bool
			if load, err = toBool(v); err == nil {
				q.Load = &load
			}
		}
		if err != nil {
			return nil, domainerrors.NewValidationError("invalid query", fmt.Sprintf("%s: %v", k, err))
		}
	}

	if err := q.Validate(); err != nil {
		return nil, err
	}
	return q, nil
}

func parseSort(v interface{}) (*Sort, error) {
	m, ok := v.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("expected an object, got %T", v)
	}
	if len(m) != 1 {
		return nil, fmt.Errorf("exactly one sort field is supported, got %d", len(m))
	}
	for field, dir := range m {
		d, err := toInt64(dir)
		if err != nil {
			return nil, err
		}
		return &Sort{Field: field, Direction: int(d)}, nil
	}
	return nil, nil
}

// parseFields accepts a list of names or a projection object like {"a": 1}.
func parseFields(v interface{}) ([]string, error) {
	switch f := v.(type) {
	case []string:
		return f, nil
	case []interface{}:
		fields := make([]string, 0, len(f))
		for _, item := range f {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("field names must be strings, got %T", item)
			}
			fields = append(fields, s)
		}
		return fields, nil
	case map[string]interface{}:
		fields := make([]string, 0, len(f))
		for name, include := range f {
			if truthy(include) {
				fields = append(fields, name)
			}
		}
		return fields, nil
	default:
		return nil, fmt.Errorf("expected a list or an object, got %T", v)
	}
}

// parseNative accepts a filter object, or [filter, options].
func parseNative(v interface{}) (*NativeQuery, error) {
	list, ok := v.([]interface{})
	if !ok {
		return &NativeQuery{Filter: v}, nil
	}
	switch len(list) {
	case 1:
		return &NativeQuery{Filter: list[0]}, nil
	case 2:
		opts, err := parseNativeOptions(list[1])
		if err != nil {
			return nil, err
		}
		return &NativeQuery{Filter: list[0], Options: opts}, nil
	default:
		return nil, fmt.Errorf("expected [filter] or [filter, options], got %d elements", len(list))
	}
}

// parseNativeOptions reads {sort, limit, skip, fields|projection}. sort may be
// [[field, "ascending"|"descending"], ...] or a single {field: 1|-1}.
func parseNativeOptions(v interface{}) (*docdb.FindOptions, error) {
	if v == nil {
		return &docdb.FindOptions{}, nil
	}
	m, ok := v.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("native options must be an object, got %T", v)
	}

	opts := &docdb.FindOptions{}
	var err error
	for k, val := range m {
		switch k {
		case "sort":
			opts.Sort, err = parseNativeSort(val)
		case "limit":
			opts.Limit, err = toInt64(val)
		case "skip":
			opts.Skip, err = toInt64(val)
		case "fields", "projection":
			opts.Projection, err = parseFields(val)
		default:
			err = fmt.Errorf("unsupported native option %q", k)
		}
		if err != nil {
			return nil, err
		}
	}
	return opts, nil
}

func parseNativeSort(v interface{}) ([]docdb.SortField, error) {
	switch s := v.(type) {
	case []interface{}:
		fields := make([]docdb.SortField, 0, len(s))
		for _, item := range s {
			pair, ok := item.([]interface{})
			if !ok || len(pair) != 2 {
				return nil, fmt.Errorf("sort entries must be [field, direction] pairs")
			}
			field, ok := pair[0].(string)
			if !ok {
				return nil, fmt.Errorf("sort field must be a string, got %T", pair[0])
			}
			order, err := toSortOrder(pair[1])
			if err != nil {
				return nil, err
			}
			fields = append(fields, docdb.SortField{Field: field, Order: order})
		}
		return fields, nil
	case map[string]interface{}:
		// Object keys carry no order; several fields need the pair form.
		if len(s) > 1 {
			return nil, fmt.Errorf("object sort takes one field, got %d; use [[field, direction], ...]", len(s))
		}
		fields := make([]docdb.SortField, 0, len(s))
		for field, dir := range s {
			order, err := toSortOrder(dir)
			if err != nil {
				return nil, err
			}
			fields = append(fields, docdb.SortField{Field: field, Order: order})
		}
		return fields, nil
	default:
		return nil, fmt.Errorf("unsupported sort form %T", v)
	}
}

func toSortOrder(v interface{}) (docdb.SortOrder, error) {
	if s, ok := v.(string); ok {
		switch strings.ToLower(s) {
		case "ascending", "asc":
			return docdb.SortOrderAsc, nil
		case "descending", "desc":
			return docdb.SortOrderDesc, nil
		}
		return "", fmt.Errorf("unknown sort direction %q", s)
	}
	n, err := toInt64(v)
	if err != nil {
		return "", err
	}
	if n < 0 {
		return docdb.SortOrderDesc, nil
	}
	return docdb.SortOrderAsc, nil
}

func toInt64(v interface{}) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("expected an integer, got %v", n)
		}
		return int64(n), nil
	case json.Number:
		return n.Int64()
	default:
		return 0, fmt.Errorf("expected a number, got %T", v)
	}
}

func toBool(v interface{}) (bool, error) {
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("expected a boolean, got %T", v)
	}
	return b, nil
}

func truthy(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	default:
		n, err := toInt64(v)
		return err != nil || n != 0
	}
}
