// Package store is a small document store adapter: records live in named
// collections, are keyed by opaque string ids and carry a JSON object of
// fields. Two backends exist, Postgres (JSONB) and in-memory.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrConflict      = errors.New("record was modified concurrently")
	ErrAlreadyExists = errors.New("record already exists")
	ErrInvalidQuery  = errors.New("invalid query")
)

// Reserved field names usable in Order and Eq clauses.
const (
	FieldID        = "$id"
	FieldCreatedAt = "$createdAt"
	FieldUpdatedAt = "$updatedAt"
)

type Fields map[string]any

type Record struct {
	ID         string
	Collection string
	Fields     Fields
	CreatedAt  time.Time
	UpdatedAt  time.Time
	Version    int64
}

// Ref names a record that must exist for a Create to succeed.
type Ref struct {
	Collection string
	ID         string
}

type Eq struct {
	Field string
	Value any
}

type Order struct {
	Field string
	Desc  bool
}

// Query filters by equality and orders the result. Ties are always broken by
// id ascending so paging over an ordered list is stable.
type Query struct {
	Where   []Eq
	OrderBy []Order
	Limit   int
	Offset  int
}

func Equal(field string, value any) Eq { return Eq{Field: field, Value: value} }
func OrderAsc(field string) Order      { return Order{Field: field} }
func OrderDesc(field string) Order     { return Order{Field: field, Desc: true} }

// Backend is the contract every storage implementation satisfies.
//
// Create assigns a UUID when id is empty and fails with ErrNotFound when any
// ref is missing. Update merges fields into the stored object; it never
// creates. A positive expectedVersion makes the update conditional and a
// mismatch returns ErrConflict.
type Backend interface {
	Create(ctx context.Context, collection, id string, fields Fields, refs ...Ref) (*Record, error)
	Get(ctx context.Context, collection, id string) (*Record, error)
	List(ctx context.Context, collection string, q Query) ([]Record, error)
	Update(ctx context.Context, collection, id string, fields Fields, expectedVersion int64) (*Record, error)
}

var fieldNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func validateField(name string) error {
	switch name {
	case FieldID, FieldCreatedAt, FieldUpdatedAt:
		return nil
	}
	if !fieldNameRe.MatchString(name) {
		return fmt.Errorf("%w: field %q", ErrInvalidQuery, name)
	}
	return nil
}

func (q Query) validate() error {
	for _, eq := range q.Where {
		if eq.Field == FieldCreatedAt || eq.Field == FieldUpdatedAt {
			return fmt.Errorf("%w: equality on %s is not supported", ErrInvalidQuery, eq.Field)
		}
		if err := validateField(eq.Field); err != nil {
			return err
		}
	}
	for _, o := range q.OrderBy {
		if err := validateField(o.Field); err != nil {
			return err
		}
	}
	if q.Limit < 0 || q.Offset < 0 {
		return fmt.Errorf("%w: negative limit or offset", ErrInvalidQuery)
	}
	return nil
}

func missingRef(ref Ref) error {
	return fmt.Errorf("%w: %s/%s", ErrNotFound, ref.Collection, ref.ID)
}

// textValue renders a field value the way Postgres' ->> operator does, so both
// backends agree on equality and ordering.
func textValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case time.Time:
		return t.UTC().Format(time.RFC3339Nano)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

// normalize round-trips fields through JSON so stored values have the same
// shape regardless of the backend.
func normalize(fields Fields) (Fields, []byte, error) {
	if fields == nil {
		fields = Fields{}
	}
	raw, err := json.Marshal(fields)
	if err != nil {
		return nil, nil, fmt.Errorf("encode fields: %w", err)
	}
	out := Fields{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, nil, fmt.Errorf("decode fields: %w", err)
	}
	return out, raw, nil
}
