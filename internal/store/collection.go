package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Document is a typed view of a Record.
type Document[T any] struct {
	ID        string
	CreatedAt time.Time
	UpdatedAt time.Time
	Version   int64
	Data      T
}

// Collection binds a Backend to one collection and a Go type. T is marshalled
// through its json tags.
type Collection[T any] struct {
	backend Backend
	name    string
}

func NewCollection[T any](backend Backend, name string) *Collection[T] {
	return &Collection[T]{backend: backend, name: name}
}

func (c *Collection[T]) Name() string { return c.name }

func (c *Collection[T]) Create(ctx context.Context, id string, v T, refs ...Ref) (*Document[T], error) {
	fields, err := Encode(v)
	if err != nil {
		return nil, err
	}
	rec, err := c.backend.Create(ctx, c.name, id, fields, refs...)
	if err != nil {
		return nil, err
	}
	return Decode[T](rec)
}

func (c *Collection[T]) Get(ctx context.Context, id string) (*Document[T], error) {
	rec, err := c.backend.Get(ctx, c.name, id)
	if err != nil {
		return nil, err
	}
	return Decode[T](rec)
}

func (c *Collection[T]) List(ctx context.Context, q Query) ([]Document[T], error) {
	recs, err := c.backend.List(ctx, c.name, q)
	if err != nil {
		return nil, err
	}
	out := make([]Document[T], 0, len(recs))
	for i := range recs {
		doc, err := Decode[T](&recs[i])
		if err != nil {
			return nil, err
		}
		out = append(out, *doc)
	}
	return out, nil
}

// Update applies a partial patch. Keys are the json names of T's fields.
func (c *Collection[T]) Update(ctx context.Context, id string, patch Fields, expectedVersion int64) (*Document[T], error) {
	rec, err := c.backend.Update(ctx, c.name, id, patch, expectedVersion)
	if err != nil {
		return nil, err
	}
	return Decode[T](rec)
}

func Encode(v any) (Fields, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	fields := Fields{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return fields, nil
}

func Decode[T any](rec *Record) (*Document[T], error) {
	raw, err := json.Marshal(rec.Fields)
	if err != nil {
		return nil, fmt.Errorf("decode %s/%s: %w", rec.Collection, rec.ID, err)
	}
	var data T
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("decode %s/%s: %w", rec.Collection, rec.ID, err)
	}
	return &Document[T]{
		ID:        rec.ID,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
		Version:   rec.Version,
		Data:      data,
	}, nil
}
