package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryBackend keeps records in process. It is safe for concurrent use and
// is what tests and STORE_DRIVER=memory run against.
type MemoryBackend struct {
	mu      sync.RWMutex
	records map[string]map[string]*Record
	now     func() time.Time
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		records: make(map[string]map[string]*Record),
		now:     time.Now,
	}
}

// WithClock replaces the timestamp source.
func (m *MemoryBackend) WithClock(now func() time.Time) *MemoryBackend {
	m.now = now
	return m
}

func (m *MemoryBackend) Create(ctx context.Context, collection, id string, fields Fields, refs ...Ref) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, _, err := normalize(fields)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, ref := range refs {
		if _, ok := m.records[ref.Collection][ref.ID]; !ok {
			return nil, missingRef(ref)
		}
	}

	if id == "" {
		id = uuid.NewString()
	}

	coll, ok := m.records[collection]
	if !ok {
		coll = make(map[string]*Record)
		m.records[collection] = coll
	}
	if _, exists := coll[id]; exists {
		return nil, fmt.Errorf("%w: %s/%s", ErrAlreadyExists, collection, id)
	}

	now := m.now().UTC()
	rec := &Record{
		ID:         id,
		Collection: collection,
		Fields:     data,
		CreatedAt:  now,
		UpdatedAt:  now,
		Version:    1,
	}
	coll[id] = rec

	return cloneRecord(rec), nil
}

func (m *MemoryBackend) Get(ctx context.Context, collection, id string) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[collection][id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneRecord(rec), nil
}

func (m *MemoryBackend) List(ctx context.Context, collection string, q Query) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := q.validate(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	var out []Record
	for _, rec := range m.records[collection] {
		if matches(rec, q.Where) {
			out = append(out, *cloneRecord(rec))
		}
	}
	m.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		for _, o := range q.OrderBy {
			c := compareField(&out[i], &out[j], o.Field)
			if c == 0 {
				continue
			}
			if o.Desc {
				return c > 0
			}
			return c < 0
		}
		return out[i].ID < out[j].ID
	})

	if q.Offset > 0 {
		if q.Offset >= len(out) {
			return []Record{}, nil
		}
		out = out[q.Offset:]
	}
	if q.Limit > 0 && q.Limit < len(out) {
		out = out[:q.Limit]
	}

	return out, nil
}

func (m *MemoryBackend) Update(ctx context.Context, collection, id string, fields Fields, expectedVersion int64) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	patch, _, err := normalize(fields)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[collection][id]
	if !ok {
		return nil, ErrNotFound
	}
	if expectedVersion > 0 && rec.Version != expectedVersion {
		return nil, fmt.Errorf("%w: %s/%s at version %d, expected %d", ErrConflict, collection, id, rec.Version, expectedVersion)
	}

	for k, v := range patch {
		rec.Fields[k] = v
	}
	rec.Version++
	rec.UpdatedAt = m.now().UTC()

	return cloneRecord(rec), nil
}

func matches(rec *Record, where []Eq) bool {
	for _, eq := range where {
		if fieldText(rec, eq.Field) != textValue(eq.Value) {
			return false
		}
	}
	return true
}

func fieldText(rec *Record, field string) string {
	switch field {
	case FieldID:
		return rec.ID
	}
	return textValue(rec.Fields[field])
}

func compareField(a, b *Record, field string) int {
	switch field {
	case FieldCreatedAt:
		return a.CreatedAt.Compare(b.CreatedAt)
	case FieldUpdatedAt:
		return a.UpdatedAt.Compare(b.UpdatedAt)
	}
	return strings.Compare(fieldText(a, field), fieldText(b, field))
}

func cloneRecord(rec *Record) *Record {
	cp := *rec
	cp.Fields = make(Fields, len(rec.Fields))
	for k, v := range rec.Fields {
		cp.Fields[k] = v
	}
	return &cp
}
