package store

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

// steppingClock returns a clock that advances by step on every call.
func steppingClock(start time.Time, step time.Duration) func() time.Time {
	t := start
	return func() time.Time {
		cur := t
		t = t.Add(step)
		return cur
	}
}

func TestMemoryBackend_CreateAssignsID(t *testing.T) {
	b := NewMemoryBackend()
	ctx := context.Background()

	rec, err := b.Create(ctx, "appointments", "", Fields{"status": "pending"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if rec.ID == "" {
		t.Fatal("expected store-assigned id")
	}
	if rec.Version != 1 {
		t.Errorf("expected version 1, got %d", rec.Version)
	}
	if rec.CreatedAt.IsZero() {
		t.Error("expected creation timestamp")
	}

	got, err := b.Get(ctx, "appointments", rec.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Fields["status"] != "pending" {
		t.Errorf("expected status pending, got %v", got.Fields["status"])
	}
}

func TestMemoryBackend_CreateDuplicateID(t *testing.T) {
	b := NewMemoryBackend()
	ctx := context.Background()

	if _, err := b.Create(ctx, "providers", "dr-smith", Fields{"name": "Smith"}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	_, err := b.Create(ctx, "providers", "dr-smith", Fields{"name": "Other"})
	if !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestMemoryBackend_CreateChecksRefs(t *testing.T) {
	b := NewMemoryBackend()
	ctx := context.Background()

	if _, err := b.Create(ctx, "patients", "p1", Fields{}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	_, err := b.Create(ctx, "appointments", "", Fields{}, Ref{"patients", "p1"}, Ref{"providers", "dr-who"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if !strings.Contains(err.Error(), "providers/dr-who") {
		t.Errorf("expected error to name the missing ref, got %v", err)
	}

	list, err := b.List(ctx, "appointments", Query{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("expected no appointment written, got %d", len(list))
	}
}

func TestMemoryBackend_UpdateIsNotUpsert(t *testing.T) {
	b := NewMemoryBackend()

	_, err := b.Update(context.Background(), "appointments", "missing", Fields{"status": "scheduled"}, 0)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := b.Get(context.Background(), "appointments", "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("update must not create, got %v", err)
	}
}

func TestMemoryBackend_UpdateMergesAndVersions(t *testing.T) {
	b := NewMemoryBackend()
	ctx := context.Background()

	rec, _ := b.Create(ctx, "appointments", "", Fields{"status": "pending", "reason": "checkup"})

	updated, err := b.Update(ctx, "appointments", rec.ID, Fields{"status": "scheduled"}, rec.Version)
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.Version != 2 {
		t.Errorf("expected version 2, got %d", updated.Version)
	}
	if updated.Fields["reason"] != "checkup" {
		t.Errorf("expected untouched field to survive merge, got %v", updated.Fields["reason"])
	}
	if updated.Fields["status"] != "scheduled" {
		t.Errorf("expected status scheduled, got %v", updated.Fields["status"])
	}

	_, err = b.Update(ctx, "appointments", rec.ID, Fields{"status": "cancelled"}, rec.Version)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict for stale version, got %v", err)
	}
}

func TestMemoryBackend_ListOrdering(t *testing.T) {
	start := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	b := NewMemoryBackend().WithClock(steppingClock(start, time.Minute))
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		if _, err := b.Create(ctx, "appointments", id, Fields{"status": "pending"}); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	list, err := b.List(ctx, "appointments", Query{OrderBy: []Order{OrderDesc(FieldCreatedAt)}})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}

	var ids []string
	for _, r := range list {
		ids = append(ids, r.ID)
	}
	if strings.Join(ids, ",") != "c,b,a" {
		t.Errorf("expected most recent first, got %v", ids)
	}
}

func TestMemoryBackend_ListTieBreaksByID(t *testing.T) {
	fixed := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	b := NewMemoryBackend().WithClock(func() time.Time { return fixed })
	ctx := context.Background()

	for _, id := range []string{"z", "m", "a"} {
		b.Create(ctx, "appointments", id, Fields{})
	}

	list, _ := b.List(ctx, "appointments", Query{OrderBy: []Order{OrderDesc(FieldCreatedAt)}})
	var ids []string
	for _, r := range list {
		ids = append(ids, r.ID)
	}
	if strings.Join(ids, ",") != "a,m,z" {
		t.Errorf("expected id ascending tie-break, got %v", ids)
	}
}

func TestMemoryBackend_ListFiltersAndPages(t *testing.T) {
	b := NewMemoryBackend()
	ctx := context.Background()

	b.Create(ctx, "patients", "1", Fields{"userId": "u1"})
	b.Create(ctx, "patients", "2", Fields{"userId": "u2"})
	b.Create(ctx, "patients", "3", Fields{"userId": "u1"})

	list, err := b.List(ctx, "patients", Query{Where: []Eq{Equal("userId", "u1")}, OrderBy: []Order{OrderAsc(FieldID)}})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list) != 2 || list[0].ID != "1" || list[1].ID != "3" {
		t.Fatalf("unexpected filter result: %+v", list)
	}

	page, _ := b.List(ctx, "patients", Query{OrderBy: []Order{OrderAsc(FieldID)}, Limit: 1, Offset: 1})
	if len(page) != 1 || page[0].ID != "2" {
		t.Fatalf("unexpected page: %+v", page)
	}

	empty, _ := b.List(ctx, "patients", Query{Offset: 10})
	if len(empty) != 0 {
		t.Fatalf("expected empty page, got %d", len(empty))
	}
}

func TestMemoryBackend_ListRejectsBadField(t *testing.T) {
	b := NewMemoryBackend()

	tests := []struct {
		name string
		q    Query
	}{
		{"injection in field", Query{Where: []Eq{Equal("x'; drop", "y")}}},
		{"timestamp equality", Query{Where: []Eq{Equal(FieldCreatedAt, "2025")}}},
		{"negative limit", Query{Limit: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := b.List(context.Background(), "patients", tt.q)
			if !errors.Is(err, ErrInvalidQuery) {
				t.Fatalf("expected ErrInvalidQuery, got %v", err)
			}
		})
	}
}

func TestMemoryBackend_ReturnsCopies(t *testing.T) {
	b := NewMemoryBackend()
	ctx := context.Background()

	rec, _ := b.Create(ctx, "appointments", "x", Fields{"status": "pending"})
	rec.Fields["status"] = "tampered"

	got, _ := b.Get(ctx, "appointments", "x")
	if got.Fields["status"] != "pending" {
		t.Errorf("stored record was mutated through returned copy: %v", got.Fields["status"])
	}
}
