package store

import (
	"context"
	"strings"
	"testing"
	"time"
)

type visit struct {
	PatientID string    `json:"patientId"`
	Schedule  time.Time `json:"schedule"`
	Note      string    `json:"note,omitempty"`
}

func TestCollection_RoundTrip(t *testing.T) {
	coll := NewCollection[visit](NewMemoryBackend(), "visits")
	ctx := context.Background()

	when := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	doc, err := coll.Create(ctx, "", visit{PatientID: "p1", Schedule: when})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if !doc.Data.Schedule.Equal(when) {
		t.Errorf("schedule changed in storage: %s", doc.Data.Schedule)
	}

	updated, err := coll.Update(ctx, doc.ID, Fields{"note": "bring results"}, doc.Version)
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.Data.Note != "bring results" || updated.Data.PatientID != "p1" {
		t.Errorf("unexpected document after patch: %+v", updated.Data)
	}

	list, err := coll.List(ctx, Query{Where: []Eq{Equal("patientId", "p1")}})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list) != 1 || list[0].ID != doc.ID {
		t.Fatalf("unexpected list: %+v", list)
	}
}

func TestBuildListQuery(t *testing.T) {
	sql, args := buildListQuery("appointments", Query{
		Where:   []Eq{Equal("status", "pending")},
		OrderBy: []Order{OrderDesc(FieldCreatedAt)},
		Limit:   10,
	})

	wantFragments := []string{
		"WHERE collection = $1",
		"AND data->>$2 = $3",
		"ORDER BY created_at DESC, id ASC",
		"LIMIT $4",
	}
	for _, f := range wantFragments {
		if !strings.Contains(sql, f) {
			t.Errorf("expected %q in %s", f, sql)
		}
	}
	if len(args) != 4 || args[0] != "appointments" || args[1] != "status" || args[2] != "pending" || args[3] != 10 {
		t.Errorf("unexpected args: %v", args)
	}
}
