package task

import (
	"testing"
	"time"

	"taskbeat/internal/store"
)

func ptr(t time.Time) *time.Time { return &t }

func TestFromRecord(t *testing.T) {
	t.Parallel()
	got, err := FromRecord(store.Record{
		"id":              "t1",
		"user_id":         "u1",
		"title":           "Invoice clients",
		"status":          "inbox",
		"priority":        "high",
		"is_recurring":    int64(1),
		"is_paused":       int64(0),
		"recurrence_rule": "weekly-friday",
		"due_date":        "2024-06-14",
		"created_at":      "2024-06-01T09:00:00Z",
	})
	if err != nil {
		t.Fatalf("FromRecord: %v", err)
	}
	if !got.IsRecurring || got.IsPaused {
		t.Fatalf("flags wrong: %+v", got)
	}
	if got.DueDate == nil || got.DueDate.Format(DateLayout) != "2024-06-14" {
		t.Fatalf("due date wrong: %v", got.DueDate)
	}
	if got.CreatedAt.IsZero() {
		t.Fatal("created_at not decoded")
	}
}

func TestFromRecordBadTimestamp(t *testing.T) {
	t.Parallel()
	_, err := FromRecord(store.Record{"title": "x", "created_at": "yesterday"})
	if err == nil {
		t.Fatal("expected error for malformed timestamp")
	}
}

func TestRecordRoundTrip(t *testing.T) {
	t.Parallel()
	due := time.Date(2024, time.June, 14, 0, 0, 0, 0, time.UTC)
	src := Task{
		UserID: "u1", Title: "Invoice clients", Status: "this_week",
		Priority: "high", ParentTaskID: "tpl", DueDate: &due,
		CreatedAt: time.Date(2024, time.June, 10, 8, 0, 0, 0, time.UTC),
	}
	rec := src.Record()
	if rec["due_date"] != "2024-06-14" {
		t.Fatalf("due_date = %v", rec["due_date"])
	}
	if _, ok := rec["description"]; ok {
		t.Fatal("empty optional should be omitted")
	}
	back, err := FromRecord(rec)
	if err != nil {
		t.Fatalf("FromRecord: %v", err)
	}
	if back.Title != src.Title || back.ParentTaskID != src.ParentTaskID {
		t.Fatalf("round trip mismatch: %+v", back)
	}
}

func TestInstanceSnapshotsTemplate(t *testing.T) {
	t.Parallel()
	tpl := Task{
		ID: "tpl", UserID: "u1", Title: "Invoice clients",
		Description: "Monthly billing", Category: "admin", Priority: "high",
		ClientID: "c9", IsRecurring: true, RecurrenceRule: "weekly-friday",
	}
	due := time.Date(2024, time.June, 14, 0, 0, 0, 0, time.UTC)
	now := time.Date(2024, time.June, 10, 9, 30, 0, 0, time.UTC)

	inst := Instance(tpl, due, "this_week", now)
	if inst.IsRecurring {
		t.Fatal("instance must not be recurring")
	}
	if inst.ParentTaskID != "tpl" {
		t.Fatalf("parent = %q", inst.ParentTaskID)
	}
	if inst.Title != tpl.Title || inst.Description != tpl.Description || inst.ClientID != tpl.ClientID {
		t.Fatalf("content not copied: %+v", inst)
	}
	if inst.Status != "this_week" {
		t.Fatalf("status = %q", inst.Status)
	}
	if inst.DueDate == nil || !inst.DueDate.Equal(due) {
		t.Fatalf("due = %v", inst.DueDate)
	}
	if inst.TimeBlockStart != nil {
		t.Fatal("no time block on template, none expected on instance")
	}
}

func TestInstanceProjectsTimeBlock(t *testing.T) {
	t.Parallel()
	tpl := Task{
		ID: "tpl", UserID: "u1", Title: "Standup",
		TimeBlockStart: ptr(time.Date(2024, time.January, 3, 9, 15, 30, 0, time.UTC)),
		TimeBlockEnd:   ptr(time.Date(2024, time.January, 3, 9, 45, 0, 0, time.UTC)),
	}
	due := time.Date(2024, time.June, 14, 0, 0, 0, 0, time.UTC)

	inst := Instance(tpl, due, "this_week", due)
	if inst.TimeBlockStart == nil || inst.TimeBlockEnd == nil {
		t.Fatal("time block not projected")
	}
	wantStart := time.Date(2024, time.June, 14, 9, 15, 0, 0, time.UTC)
	if !inst.TimeBlockStart.Equal(wantStart) {
		t.Fatalf("start = %v, want %v", inst.TimeBlockStart, wantStart)
	}
	wantEnd := time.Date(2024, time.June, 14, 9, 45, 0, 0, time.UTC)
	if !inst.TimeBlockEnd.Equal(wantEnd) {
		t.Fatalf("end = %v, want %v", inst.TimeBlockEnd, wantEnd)
	}
}
