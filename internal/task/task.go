// Package task defines the CRM task record as the engine sees it, plus
// conversions to and from the store's column-keyed records.
package task

import (
	"fmt"
	"time"

	"taskbeat/internal/store"
)

// DateLayout is the calendar-date form used for due_date columns.
const DateLayout = "2006-01-02"

// Task is one row of the tasks table. A recurring template has
// IsRecurring set and no ParentTaskID; a generated instance points back
// at its template via ParentTaskID.
type Task struct {
	ID             string
	UserID         string
	Title          string
	Description    string
	Status         string
	Category       string
	Priority       string
	ClientID       string
	DueDate        *time.Time
	CreatedAt      time.Time
	CompletedAt    *time.Time
	TimeBlockStart *time.Time
	TimeBlockEnd   *time.Time
	IsRecurring    bool
	RecurrenceRule string
	ParentTaskID   string
	IsPaused       bool
}

// FromRecord decodes a store record into a Task. Missing optional
// columns decode to zero values; a malformed timestamp is an error.
func FromRecord(rec store.Record) (Task, error) {
	t := Task{
		ID:             str(rec, "id"),
		UserID:         str(rec, "user_id"),
		Title:          str(rec, "title"),
		Description:    str(rec, "description"),
		Status:         str(rec, "status"),
		Category:       str(rec, "category"),
		Priority:       str(rec, "priority"),
		ClientID:       str(rec, "client_id"),
		IsRecurring:    boolean(rec, "is_recurring"),
		RecurrenceRule: str(rec, "recurrence_rule"),
		ParentTaskID:   str(rec, "parent_task_id"),
		IsPaused:       boolean(rec, "is_paused"),
	}

	var err error
	if t.DueDate, err = dateCol(rec, "due_date"); err != nil {
		return Task{}, err
	}
	if t.CompletedAt, err = timeCol(rec, "completed_at"); err != nil {
		return Task{}, err
	}
	if t.TimeBlockStart, err = timeCol(rec, "time_block_start"); err != nil {
		return Task{}, err
	}
	if t.TimeBlockEnd, err = timeCol(rec, "time_block_end"); err != nil {
		return Task{}, err
	}
	created, err := timeCol(rec, "created_at")
	if err != nil {
		return Task{}, err
	}
	if created != nil {
		t.CreatedAt = *created
	}
	return t, nil
}

// Record encodes the task for insertion. Nil optionals become NULLs.
func (t Task) Record() store.Record {
	rec := store.Record{
		"user_id":      t.UserID,
		"title":        t.Title,
		"status":       t.Status,
		"priority":     t.Priority,
		"is_recurring": t.IsRecurring,
		"is_paused":    t.IsPaused,
	}
	if t.ID != "" {
		rec["id"] = t.ID
	}
	putStr(rec, "description", t.Description)
	putStr(rec, "category", t.Category)
	putStr(rec, "client_id", t.ClientID)
	putStr(rec, "recurrence_rule", t.RecurrenceRule)
	putStr(rec, "parent_task_id", t.ParentTaskID)
	if t.DueDate != nil {
		rec["due_date"] = t.DueDate.Format(DateLayout)
	}
	if !t.CreatedAt.IsZero() {
		rec["created_at"] = t.CreatedAt.UTC().Format(time.RFC3339)
	}
	if t.CompletedAt != nil {
		rec["completed_at"] = t.CompletedAt.UTC().Format(time.RFC3339)
	}
	if t.TimeBlockStart != nil {
		rec["time_block_start"] = t.TimeBlockStart.UTC().Format(time.RFC3339)
	}
	if t.TimeBlockEnd != nil {
		rec["time_block_end"] = t.TimeBlockEnd.UTC().Format(time.RFC3339)
	}
	return rec
}

// Instance materializes one occurrence of a template: content fields
// are snapshotted at creation time, so later template edits never touch
// already-generated instances. Time blocks keep the template's clock
// time but land on the computed due date.
func Instance(template Task, due time.Time, status string, now time.Time) Task {
	inst := Task{
		UserID:       template.UserID,
		Title:        template.Title,
		Description:  template.Description,
		Status:       status,
		Category:     template.Category,
		Priority:     template.Priority,
		ClientID:     template.ClientID,
		DueDate:      &due,
		CreatedAt:    now,
		ParentTaskID: template.ID,
	}
	if template.TimeBlockStart != nil && template.TimeBlockEnd != nil {
		start := projectClock(*template.TimeBlockStart, due)
		end := projectClock(*template.TimeBlockEnd, due)
		inst.TimeBlockStart = &start
		inst.TimeBlockEnd = &end
	}
	return inst
}

// projectClock keeps src's hour and minute but moves it onto the target
// calendar date. Seconds are dropped.
func projectClock(src, onto time.Time) time.Time {
	return time.Date(onto.Year(), onto.Month(), onto.Day(),
		src.Hour(), src.Minute(), 0, 0, onto.Location())
}

func str(rec store.Record, col string) string {
	if v, ok := rec[col].(string); ok {
		return v
	}
	return ""
}

func putStr(rec store.Record, col, v string) {
	if v != "" {
		rec[col] = v
	}
}

func boolean(rec store.Record, col string) bool {
	switch v := rec[col].(type) {
	case bool:
		return v
	case int64:
		return v != 0
	default:
		return false
	}
}

func dateCol(rec store.Record, col string) (*time.Time, error) {
	s := str(rec, col)
	if s == "" {
		return nil, nil
	}
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		// Tolerate full timestamps in date columns (imported rows).
		d2, err2 := parseTimestamp(s)
		if err2 != nil {
			return nil, fmt.Errorf("column %s: %w", col, err)
		}
		d = d2
	}
	return &d, nil
}

func timeCol(rec store.Record, col string) (*time.Time, error) {
	s := str(rec, col)
	if s == "" {
		return nil, nil
	}
	ts, err := parseTimestamp(s)
	if err != nil {
		return nil, fmt.Errorf("column %s: %w", col, err)
	}
	return &ts, nil
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", DateLayout} {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
