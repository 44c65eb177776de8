package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	logx "taskbeat/pkg/logx"
)

func openTestStore(t *testing.T) Store {
	t.Helper()
	st, err := Open(Config{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "taskbeat.db")}, logx.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestOpenUnknownDriver(t *testing.T) {
	t.Parallel()
	_, err := Open(Config{Driver: "postgres", Path: "x"}, logx.Nop())
	require.Error(t, err)
}

func TestInsertFillsID(t *testing.T) {
	t.Parallel()
	st := openTestStore(t)
	ctx := context.Background()

	rec, err := st.Insert(ctx, TableTasks, Record{
		"user_id":      "u1",
		"title":        "Water plants",
		"created_at":   "2024-06-10T08:00:00Z",
		"is_recurring": true,
	})
	require.NoError(t, err)
	require.NotEmpty(t, rec["id"])

	got, err := st.Find(ctx, TableTasks, Query{Conds: []Cond{Eq("id", rec["id"])}})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Water plants", got[0]["title"])
	assert.Equal(t, int64(1), got[0]["is_recurring"])
}

func TestFindConditionsOrderLimit(t *testing.T) {
	t.Parallel()
	st := openTestStore(t)
	ctx := context.Background()

	parent, err := st.Insert(ctx, TableTasks, Record{
		"user_id": "u1", "title": "Template", "created_at": "2024-06-01T00:00:00Z",
		"is_recurring": true, "recurrence_rule": "daily",
	})
	require.NoError(t, err)

	for _, due := range []string{"2024-06-08", "2024-06-09", "2024-06-10"} {
		_, err := st.Insert(ctx, TableTasks, Record{
			"user_id": "u1", "title": "Template", "created_at": due + "T00:00:00Z",
			"parent_task_id": parent["id"], "due_date": due,
		})
		require.NoError(t, err)
	}

	// Templates only: no parent reference.
	templates, err := st.Find(ctx, TableTasks, Query{
		Conds: []Cond{Eq("user_id", "u1"), IsNull("parent_task_id")},
	})
	require.NoError(t, err)
	require.Len(t, templates, 1)

	// Latest instance by due date.
	latest, err := st.Find(ctx, TableTasks, Query{
		Conds:   []Cond{Eq("parent_task_id", parent["id"]), NotNull("due_date")},
		OrderBy: []Order{{Col: "due_date", Desc: true}},
		Limit:   1,
	})
	require.NoError(t, err)
	require.Len(t, latest, 1)
	assert.Equal(t, "2024-06-10", latest[0]["due_date"])

	// Range condition.
	recent, err := st.Find(ctx, TableTasks, Query{
		Conds: []Cond{Eq("parent_task_id", parent["id"]), Gte("due_date", "2024-06-09")},
	})
	require.NoError(t, err)
	assert.Len(t, recent, 2)
}

func TestUpdateAndDelete(t *testing.T) {
	t.Parallel()
	st := openTestStore(t)
	ctx := context.Background()

	rec, err := st.Insert(ctx, TableTasks, Record{
		"user_id": "u1", "title": "Pause me", "created_at": "2024-06-01T00:00:00Z",
		"is_recurring": true,
	})
	require.NoError(t, err)

	require.NoError(t, st.Update(ctx, TableTasks,
		[]Cond{Eq("id", rec["id"])}, Record{"is_paused": true}))

	got, err := st.Find(ctx, TableTasks, Query{Conds: []Cond{Eq("id", rec["id"])}})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(1), got[0]["is_paused"])

	require.NoError(t, st.Delete(ctx, TableTasks, []Cond{Eq("id", rec["id"])}))
	got, err = st.Find(ctx, TableTasks, Query{Conds: []Cond{Eq("id", rec["id"])}})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDeleteRequiresCondition(t *testing.T) {
	t.Parallel()
	st := openTestStore(t)
	require.Error(t, st.Delete(context.Background(), TableTasks, nil))
}

func TestClosedSchema(t *testing.T) {
	t.Parallel()
	st := openTestStore(t)
	ctx := context.Background()

	_, err := st.Find(ctx, "clients", Query{})
	assert.ErrorIs(t, err, ErrUnknownTable)

	_, err = st.Insert(ctx, TableTasks, Record{"user_id": "u1", "title": "x", "created_at": "2024-06-01T00:00:00Z", "bogus": 1})
	assert.ErrorIs(t, err, ErrUnknownColumn)

	_, err = st.Find(ctx, TableTasks, Query{Conds: []Cond{Eq("bogus", 1)}})
	assert.ErrorIs(t, err, ErrUnknownColumn)
}

func TestEngineRunsUpsertShape(t *testing.T) {
	t.Parallel()
	st := openTestStore(t)
	ctx := context.Background()

	_, err := st.Insert(ctx, TableEngineRuns, Record{"user_id": "u1", "last_run_at": "2024-06-10T08:00:00Z"})
	require.NoError(t, err)

	require.NoError(t, st.Update(ctx, TableEngineRuns,
		[]Cond{Eq("user_id", "u1")}, Record{"last_run_at": "2024-06-10T09:30:00Z"}))

	got, err := st.Find(ctx, TableEngineRuns, Query{Conds: []Cond{Eq("user_id", "u1")}})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "2024-06-10T09:30:00Z", got[0]["last_run_at"])
}
