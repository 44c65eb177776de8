package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskbeat/internal/store"
)

func TestCleanupKeepsEarliest(t *testing.T) {
	t.Parallel()
	f := newFakeStore()
	f.seed(store.TableTasks,
		template("tpl-1", "Invoice clients", "weekly-friday"),
		instance("t1", "tpl-1", "2024-06-14", "2024-06-10T08:00:00Z"),
		instance("t2", "tpl-1", "2024-06-14", "2024-06-10T08:05:00Z"),
		instance("t3", "tpl-1", "2024-06-14", "2024-06-10T09:00:00Z"),
		instance("ok", "tpl-1", "2024-06-07", "2024-06-07T08:00:00Z"),
	)

	rep := newTestService(f).Cleanup(context.Background(), "u1")
	require.Empty(t, rep.Errors)
	assert.Equal(t, 2, rep.Deleted)

	remaining := tasksWithDue(f, "2024-06-14")
	require.Len(t, remaining, 1)
	assert.Equal(t, "t1", remaining[0]["id"])

	// The unrelated occurrence is untouched.
	assert.Len(t, tasksWithDue(f, "2024-06-07"), 1)
}

func TestCleanupGroupsPerTemplate(t *testing.T) {
	t.Parallel()
	f := newFakeStore()
	// Same due date under two different templates is not a duplicate.
	f.seed(store.TableTasks,
		instance("a1", "tpl-a", "2024-06-14", "2024-06-10T08:00:00Z"),
		instance("b1", "tpl-b", "2024-06-14", "2024-06-10T08:01:00Z"),
	)

	rep := newTestService(f).Cleanup(context.Background(), "u1")
	require.Empty(t, rep.Errors)
	assert.Zero(t, rep.Deleted)
	assert.Len(t, tasksWithDue(f, "2024-06-14"), 2)
}

func TestCleanupIdempotent(t *testing.T) {
	t.Parallel()
	f := newFakeStore()
	f.seed(store.TableTasks,
		instance("t1", "tpl-1", "2024-06-14", "2024-06-10T08:00:00Z"),
		instance("t2", "tpl-1", "2024-06-14", "2024-06-10T08:05:00Z"),
	)

	s := newTestService(f)
	first := s.Cleanup(context.Background(), "u1")
	assert.Equal(t, 1, first.Deleted)

	second := s.Cleanup(context.Background(), "u1")
	assert.Zero(t, second.Deleted)
	assert.Empty(t, second.Errors)
}

func TestCleanupFetchFailure(t *testing.T) {
	t.Parallel()
	f := newFakeStore()
	f.findErr[store.TableTasks] = errors.New("store down")

	rep := newTestService(f).Cleanup(context.Background(), "u1")
	assert.Zero(t, rep.Deleted)
	require.Len(t, rep.Errors, 1)
	assert.Contains(t, rep.Errors[0], "failed to fetch instances")
}

func TestCleanupDeleteFailureRecorded(t *testing.T) {
	t.Parallel()
	f := newFakeStore()
	f.seed(store.TableTasks,
		instance("t1", "tpl-1", "2024-06-14", "2024-06-10T08:00:00Z"),
		instance("t2", "tpl-1", "2024-06-14", "2024-06-10T08:05:00Z"),
	)
	f.deleteErr[store.TableTasks] = errors.New("locked")

	rep := newTestService(f).Cleanup(context.Background(), "u1")
	assert.Zero(t, rep.Deleted)
	require.Len(t, rep.Errors, 1)
	assert.Contains(t, rep.Errors[0], "t2")
}
