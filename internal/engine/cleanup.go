package engine

import (
	"context"
	"fmt"
	"sort"

	"taskbeat/internal/store"
	logx "taskbeat/pkg/logx"
)

// Cleanup scans the user's materialized instances, groups them by
// (template, due date) and deletes every member but the earliest
// created. The insert path avoids duplicates best-effort only (clock
// skew, cross-process races); this pass is the convergence mechanism
// that restores the one-instance-per-occurrence invariant, and it is
// idempotent and safe to rerun.
func (s *Service) Cleanup(ctx context.Context, userID string) CleanupReport {
	var rep CleanupReport

	instances, err := s.st.Find(ctx, store.TableTasks, store.Query{
		Conds: []store.Cond{
			store.Eq("user_id", userID),
			store.NotNull("parent_task_id"),
		},
		OrderBy: []store.Order{{Col: "parent_task_id"}, {Col: "due_date"}, {Col: "created_at"}},
	})
	if err != nil {
		rep.Errors = append(rep.Errors, fmt.Sprintf("failed to fetch instances: %v", err))
		return rep
	}

	type member struct {
		id      string
		created string
	}
	groups := make(map[string][]member)
	for _, rec := range instances {
		parent, _ := rec["parent_task_id"].(string)
		due, _ := rec["due_date"].(string)
		id, _ := rec["id"].(string)
		if parent == "" || due == "" || id == "" {
			continue
		}
		created, _ := rec["created_at"].(string)
		key := parent + "|" + due
		groups[key] = append(groups[key], member{id: id, created: created})
	}

	for key, members := range groups {
		if len(members) < 2 {
			continue
		}
		// RFC 3339 in UTC sorts lexically by creation time.
		sort.Slice(members, func(i, j int) bool { return members[i].created < members[j].created })

		s.log.Debug("duplicate group found",
			logx.String("group", key), logx.Int("members", len(members)))

		for _, dup := range members[1:] {
			if err := s.st.Delete(ctx, store.TableTasks, []store.Cond{store.Eq("id", dup.id)}); err != nil {
				rep.Errors = append(rep.Errors, fmt.Sprintf("failed to delete duplicate %s: %v", dup.id, err))
				continue
			}
			rep.Deleted++
		}
	}

	s.log.Info("cleanup finished",
		logx.String("user", userID),
		logx.Int("deleted", rep.Deleted),
		logx.Int("errors", len(rep.Errors)))
	return rep
}
