package engine

import (
	"context"
	"fmt"
	"time"

	"taskbeat/internal/recur"
	"taskbeat/internal/store"
	"taskbeat/internal/task"
	logx "taskbeat/pkg/logx"
)

// Run executes one generation pass for the user.
//
// A run suppressed by the governor returns an empty report: that is a
// silent no-op, not a failure. A template fetch failure aborts with a
// single error; anything that goes wrong for an individual template is
// recorded and processing continues with the next one.
func (s *Service) Run(ctx context.Context, userID string) Report {
	now := s.now()
	if !s.allowRun(ctx, userID, now) {
		return Report{}
	}
	if err := s.markRun(ctx, userID, now); err != nil {
		s.log.Warn("run marker write failed", logx.String("user", userID), logx.Err(err))
	}

	var rep Report
	templates, err := s.st.Find(ctx, store.TableTasks, store.Query{
		Conds: []store.Cond{
			store.Eq("user_id", userID),
			store.Eq("is_recurring", true),
			store.Eq("is_paused", false),
			store.IsNull("parent_task_id"),
		},
	})
	if err != nil {
		rep.Errors = append(rep.Errors, fmt.Sprintf("failed to fetch recurring templates: %v", err))
		return rep
	}

	today := recur.Midnight(now)
	s.log.Debug("generation run started",
		logx.String("user", userID),
		logx.Int("templates", len(templates)),
		logx.Time("today", today))

	for _, rec := range templates {
		tpl, err := task.FromRecord(rec)
		if err != nil {
			rep.Errors = append(rep.Errors, fmt.Sprintf("template %v: %v", rec["id"], err))
			continue
		}
		created, err := s.processTemplate(ctx, tpl, today, now)
		if err != nil {
			rep.Errors = append(rep.Errors, fmt.Sprintf("template %q: %v", tpl.Title, err))
			continue
		}
		if created {
			rep.Created++
		}
	}

	s.log.Info("generation run finished",
		logx.String("user", userID),
		logx.Int("created", rep.Created),
		logx.Int("errors", len(rep.Errors)))
	return rep
}

// processTemplate handles one template in isolation. The sequential
// caller loop keeps the same-day check and the insert for one template
// from interleaving with each other.
func (s *Service) processTemplate(ctx context.Context, tpl task.Task, today, now time.Time) (created bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			created, err = false, fmt.Errorf("panic: %v", r)
		}
	}()

	rule, ok := recur.Parse(tpl.RecurrenceRule)
	if !ok {
		// Malformed or absent rule: skipped every run until corrected.
		s.log.Debug("template skipped: no usable rule",
			logx.String("title", tpl.Title), logx.String("rule", tpl.RecurrenceRule))
		return false, nil
	}

	// Same-day guard: one creation per template per calendar day, no
	// matter how often the engine is poked.
	sinceMidnight := today.UTC().Format(time.RFC3339)
	todays, err := s.st.Find(ctx, store.TableTasks, store.Query{
		Conds: []store.Cond{
			store.Eq("parent_task_id", tpl.ID),
			store.Gte("created_at", sinceMidnight),
		},
		Limit: 1,
	})
	if err != nil {
		return false, fmt.Errorf("same-day check: %w", err)
	}
	if len(todays) > 0 {
		s.log.Debug("template skipped: instance already created today", logx.String("title", tpl.Title))
		return false, nil
	}

	lastDue, err := s.latestInstanceDue(ctx, tpl.ID)
	if err != nil {
		return false, fmt.Errorf("latest instance lookup: %w", err)
	}

	nextDue := recur.NextDue(rule, today)
	if !recur.ShouldCreate(lastDue, nextDue, today) {
		return false, nil
	}

	// Re-check at the exact due date right before inserting. A run in
	// another process may have written between the lookups above and
	// here; finding a row means skip silently.
	dueStr := nextDue.Format(task.DateLayout)
	existing, err := s.st.Find(ctx, store.TableTasks, store.Query{
		Conds: []store.Cond{
			store.Eq("parent_task_id", tpl.ID),
			store.Eq("due_date", dueStr),
		},
		Limit: 1,
	})
	if err != nil {
		return false, fmt.Errorf("pre-insert check: %w", err)
	}
	if len(existing) > 0 {
		s.log.Debug("template skipped: instance exists for due date",
			logx.String("title", tpl.Title), logx.String("due", dueStr))
		return false, nil
	}

	bucket := recur.BucketFor(nextDue, today)
	inst := task.Instance(tpl, nextDue, string(bucket), now)
	if _, err := s.st.Insert(ctx, store.TableTasks, inst.Record()); err != nil {
		return false, fmt.Errorf("insert: %w", err)
	}

	s.log.Info("instance created",
		logx.String("title", tpl.Title),
		logx.String("due", dueStr),
		logx.String("bucket", string(bucket)))
	return true, nil
}

// latestInstanceDue returns the due date of the template's most recent
// instance, or nil when none exists yet.
func (s *Service) latestInstanceDue(ctx context.Context, templateID string) (*time.Time, error) {
	recs, err := s.st.Find(ctx, store.TableTasks, store.Query{
		Conds: []store.Cond{
			store.Eq("parent_task_id", templateID),
			store.NotNull("due_date"),
		},
		OrderBy: []store.Order{{Col: "due_date", Desc: true}},
		Limit:   1,
	})
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, nil
	}
	inst, err := task.FromRecord(recs[0])
	if err != nil {
		return nil, err
	}
	return inst.DueDate, nil
}
