package engine

import (
	"context"
	"time"

	"taskbeat/internal/store"
	logx "taskbeat/pkg/logx"
)

// The run marker lives in the shared store rather than anywhere
// client-local, so the suppression window holds across devices and
// sessions for the same user.

// allowRun reports whether enough time has passed since the user's last
// run. A marker that cannot be read or parsed fails open: the governor
// is a load guard, not a correctness mechanism, and the duplicate
// guards downstream still hold.
func (s *Service) allowRun(ctx context.Context, userID string, now time.Time) bool {
	recs, err := s.st.Find(ctx, store.TableEngineRuns, store.Query{
		Conds: []store.Cond{store.Eq("user_id", userID)},
		Limit: 1,
	})
	if err != nil {
		s.log.Warn("run marker read failed; allowing run", logx.String("user", userID), logx.Err(err))
		return true
	}
	if len(recs) == 0 {
		return true
	}
	raw, _ := recs[0]["last_run_at"].(string)
	last, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		s.log.Warn("run marker unparseable; allowing run", logx.String("user", userID), logx.String("raw", raw))
		return true
	}

	elapsed := now.Sub(last)
	minInterval := s.minRunInterval()
	if elapsed < minInterval {
		s.log.Debug("run suppressed by governor",
			logx.String("user", userID),
			logx.Duration("elapsed", elapsed),
			logx.Duration("min_interval", minInterval))
		return false
	}
	return true
}

// markRun upserts the user's marker to now. Written before template
// processing starts: a crash mid-run must not let the next invocation
// retry inside the suppression window. At-most-once-per-interval wins
// over retry-on-failure.
func (s *Service) markRun(ctx context.Context, userID string, now time.Time) error {
	ts := now.UTC().Format(time.RFC3339)
	conds := []store.Cond{store.Eq("user_id", userID)}

	recs, err := s.st.Find(ctx, store.TableEngineRuns, store.Query{Conds: conds, Limit: 1})
	if err != nil {
		return err
	}
	if len(recs) > 0 {
		return s.st.Update(ctx, store.TableEngineRuns, conds, store.Record{"last_run_at": ts})
	}
	_, err = s.st.Insert(ctx, store.TableEngineRuns, store.Record{"user_id": userID, "last_run_at": ts})
	return err
}
