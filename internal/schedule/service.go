// Package schedule triggers engine runs on a clock instead of user
// activity. The generation pass fires on a cron spec (or "@every"
// interval) per configured user; the duplicate-reconciliation pass gets
// its own, usually much sparser, spec.
package schedule

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	logx "taskbeat/pkg/logx"
)

type Config struct {
	Enabled     bool
	Spec        string // cron spec or "@every <duration>"; default "@every 15m"
	CleanupSpec string // empty disables the cleanup job
	Timezone    string // IANA TZ; empty means local
	Users       []string
}

const defaultSpec = "@every 15m"

// Job is one scheduled action for one user.
type Job func(ctx context.Context, userID string)

type Service struct {
	mu sync.Mutex

	log logx.Logger
	cfg Config

	run     Job
	cleanup Job

	parser cron.Parser
	c      *cron.Cron

	// running guards against overlapping ticks: a tick that fires while
	// the previous one is still walking users is skipped outright.
	runBusy     sync.Mutex
	cleanupBusy sync.Mutex

	runCtx    context.Context
	runCancel context.CancelFunc
}

func New(cfg Config, log logx.Logger, run, cleanup Job) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		cfg:     cfg,
		log:     log,
		run:     run,
		cleanup: cleanup,
		parser:  cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
	}
}

func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c != nil {
		return nil
	}
	if !s.cfg.Enabled {
		s.log.Debug("scheduler disabled")
		return nil
	}

	loc := time.Local
	if tz := strings.TrimSpace(s.cfg.Timezone); tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			return err
		}
		loc = l
	}

	s.runCtx, s.runCancel = context.WithCancel(ctx)
	c := cron.New(cron.WithParser(s.parser), cron.WithLocation(loc))

	spec := strings.TrimSpace(s.cfg.Spec)
	if spec == "" {
		spec = defaultSpec
	}
	if _, err := c.AddFunc(spec, s.tickRun); err != nil {
		s.runCancel()
		s.runCtx, s.runCancel = nil, nil
		return err
	}
	if cs := strings.TrimSpace(s.cfg.CleanupSpec); cs != "" {
		if _, err := c.AddFunc(cs, s.tickCleanup); err != nil {
			s.runCancel()
			s.runCtx, s.runCancel = nil, nil
			return err
		}
	}

	c.Start()
	s.c = c
	s.log.Info("scheduler started",
		logx.String("spec", spec),
		logx.String("cleanup_spec", s.cfg.CleanupSpec),
		logx.String("timezone", loc.String()),
		logx.Int("users", len(s.cfg.Users)))
	return nil
}

func (s *Service) Stop() {
	s.mu.Lock()
	c := s.c
	cancel := s.runCancel
	s.c = nil
	s.runCtx, s.runCancel = nil, nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if c != nil {
		// Wait for an in-flight tick to drain.
		<-c.Stop().Done()
	}
}

// Apply restarts the cron with new settings when they changed.
func (s *Service) Apply(ctx context.Context, cfg Config) error {
	s.mu.Lock()
	same := configEqual(s.cfg, cfg)
	running := s.c != nil
	s.cfg = cfg
	s.mu.Unlock()

	if same || !running {
		return nil
	}
	s.Stop()
	return s.Start(ctx)
}

func (s *Service) tickRun() {
	if s.run == nil {
		return
	}
	if !s.runBusy.TryLock() {
		s.log.Debug("generation tick skipped: previous still running")
		return
	}
	defer s.runBusy.Unlock()

	s.mu.Lock()
	ctx := s.runCtx
	users := append([]string(nil), s.cfg.Users...)
	s.mu.Unlock()
	if ctx == nil || ctx.Err() != nil {
		return
	}

	for _, user := range users {
		if ctx.Err() != nil {
			return
		}
		s.run(ctx, user)
	}
}

func (s *Service) tickCleanup() {
	if s.cleanup == nil {
		return
	}
	if !s.cleanupBusy.TryLock() {
		s.log.Debug("cleanup tick skipped: previous still running")
		return
	}
	defer s.cleanupBusy.Unlock()

	s.mu.Lock()
	ctx := s.runCtx
	users := append([]string(nil), s.cfg.Users...)
	s.mu.Unlock()
	if ctx == nil || ctx.Err() != nil {
		return
	}

	for _, user := range users {
		if ctx.Err() != nil {
			return
		}
		s.cleanup(ctx, user)
	}
}

func configEqual(a, b Config) bool {
	if a.Enabled != b.Enabled || a.Spec != b.Spec ||
		a.CleanupSpec != b.CleanupSpec || a.Timezone != b.Timezone ||
		len(a.Users) != len(b.Users) {
		return false
	}
	for i := range a.Users {
		if a.Users[i] != b.Users[i] {
			return false
		}
	}
	return true
}
