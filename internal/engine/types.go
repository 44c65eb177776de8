package engine

import (
	"sync"
	"time"

	"taskbeat/internal/store"
	logx "taskbeat/pkg/logx"
)

// Config controls the engine.
//
// MinRunInterval is the governor window: a user's runs closer together
// than this are silently skipped. Zero means the 1h default.
type Config struct {
	MinRunInterval time.Duration
}

const defaultMinRunInterval = time.Hour

// Report is the outcome of one generation run. A run with errors still
// reports the instances it did create; callers surface Errors via
// logging or notification, never as a failure of the run itself.
type Report struct {
	Created int
	Errors  []string
}

// CleanupReport is the outcome of one duplicate-reconciliation pass.
type CleanupReport struct {
	Deleted int
	Errors  []string
}

// Service drives generation and cleanup against the record store.
type Service struct {
	mu  sync.Mutex
	cfg Config

	st  store.Store
	log logx.Logger

	// now is a hook for tests; defaults to time.Now.
	now func() time.Time
}

func New(cfg Config, st store.Store, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	s := &Service{st: st, log: log, now: time.Now}
	s.Apply(cfg)
	return s
}

// Apply swaps settings at runtime. (Thread-safe; a run in flight keeps
// the interval it started with.)
func (s *Service) Apply(cfg Config) {
	if cfg.MinRunInterval <= 0 {
		cfg.MinRunInterval = defaultMinRunInterval
	}
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
}

func (s *Service) minRunInterval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.MinRunInterval
}
