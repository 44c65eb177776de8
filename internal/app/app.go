// Package app wires configuration, logging, storage, the generation
// engine, the scheduler and the optional notifier into one process.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"taskbeat/internal/config"
	"taskbeat/internal/engine"
	"taskbeat/internal/notify"
	"taskbeat/internal/schedule"
	"taskbeat/internal/store"
	logx "taskbeat/pkg/logx"
)

type App struct {
	cfgm *config.Manager

	logs *logx.Service
	log  logx.Logger

	st    store.Store
	eng   *engine.Service
	sched *schedule.Service
	notif *notify.Service

	watchCancel context.CancelFunc
	watchDone   chan struct{}
	cfgCh       chan *config.Config
}

func New(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	logs, _ := logx.New(loggingConfig(cfg))
	log := logs.Logger().With(logx.String("svc", "app"))
	cfgm.SetLogger(logs.Logger().With(logx.String("svc", "config")))

	// Reloads that would change immutable sections are rejected before
	// they are published.
	cfgm.SetValidator(func(_ context.Context, next *config.Config) error {
		cur := cfgm.Get()
		if cur != nil && next.Storage != cur.Storage {
			return fmt.Errorf("storage: changes require a restart")
		}
		return nil
	})

	stCfg, err := storageConfig(cfg)
	if err != nil {
		return nil, err
	}
	st, err := store.Open(stCfg, logs.Logger().With(logx.String("svc", "store")))
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	engCfg, err := engineConfig(cfg)
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	eng := engine.New(engCfg, st, logs.Logger().With(logx.String("svc", "engine")))

	notif, err := notify.New(notifyConfig(cfg), logs.Logger().With(logx.String("svc", "notify")))
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("notify: %w", err)
	}

	a := &App{
		cfgm:  cfgm,
		logs:  logs,
		log:   log,
		st:    st,
		eng:   eng,
		notif: notif,
	}
	a.sched = schedule.New(scheduleConfig(cfg),
		logs.Logger().With(logx.String("svc", "schedule")),
		a.runJob, a.cleanupJob)
	return a, nil
}

// Log returns the root application logger.
func (a *App) Log() logx.Logger { return a.log }

func (a *App) Start(ctx context.Context) error {
	if err := a.sched.Start(ctx); err != nil {
		return fmt.Errorf("schedule: %w", err)
	}

	watchCtx, cancel := context.WithCancel(context.Background())
	a.watchCancel = cancel
	a.watchDone = make(chan struct{})
	a.cfgCh = a.cfgm.Subscribe(1)

	go func() {
		defer close(a.watchDone)
		if err := a.cfgm.Watch(watchCtx); err != nil && watchCtx.Err() == nil {
			a.log.Warn("config watch stopped", logx.Err(err))
		}
	}()
	go a.reloadLoop(watchCtx)

	sent, err := daemon.SdNotify(false, daemon.SdNotifyReady)
	if err != nil {
		a.log.Warn("sd_notify failed", logx.Err(err))
	} else if sent {
		a.log.Debug("sd_notify ready")
	}

	a.log.Info("started")
	return nil
}

func (a *App) Stop(ctx context.Context) error {
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)

	if a.watchCancel != nil {
		a.watchCancel()
		select {
		case <-a.watchDone:
		case <-ctx.Done():
		}
		a.cfgm.Unsubscribe(a.cfgCh)
	}

	a.sched.Stop()

	if err := a.st.Close(); err != nil {
		a.log.Warn("close store", logx.Err(err))
	}
	a.log.Info("stopped")
	return a.logs.Close()
}

// RunNow triggers one generation run outside the schedule, e.g. for a
// -once invocation. The governor still applies.
func (a *App) RunNow(ctx context.Context, userID string) engine.Report {
	return a.eng.Run(ctx, userID)
}

// CleanupNow triggers one duplicate-reconciliation pass.
func (a *App) CleanupNow(ctx context.Context, userID string) engine.CleanupReport {
	return a.eng.Cleanup(ctx, userID)
}

// Users returns the configured user ids.
func (a *App) Users() []string {
	cfg := a.cfgm.Get()
	if cfg == nil {
		return nil
	}
	return cfg.Engine.Users
}

func (a *App) runJob(ctx context.Context, userID string) {
	rep := a.eng.Run(ctx, userID)
	a.notif.RunSummary(ctx, userID, rep.Created, rep.Errors)
}

func (a *App) cleanupJob(ctx context.Context, userID string) {
	rep := a.eng.Cleanup(ctx, userID)
	a.notif.CleanupSummary(ctx, userID, rep.Deleted, rep.Errors)
}

func (a *App) reloadLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case cfg, ok := <-a.cfgCh:
			if !ok {
				return
			}
			a.applyConfig(ctx, cfg)
		}
	}
}

func (a *App) applyConfig(ctx context.Context, cfg *config.Config) {
	a.logs.Apply(loggingConfig(cfg))

	engCfg, err := engineConfig(cfg)
	if err != nil {
		a.log.Warn("reload: engine config rejected", logx.Err(err))
	} else {
		a.eng.Apply(engCfg)
	}

	if err := a.sched.Apply(ctx, scheduleConfig(cfg)); err != nil {
		a.log.Warn("reload: schedule config rejected", logx.Err(err))
	}

	// Notify credentials cannot be swapped on a live bot session.
	a.log.Info("config reloaded")
}

// ---- config mapping ----

func loggingConfig(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	}
}

func storageConfig(cfg *config.Config) (store.Config, error) {
	busy, err := config.ParseDurationOrDefault("storage.busy_timeout", cfg.Storage.BusyTimeout, 5*time.Second)
	if err != nil {
		return store.Config{}, err
	}
	return store.Config{
		Driver:      cfg.Storage.Driver,
		Path:        cfg.Storage.Path,
		BusyTimeout: busy,
	}, nil
}

func engineConfig(cfg *config.Config) (engine.Config, error) {
	min, err := config.ParseDurationOrDefault("engine.min_run_interval", cfg.Engine.MinRunInterval, time.Hour)
	if err != nil {
		return engine.Config{}, err
	}
	return engine.Config{MinRunInterval: min}, nil
}

func scheduleConfig(cfg *config.Config) schedule.Config {
	return schedule.Config{
		Enabled:     cfg.Schedule.Enabled,
		Spec:        cfg.Schedule.Spec,
		CleanupSpec: cfg.Schedule.CleanupSpec,
		Timezone:    cfg.Schedule.Timezone,
		Users:       cfg.Engine.Users,
	}
}

func notifyConfig(cfg *config.Config) notify.Config {
	if cfg.Notify == nil {
		return notify.Config{}
	}
	return notify.Config{
		Enabled:    cfg.Notify.Enabled,
		Token:      cfg.Notify.Token,
		ChatID:     cfg.Notify.ChatID,
		RatePerSec: cfg.Notify.RatePerSec,
	}
}
