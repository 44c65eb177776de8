package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"taskbeat/internal/app"
	logx "taskbeat/pkg/logx"
)

func main() {
	var (
		cfgPath string
		once    bool
		cleanup bool
	)
	flag.StringVar(&cfgPath, "config", "./config.yaml", "path to config file (json or yaml)")
	flag.BoolVar(&once, "once", false, "run one generation pass for the configured users and exit")
	flag.BoolVar(&cleanup, "cleanup", false, "run one duplicate-reconciliation pass and exit (combine with -once)")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := app.New(cfgPath)
	if err != nil {
		fmt.Println("fatal:", err)
		os.Exit(1)
	}

	if once || cleanup {
		runOnce(ctx, a, once, cleanup)
		return
	}

	if err := a.Start(ctx); err != nil {
		fmt.Println("fatal start:", err)
		os.Exit(1)
	}

	<-ctx.Done()
	_ = a.Stop(context.Background())
}

func runOnce(ctx context.Context, a *app.App, once, cleanup bool) {
	log := a.Log()
	for _, user := range a.Users() {
		if once {
			rep := a.RunNow(ctx, user)
			log.Info("generation pass done",
				logx.String("user", user),
				logx.Int("created", rep.Created),
				logx.Int("errors", len(rep.Errors)))
		}
		if cleanup {
			rep := a.CleanupNow(ctx, user)
			log.Info("cleanup pass done",
				logx.String("user", user),
				logx.Int("deleted", rep.Deleted),
				logx.Int("errors", len(rep.Errors)))
		}
	}
	_ = a.Stop(context.Background())
}
