// Package notify pushes run summaries to the owner's Telegram chat.
// It is optional; with no config section the service is nil and every
// method is a no-op.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/time/rate"
	tele "gopkg.in/telebot.v4"

	logx "taskbeat/pkg/logx"
)

type Config struct {
	Enabled    bool
	Token      string
	ChatID     int64
	RatePerSec int
}

type Service struct {
	cfg     Config
	log     logx.Logger
	bot     *tele.Bot
	limiter *rate.Limiter
}

// New builds the notifier. Returns (nil, nil) when disabled; a nil
// *Service is safe to call.
func New(cfg Config, log logx.Logger) (*Service, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("notify token is empty")
	}
	if cfg.ChatID == 0 {
		return nil, errors.New("notify chat_id is not set")
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	bot, err := tele.NewBot(tele.Settings{Token: cfg.Token})
	if err != nil {
		return nil, err
	}
	rps := cfg.RatePerSec
	if rps <= 0 {
		rps = 1
	}
	return &Service{
		cfg:     cfg,
		log:     log,
		bot:     bot,
		limiter: rate.NewLimiter(rate.Limit(rps), rps),
	}, nil
}

// RunSummary reports a generation run. Quiet runs (nothing created,
// nothing failed) are not worth a message.
func (n *Service) RunSummary(ctx context.Context, userID string, created int, errs []string) {
	if n == nil || (created == 0 && len(errs) == 0) {
		return
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Recurring tasks: created %d instance(s)", created)
	if len(errs) > 0 {
		fmt.Fprintf(&b, ", %d error(s):", len(errs))
		for _, e := range firstN(errs, 5) {
			b.WriteString("\n• ")
			b.WriteString(e)
		}
	}
	n.send(ctx, userID, b.String())
}

// CleanupSummary reports a duplicate-reconciliation pass.
func (n *Service) CleanupSummary(ctx context.Context, userID string, deleted int, errs []string) {
	if n == nil || (deleted == 0 && len(errs) == 0) {
		return
	}
	msg := fmt.Sprintf("Duplicate cleanup: removed %d instance(s)", deleted)
	if len(errs) > 0 {
		msg += fmt.Sprintf(", %d error(s)", len(errs))
	}
	n.send(ctx, userID, msg)
}

func (n *Service) send(_ context.Context, userID, text string) {
	if n == nil || n.bot == nil {
		return
	}
	// Over-rate messages are dropped, not queued; the next scheduled
	// run will report fresh numbers anyway.
	if !n.limiter.Allow() {
		n.log.Debug("notification dropped (rate limit)", logx.String("user", userID))
		return
	}
	if _, err := n.bot.Send(tele.ChatID(n.cfg.ChatID), text); err != nil {
		n.log.Warn("notification send failed", logx.String("user", userID), logx.Err(err))
		return
	}
	n.log.Debug("notification sent", logx.String("user", userID))
}

func firstN(xs []string, n int) []string {
	if len(xs) <= n {
		return xs
	}
	return xs[:n]
}
