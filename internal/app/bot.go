package app

import (
	"context"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"ghbridge/internal/api/github"
	relayclient "ghbridge/internal/api/relay"
	"ghbridge/internal/api/telegram"
	"ghbridge/internal/bot"
	"ghbridge/internal/config"
	"ghbridge/internal/services/session"
	sessionifaces "ghbridge/internal/services/session/interfaces"
	"ghbridge/internal/storage/memory"
	"ghbridge/internal/storage/redis"
)

// pollTimeout is the long polling timeout in seconds.
const pollTimeout = 60

// Bot is the Telegram bot process.
type Bot struct {
	log     *slog.Logger
	api     *tgbotapi.BotAPI
	bot     *bot.Bot
	closers []func()
}

// NewBot wires the bot from cfg.
func NewBot(ctx context.Context, log *slog.Logger, cfg *config.Config) (_ *Bot, err error) {
	const op = "app.NewBot"

	a := &Bot{log: log}
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	var sessions sessionifaces.SessionStorage
	switch cfg.Session.Backend {
	case driverMemory:
		sessions = memory.New(cfg.Session.TTL)
	case backendRedis:
		cache := redis.NewCache(cfg.Redis, cfg.Ledger.TTL, cfg.Session.TTL)
		a.closers = append(a.closers, func() { _ = cache.Close() })
		if err := cache.Ping(ctx); err != nil {
			return nil, fmt.Errorf("%s: redis: %w", op, err)
		}
		sessions = cache
	default:
		return nil, fmt.Errorf("%s: unknown session backend %q", op, cfg.Session.Backend)
	}

	tracker, err := github.NewIssues(cfg.GitHub.Token, cfg.GitHub.Repo, cfg.GitHub.Timeout)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	relay, err := relayclient.New(cfg.Relay)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	a.api, err = telegram.NewBot(cfg.Telegram)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	a.bot = bot.New(log, a.api, relay, tracker, session.New(log, sessions))
	log.Info("bot configured",
		slog.String("username", a.api.Self.UserName),
		slog.String("repository", tracker.FullName()),
	)
	return a, nil
}

// Run long-polls Telegram until ctx is done.
func (a *Bot) Run(ctx context.Context) error {
	defer a.close()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = pollTimeout
	updates := a.api.GetUpdatesChan(u)

	err := a.bot.Run(ctx, updates)
	a.api.StopReceivingUpdates()
	a.log.Info("bot stopped")
	return err
}

func (a *Bot) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
