package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"ghbridge/internal/api/github"
	"ghbridge/internal/api/telegram"
	httpapp "ghbridge/internal/app/http"
	"ghbridge/internal/config"
	"ghbridge/internal/http/handler"
	"ghbridge/internal/lib/metrics"
	"ghbridge/internal/services/access"
	"ghbridge/internal/services/relay"
	relayifaces "ghbridge/internal/services/relay/interfaces"
	"ghbridge/internal/storage/memory"
	"ghbridge/internal/storage/postgres"
	"ghbridge/internal/storage/protected"
	"ghbridge/internal/storage/redis"
)

const (
	driverPostgres = "postgres"
	driverMemory   = "memory"
	backendRedis   = "redis"
	backendStorage = "storage"
)

// notifyTimeout bounds a single chat notification sent by the relay.
const notifyTimeout = 10 * time.Second

// Relay is the authorization relay process.
type Relay struct {
	log             *slog.Logger
	HTTPSrv         *httpapp.App
	service         *relay.Relay
	purgeInterval   time.Duration
	shutdownTimeout time.Duration
	closers         []func()
}

// NewRelay wires the relay from cfg. On error every resource opened so far is
// released.
func NewRelay(ctx context.Context, log *slog.Logger, cfg *config.Config) (_ *Relay, err error) {
	const op = "app.NewRelay"

	a := &Relay{
		log:             log,
		purgeInterval:   cfg.Ledger.PurgeInterval,
		shutdownTimeout: cfg.HTTP.ShutdownTimeout,
	}
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	var (
		challenges relayifaces.ChallengeStorage
		users      relayifaces.UserStorage
		pinger     handler.Pinger
	)
	switch cfg.Storage.Driver {
	case driverPostgres:
		if cfg.Storage.Migrate {
			if err := postgres.Migrate(cfg.Storage.URL); err != nil {
				return nil, fmt.Errorf("%s: %w", op, err)
			}
			log.Info("database schema is up to date")
		}
		pg, err := postgres.New(ctx, cfg.Storage.URL)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		a.closers = append(a.closers, pg.Close)
		challenges, users, pinger = pg, pg, pg
	case driverMemory:
		log.Warn("using in-memory storage, authorizations are lost on restart")
		mem := memory.New(cfg.Session.TTL)
		challenges, users, pinger = mem, mem, mem
	default:
		return nil, fmt.Errorf("%s: unknown storage driver %q", op, cfg.Storage.Driver)
	}

	switch cfg.Ledger.Backend {
	case backendStorage:
	case backendRedis:
		cache := redis.NewCache(cfg.Redis, cfg.Ledger.TTL, cfg.Session.TTL)
		a.closers = append(a.closers, func() { _ = cache.Close() })
		if err := cache.Ping(ctx); err != nil {
			return nil, fmt.Errorf("%s: redis: %w", op, err)
		}
		challenges = cache
	default:
		return nil, fmt.Errorf("%s: unknown ledger backend %q", op, cfg.Ledger.Backend)
	}

	sealer, err := protected.New(cfg.Sealer)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	oauth, err := github.NewOAuth(cfg.GitHub)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	notifier := telegram.NewNotifier(telegram.NewSender(cfg.Telegram))

	a.service = relay.New(
		log,
		relay.NewLedger(challenges, cfg.Ledger.TTL),
		relay.NewCredentials(users, sealer),
		oauth,
		access.New(log, oauth, cfg.GitHub.Org, cfg.GitHub.Team),
		relay.NewDispatcher(log, notifier, notifyTimeout, m),
		m,
		cfg.GitHub.Org,
	)

	a.HTTPSrv = httpapp.New(
		log,
		cfg.HTTP,
		m,
		reg,
		handler.New(a.service, pinger, cfg.Relay.ServiceSecret, log),
	)
	return a, nil
}

// Run serves HTTP and runs the challenge janitor until ctx is done, then
// shuts down gracefully.
func (a *Relay) Run(ctx context.Context) error {
	const op = "app.Relay.Run"

	defer a.close()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(a.HTTPSrv.Run)
	g.Go(func() error {
		return a.service.RunJanitor(gctx, a.purgeInterval)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.shutdownTimeout)
		defer cancel()
		err := a.HTTPSrv.Stop(shutdownCtx)
		a.service.Wait()
		return err
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", op, err)
	}
	a.log.Info("relay stopped")
	return nil
}

func (a *Relay) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
