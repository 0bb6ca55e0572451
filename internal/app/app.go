package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sourcegraph/conc/pool"

	"github.com/riskibarqy/chess-wager/internal/config"
	"github.com/riskibarqy/chess-wager/internal/domain/notification"
	"github.com/riskibarqy/chess-wager/internal/domain/season"
	"github.com/riskibarqy/chess-wager/internal/infrastructure/account/anubis"
	"github.com/riskibarqy/chess-wager/internal/infrastructure/chessplatform"
	"github.com/riskibarqy/chess-wager/internal/infrastructure/notify"
	"github.com/riskibarqy/chess-wager/internal/infrastructure/scheduler"
	"github.com/riskibarqy/chess-wager/internal/interfaces/httpapi"
	"github.com/riskibarqy/chess-wager/internal/observability"
	"github.com/riskibarqy/chess-wager/internal/platform/cache"
	idgen "github.com/riskibarqy/chess-wager/internal/platform/id"
	"github.com/riskibarqy/chess-wager/internal/platform/logging"
	"github.com/riskibarqy/chess-wager/internal/platform/resilience"
	"github.com/riskibarqy/chess-wager/internal/usecase"
)

// App owns every long-lived resource of the API process.
type App struct {
	Server    *http.Server
	scheduler *scheduler.Runner
	stores    stores
	redis     *redis.Client
	logger    *logging.Logger
}

// New wires the process. baseCtx bounds scheduler ticks and is expected to
// be canceled on shutdown.
func New(baseCtx context.Context, cfg config.Config, logger *logging.Logger) (*App, error) {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.HTTPAddr == "" {
		return nil, fmt.Errorf("http server addr cannot be empty")
	}

	st, err := openStores(baseCtx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a := &App{stores: st, logger: logger}

	ids := idgen.NewUUIDGenerator()
	dispatchers := []notification.Dispatcher{notify.NewInbox(st.notifications, ids)}
	if cfg.RedisURL != "" {
		client, err := notify.Connect(baseCtx, cfg.RedisURL)
		if err != nil {
			_ = st.close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		a.redis = client
		dispatchers = append(dispatchers, notify.NewRedisPublisher(client))
		logger.Info("redis notifications enabled")
	}
	dispatcher := notify.NewFanout(logger, dispatchers...)

	chess := chessplatform.NewClient(chessplatform.ClientConfig{
		BaseURL:        cfg.ChessBaseURL,
		AdminToken:     cfg.ChessAdminToken,
		Timeout:        cfg.ChessTimeout,
		MaxRetries:     cfg.ChessMaxRetries,
		RetryBackoff:   300 * time.Millisecond,
		Logger:         logger.Named("chessplatform"),
		CircuitBreaker: breakerSettings(cfg.ChessCircuit),
	})
	accounts := anubis.NewClient(anubis.Config{
		BaseURL:        cfg.AnubisBaseURL,
		IntrospectPath: cfg.AnubisIntrospectURL,
		AdminKey:       cfg.AnubisAdminKey,
		Timeout:        cfg.AnubisTimeout,
		CacheTTL:       cfg.AnubisCacheTTL,
		CircuitBreaker: breakerSettings(cfg.AnubisCircuit),
		Logger:         logger.Named("anubis"),
	})

	var (
		metrics        usecase.Metrics = usecase.NoopMetrics
		metricsHandler http.Handler
	)
	if cfg.MetricsEnabled {
		m := observability.NewMetrics()
		metrics, metricsHandler = m, m.Handler()
	}

	activity := usecase.NewActivityCounter(time.Now())
	seasonSvc := usecase.NewSeasonService(st.seasons, st.stats, st.users, st.users, st.tx, dispatcher,
		cache.NewStore[[]season.LeaderboardEntry](cfg.LeaderboardCacheTTL), ids, logger).
		WithSeasonLength(cfg.SeasonLength).
		WithMetrics(metrics)
	wagerSvc := usecase.NewWagerService(st.wagers, st.users, st.tx, chess, dispatcher, activity, ids, logger).
		WithTTL(cfg.WagerTTL).
		WithMetrics(metrics)
	matchingSvc := usecase.NewMatchingService(st.wagers, st.users, st.users, st.tx, chess, dispatcher, activity, seasonSvc, logger)
	settlementSvc := usecase.NewSettlementService(st.wagers, st.users, st.tx, chess, dispatcher, activity, seasonSvc, logger).
		WithMetrics(metrics)
	reconcileSvc := usecase.NewReconciliationService(st.wagers, wagerSvc, settlementSvc, usecase.ReconcileConfig{
		Workers:   cfg.ReconcileWorkers,
		BatchSize: cfg.ReconcileBatchSize,
	}, logger).WithMetrics(metrics)

	handler := httpapi.NewHandler(httpapi.Services{
		Wagers:         wagerSvc,
		Matching:       matchingSvc,
		Settlement:     settlementSvc,
		Seasons:        seasonSvc,
		Reconciliation: reconcileSvc,
		Activity:       activity,
	}, logger)
	router := httpapi.NewRouter(handler, accounts, logger, httpapi.RouterConfig{
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		AdminToken:         cfg.AdminToken,
		Metrics:            metricsHandler,
	})

	a.Server = &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.WriteTimeout,
	}

	a.scheduler = scheduler.New(baseCtx, logger.Named("scheduler"))
	for _, job := range reconcileJobs(cfg, reconcileSvc, seasonSvc, activity, logger) {
		if err := a.scheduler.Add(job); err != nil {
			_ = a.closeResources()
			return nil, fmt.Errorf("register job %s: %w", job.Name, err)
		}
	}

	if cfg.AdminToken == "" {
		logger.Warn("ADMIN_TOKEN is empty, admin endpoints are disabled")
	}
	return a, nil
}

// StartScheduler begins periodic reconciliation.
func (a *App) StartScheduler() {
	a.scheduler.Start()
}

// Shutdown stops the HTTP server and the scheduler in parallel, then closes
// the stores.
func (a *App) Shutdown(ctx context.Context) error {
	p := pool.New().WithErrors()
	p.Go(func() error {
		return a.Server.Shutdown(ctx)
	})
	p.Go(func() error {
		a.scheduler.Stop(ctx)
		return nil
	})
	err := p.Wait()

	return errors.Join(err, a.closeResources())
}

func (a *App) closeResources() error {
	var errs []error
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.stores.close != nil {
		errs = append(errs, a.stores.close())
	}
	return errors.Join(errs...)
}

func breakerSettings(c config.CircuitConfig) resilience.BreakerSettings {
	return resilience.BreakerSettings{
		Enabled:          c.Enabled,
		FailureThreshold: c.FailureCount,
		OpenTimeout:      c.OpenTimeout,
		HalfOpenProbes:   c.HalfOpenMaxReqs,
	}
}
