package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riskibarqy/chess-wager/internal/config"
	"github.com/riskibarqy/chess-wager/internal/infrastructure/scheduler"
	"github.com/riskibarqy/chess-wager/internal/platform/logging"
	"github.com/riskibarqy/chess-wager/internal/usecase"
)

func memoryConfig() config.Config {
	return config.Config{
		AppEnv:              config.EnvDev,
		HTTPAddr:            ":0",
		ReadTimeout:         time.Second,
		WriteTimeout:        time.Second,
		CORSAllowedOrigins:  []string{"*"},
		AdminToken:          "admin",
		StoreDriver:         config.StoreDriverMemory,
		ChessBaseURL:        "http://chess.invalid",
		ChessTimeout:        time.Second,
		AnubisBaseURL:       "http://anubis.invalid",
		AnubisTimeout:       time.Second,
		AnubisCacheTTL:      time.Second,
		WagerTTL:            time.Minute,
		SweepInterval:       time.Minute,
		OutcomePollInterval: 30 * time.Second,
		SeasonCheckInterval: 5 * time.Minute,
		DailyResetSpec:      "0 0 * * *",
		ReconcileWorkers:    2,
		ReconcileBatchSize:  10,
		SeasonLength:        time.Hour,
		LeaderboardCacheTTL: time.Second,
		MetricsEnabled:      true,
	}
}

func TestNew_MemoryStore(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := New(ctx, memoryConfig(), logging.NewNop())
	require.NoError(t, err)

	for _, path := range []string{"/healthz", "/metrics"} {
		rec := httptest.NewRecorder()
		a.Server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/admin/activity", nil)
	req.Header.Set("X-Admin-Token", "admin")
	a.Server.Handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	a.StartScheduler()
	shutdownCtx, stop := context.WithTimeout(context.Background(), 2*time.Second)
	defer stop()
	require.NoError(t, a.Shutdown(shutdownCtx))
}

func TestNew_RejectsEmptyAddr(t *testing.T) {
	cfg := memoryConfig()
	cfg.HTTPAddr = ""
	_, err := New(context.Background(), cfg, logging.NewNop())
	require.Error(t, err)
}

type fakeSweeper struct {
	expired, polled int
}

func (f *fakeSweeper) ExpireStaleWagers(context.Context) (usecase.SweepResult, error) {
	f.expired++
	return usecase.SweepResult{}, nil
}

func (f *fakeSweeper) PollOutcomes(context.Context) (usecase.PollResult, error) {
	f.polled++
	return usecase.PollResult{}, nil
}

type fakeSeasonChecker struct{ calls int }

func (f *fakeSeasonChecker) CheckSeasonTransitions(context.Context) (usecase.SeasonTransitionResult, error) {
	f.calls++
	return usecase.SeasonTransitionResult{}, nil
}

func TestReconcileJobs(t *testing.T) {
	cfg := memoryConfig()
	sweeps := &fakeSweeper{}
	seasons := &fakeSeasonChecker{}
	activity := usecase.NewActivityCounter(time.Date(2026, 3, 1, 23, 0, 0, 0, time.UTC))
	activity.WagerPlaced()

	jobs := reconcileJobs(cfg, sweeps, seasons, activity, logging.NewNop())

	byName := make(map[string]scheduler.Job, len(jobs))
	for _, job := range jobs {
		byName[job.Name] = job
		require.NoError(t, job.Run(context.Background()), job.Name)
	}

	require.Len(t, byName, 4)
	assert.Equal(t, "@every 1m0s", byName[usecase.JobExpireWagers].Spec)
	assert.Equal(t, "@every 30s", byName[usecase.JobPollOutcomes].Spec)
	assert.Equal(t, "0 0 * * *", byName[jobResetDailyCounter].Spec)
	assert.Equal(t, 1, sweeps.expired)
	assert.Equal(t, 1, sweeps.polled)
	assert.Equal(t, 1, seasons.calls)
	assert.Zero(t, activity.Snapshot().WagersPlaced)

	runner := scheduler.New(context.Background(), logging.NewNop())
	for _, job := range jobs {
		require.NoError(t, runner.Add(job))
	}
}
