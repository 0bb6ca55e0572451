package usecase

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/riskibarqy/chess-wager/internal/domain/wager"
	"github.com/riskibarqy/chess-wager/internal/platform/logging"
)

const (
	JobExpireWagers = "expire-wagers"
	JobPollOutcomes = "poll-outcomes"
)

type SweepResult struct {
	Scanned int `json:"scanned"`
	Expired int `json:"expired"`
	Skipped int `json:"skipped"`
	Errors  int `json:"errors"`
}

type PollResult struct {
	Scanned int `json:"scanned"`
	Games   int `json:"games"`
	Settled int `json:"settled"`
	Pending int `json:"pending"`
	Errors  int `json:"errors"`
}

type ReconcileConfig struct {
	Workers   int
	BatchSize int
}

type wagerExpirer interface {
	ExpireWager(ctx context.Context, wagerID string) (WagerChange, bool, error)
}

type wagerSettler interface {
	SettleWager(ctx context.Context, gameID string) (SettlementResult, error)
}

// ReconciliationService runs the periodic sweeps. Items in one batch are
// independent: a failure is counted and the batch carries on.
type ReconciliationService struct {
	wagers  wager.Repository
	expirer wagerExpirer
	settler wagerSettler
	metrics Metrics
	cfg     ReconcileConfig
	logger  *logging.Logger
	now     func() time.Time
}

func NewReconciliationService(
	wagers wager.Repository,
	expirer wagerExpirer,
	settler wagerSettler,
	cfg ReconcileConfig,
	logger *logging.Logger,
) *ReconciliationService {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 200
	}
	return &ReconciliationService{
		wagers:  wagers,
		expirer: expirer,
		settler: settler,
		metrics: NoopMetrics,
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
	}
}

func (s *ReconciliationService) WithMetrics(m Metrics) *ReconciliationService {
	if m != nil {
		s.metrics = m
	}
	return s
}

// ExpireStaleWagers expires every pending wager whose deadline has passed,
// one page at a time.
func (s *ReconciliationService) ExpireStaleWagers(ctx context.Context) (SweepResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ReconciliationService.ExpireStaleWagers")
	defer span.End()

	now := s.now().UTC()
	var expired, skipped, failed atomic.Int32
	scanned, err := s.eachPage(ctx, wager.ExpiryCursor,
		func(after wager.Cursor) ([]wager.Wager, error) {
			items, err := s.wagers.ListExpiredPending(ctx, now, after, s.cfg.BatchSize)
			return items, storeError("list expired pending wagers", err)
		},
		func(items []wager.Wager) error {
			return s.fanOut(ctx, len(items), func(i int) {
				w := items[i]
				_, changed, err := s.expirer.ExpireWager(ctx, w.ID)
				switch {
				case err != nil:
					failed.Add(1)
					s.metrics.ReconcileError(JobExpireWagers)
					s.logger.WarnContext(ctx, "expire wager failed", "wager_id", w.ID, "error", err)
				case changed:
					expired.Add(1)
				default:
					skipped.Add(1)
				}
			})
		})
	if err != nil {
		return SweepResult{}, err
	}

	result := SweepResult{
		Scanned: scanned,
		Expired: int(expired.Load()),
		Skipped: int(skipped.Load()),
		Errors:  int(failed.Load()),
	}
	s.logger.InfoContext(ctx, "expiration sweep finished",
		"scanned", result.Scanned,
		"expired", result.Expired,
		"skipped", result.Skipped,
		"errors", result.Errors,
	)
	return result, nil
}

// PollOutcomes asks the settlement engine to settle every game that still
// has a matched wager. Unfinished games are left for the next tick.
func (s *ReconciliationService) PollOutcomes(ctx context.Context) (PollResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ReconciliationService.PollOutcomes")
	defer span.End()

	seen := make(map[string]struct{})
	var settled, pending, failed atomic.Int32
	scanned, err := s.eachPage(ctx, wager.MatchCursor,
		func(after wager.Cursor) ([]wager.Wager, error) {
			items, err := s.wagers.ListMatchedWithGame(ctx, after, s.cfg.BatchSize)
			return items, storeError("list matched wagers", err)
		},
		func(items []wager.Wager) error {
			games := make([]string, 0, len(items))
			for _, w := range items {
				if _, ok := seen[w.GameID]; ok || w.GameID == "" {
					continue
				}
				seen[w.GameID] = struct{}{}
				games = append(games, w.GameID)
			}
			return s.fanOut(ctx, len(games), func(i int) {
				gameID := games[i]
				res, err := s.settler.SettleWager(ctx, gameID)
				if err != nil {
					failed.Add(1)
					s.metrics.ReconcileError(JobPollOutcomes)
					s.logger.WarnContext(ctx, "settle game failed", "game_id", gameID, "error", err)
				}
				settled.Add(int32(len(res.Settled)))
				if res.Status == SettlementNotReady && err == nil {
					pending.Add(1)
				}
			})
		})
	if err != nil {
		return PollResult{}, err
	}

	result := PollResult{
		Scanned: scanned,
		Games:   len(seen),
		Settled: int(settled.Load()),
		Pending: int(pending.Load()),
		Errors:  int(failed.Load()),
	}
	s.logger.InfoContext(ctx, "outcome poll finished",
		"scanned", result.Scanned,
		"games", result.Games,
		"settled", result.Settled,
		"pending", result.Pending,
		"errors", result.Errors,
	)
	return result, nil
}

// eachPage walks a keyset listing to its end. Each page is handled before
// the next is read, so rows that leave the set never shift the window.
func (s *ReconciliationService) eachPage(
	ctx context.Context,
	cursorOf func(wager.Wager) wager.Cursor,
	list func(after wager.Cursor) ([]wager.Wager, error),
	handle func(items []wager.Wager) error,
) (int, error) {
	var after wager.Cursor
	scanned := 0
	for {
		items, err := list(after)
		if err != nil {
			return scanned, err
		}
		scanned += len(items)
		if err := handle(items); err != nil {
			return scanned, err
		}
		if len(items) < s.cfg.BatchSize || ctx.Err() != nil {
			return scanned, nil
		}
		after = cursorOf(items[len(items)-1])
	}
}

// fanOut runs fn for indexes [0, n) on a bounded ants pool and waits.
func (s *ReconciliationService) fanOut(ctx context.Context, n int, fn func(i int)) error {
	if n == 0 {
		return nil
	}
	pool, err := ants.NewPool(min(s.cfg.Workers, n))
	if err != nil {
		return fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	var workers sync.WaitGroup
	for i := 0; i < n; i++ {
		if ctx.Err() != nil {
			break
		}
		i := i
		workers.Add(1)
		if err := pool.Submit(func() {
			defer workers.Done()
			fn(i)
		}); err != nil {
			workers.Done()
			workers.Wait()
			return fmt.Errorf("submit task to worker pool: %w", err)
		}
	}
	workers.Wait()
	return nil
}
