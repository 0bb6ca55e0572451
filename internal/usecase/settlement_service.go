package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/riskibarqy/chess-wager/internal/domain/chessmatch"
	"github.com/riskibarqy/chess-wager/internal/domain/notification"
	"github.com/riskibarqy/chess-wager/internal/domain/user"
	"github.com/riskibarqy/chess-wager/internal/domain/wager"
	"github.com/riskibarqy/chess-wager/internal/platform/logging"
)

type SettlementStatus string

const (
	SettlementSettled  SettlementStatus = "settled"
	SettlementNotReady SettlementStatus = "not_ready"
	// SettlementNoop means no wager for the game is still matched.
	SettlementNoop SettlementStatus = "noop"
)

type SettlementResult struct {
	GameID  string               `json:"game_id"`
	Status  SettlementStatus     `json:"status"`
	Winner  chessmatch.Winner    `json:"winner,omitempty"`
	Settled []wager.Wager        `json:"settled"`
	Skipped int                  `json:"skipped"`
	Events  []notification.Event `json:"-"`
}

// SettlementService turns a concluded match into balance credits and a
// terminal wager status. Running it again for the same game is a no-op.
type SettlementService struct {
	wagers     wager.Repository
	ledger     user.Ledger
	tx         Transactor
	oracle     chessmatch.Oracle
	dispatcher notification.Dispatcher
	activity   *ActivityCounter
	seasons    seasonRecorder
	metrics    Metrics
	logger     *logging.Logger
	now        func() time.Time
}

func NewSettlementService(
	wagers wager.Repository,
	ledger user.Ledger,
	tx Transactor,
	oracle chessmatch.Oracle,
	dispatcher notification.Dispatcher,
	activity *ActivityCounter,
	seasons seasonRecorder,
	logger *logging.Logger,
) *SettlementService {
	if logger == nil {
		logger = logging.Default()
	}
	return &SettlementService{
		wagers:     wagers,
		ledger:     ledger,
		tx:         tx,
		oracle:     oracle,
		dispatcher: dispatcher,
		activity:   activity,
		seasons:    seasons,
		metrics:    NoopMetrics,
		logger:     logger,
		now:        time.Now,
	}
}

func (s *SettlementService) WithMetrics(m Metrics) *SettlementService {
	if m != nil {
		s.metrics = m
	}
	return s
}

// SettleWager settles every matched wager that references gameID. An oracle
// failure or an unfinished game returns SettlementNotReady with no error so
// the caller simply retries on a later tick.
func (s *SettlementService) SettleWager(ctx context.Context, gameID string) (SettlementResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.SettlementService.SettleWager", attrGameID.String(gameID))
	defer span.End()

	gameID = strings.TrimSpace(gameID)
	result := SettlementResult{GameID: gameID}
	if gameID == "" {
		return result, fmt.Errorf("%w: game id is required", ErrInvalidInput)
	}
	if s.oracle == nil {
		return result, fmt.Errorf("%w: outcome oracle is not configured", ErrDependencyUnavailable)
	}

	outcome, err := s.oracle.GetOutcome(ctx, gameID)
	if err != nil {
		s.logger.WarnContext(ctx, "outcome lookup failed, settlement deferred", "game_id", gameID, "error", err)
		result.Status = SettlementNotReady
		return result, nil
	}
	if !outcome.Concluded {
		result.Status = SettlementNotReady
		return result, nil
	}
	result.Winner = outcome.Winner

	items, err := s.wagers.ListMatchedByGame(ctx, gameID)
	if err != nil {
		return result, storeError("list matched wagers by game", err)
	}

	var errs []error
	settlements := make(map[string]wager.Settlement, len(items))
	for _, w := range items {
		settlement, applied, err := s.settleOne(ctx, w, outcome.Winner)
		if err != nil {
			s.logger.WarnContext(ctx, "settle wager failed", "wager_id", w.ID, "game_id", gameID, "error", err)
			errs = append(errs, fmt.Errorf("wager %s: %w", w.ID, err))
			continue
		}
		if !applied {
			result.Skipped++
			continue
		}
		w.Status = settlement.Resolution.Status
		w.WinnerID = settlement.Resolution.WinnerID
		w.Winnings = settlement.Resolution.Winnings
		settledAt := settlement.Resolution.SettledAt
		w.SettledAt = &settledAt
		result.Settled = append(result.Settled, w)
		result.Events = append(result.Events, settlement.Events...)
		settlements[w.ID] = settlement
	}

	if len(result.Settled) > 0 {
		result.Status = SettlementSettled
		s.afterCommit(ctx, result.Settled, settlements)
	} else if len(errs) == 0 {
		result.Status = SettlementNoop
	} else {
		result.Status = SettlementNotReady
	}

	return result, errors.Join(errs...)
}

// settleOne applies one wager's settlement in a single transaction. It
// reports applied=false when another run already resolved the wager.
func (s *SettlementService) settleOne(ctx context.Context, w wager.Wager, winner chessmatch.Winner) (wager.Settlement, bool, error) {
	settlement, err := wager.Settle(w, winner, s.now().UTC())
	if err != nil {
		return wager.Settlement{}, false, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	applied := false
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		_, ok, err := s.wagers.Resolve(ctx, settlement.Resolution)
		if err != nil {
			return storeError("resolve wager", err)
		}
		if !ok {
			return nil
		}
		for _, credit := range settlement.Credits {
			if err := s.ledger.Credit(ctx, credit.UserID, credit.Currency, credit.Amount); err != nil {
				return creditFailure(err, credit.UserID)
			}
		}
		applied = true
		return nil
	})
	if err != nil {
		return wager.Settlement{}, false, err
	}
	return settlement, applied, nil
}

// afterCommit runs bookkeeping that must never undo a settlement.
func (s *SettlementService) afterCommit(ctx context.Context, settled []wager.Wager, settlements map[string]wager.Settlement) {
	var mu sync.Mutex
	var events []notification.Event

	p := pool.New().WithMaxGoroutines(4)
	for _, w := range settled {
		w := w
		settlement := settlements[w.ID]
		p.Go(func() {
			s.activity.WagerSettled()
			s.metrics.WagerSettled(string(settlement.Resolution.Status))
			if s.seasons != nil {
				s.seasons.RecordSettlement(ctx, w, settlement)
			}
			s.logger.InfoContext(ctx, "wager settled",
				"wager_id", w.ID,
				"game_id", w.GameID,
				"status", settlement.Resolution.Status,
				"winner_id", settlement.Resolution.WinnerID,
			)

			mu.Lock()
			events = append(events, settlement.Events...)
			mu.Unlock()
		})
	}
	p.Wait()

	publish(ctx, s.dispatcher, s.logger, events)
}
