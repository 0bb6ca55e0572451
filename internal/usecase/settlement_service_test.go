package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/riskibarqy/chess-wager/internal/domain/chessmatch"
	"github.com/riskibarqy/chess-wager/internal/domain/notification"
	"github.com/riskibarqy/chess-wager/internal/domain/user"
	"github.com/riskibarqy/chess-wager/internal/domain/wager"
	"github.com/riskibarqy/chess-wager/internal/platform/logging"
)

func concluded(gameID string, winner chessmatch.Winner) chessmatch.Outcome {
	return chessmatch.Outcome{MatchID: gameID, Concluded: true, Winner: winner, Status: "mate"}
}

func TestSettlementService_SettleWager_WhiteWins(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	w := f.createTokenWager(t, "alice", 100, wager.ColorWhite)
	f.matchWager(t, w, "bob", "g1")
	f.oracle.On("GetOutcome", mock.Anything, "g1").Return(concluded("g1", chessmatch.WinnerWhite), nil)

	res, err := f.settlementSvc.SettleWager(f.ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, SettlementSettled, res.Status)
	require.Len(t, res.Settled, 1)

	got := f.wager(t, w.ID)
	assert.Equal(t, wager.StatusWon, got.Status)
	assert.Equal(t, "alice", got.WinnerID)
	assert.Equal(t, int64(200), got.Winnings)
	assert.NotNil(t, got.SettledAt)
	assert.Equal(t, int64(1100), f.balance(t, "alice", user.CurrencyToken))
	assert.Equal(t, int64(900), f.balance(t, "bob", user.CurrencyToken))
	assert.Len(t, f.dispatcher.byCategory(notification.CategoryWagerWon), 1)
	assert.Len(t, f.dispatcher.byCategory(notification.CategoryWagerLost), 1)
}

func TestSettlementService_SettleWager_BlackWinsPaysBlackHolder(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	w := f.createTokenWager(t, "alice", 100, wager.ColorWhite)
	f.matchWager(t, w, "bob", "g1")
	f.oracle.On("GetOutcome", mock.Anything, "g1").Return(concluded("g1", chessmatch.WinnerBlack), nil)

	_, err := f.settlementSvc.SettleWager(f.ctx, "g1")
	require.NoError(t, err)

	got := f.wager(t, w.ID)
	assert.Equal(t, "bob", got.WinnerID)
	assert.Equal(t, int64(900), f.balance(t, "alice", user.CurrencyToken))
	assert.Equal(t, int64(1100), f.balance(t, "bob", user.CurrencyToken))
}

func TestSettlementService_SettleWager_DrawRefundsBoth(t *testing.T) {
	t.Parallel()

	for _, winner := range []chessmatch.Winner{chessmatch.WinnerDraw, chessmatch.WinnerNone} {
		f := newFixture(t)
		w := f.createTokenWager(t, "alice", 100, wager.ColorBlack)
		f.matchWager(t, w, "bob", "g-draw")
		f.oracle.On("GetOutcome", mock.Anything, "g-draw").Return(concluded("g-draw", winner), nil)

		_, err := f.settlementSvc.SettleWager(f.ctx, "g-draw")
		require.NoError(t, err)

		got := f.wager(t, w.ID)
		assert.Equal(t, wager.StatusDraw, got.Status)
		assert.Empty(t, got.WinnerID)
		assert.Equal(t, int64(1000), f.balance(t, "alice", user.CurrencyToken))
		assert.Equal(t, int64(1000), f.balance(t, "bob", user.CurrencyToken))
		assert.Len(t, f.dispatcher.byCategory(notification.CategoryWagerDraw), 2)
	}
}

func TestSettlementService_SettleWager_Idempotent(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	w := f.createTokenWager(t, "alice", 100, wager.ColorWhite)
	f.matchWager(t, w, "bob", "g1")
	f.oracle.On("GetOutcome", mock.Anything, "g1").Return(concluded("g1", chessmatch.WinnerWhite), nil)

	_, err := f.settlementSvc.SettleWager(f.ctx, "g1")
	require.NoError(t, err)
	again, err := f.settlementSvc.SettleWager(f.ctx, "g1")
	require.NoError(t, err)

	assert.Equal(t, SettlementNoop, again.Status)
	assert.Empty(t, again.Settled)
	assert.Equal(t, int64(1100), f.balance(t, "alice", user.CurrencyToken))
	assert.Equal(t, int64(900), f.balance(t, "bob", user.CurrencyToken))
}

func TestSettlementService_SettleWager_ConcurrentRunsPayOnce(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	w := f.createTokenWager(t, "alice", 100, wager.ColorWhite)
	f.matchWager(t, w, "bob", "g1")
	f.oracle.On("GetOutcome", mock.Anything, "g1").Return(concluded("g1", chessmatch.WinnerWhite), nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.settlementSvc.SettleWager(f.ctx, "g1")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1100), f.balance(t, "alice", user.CurrencyToken))
	assert.Len(t, f.dispatcher.byCategory(notification.CategoryWagerWon), 1)
	assert.Equal(t, int64(1), f.activity.Snapshot().WagersSettled)
}

func TestSettlementService_SettleWager_NotReady(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	w := f.createTokenWager(t, "alice", 100, wager.ColorWhite)
	f.matchWager(t, w, "bob", "g1")

	f.oracle.On("GetOutcome", mock.Anything, "g1").Return(chessmatch.Outcome{MatchID: "g1", Status: "started"}, nil).Once()
	res, err := f.settlementSvc.SettleWager(f.ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, SettlementNotReady, res.Status)

	f.oracle.On("GetOutcome", mock.Anything, "g1").Return(chessmatch.Outcome{}, errors.New("503")).Once()
	res, err = f.settlementSvc.SettleWager(f.ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, SettlementNotReady, res.Status)

	assert.Equal(t, wager.StatusMatched, f.wager(t, w.ID).Status)
	assert.Equal(t, int64(900), f.balance(t, "alice", user.CurrencyToken))
}

type failingLedger struct {
	user.Ledger
	failCreditFor string
}

func (l failingLedger) Credit(ctx context.Context, userID string, c user.Currency, amount int64) error {
	if userID == l.failCreditFor {
		return errors.New("connection reset")
	}
	return l.Ledger.Credit(ctx, userID, c, amount)
}

func TestSettlementService_SettleWager_PartialFailureRollsBack(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	w := f.createTokenWager(t, "alice", 100, wager.ColorWhite)
	f.matchWager(t, w, "bob", "g1")
	f.oracle.On("GetOutcome", mock.Anything, "g1").Return(concluded("g1", chessmatch.WinnerDraw), nil)

	broken := NewSettlementService(f.wagers, failingLedger{Ledger: f.users, failCreditFor: "bob"}, f.store,
		f.oracle, f.dispatcher, f.activity, nil, logging.NewNop())
	_, err := broken.SettleWager(f.ctx, "g1")
	require.ErrorIs(t, err, ErrDatabase)

	got := f.wager(t, w.ID)
	assert.Equal(t, wager.StatusMatched, got.Status, "wager stays matched for retry")
	assert.Equal(t, int64(900), f.balance(t, "alice", user.CurrencyToken), "alice's refund rolled back")

	res, err := f.settlementSvc.SettleWager(f.ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, SettlementSettled, res.Status)
	assert.Equal(t, int64(1000), f.balance(t, "alice", user.CurrencyToken))
	assert.Equal(t, int64(1000), f.balance(t, "bob", user.CurrencyToken))
}

func TestSettlementService_SettleWager_Validation(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	_, err := f.settlementSvc.SettleWager(f.ctx, " ")
	require.ErrorIs(t, err, ErrInvalidInput)

	noOracle := NewSettlementService(f.wagers, f.users, f.store, nil, nil, nil, nil, nil)
	_, err = noOracle.SettleWager(f.ctx, "g1")
	require.ErrorIs(t, err, ErrDependencyUnavailable)
}
