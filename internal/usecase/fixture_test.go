package usecase

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/riskibarqy/chess-wager/internal/domain/chessmatch"
	"github.com/riskibarqy/chess-wager/internal/domain/notification"
	"github.com/riskibarqy/chess-wager/internal/domain/season"
	"github.com/riskibarqy/chess-wager/internal/domain/user"
	"github.com/riskibarqy/chess-wager/internal/domain/wager"
	"github.com/riskibarqy/chess-wager/internal/infrastructure/repository/memory"
	chessmatchmock "github.com/riskibarqy/chess-wager/internal/mocks/domain/chessmatch"
	"github.com/riskibarqy/chess-wager/internal/platform/cache"
	"github.com/riskibarqy/chess-wager/internal/platform/logging"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type seqIDs struct {
	prefix string
	n      atomic.Int64
}

func (g *seqIDs) NewID() (string, error) {
	return fmt.Sprintf("%s-%d", g.prefix, g.n.Add(1)), nil
}

type recordingDispatcher struct {
	mu     sync.Mutex
	events []notification.Event
}

func (d *recordingDispatcher) Dispatch(_ context.Context, events ...notification.Event) error {
	d.mu.Lock()
	d.events = append(d.events, events...)
	d.mu.Unlock()
	return nil
}

func (d *recordingDispatcher) byCategory(c notification.Category) []notification.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []notification.Event
	for _, e := range d.events {
		if e.Category == c {
			out = append(out, e)
		}
	}
	return out
}

type countingMetrics struct {
	settled  sync.Map
	expired  atomic.Int64
	errors   atomic.Int64
	rewarded atomic.Int64
}

func (m *countingMetrics) WagerSettled(outcome string) {
	v, _ := m.settled.LoadOrStore(outcome, new(atomic.Int64))
	v.(*atomic.Int64).Add(1)
}
func (m *countingMetrics) WagerExpired() { m.expired.Add(1) }
func (m *countingMetrics) ReconcileError(string) { m.errors.Add(1) }
func (m *countingMetrics) SeasonRewardGranted(user.Currency) { m.rewarded.Add(1) }

type fixture struct {
	ctx        context.Context
	clock      *testClock
	store      *memory.Store
	users      *memory.UserRepository
	wagers     *memory.WagerRepository
	seasons    *memory.SeasonRepository
	stats      *memory.SeasonStatsRepository
	oracle     *chessmatchmock.Oracle
	creator    *chessmatchmock.Creator
	dispatcher *recordingDispatcher
	activity   *ActivityCounter
	metrics    *countingMetrics

	wagerSvc      *WagerService
	matchingSvc   *MatchingService
	settlementSvc *SettlementService
	seasonSvc     *SeasonService
	reconcileSvc  *ReconciliationService
}

func newFixture(t *testing.T, users ...user.User) *fixture {
	t.Helper()

	if len(users) == 0 {
		users = []user.User{
			testUser("alice", 1000, 500),
			testUser("bob", 1000, 500),
			testUser("carol", 50, 0),
		}
	}

	clock := &testClock{now: time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)}
	store := memory.NewStore(users...)
	logger := logging.NewNop()

	f := &fixture{
		ctx:        context.Background(),
		clock:      clock,
		store:      store,
		users:      memory.NewUserRepository(store),
		wagers:     memory.NewWagerRepository(store),
		seasons:    memory.NewSeasonRepository(store),
		stats:      memory.NewSeasonStatsRepository(store),
		oracle:     chessmatchmock.NewOracle(t),
		creator:    chessmatchmock.NewCreator(t),
		dispatcher: &recordingDispatcher{},
		activity:   NewActivityCounter(clock.Now()),
		metrics:    &countingMetrics{},
	}

	f.seasonSvc = NewSeasonService(f.seasons, f.stats, f.users, f.users, store, f.dispatcher,
		cache.NewStore[[]season.LeaderboardEntry](time.Minute), &seqIDs{prefix: "season"}, logger).
		WithMetrics(f.metrics)
	f.seasonSvc.now = clock.Now

	f.wagerSvc = NewWagerService(f.wagers, f.users, store, f.oracle, f.dispatcher, f.activity, &seqIDs{prefix: "wager"}, logger).
		WithMetrics(f.metrics)
	f.wagerSvc.now = clock.Now

	f.matchingSvc = NewMatchingService(f.wagers, f.users, f.users, store, f.creator, f.dispatcher, f.activity, f.seasonSvc, logger)
	f.matchingSvc.now = clock.Now
	f.matchingSvc.coin = func() bool { return true }

	f.settlementSvc = NewSettlementService(f.wagers, f.users, store, f.oracle, f.dispatcher, f.activity, f.seasonSvc, logger).
		WithMetrics(f.metrics)
	f.settlementSvc.now = clock.Now

	f.reconcileSvc = NewReconciliationService(f.wagers, f.wagerSvc, f.settlementSvc, ReconcileConfig{Workers: 4, BatchSize: 100}, logger).
		WithMetrics(f.metrics)
	f.reconcileSvc.now = clock.Now

	return f
}

func testUser(id string, token, sweepstakes int64) user.User {
	return user.User{
		ID:               id,
		Username:         id,
		ChessUsername:    id + "_chess",
		ChessAccessToken: "tok-" + id,
		Balances:         user.Balances{Token: token, Sweepstakes: sweepstakes},
	}
}

func (f *fixture) balance(t *testing.T, userID string, c user.Currency) int64 {
	t.Helper()
	u, ok, err := f.users.GetByID(f.ctx, userID)
	require.NoError(t, err)
	require.True(t, ok)
	return u.Balances.Of(c)
}

func (f *fixture) wager(t *testing.T, wagerID string) wager.Wager {
	t.Helper()
	w, ok, err := f.wagers.GetByID(f.ctx, wagerID)
	require.NoError(t, err)
	require.True(t, ok)
	return w
}

func (f *fixture) createTokenWager(t *testing.T, creatorID string, amount int64, color wager.Color) wager.Wager {
	t.Helper()
	created, err := f.wagerSvc.CreateWager(f.ctx, CreateWagerInput{
		CreatorID:   creatorID,
		Amount:      amount,
		Currency:    string(user.CurrencyToken),
		Color:       string(color),
		TimeControl: "5+3",
		Variant:     string(wager.VariantStandard),
	})
	require.NoError(t, err)
	return created.Wager
}

// matchWager accepts w as opponentID with a succeeding match creator.
func (f *fixture) matchWager(t *testing.T, w wager.Wager, opponentID, gameID string) wager.Wager {
	t.Helper()
	f.creator.On("CreateMatch", mock.Anything, mock.Anything).
		Return(chessmatch.Match{ID: gameID, Link: "https://lichess.org/" + gameID}, nil).
		Once()
	matched, err := f.matchingSvc.AcceptWager(f.ctx, w.ID, opponentID)
	require.NoError(t, err)
	return matched.Wager
}
