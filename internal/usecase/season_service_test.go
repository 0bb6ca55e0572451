package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/riskibarqy/chess-wager/internal/domain/chessmatch"
	"github.com/riskibarqy/chess-wager/internal/domain/notification"
	"github.com/riskibarqy/chess-wager/internal/domain/season"
	"github.com/riskibarqy/chess-wager/internal/domain/user"
	"github.com/riskibarqy/chess-wager/internal/domain/wager"
)

var testRewards = season.Rewards{
	Token:       season.Tier{First: 300, Second: 200, Third: 100},
	Sweepstakes: season.Tier{First: 30, Second: 20, Third: 10},
}

func (f *fixture) createActiveSeason(t *testing.T) season.Season {
	t.Helper()
	now := f.clock.Now()
	s, err := f.seasonSvc.CreateSeason(f.ctx, CreateSeasonInput{
		StartDate: now.Add(-time.Hour),
		EndDate:   now.Add(24 * time.Hour),
		Rewards:   testRewards,
	})
	require.NoError(t, err)
	require.Equal(t, season.StatusActive, s.Status)
	return s
}

func (f *fixture) playAndSettle(t *testing.T, creatorID, opponentID string, amount int64, gameID string, winner chessmatch.Winner) {
	t.Helper()
	w := f.createTokenWager(t, creatorID, amount, wager.ColorWhite)
	f.matchWager(t, w, opponentID, gameID)
	f.oracle.On("GetOutcome", mock.Anything, gameID).Return(concluded(gameID, winner), nil).Once()
	_, err := f.settlementSvc.SettleWager(f.ctx, gameID)
	require.NoError(t, err)
}

func TestSeasonService_CreateSeason(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	now := f.clock.Now()

	_, err := f.seasonSvc.CreateSeason(f.ctx, CreateSeasonInput{StartDate: now, EndDate: now})
	require.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.seasonSvc.CreateSeason(f.ctx, CreateSeasonInput{StartDate: now.Add(-2 * time.Hour), EndDate: now.Add(-time.Hour)})
	require.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.seasonSvc.CreateSeason(f.ctx, CreateSeasonInput{
		StartDate: now, EndDate: now.Add(time.Hour), Rewards: season.Rewards{Token: season.Tier{First: -1}},
	})
	require.ErrorIs(t, err, ErrInvalidInput)

	active := f.createActiveSeason(t)
	assert.Equal(t, 1, active.Number)

	stats, ok, err := f.stats.Get(f.ctx, active.ID, "carol")
	require.NoError(t, err)
	assert.True(t, ok, "activation seeds a row for every user")
	assert.Zero(t, stats.Token)

	upcoming, err := f.seasonSvc.CreateSeason(f.ctx, CreateSeasonInput{
		StartDate: now.Add(48 * time.Hour), EndDate: now.Add(72 * time.Hour), Rewards: testRewards,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, upcoming.Number)
	assert.Equal(t, season.StatusUpcoming, upcoming.Status)

	_, err = f.seasonSvc.CreateSeason(f.ctx, CreateSeasonInput{StartDate: now, EndDate: now.Add(time.Hour)})
	require.ErrorIs(t, err, ErrInvalidInput, "only one active season at a time")
}

func TestSeasonService_StatsFollowWagerActivity(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	active := f.createActiveSeason(t)

	f.playAndSettle(t, "alice", "bob", 100, "g1", chessmatch.WinnerWhite)
	f.playAndSettle(t, "alice", "bob", 40, "g2", chessmatch.WinnerDraw)

	alice, err := f.seasonSvc.GetUserStats(f.ctx, active.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, season.CurrencyStats{
		Balance: 100, Wins: 1, GamesPlayed: 2, Wagered: 140, Earned: 200, NetProfit: 100,
	}, alice.Stats.Token)
	assert.Equal(t, 1, alice.TokenRank)

	bob, err := f.seasonSvc.GetUserStats(f.ctx, active.ID, "bob")
	require.NoError(t, err)
	assert.Equal(t, season.CurrencyStats{
		Balance: -100, Losses: 1, GamesPlayed: 2, Wagered: 140, NetProfit: -100,
	}, bob.Stats.Token)
	assert.Equal(t, 3, bob.TokenRank, "carol's zero balance ranks above bob")

	got, err := f.seasonSvc.GetSeason(f.ctx, active.ID)
	require.NoError(t, err)
	assert.Equal(t, season.Metadata{TotalWagers: 2, SettledWagers: 2, TokenVolume: 280}, got.Metadata)

	board, err := f.seasonSvc.Leaderboard(f.ctx, active.ID, user.CurrencyToken, 10, 0)
	require.NoError(t, err)
	require.Len(t, board, 3)
	assert.Equal(t, "alice", board[0].UserID)
	assert.Equal(t, "bob", board[2].UserID)

	_, err = f.seasonSvc.GetUserStats(f.ctx, active.ID, "ghost")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSeasonService_LeaderboardTiesShareRank(t *testing.T) {
	t.Parallel()
	f := newFixture(t,
		testUser("u1", 1000, 0), testUser("u2", 1000, 0), testUser("u3", 1000, 0), testUser("u4", 1000, 0),
	)
	active := f.createActiveSeason(t)

	f.playAndSettle(t, "u1", "u2", 50, "t1", chessmatch.WinnerWhite)
	f.playAndSettle(t, "u3", "u4", 50, "t2", chessmatch.WinnerWhite)

	board, err := f.seasonSvc.Leaderboard(f.ctx, active.ID, user.CurrencyToken, 10, 0)
	require.NoError(t, err)
	require.Len(t, board, 4)
	assert.Equal(t, []int{1, 1, 3, 3}, []int{board[0].Rank, board[1].Rank, board[2].Rank, board[3].Rank})
	for i := 1; i < len(board); i++ {
		assert.GreaterOrEqual(t, board[i-1].Stats.Balance, board[i].Stats.Balance)
	}
}

func TestSeasonService_CheckSeasonTransitions_CompletesAndRollsOver(t *testing.T) {
	t.Parallel()
	f := newFixture(t, testUser("u1", 1000, 0), testUser("u2", 1000, 0), testUser("u3", 1000, 0), testUser("u4", 1000, 0))
	active := f.createActiveSeason(t)

	f.playAndSettle(t, "u1", "u2", 100, "t1", chessmatch.WinnerWhite)
	f.playAndSettle(t, "u3", "u4", 100, "t2", chessmatch.WinnerWhite)
	f.playAndSettle(t, "u2", "u4", 10, "t3", chessmatch.WinnerWhite)

	f.clock.Advance(25 * time.Hour)
	res, err := f.seasonSvc.CheckSeasonTransitions(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{active.ID}, res.Completed)
	require.NotEmpty(t, res.Created)

	done, err := f.seasonSvc.GetSeason(f.ctx, active.ID)
	require.NoError(t, err)
	assert.Equal(t, season.StatusCompleted, done.Status)
	assert.NotNil(t, done.RewardsDistributedAt)

	// u1 and u3 tie at +100, so both take first place; u2 at -90 is not positive.
	assert.Equal(t, int64(1000+100+300), f.balance(t, "u1", user.CurrencyToken))
	assert.Equal(t, int64(1000+100+300), f.balance(t, "u3", user.CurrencyToken))
	assert.Equal(t, int64(1000-90), f.balance(t, "u2", user.CurrencyToken))
	assert.Len(t, f.dispatcher.byCategory(notification.CategorySeasonReward), 2)
	assert.Equal(t, int64(2), f.metrics.rewarded.Load())

	u1, ok, err := f.stats.Get(f.ctx, active.ID, "u1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, u1.Rank)
	assert.Equal(t, int64(300), u1.TokenRewards)
	assert.Equal(t, []string{"season_1_token_champion"}, u1.Achievements)

	next, err := f.seasonSvc.GetActiveSeason(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, res.Created, next.ID)
	assert.Equal(t, 2, next.Number)
	assert.Equal(t, testRewards, next.Rewards)
	assert.Equal(t, f.clock.Now().Add(season.DefaultLength), next.EndDate)

	assert.Equal(t, []string{active.ID}, res.Rewarded)

	_, err = f.seasonSvc.DistributeSeasonRewards(f.ctx, active.ID)
	require.ErrorIs(t, err, ErrNotAvailable)
	assert.Equal(t, int64(1400), f.balance(t, "u1", user.CurrencyToken), "rewards are paid once")

	again, err := f.seasonSvc.CheckSeasonTransitions(f.ctx)
	require.NoError(t, err)
	assert.Empty(t, again.Completed)
	assert.Empty(t, again.Created)
}

// failingCredits fails the next credits to one user, then recovers.
type failingCredits struct {
	user.Ledger
	mu       sync.Mutex
	userID   string
	failures int
}

func (l *failingCredits) Credit(ctx context.Context, userID string, currency user.Currency, amount int64) error {
	l.mu.Lock()
	fail := userID == l.userID && l.failures > 0
	if fail {
		l.failures--
	}
	l.mu.Unlock()
	if fail {
		return errors.New("ledger write timeout")
	}
	return l.Ledger.Credit(ctx, userID, currency, amount)
}

func (f *fixture) endSeasonWithLeaders(t *testing.T) season.Season {
	t.Helper()
	active := f.createActiveSeason(t)
	f.playAndSettle(t, "u1", "u2", 100, "t1", chessmatch.WinnerWhite)
	f.playAndSettle(t, "u3", "u4", 50, "t2", chessmatch.WinnerWhite)
	f.clock.Advance(25 * time.Hour)
	return active
}

func TestSeasonService_DistributeSeasonRewards_RetryPaysWhatIsOwed(t *testing.T) {
	t.Parallel()
	f := newFixture(t, testUser("u1", 1000, 0), testUser("u2", 1000, 0), testUser("u3", 1000, 0), testUser("u4", 1000, 0))
	active := f.endSeasonWithLeaders(t)
	f.seasonSvc.ledger = &failingCredits{Ledger: f.users, userID: "u1", failures: 1}

	first, err := f.seasonSvc.DistributeSeasonRewards(f.ctx, active.ID)
	require.Error(t, err)
	assert.Equal(t, 1, first.Failed)
	require.Len(t, first.Grants, 1)
	assert.Equal(t, "u3", first.Grants[0].UserID)
	assert.Equal(t, int64(1100), f.balance(t, "u1", user.CurrencyToken))
	assert.Equal(t, int64(1050+200), f.balance(t, "u3", user.CurrencyToken))

	got, err := f.seasonSvc.GetSeason(f.ctx, active.ID)
	require.NoError(t, err)
	assert.Nil(t, got.RewardsDistributedAt, "a partial payout leaves the season open for retry")

	second, err := f.seasonSvc.DistributeSeasonRewards(f.ctx, active.ID)
	require.NoError(t, err)
	assert.Zero(t, second.Failed)
	assert.Equal(t, 1, second.Skipped)
	require.Len(t, second.Grants, 1)
	assert.Equal(t, "u1", second.Grants[0].UserID)
	assert.Equal(t, int64(1100+300), f.balance(t, "u1", user.CurrencyToken))
	assert.Equal(t, int64(1050+200), f.balance(t, "u3", user.CurrencyToken), "u3 is not paid twice")

	u1, _, err := f.stats.Get(f.ctx, active.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(300), u1.TokenRewards)

	_, err = f.seasonSvc.DistributeSeasonRewards(f.ctx, active.ID)
	require.ErrorIs(t, err, ErrNotAvailable)
}

func TestSeasonService_CheckSeasonTransitions_RetriesPendingRewards(t *testing.T) {
	t.Parallel()
	f := newFixture(t, testUser("u1", 1000, 0), testUser("u2", 1000, 0), testUser("u3", 1000, 0), testUser("u4", 1000, 0))
	f.seasonSvc.ledger = &failingCredits{Ledger: f.users, userID: "u1", failures: 1}
	ended := f.endSeasonWithLeaders(t)

	res, err := f.seasonSvc.CheckSeasonTransitions(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{ended.ID}, res.Completed)
	assert.Empty(t, res.Rewarded)
	require.NotEmpty(t, res.Created)
	assert.Equal(t, int64(1100), f.balance(t, "u1", user.CurrencyToken))

	res, err = f.seasonSvc.CheckSeasonTransitions(f.ctx)
	require.NoError(t, err)
	assert.Empty(t, res.Completed)
	assert.Equal(t, []string{ended.ID}, res.Rewarded)
	assert.Equal(t, int64(1100+300), f.balance(t, "u1", user.CurrencyToken))
	assert.Equal(t, int64(1050+200), f.balance(t, "u3", user.CurrencyToken))
	assert.Len(t, f.dispatcher.byCategory(notification.CategorySeasonReward), 2)

	done, err := f.seasonSvc.GetSeason(f.ctx, ended.ID)
	require.NoError(t, err)
	assert.Equal(t, season.StatusCompleted, done.Status)
	assert.NotNil(t, done.RewardsDistributedAt)

	res, err = f.seasonSvc.CheckSeasonTransitions(f.ctx)
	require.NoError(t, err)
	assert.Empty(t, res.Rewarded)
}

func TestSeasonService_CheckSeasonTransitions_ActivatesUpcoming(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	now := f.clock.Now()

	upcoming, err := f.seasonSvc.CreateSeason(f.ctx, CreateSeasonInput{
		StartDate: now.Add(time.Hour), EndDate: now.Add(48 * time.Hour), Rewards: testRewards,
	})
	require.NoError(t, err)

	res, err := f.seasonSvc.CheckSeasonTransitions(f.ctx)
	require.NoError(t, err)
	assert.Empty(t, res.Activated)

	f.clock.Advance(time.Hour)
	res, err = f.seasonSvc.CheckSeasonTransitions(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{upcoming.ID}, res.Activated)

	_, ok, err := f.stats.Get(f.ctx, upcoming.ID, "bob")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSeasonService_StatsSkippedWithoutActiveSeason(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	f.playAndSettle(t, "alice", "bob", 100, "g1", chessmatch.WinnerWhite)
	assert.Equal(t, int64(1100), f.balance(t, "alice", user.CurrencyToken))

	_, err := f.seasonSvc.GetActiveSeason(f.ctx)
	require.ErrorIs(t, err, ErrNotFound)
}
