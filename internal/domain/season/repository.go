package season

import (
	"context"
	"time"

	"github.com/riskibarqy/chess-wager/internal/domain/user"
)

type Repository interface {
	Create(ctx context.Context, s Season) error
	GetByID(ctx context.Context, seasonID string) (Season, bool, error)
	GetActive(ctx context.Context) (Season, bool, error)
	List(ctx context.Context, limit int) ([]Season, error)
	// ListUnfinished returns upcoming and active seasons ordered by start.
	ListUnfinished(ctx context.Context) ([]Season, error)
	// ListRewardsPending returns completed seasons whose rewards are not yet
	// marked as distributed, ordered by number.
	ListRewardsPending(ctx context.Context) ([]Season, error)
	MaxNumber(ctx context.Context) (int, error)
	HasUpcoming(ctx context.Context) (bool, error)
	TransitionStatus(ctx context.Context, seasonID string, from, to Status, now time.Time) (bool, error)
	// MarkRewardsDistributed stamps rewards_distributed_at if it is still
	// unset and reports whether this call set it.
	MarkRewardsDistributed(ctx context.Context, seasonID string, now time.Time) (bool, error)
	IncrementMetadata(ctx context.Context, seasonID string, delta Metadata, now time.Time) error
}

type StatsRepository interface {
	// EnsureRows inserts zeroed rows and leaves existing ones untouched.
	EnsureRows(ctx context.Context, seasonID string, userIDs []string, now time.Time) error
	// ApplyDelta upserts the row and adds delta column-wise.
	ApplyDelta(ctx context.Context, seasonID, userID string, delta Delta, now time.Time) error
	Get(ctx context.Context, seasonID, userID string) (Stats, bool, error)
	// TopByBalance returns up to limit rows with a positive balance, ranked.
	TopByBalance(ctx context.Context, seasonID string, currency user.Currency, limit int) ([]LeaderboardEntry, error)
	Leaderboard(ctx context.Context, seasonID string, currency user.Currency, limit, offset int) ([]LeaderboardEntry, error)
	// RankOf is the count of strictly greater balances plus one.
	RankOf(ctx context.Context, seasonID, userID string, currency user.Currency) (int, error)
	// RecordReward books a grant at most once per season, user and currency.
	// It reports false, changing nothing, when the grant already exists.
	RecordReward(ctx context.Context, reward Reward, now time.Time) (bool, error)
}

// Reward is a granted payout as recorded on the stats row.
type Reward struct {
	SeasonID    string
	UserID      string
	Currency    user.Currency
	Rank        int
	Amount      int64
	Achievement string
}
