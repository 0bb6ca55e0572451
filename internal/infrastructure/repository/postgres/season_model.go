package postgres

import (
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/lib/pq"
	"github.com/riskibarqy/chess-wager/internal/domain/season"
	"github.com/riskibarqy/chess-wager/internal/domain/user"
)

type seasonTableModel struct {
	ID                   string     `db:"id"`
	Number               int        `db:"number"`
	StartDate            time.Time  `db:"start_date"`
	EndDate              time.Time  `db:"end_date"`
	Status               string     `db:"status"`
	Rewards              []byte     `db:"rewards"`
	TotalWagers          int64      `db:"total_wagers"`
	SettledWagers        int64      `db:"settled_wagers"`
	TokenVolume          int64      `db:"token_volume"`
	SweepstakesVolume    int64      `db:"sweepstakes_volume"`
	RewardsDistributedAt *time.Time `db:"rewards_distributed_at"`
	CreatedAt            time.Time  `db:"created_at"`
	UpdatedAt            time.Time  `db:"updated_at"`
}

var seasonColumns = []string{
	"id", "number", "start_date", "end_date", "status", "rewards",
	"total_wagers", "settled_wagers", "token_volume", "sweepstakes_volume",
	"rewards_distributed_at", "created_at", "updated_at",
}

func seasonRowFromDomain(s season.Season) (seasonTableModel, error) {
	rewards, err := sonic.Marshal(s.Rewards)
	if err != nil {
		return seasonTableModel{}, crerr.Wrap(err, "encode season rewards")
	}
	return seasonTableModel{
		ID:                   s.ID,
		Number:               s.Number,
		StartDate:            s.StartDate.UTC(),
		EndDate:              s.EndDate.UTC(),
		Status:               string(s.Status),
		Rewards:              rewards,
		TotalWagers:          s.Metadata.TotalWagers,
		SettledWagers:        s.Metadata.SettledWagers,
		TokenVolume:          s.Metadata.TokenVolume,
		SweepstakesVolume:    s.Metadata.SweepstakesVolume,
		RewardsDistributedAt: s.RewardsDistributedAt,
		CreatedAt:            s.CreatedAt.UTC(),
		UpdatedAt:            s.UpdatedAt.UTC(),
	}, nil
}

func (m seasonTableModel) toDomain() (season.Season, error) {
	var rewards season.Rewards
	if len(m.Rewards) > 0 {
		if err := sonic.Unmarshal(m.Rewards, &rewards); err != nil {
			return season.Season{}, crerr.Wrapf(err, "decode rewards of season id=%s", m.ID)
		}
	}
	return season.Season{
		ID:        m.ID,
		Number:    m.Number,
		StartDate: m.StartDate,
		EndDate:   m.EndDate,
		Status:    season.Status(m.Status),
		Rewards:   rewards,
		Metadata: season.Metadata{
			TotalWagers:       m.TotalWagers,
			SettledWagers:     m.SettledWagers,
			TokenVolume:       m.TokenVolume,
			SweepstakesVolume: m.SweepstakesVolume,
		},
		RewardsDistributedAt: m.RewardsDistributedAt,
		CreatedAt:            m.CreatedAt,
		UpdatedAt:            m.UpdatedAt,
	}, nil
}

type seasonStatsTableModel struct {
	SeasonID               string         `db:"season_id"`
	UserID                 string         `db:"user_id"`
	TokenBalance           int64          `db:"token_balance"`
	TokenWins              int64          `db:"token_wins"`
	TokenLosses            int64          `db:"token_losses"`
	TokenGamesPlayed       int64          `db:"token_games_played"`
	TokenWagered           int64          `db:"token_wagered"`
	TokenEarned            int64          `db:"token_earned"`
	TokenNetProfit         int64          `db:"token_net_profit"`
	SweepstakesBalance     int64          `db:"sweepstakes_balance"`
	SweepstakesWins        int64          `db:"sweepstakes_wins"`
	SweepstakesLosses      int64          `db:"sweepstakes_losses"`
	SweepstakesGamesPlayed int64          `db:"sweepstakes_games_played"`
	SweepstakesWagered     int64          `db:"sweepstakes_wagered"`
	SweepstakesEarned      int64          `db:"sweepstakes_earned"`
	SweepstakesNetProfit   int64          `db:"sweepstakes_net_profit"`
	Rank                   int            `db:"rank"`
	TokenRewards           int64          `db:"token_rewards"`
	SweepstakesRewards     int64          `db:"sweepstakes_rewards"`
	Achievements           pq.StringArray `db:"achievements"`
	CreatedAt              time.Time      `db:"created_at"`
	UpdatedAt              time.Time      `db:"updated_at"`
}

// statsMetrics are the per-currency counters; columns are "<currency>_<metric>".
var statsMetrics = []string{"balance", "wins", "losses", "games_played", "wagered", "earned", "net_profit"}

func statsColumn(c user.Currency, metric string) string {
	return string(c) + "_" + metric
}

// metricValues lines up with statsMetrics.
func metricValues(s season.CurrencyStats) []any {
	return []any{s.Balance, s.Wins, s.Losses, s.GamesPlayed, s.Wagered, s.Earned, s.NetProfit}
}

func (m seasonStatsTableModel) toDomain() season.Stats {
	return season.Stats{
		SeasonID: m.SeasonID,
		UserID:   m.UserID,
		Token: season.CurrencyStats{
			Balance:     m.TokenBalance,
			Wins:        m.TokenWins,
			Losses:      m.TokenLosses,
			GamesPlayed: m.TokenGamesPlayed,
			Wagered:     m.TokenWagered,
			Earned:      m.TokenEarned,
			NetProfit:   m.TokenNetProfit,
		},
		Sweepstakes: season.CurrencyStats{
			Balance:     m.SweepstakesBalance,
			Wins:        m.SweepstakesWins,
			Losses:      m.SweepstakesLosses,
			GamesPlayed: m.SweepstakesGamesPlayed,
			Wagered:     m.SweepstakesWagered,
			Earned:      m.SweepstakesEarned,
			NetProfit:   m.SweepstakesNetProfit,
		},
		Rank:               m.Rank,
		TokenRewards:       m.TokenRewards,
		SweepstakesRewards: m.SweepstakesRewards,
		Achievements:       []string(m.Achievements),
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
	}
}

// leaderboardRow is one ranked currency slice of a stats row.
type leaderboardRow struct {
	UserID      string `db:"user_id"`
	Rank        int    `db:"position"`
	Balance     int64  `db:"balance"`
	Wins        int64  `db:"wins"`
	Losses      int64  `db:"losses"`
	GamesPlayed int64  `db:"games_played"`
	Wagered     int64  `db:"wagered"`
	Earned      int64  `db:"earned"`
	NetProfit   int64  `db:"net_profit"`
}

func (m leaderboardRow) toDomain() season.LeaderboardEntry {
	return season.LeaderboardEntry{
		UserID: m.UserID,
		Rank:   m.Rank,
		Stats: season.CurrencyStats{
			Balance:     m.Balance,
			Wins:        m.Wins,
			Losses:      m.Losses,
			GamesPlayed: m.GamesPlayed,
			Wagered:     m.Wagered,
			Earned:      m.Earned,
			NetProfit:   m.NetProfit,
		},
	}
}
