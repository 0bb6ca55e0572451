package season

import (
	"errors"
	"time"

	"github.com/riskibarqy/chess-wager/internal/domain/user"
)

// DefaultLength is the window of an automatically created season.
const DefaultLength = 7 * 24 * time.Hour

var ErrInvalidWindow = errors.New("season end must be after start")

type Status string

const (
	StatusUpcoming  Status = "upcoming"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

// Tier is the payout for the top three places of one currency.
type Tier struct {
	First  int64 `json:"first"`
	Second int64 `json:"second"`
	Third  int64 `json:"third"`
}

func (t Tier) ForRank(rank int) int64 {
	switch rank {
	case 1:
		return t.First
	case 2:
		return t.Second
	case 3:
		return t.Third
	default:
		return 0
	}
}

type Rewards struct {
	Token       Tier `json:"token"`
	Sweepstakes Tier `json:"sweepstakes"`
}

func (r Rewards) For(c user.Currency) Tier {
	if c == user.CurrencySweepstakes {
		return r.Sweepstakes
	}
	return r.Token
}

// Metadata holds aggregate counters. As a delta it is added column-wise.
type Metadata struct {
	TotalWagers       int64 `json:"totalWagers"`
	SettledWagers     int64 `json:"settledWagers"`
	TokenVolume       int64 `json:"tokenVolume"`
	SweepstakesVolume int64 `json:"sweepstakesVolume"`
}

// VolumeDelta is a metadata increment for one matched wager.
func VolumeDelta(c user.Currency, amount int64) Metadata {
	m := Metadata{TotalWagers: 1}
	if c == user.CurrencySweepstakes {
		m.SweepstakesVolume = amount
	} else {
		m.TokenVolume = amount
	}
	return m
}

type Season struct {
	ID                   string
	Number               int
	StartDate            time.Time
	EndDate              time.Time
	Status               Status
	Rewards              Rewards
	Metadata             Metadata
	RewardsDistributedAt *time.Time
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// CurrencyStats is one currency's slice of a user's season record.
type CurrencyStats struct {
	Balance     int64 `json:"balance"`
	Wins        int64 `json:"wins"`
	Losses      int64 `json:"losses"`
	GamesPlayed int64 `json:"gamesPlayed"`
	Wagered     int64 `json:"wagered"`
	Earned      int64 `json:"earned"`
	NetProfit   int64 `json:"netProfit"`
}

// Stats is unique per (SeasonID, UserID).
type Stats struct {
	SeasonID           string
	UserID             string
	Token              CurrencyStats
	Sweepstakes        CurrencyStats
	Rank               int
	TokenRewards       int64
	SweepstakesRewards int64
	Achievements       []string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (s Stats) For(c user.Currency) CurrencyStats {
	if c == user.CurrencySweepstakes {
		return s.Sweepstakes
	}
	return s.Token
}

// Delta is an increment applied atomically to one currency of a stats row.
type Delta struct {
	Currency user.Currency
	CurrencyStats
}

type LeaderboardEntry struct {
	UserID string
	Rank   int
	Stats  CurrencyStats
}
