package season

import (
	"fmt"
	"time"

	"github.com/riskibarqy/chess-wager/internal/domain/user"
)

// StatusAt derives the wall-clock status for the window [start, end).
func StatusAt(start, end, now time.Time) Status {
	switch {
	case now.Before(start):
		return StatusUpcoming
	case now.Before(end):
		return StatusActive
	default:
		return StatusCompleted
	}
}

func (s Season) ShouldActivate(now time.Time) bool {
	return s.Status == StatusUpcoming && StatusAt(s.StartDate, s.EndDate, now) == StatusActive
}

func (s Season) ShouldComplete(now time.Time) bool {
	return s.Status != StatusCompleted && !now.Before(s.EndDate)
}

func (s Season) RewardsDistributed() bool {
	return s.RewardsDistributedAt != nil
}

func ValidateWindow(start, end time.Time) error {
	if !end.After(start) {
		return fmt.Errorf("%w: start=%s end=%s", ErrInvalidWindow, start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	return nil
}

// Next builds the season that follows prev: same reward tiers, starting now
// and active immediately.
func Next(prev Season, id string, number int, now time.Time, length time.Duration) Season {
	if length <= 0 {
		length = DefaultLength
	}
	return Season{
		ID:        id,
		Number:    number,
		StartDate: now,
		EndDate:   now.Add(length),
		Status:    StatusActive,
		Rewards:   prev.Rewards,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// CompetitionRanks assigns "1224" ranks to balances sorted descending.
func CompetitionRanks(balances []int64) []int {
	ranks := make([]int, len(balances))
	for i := range balances {
		if i > 0 && balances[i] == balances[i-1] {
			ranks[i] = ranks[i-1]
			continue
		}
		ranks[i] = i + 1
	}
	return ranks
}

func AchievementTag(number int, c user.Currency, rank int) string {
	place := "top3"
	switch rank {
	case 1:
		place = "champion"
	case 2:
		place = "runner_up"
	case 3:
		place = "third_place"
	}
	return fmt.Sprintf("season_%d_%s_%s", number, c, place)
}

func BetPlacedDelta(c user.Currency, amount int64) Delta {
	return Delta{Currency: c, CurrencyStats: CurrencyStats{Wagered: amount, Balance: -amount}}
}

func WinDelta(c user.Currency, amount int64) Delta {
	return Delta{Currency: c, CurrencyStats: CurrencyStats{
		Wins:        1,
		GamesPlayed: 1,
		Earned:      amount * 2,
		Balance:     amount * 2,
		NetProfit:   amount,
	}}
}

func LossDelta(c user.Currency, amount int64) Delta {
	return Delta{Currency: c, CurrencyStats: CurrencyStats{Losses: 1, GamesPlayed: 1, NetProfit: -amount}}
}

func DrawDelta(c user.Currency, amount int64) Delta {
	return Delta{Currency: c, CurrencyStats: CurrencyStats{GamesPlayed: 1, Balance: amount}}
}

// AddAchievement appends tag unless it is already present.
func AddAchievement(tags []string, tag string) []string {
	for _, existing := range tags {
		if existing == tag {
			return tags
		}
	}
	return append(tags, tag)
}

// Add returns s with delta added column-wise.
func (s CurrencyStats) Add(d CurrencyStats) CurrencyStats {
	s.Balance += d.Balance
	s.Wins += d.Wins
	s.Losses += d.Losses
	s.GamesPlayed += d.GamesPlayed
	s.Wagered += d.Wagered
	s.Earned += d.Earned
	s.NetProfit += d.NetProfit
	return s
}

func (m Metadata) Add(d Metadata) Metadata {
	m.TotalWagers += d.TotalWagers
	m.SettledWagers += d.SettledWagers
	m.TokenVolume += d.TokenVolume
	m.SweepstakesVolume += d.SweepstakesVolume
	return m
}
