package httpapi

import (
	"time"

	"github.com/riskibarqy/chess-wager/internal/domain/season"
	"github.com/riskibarqy/chess-wager/internal/domain/user"
	"github.com/riskibarqy/chess-wager/internal/domain/wager"
	"github.com/riskibarqy/chess-wager/internal/usecase"
)

type createWagerRequest struct {
	Amount        int64  `json:"amount" validate:"gt=0"`
	Currency      string `json:"currency" validate:"required,currency"`
	Color         string `json:"color" validate:"omitempty,wagercolor"`
	TimeControl   string `json:"time_control" validate:"required,timecontrol"`
	Variant       string `json:"variant" validate:"omitempty,variant"`
	RatingClass   string `json:"rating_class" validate:"omitempty,oneof=ultraBullet bullet blitz rapid classical"`
	TargetMatchID string `json:"target_match_id" validate:"omitempty,max=64"`
}

type tierDTO struct {
	First  int64 `json:"first" validate:"gte=0"`
	Second int64 `json:"second" validate:"gte=0"`
	Third  int64 `json:"third" validate:"gte=0"`
}

type createSeasonRequest struct {
	StartDate time.Time `json:"start_date" validate:"required"`
	EndDate   time.Time `json:"end_date" validate:"required,gtfield=StartDate"`
	Rewards   struct {
		Token       tierDTO `json:"token"`
		Sweepstakes tierDTO `json:"sweepstakes"`
	} `json:"rewards"`
}

type wagerDTO struct {
	ID           string     `json:"id"`
	CreatorID    string     `json:"creator_id"`
	OpponentID   string     `json:"opponent_id,omitempty"`
	CreatorColor string     `json:"creator_color"`
	Amount       int64      `json:"amount"`
	Currency     string     `json:"currency"`
	TimeControl  string     `json:"time_control"`
	Variant      string     `json:"variant"`
	RatingClass  string     `json:"rating_class"`
	Status       string     `json:"status"`
	GameID       string     `json:"game_id,omitempty"`
	GameLink     string     `json:"game_link,omitempty"`
	WhiteID      string     `json:"white_id,omitempty"`
	BlackID      string     `json:"black_id,omitempty"`
	WinnerID     string     `json:"winner_id,omitempty"`
	Winnings     int64      `json:"winnings,omitempty"`
	ExpiresAt    time.Time  `json:"expires_at"`
	CreatedAt    time.Time  `json:"created_at"`
	MatchedAt    *time.Time `json:"matched_at,omitempty"`
	SettledAt    *time.Time `json:"settled_at,omitempty"`
}

func wagerToDTO(w wager.Wager) wagerDTO {
	return wagerDTO{
		ID:           w.ID,
		CreatorID:    w.CreatorID,
		OpponentID:   w.OpponentID,
		CreatorColor: string(w.CreatorColor),
		Amount:       w.Amount,
		Currency:     string(w.Currency),
		TimeControl:  w.TimeControl,
		Variant:      string(w.Variant),
		RatingClass:  string(w.RatingClass),
		Status:       string(w.Status),
		GameID:       w.GameID,
		GameLink:     w.GameLink,
		WhiteID:      w.FinalWhiteID,
		BlackID:      w.FinalBlackID,
		WinnerID:     w.WinnerID,
		Winnings:     w.Winnings,
		ExpiresAt:    w.ExpiresAt,
		CreatedAt:    w.CreatedAt,
		MatchedAt:    w.MatchedAt,
		SettledAt:    w.SettledAt,
	}
}

func wagersToDTO(items []wager.Wager) []wagerDTO {
	out := make([]wagerDTO, 0, len(items))
	for _, w := range items {
		out = append(out, wagerToDTO(w))
	}
	return out
}

type seasonDTO struct {
	ID                   string          `json:"id"`
	Number               int             `json:"number"`
	StartDate            time.Time       `json:"start_date"`
	EndDate              time.Time       `json:"end_date"`
	Status               string          `json:"status"`
	Rewards              season.Rewards  `json:"rewards"`
	Metadata             season.Metadata `json:"metadata"`
	RewardsDistributedAt *time.Time      `json:"rewards_distributed_at,omitempty"`
}

func seasonToDTO(s season.Season) seasonDTO {
	return seasonDTO{
		ID:                   s.ID,
		Number:               s.Number,
		StartDate:            s.StartDate,
		EndDate:              s.EndDate,
		Status:               string(s.Status),
		Rewards:              s.Rewards,
		Metadata:             s.Metadata,
		RewardsDistributedAt: s.RewardsDistributedAt,
	}
}

type leaderboardEntryDTO struct {
	Rank   int                  `json:"rank"`
	UserID string               `json:"user_id"`
	Stats  season.CurrencyStats `json:"stats"`
}

type leaderboardDTO struct {
	SeasonID string                `json:"season_id"`
	Currency string                `json:"currency"`
	Entries  []leaderboardEntryDTO `json:"entries"`
}

func leaderboardToDTO(seasonID string, c user.Currency, entries []season.LeaderboardEntry) leaderboardDTO {
	out := leaderboardDTO{SeasonID: seasonID, Currency: string(c), Entries: make([]leaderboardEntryDTO, 0, len(entries))}
	for _, e := range entries {
		out.Entries = append(out.Entries, leaderboardEntryDTO{Rank: e.Rank, UserID: e.UserID, Stats: e.Stats})
	}
	return out
}

type seasonStatsDTO struct {
	SeasonID           string               `json:"season_id"`
	UserID             string               `json:"user_id"`
	Token              season.CurrencyStats `json:"token"`
	Sweepstakes        season.CurrencyStats `json:"sweepstakes"`
	TokenRank          int                  `json:"token_rank"`
	SweepstakesRank    int                  `json:"sweepstakes_rank"`
	TokenRewards       int64                `json:"token_rewards"`
	SweepstakesRewards int64                `json:"sweepstakes_rewards"`
	Achievements       []string             `json:"achievements"`
}

func seasonStatsToDTO(v usecase.UserSeasonStats) seasonStatsDTO {
	achievements := v.Stats.Achievements
	if achievements == nil {
		achievements = []string{}
	}
	return seasonStatsDTO{
		SeasonID:           v.Stats.SeasonID,
		UserID:             v.Stats.UserID,
		Token:              v.Stats.Token,
		Sweepstakes:        v.Stats.Sweepstakes,
		TokenRank:          v.TokenRank,
		SweepstakesRank:    v.SweepstakesRank,
		TokenRewards:       v.Stats.TokenRewards,
		SweepstakesRewards: v.Stats.SweepstakesRewards,
		Achievements:       achievements,
	}
}

type settlementDTO struct {
	GameID  string     `json:"game_id"`
	Status  string     `json:"status"`
	Winner  string     `json:"winner,omitempty"`
	Settled []wagerDTO `json:"settled"`
	Skipped int        `json:"skipped"`
}

func settlementToDTO(v usecase.SettlementResult) settlementDTO {
	return settlementDTO{
		GameID:  v.GameID,
		Status:  string(v.Status),
		Winner:  string(v.Winner),
		Settled: wagersToDTO(v.Settled),
		Skipped: v.Skipped,
	}
}
