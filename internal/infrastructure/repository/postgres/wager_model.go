package postgres

import (
	"database/sql"
	"time"

	"github.com/riskibarqy/chess-wager/internal/domain/user"
	"github.com/riskibarqy/chess-wager/internal/domain/wager"
)

type wagerTableModel struct {
	ID           string         `db:"id"`
	CreatorID    string         `db:"creator_id"`
	OpponentID   sql.NullString `db:"opponent_id"`
	CreatorColor string         `db:"creator_color"`
	Amount       int64          `db:"amount"`
	Currency     string         `db:"currency"`
	TimeControl  string         `db:"time_control"`
	Variant      string         `db:"variant"`
	RatingClass  string         `db:"rating_class"`
	Status       string         `db:"status"`
	GameID       sql.NullString `db:"game_id"`
	GameLink     sql.NullString `db:"game_link"`
	FinalWhiteID sql.NullString `db:"final_white_id"`
	FinalBlackID sql.NullString `db:"final_black_id"`
	WinnerID     sql.NullString `db:"winner_id"`
	Winnings     int64          `db:"winnings"`
	ExpiresAt    time.Time      `db:"expires_at"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
	MatchedAt    *time.Time     `db:"matched_at"`
	SettledAt    *time.Time     `db:"settled_at"`
}

var wagerColumns = []string{
	"id", "creator_id", "opponent_id", "creator_color", "amount", "currency",
	"time_control", "variant", "rating_class", "status", "game_id", "game_link",
	"final_white_id", "final_black_id", "winner_id", "winnings",
	"expires_at", "created_at", "updated_at", "matched_at", "settled_at",
}

func wagerRowFromDomain(w wager.Wager) wagerTableModel {
	return wagerTableModel{
		ID:           w.ID,
		CreatorID:    w.CreatorID,
		OpponentID:   nullString(w.OpponentID),
		CreatorColor: string(w.CreatorColor),
		Amount:       w.Amount,
		Currency:     string(w.Currency),
		TimeControl:  w.TimeControl,
		Variant:      string(w.Variant),
		RatingClass:  string(w.RatingClass),
		Status:       string(w.Status),
		GameID:       nullString(w.GameID),
		GameLink:     nullString(w.GameLink),
		FinalWhiteID: nullString(w.FinalWhiteID),
		FinalBlackID: nullString(w.FinalBlackID),
		WinnerID:     nullString(w.WinnerID),
		Winnings:     w.Winnings,
		ExpiresAt:    w.ExpiresAt.UTC(),
		CreatedAt:    w.CreatedAt.UTC(),
		UpdatedAt:    w.UpdatedAt.UTC(),
		MatchedAt:    w.MatchedAt,
		SettledAt:    w.SettledAt,
	}
}

func (m wagerTableModel) toDomain() wager.Wager {
	return wager.Wager{
		ID:           m.ID,
		CreatorID:    m.CreatorID,
		OpponentID:   m.OpponentID.String,
		CreatorColor: wager.Color(m.CreatorColor),
		Amount:       m.Amount,
		Currency:     user.Currency(m.Currency),
		TimeControl:  m.TimeControl,
		Variant:      wager.Variant(m.Variant),
		RatingClass:  wager.RatingClass(m.RatingClass),
		Status:       wager.Status(m.Status),
		GameID:       m.GameID.String,
		GameLink:     m.GameLink.String,
		FinalWhiteID: m.FinalWhiteID.String,
		FinalBlackID: m.FinalBlackID.String,
		WinnerID:     m.WinnerID.String,
		Winnings:     m.Winnings,
		ExpiresAt:    m.ExpiresAt,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
		MatchedAt:    m.MatchedAt,
		SettledAt:    m.SettledAt,
	}
}

func wagersFromRows(rows []wagerTableModel) []wager.Wager {
	out := make([]wager.Wager, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out
}
