package postgres

import (
	"database/sql"
	"time"

	"github.com/riskibarqy/chess-wager/internal/domain/user"
)

type userTableModel struct {
	ID                 string         `db:"id"`
	Username           string         `db:"username"`
	ChessUsername      sql.NullString `db:"chess_username"`
	ChessAccessToken   sql.NullString `db:"chess_access_token"`
	TokenBalance       int64          `db:"token_balance"`
	SweepstakesBalance int64          `db:"sweepstakes_balance"`
	CreatedAt          time.Time      `db:"created_at"`
	UpdatedAt          time.Time      `db:"updated_at"`
}

var userColumns = []string{
	"id", "username", "chess_username", "chess_access_token",
	"token_balance", "sweepstakes_balance", "created_at", "updated_at",
}

func (m userTableModel) toDomain() user.User {
	return user.User{
		ID:               m.ID,
		Username:         m.Username,
		ChessUsername:    m.ChessUsername.String,
		ChessAccessToken: m.ChessAccessToken.String,
		Balances: user.Balances{
			Token:       m.TokenBalance,
			Sweepstakes: m.SweepstakesBalance,
		},
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// balanceColumn maps a currency to its column. Only these two names are
// ever interpolated into SQL.
func balanceColumn(c user.Currency) (string, bool) {
	switch c {
	case user.CurrencyToken:
		return "token_balance", true
	case user.CurrencySweepstakes:
		return "sweepstakes_balance", true
	default:
		return "", false
	}
}
