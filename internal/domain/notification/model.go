package notification

import (
	"time"

	"github.com/riskibarqy/chess-wager/internal/domain/user"
)

type Category string

const (
	CategoryWagerPlaced   Category = "wager_placed"
	CategoryWagerMatched  Category = "wager_matched"
	CategoryWagerWon      Category = "wager_won"
	CategoryWagerLost     Category = "wager_lost"
	CategoryWagerDraw     Category = "wager_draw"
	CategoryWagerExpired  Category = "wager_expired"
	CategoryWagerCanceled Category = "wager_canceled"
	CategorySeasonReward  Category = "season_reward"
)

// Event is an outbound message produced by a core operation. Operations
// return events instead of sending them so the state transitions stay
// testable without live collaborators.
type Event struct {
	ID        string        `json:"id"`
	UserID    string        `json:"userId"`
	Category  Category      `json:"category"`
	Message   string        `json:"message"`
	WagerID   string        `json:"wagerId,omitempty"`
	SeasonID  string        `json:"seasonId,omitempty"`
	Amount    int64         `json:"amount,omitempty"`
	Currency  user.Currency `json:"currency,omitempty"`
	CreatedAt time.Time     `json:"createdAt"`
}
