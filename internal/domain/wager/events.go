package wager

import (
	"fmt"
	"time"

	"github.com/riskibarqy/chess-wager/internal/domain/notification"
)

func newEvent(w Wager, userID string, category notification.Category, amount int64, msg string, now time.Time) notification.Event {
	return notification.Event{
		UserID:    userID,
		Category:  category,
		Message:   msg,
		WagerID:   w.ID,
		Amount:    amount,
		Currency:  w.Currency,
		CreatedAt: now,
	}
}

func PlacedEvent(w Wager, now time.Time) notification.Event {
	return newEvent(w, w.CreatorID, notification.CategoryWagerPlaced, w.Amount,
		fmt.Sprintf("Your %d %s wager (%s %s) is open for %s.", w.Amount, w.Currency, w.TimeControl, w.Variant, w.ExpiresAt.Sub(now).Round(time.Minute)), now)
}

// MatchedEvents notifies both parties that the match is ready.
func MatchedEvents(w Wager, now time.Time) []notification.Event {
	out := make([]notification.Event, 0, 2)
	for _, side := range []struct{ id, color string }{{w.FinalWhiteID, "white"}, {w.FinalBlackID, "black"}} {
		out = append(out, newEvent(w, side.id, notification.CategoryWagerMatched, w.Amount,
			fmt.Sprintf("Wager matched. You play %s: %s", side.color, w.GameLink), now))
	}
	return out
}

func WonEvent(w Wager, userID string, pot int64, now time.Time) notification.Event {
	return newEvent(w, userID, notification.CategoryWagerWon, pot,
		fmt.Sprintf("You won %d %s.", pot, w.Currency), now)
}

func LostEvent(w Wager, userID string, now time.Time) notification.Event {
	return newEvent(w, userID, notification.CategoryWagerLost, w.Amount,
		fmt.Sprintf("You lost your %d %s wager.", w.Amount, w.Currency), now)
}

func DrawEvent(w Wager, userID string, now time.Time) notification.Event {
	return newEvent(w, userID, notification.CategoryWagerDraw, w.Amount,
		fmt.Sprintf("Draw. %d %s refunded.", w.Amount, w.Currency), now)
}

func ExpiredEvent(w Wager, now time.Time) notification.Event {
	return newEvent(w, w.CreatorID, notification.CategoryWagerExpired, w.Amount,
		fmt.Sprintf("Your wager expired unmatched. %d %s refunded.", w.Amount, w.Currency), now)
}

func CanceledEvent(w Wager, now time.Time) notification.Event {
	return newEvent(w, w.CreatorID, notification.CategoryWagerCanceled, w.Amount,
		fmt.Sprintf("Wager canceled. %d %s refunded.", w.Amount, w.Currency), now)
}
