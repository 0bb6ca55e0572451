package wager

import (
	"errors"
	"fmt"
	"time"

	"github.com/riskibarqy/chess-wager/internal/domain/chessmatch"
	"github.com/riskibarqy/chess-wager/internal/domain/notification"
	"github.com/riskibarqy/chess-wager/internal/domain/user"
)

var (
	ErrSelfAccept      = errors.New("creator cannot accept own wager")
	ErrNotMatched      = errors.New("wager is not matched")
	ErrColorsUnset     = errors.New("wager final colors are not resolved")
	ErrUnknownWinner   = errors.New("unknown match winner")
	ErrMissingOpponent = errors.New("wager has no opponent")
	ErrClaimNotHeld    = errors.New("wager claim is no longer held")
)

// Credit is one balance increment produced by a settlement.
type Credit struct {
	UserID   string
	Currency user.Currency
	Amount   int64
}

// Resolution is the terminal write for a matched wager.
type Resolution struct {
	WagerID   string
	Status    Status
	WinnerID  string
	Winnings  int64
	SettledAt time.Time
}

// Settlement is everything a concluded match changes for one wager. It is
// computed without touching any store.
type Settlement struct {
	Resolution Resolution
	Credits    []Credit
	Events     []notification.Event
	// Loser is empty for draws.
	LoserID string
}

func (s Settlement) IsDraw() bool {
	return s.Resolution.Status == StatusDraw
}

// ResolveColors fixes the final sides once an opponent is known. coin is
// consulted only for random and returns true when the creator takes white.
func ResolveColors(w Wager, opponentID string, coin func() bool) (whiteID, blackID string, err error) {
	if opponentID == "" {
		return "", "", ErrMissingOpponent
	}
	if opponentID == w.CreatorID {
		return "", "", ErrSelfAccept
	}

	switch w.CreatorColor {
	case ColorWhite:
		return w.CreatorID, opponentID, nil
	case ColorBlack:
		return opponentID, w.CreatorID, nil
	case ColorRandom:
		if coin() {
			return w.CreatorID, opponentID, nil
		}
		return opponentID, w.CreatorID, nil
	default:
		return "", "", fmt.Errorf("unknown creator color %q", w.CreatorColor)
	}
}

// Settle maps an oracle verdict onto balance credits and a terminal status.
// A match that ended without a result (aborted, never started) refunds both
// sides like a draw so escrow is never stranded.
func Settle(w Wager, winner chessmatch.Winner, now time.Time) (Settlement, error) {
	if w.Status != StatusMatched {
		return Settlement{}, fmt.Errorf("%w: wager=%s status=%s", ErrNotMatched, w.ID, w.Status)
	}
	if w.FinalWhiteID == "" || w.FinalBlackID == "" {
		return Settlement{}, fmt.Errorf("%w: wager=%s", ErrColorsUnset, w.ID)
	}

	switch winner {
	case chessmatch.WinnerDraw, chessmatch.WinnerNone:
		return Settlement{
			Resolution: Resolution{
				WagerID:   w.ID,
				Status:    StatusDraw,
				SettledAt: now,
			},
			Credits: []Credit{
				{UserID: w.FinalWhiteID, Currency: w.Currency, Amount: w.Amount},
				{UserID: w.FinalBlackID, Currency: w.Currency, Amount: w.Amount},
			},
			Events: []notification.Event{
				DrawEvent(w, w.FinalWhiteID, now),
				DrawEvent(w, w.FinalBlackID, now),
			},
		}, nil
	case chessmatch.WinnerWhite, chessmatch.WinnerBlack:
		winnerID, loserID := w.FinalWhiteID, w.FinalBlackID
		if winner == chessmatch.WinnerBlack {
			winnerID, loserID = w.FinalBlackID, w.FinalWhiteID
		}
		pot := w.Pot()
		return Settlement{
			Resolution: Resolution{
				WagerID:   w.ID,
				Status:    StatusWon,
				WinnerID:  winnerID,
				Winnings:  pot,
				SettledAt: now,
			},
			Credits: []Credit{
				{UserID: winnerID, Currency: w.Currency, Amount: pot},
			},
			Events: []notification.Event{
				WonEvent(w, winnerID, pot, now),
				LostEvent(w, loserID, now),
			},
			LoserID: loserID,
		}, nil
	default:
		return Settlement{}, fmt.Errorf("%w: %q", ErrUnknownWinner, winner)
	}
}
