package wager

import (
	"context"
	"time"
)

// Repository persists wagers. Every state-changing method is a single
// conditional statement; a false result means the guard did not hold.
type Repository interface {
	Create(ctx context.Context, w Wager) error
	GetByID(ctx context.Context, wagerID string) (Wager, bool, error)

	// CancelPending moves a pending wager owned by creatorID to canceled.
	CancelPending(ctx context.Context, wagerID, creatorID string, now time.Time) (Wager, bool, error)
	// ExpirePending moves a pending wager whose deadline passed to expired.
	ExpirePending(ctx context.Context, wagerID string, now time.Time) (Wager, bool, error)

	// ClaimPending sets opponentID and status=matched only while the wager is
	// pending, unclaimed, unexpired and not created by opponentID.
	ClaimPending(ctx context.Context, wagerID, opponentID string, now time.Time) (Wager, bool, error)
	// ReleaseClaim reverts a claim made by opponentID back to pending while
	// no game is attached yet.
	ReleaseClaim(ctx context.Context, wagerID, opponentID string, now time.Time) (bool, error)
	AssignColors(ctx context.Context, wagerID, whiteID, blackID string, now time.Time) error
	AttachMatch(ctx context.Context, wagerID, gameID, gameLink string, now time.Time) (Wager, error)

	// Resolve writes the terminal status only while the wager is matched.
	Resolve(ctx context.Context, res Resolution) (Wager, bool, error)

	// ListExpiredPending pages overdue pending wagers in (expires_at, id)
	// order, starting after the cursor.
	ListExpiredPending(ctx context.Context, now time.Time, after Cursor, limit int) ([]Wager, error)
	// ListMatchedWithGame pages matched wagers with a game in (matched_at, id)
	// order, starting after the cursor.
	ListMatchedWithGame(ctx context.Context, after Cursor, limit int) ([]Wager, error)
	ListMatchedByGame(ctx context.Context, gameID string) ([]Wager, error)
	ListOpen(ctx context.Context, filter OpenFilter, now time.Time) ([]Wager, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]Wager, error)
}

// Cursor is a keyset position: the sort time and id of the last row seen.
// The zero value starts at the beginning.
type Cursor struct {
	At time.Time
	ID string
}

// Precedes reports whether a row keyed (at, id) sorts after c.
func (c Cursor) Precedes(at time.Time, id string) bool {
	if c.ID == "" {
		return true
	}
	if !at.Equal(c.At) {
		return at.After(c.At)
	}
	return id > c.ID
}

// ExpiryCursor is the position of w in expiry order.
func ExpiryCursor(w Wager) Cursor {
	return Cursor{At: w.ExpiresAt, ID: w.ID}
}

// MatchCursor is the position of w in match order.
func MatchCursor(w Wager) Cursor {
	var at time.Time
	if w.MatchedAt != nil {
		at = *w.MatchedAt
	}
	return Cursor{At: at, ID: w.ID}
}
