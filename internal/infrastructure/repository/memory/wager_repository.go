package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/riskibarqy/chess-wager/internal/domain/wager"
)

type WagerRepository struct {
	store *Store
}

func NewWagerRepository(store *Store) *WagerRepository {
	return &WagerRepository{store: store}
}

func (r *WagerRepository) Create(ctx context.Context, w wager.Wager) error {
	defer r.store.lock(ctx)()

	if _, exists := r.store.data.wagers[w.ID]; exists {
		return fmt.Errorf("wager %s already exists", w.ID)
	}
	r.store.data.wagers[w.ID] = w
	r.store.data.wagerOrder = append(r.store.data.wagerOrder, w.ID)
	return nil
}

func (r *WagerRepository) GetByID(ctx context.Context, wagerID string) (wager.Wager, bool, error) {
	defer r.store.lock(ctx)()

	w, ok := r.store.data.wagers[wagerID]
	return w, ok, nil
}

// update applies mutate when guard holds and reports whether it did.
func (r *WagerRepository) update(ctx context.Context, wagerID string, guard func(wager.Wager) bool, mutate func(*wager.Wager)) (wager.Wager, bool) {
	defer r.store.lock(ctx)()

	w, ok := r.store.data.wagers[wagerID]
	if !ok || !guard(w) {
		return wager.Wager{}, false
	}
	mutate(&w)
	r.store.data.wagers[wagerID] = w
	return w, true
}

func (r *WagerRepository) CancelPending(ctx context.Context, wagerID, creatorID string, now time.Time) (wager.Wager, bool, error) {
	w, ok := r.update(ctx, wagerID,
		func(w wager.Wager) bool { return w.Status == wager.StatusPending && w.CreatorID == creatorID },
		func(w *wager.Wager) {
			w.Status = wager.StatusCanceled
			w.UpdatedAt = now
		})
	return w, ok, nil
}

func (r *WagerRepository) ExpirePending(ctx context.Context, wagerID string, now time.Time) (wager.Wager, bool, error) {
	w, ok := r.update(ctx, wagerID,
		func(w wager.Wager) bool { return w.Status == wager.StatusPending && !w.ExpiresAt.After(now) },
		func(w *wager.Wager) {
			w.Status = wager.StatusExpired
			w.UpdatedAt = now
		})
	return w, ok, nil
}

func (r *WagerRepository) ClaimPending(ctx context.Context, wagerID, opponentID string, now time.Time) (wager.Wager, bool, error) {
	w, ok := r.update(ctx, wagerID,
		func(w wager.Wager) bool {
			return w.Status == wager.StatusPending &&
				w.OpponentID == "" &&
				w.CreatorID != opponentID &&
				w.ExpiresAt.After(now)
		},
		func(w *wager.Wager) {
			w.Status = wager.StatusMatched
			w.OpponentID = opponentID
			w.MatchedAt = &now
			w.UpdatedAt = now
		})
	return w, ok, nil
}

func (r *WagerRepository) ReleaseClaim(ctx context.Context, wagerID, opponentID string, now time.Time) (bool, error) {
	_, ok := r.update(ctx, wagerID,
		func(w wager.Wager) bool {
			return w.Status == wager.StatusMatched && w.OpponentID == opponentID && w.GameID == ""
		},
		func(w *wager.Wager) {
			w.Status = wager.StatusPending
			w.OpponentID = ""
			w.FinalWhiteID = ""
			w.FinalBlackID = ""
			w.MatchedAt = nil
			w.UpdatedAt = now
		})
	return ok, nil
}

func (r *WagerRepository) AssignColors(ctx context.Context, wagerID, whiteID, blackID string, now time.Time) error {
	_, ok := r.update(ctx, wagerID,
		func(w wager.Wager) bool {
			return w.Status == wager.StatusMatched && w.FinalWhiteID == "" && w.FinalBlackID == ""
		},
		func(w *wager.Wager) {
			w.FinalWhiteID = whiteID
			w.FinalBlackID = blackID
			w.UpdatedAt = now
		})
	if !ok {
		return fmt.Errorf("assign colors: wager %s is not a fresh match", wagerID)
	}
	return nil
}

func (r *WagerRepository) AttachMatch(ctx context.Context, wagerID, gameID, gameLink string, now time.Time) (wager.Wager, error) {
	w, ok := r.update(ctx, wagerID,
		func(w wager.Wager) bool { return w.Status == wager.StatusMatched && w.GameID == "" },
		func(w *wager.Wager) {
			w.GameID = gameID
			w.GameLink = gameLink
			w.UpdatedAt = now
		})
	if !ok {
		return wager.Wager{}, fmt.Errorf("attach match: wager %s is not awaiting a game", wagerID)
	}
	return w, nil
}

func (r *WagerRepository) Resolve(ctx context.Context, res wager.Resolution) (wager.Wager, bool, error) {
	w, ok := r.update(ctx, res.WagerID,
		func(w wager.Wager) bool { return w.Status == wager.StatusMatched && w.Status.CanTransitionTo(res.Status) },
		func(w *wager.Wager) {
			settledAt := res.SettledAt
			w.Status = res.Status
			w.WinnerID = res.WinnerID
			w.Winnings = res.Winnings
			w.SettledAt = &settledAt
			w.UpdatedAt = res.SettledAt
		})
	return w, ok, nil
}

func (r *WagerRepository) filter(ctx context.Context, limit int, keep func(wager.Wager) bool) []wager.Wager {
	defer r.store.lock(ctx)()

	out := make([]wager.Wager, 0)
	for _, id := range r.store.data.wagerOrder {
		w := r.store.data.wagers[id]
		if !keep(w) {
			continue
		}
		out = append(out, w)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

func (r *WagerRepository) filterNewestFirst(ctx context.Context, limit int, keep func(wager.Wager) bool) []wager.Wager {
	defer r.store.lock(ctx)()

	out := make([]wager.Wager, 0)
	order := r.store.data.wagerOrder
	for i := len(order) - 1; i >= 0; i-- {
		w := r.store.data.wagers[order[i]]
		if !keep(w) {
			continue
		}
		out = append(out, w)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

func (r *WagerRepository) ListExpiredPending(ctx context.Context, now time.Time, after wager.Cursor, limit int) ([]wager.Wager, error) {
	return r.page(ctx, after, limit, wager.ExpiryCursor, func(w wager.Wager) bool {
		return w.Status == wager.StatusPending && !w.ExpiresAt.After(now)
	}), nil
}

func (r *WagerRepository) ListMatchedWithGame(ctx context.Context, after wager.Cursor, limit int) ([]wager.Wager, error) {
	return r.page(ctx, after, limit, wager.MatchCursor, func(w wager.Wager) bool {
		return w.Status == wager.StatusMatched && w.GameID != ""
	}), nil
}

// page returns up to limit kept wagers past after, ordered by their cursor.
func (r *WagerRepository) page(ctx context.Context, after wager.Cursor, limit int, cursorOf func(wager.Wager) wager.Cursor, keep func(wager.Wager) bool) []wager.Wager {
	items := r.filter(ctx, 0, func(w wager.Wager) bool {
		if !keep(w) {
			return false
		}
		c := cursorOf(w)
		return after.Precedes(c.At, c.ID)
	})
	sort.Slice(items, func(i, j int) bool {
		a, b := cursorOf(items[i]), cursorOf(items[j])
		if !a.At.Equal(b.At) {
			return a.At.Before(b.At)
		}
		return a.ID < b.ID
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}

func (r *WagerRepository) ListMatchedByGame(ctx context.Context, gameID string) ([]wager.Wager, error) {
	return r.filter(ctx, 0, func(w wager.Wager) bool {
		return w.Status == wager.StatusMatched && w.GameID == gameID
	}), nil
}

func (r *WagerRepository) ListOpen(ctx context.Context, f wager.OpenFilter, now time.Time) ([]wager.Wager, error) {
	return r.filterNewestFirst(ctx, f.Limit, func(w wager.Wager) bool {
		switch {
		case w.Status != wager.StatusPending || w.OpponentID != "" || !w.ExpiresAt.After(now):
			return false
		case f.Currency != "" && w.Currency != f.Currency:
			return false
		case f.Variant != "" && w.Variant != f.Variant:
			return false
		case f.TimeControl != "" && w.TimeControl != f.TimeControl:
			return false
		case f.RatingClass != "" && w.RatingClass != f.RatingClass:
			return false
		case f.ExcludeUser != "" && w.CreatorID == f.ExcludeUser:
			return false
		}
		return true
	}), nil
}

func (r *WagerRepository) ListByUser(ctx context.Context, userID string, limit int) ([]wager.Wager, error) {
	return r.filterNewestFirst(ctx, limit, func(w wager.Wager) bool {
		return w.CreatorID == userID || w.OpponentID == userID
	}), nil
}
