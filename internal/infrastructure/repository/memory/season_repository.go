package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/riskibarqy/chess-wager/internal/domain/season"
)

type SeasonRepository struct {
	store *Store
}

func NewSeasonRepository(store *Store) *SeasonRepository {
	return &SeasonRepository{store: store}
}

func (r *SeasonRepository) Create(ctx context.Context, s season.Season) error {
	defer r.store.lock(ctx)()

	for _, existing := range r.store.data.seasons {
		if existing.Number == s.Number {
			return fmt.Errorf("season number %d already exists", s.Number)
		}
	}
	r.store.data.seasons[s.ID] = s
	return nil
}

func (r *SeasonRepository) GetByID(ctx context.Context, seasonID string) (season.Season, bool, error) {
	defer r.store.lock(ctx)()

	s, ok := r.store.data.seasons[seasonID]
	return s, ok, nil
}

func (r *SeasonRepository) GetActive(ctx context.Context) (season.Season, bool, error) {
	for _, s := range r.sorted(ctx, true) {
		if s.Status == season.StatusActive {
			return s, true, nil
		}
	}
	return season.Season{}, false, nil
}

func (r *SeasonRepository) List(ctx context.Context, limit int) ([]season.Season, error) {
	out := r.sorted(ctx, true)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *SeasonRepository) ListUnfinished(ctx context.Context) ([]season.Season, error) {
	out := make([]season.Season, 0)
	for _, s := range r.sorted(ctx, false) {
		if s.Status != season.StatusCompleted {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartDate.Before(out[j].StartDate) })
	return out, nil
}

func (r *SeasonRepository) ListRewardsPending(ctx context.Context) ([]season.Season, error) {
	out := make([]season.Season, 0)
	for _, s := range r.sorted(ctx, false) {
		if s.Status == season.StatusCompleted && !s.RewardsDistributed() {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *SeasonRepository) MaxNumber(ctx context.Context) (int, error) {
	defer r.store.lock(ctx)()

	maxNumber := 0
	for _, s := range r.store.data.seasons {
		maxNumber = max(maxNumber, s.Number)
	}
	return maxNumber, nil
}

func (r *SeasonRepository) HasUpcoming(ctx context.Context) (bool, error) {
	defer r.store.lock(ctx)()

	for _, s := range r.store.data.seasons {
		if s.Status == season.StatusUpcoming {
			return true, nil
		}
	}
	return false, nil
}

func (r *SeasonRepository) TransitionStatus(ctx context.Context, seasonID string, from, to season.Status, now time.Time) (bool, error) {
	defer r.store.lock(ctx)()

	s, ok := r.store.data.seasons[seasonID]
	if !ok || s.Status != from {
		return false, nil
	}
	s.Status = to
	s.UpdatedAt = now
	r.store.data.seasons[seasonID] = s
	return true, nil
}

func (r *SeasonRepository) MarkRewardsDistributed(ctx context.Context, seasonID string, now time.Time) (bool, error) {
	defer r.store.lock(ctx)()

	s, ok := r.store.data.seasons[seasonID]
	if !ok || s.RewardsDistributedAt != nil {
		return false, nil
	}
	s.RewardsDistributedAt = &now
	s.UpdatedAt = now
	r.store.data.seasons[seasonID] = s
	return true, nil
}

func (r *SeasonRepository) IncrementMetadata(ctx context.Context, seasonID string, delta season.Metadata, now time.Time) error {
	defer r.store.lock(ctx)()

	s, ok := r.store.data.seasons[seasonID]
	if !ok {
		return fmt.Errorf("season %s not found", seasonID)
	}
	s.Metadata = s.Metadata.Add(delta)
	s.UpdatedAt = now
	r.store.data.seasons[seasonID] = s
	return nil
}

// sorted returns seasons ordered by number.
func (r *SeasonRepository) sorted(ctx context.Context, desc bool) []season.Season {
	defer r.store.lock(ctx)()

	out := make([]season.Season, 0, len(r.store.data.seasons))
	for _, s := range r.store.data.seasons {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if desc {
			return out[i].Number > out[j].Number
		}
		return out[i].Number < out[j].Number
	})
	return out
}
