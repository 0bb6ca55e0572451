package memory

import (
	"context"
	"slices"
	"sort"
	"time"

	"github.com/riskibarqy/chess-wager/internal/domain/season"
	"github.com/riskibarqy/chess-wager/internal/domain/user"
)

type SeasonStatsRepository struct {
	store *Store
}

func NewSeasonStatsRepository(store *Store) *SeasonStatsRepository {
	return &SeasonStatsRepository{store: store}
}

func statsKey(seasonID, userID string) string {
	return seasonID + "::" + userID
}

func (r *SeasonStatsRepository) EnsureRows(ctx context.Context, seasonID string, userIDs []string, now time.Time) error {
	defer r.store.lock(ctx)()

	for _, userID := range userIDs {
		key := statsKey(seasonID, userID)
		if _, exists := r.store.data.stats[key]; exists {
			continue
		}
		r.store.data.stats[key] = season.Stats{SeasonID: seasonID, UserID: userID, CreatedAt: now, UpdatedAt: now}
	}
	return nil
}

func (r *SeasonStatsRepository) ApplyDelta(ctx context.Context, seasonID, userID string, delta season.Delta, now time.Time) error {
	defer r.store.lock(ctx)()

	key := statsKey(seasonID, userID)
	row, exists := r.store.data.stats[key]
	if !exists {
		row = season.Stats{SeasonID: seasonID, UserID: userID, CreatedAt: now}
	}
	if delta.Currency == user.CurrencySweepstakes {
		row.Sweepstakes = row.Sweepstakes.Add(delta.CurrencyStats)
	} else {
		row.Token = row.Token.Add(delta.CurrencyStats)
	}
	row.UpdatedAt = now
	r.store.data.stats[key] = row
	return nil
}

func (r *SeasonStatsRepository) Get(ctx context.Context, seasonID, userID string) (season.Stats, bool, error) {
	defer r.store.lock(ctx)()

	row, ok := r.store.data.stats[statsKey(seasonID, userID)]
	row.Achievements = slices.Clone(row.Achievements)
	return row, ok, nil
}

func (r *SeasonStatsRepository) TopByBalance(ctx context.Context, seasonID string, currency user.Currency, limit int) ([]season.LeaderboardEntry, error) {
	entries := r.ranked(ctx, seasonID, currency)
	out := make([]season.LeaderboardEntry, 0, limit)
	for _, e := range entries {
		if e.Stats.Balance <= 0 || len(out) == limit {
			break
		}
		out = append(out, e)
	}
	return out, nil
}

func (r *SeasonStatsRepository) Leaderboard(ctx context.Context, seasonID string, currency user.Currency, limit, offset int) ([]season.LeaderboardEntry, error) {
	entries := r.ranked(ctx, seasonID, currency)
	if offset >= len(entries) {
		return []season.LeaderboardEntry{}, nil
	}
	entries = entries[offset:]
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (r *SeasonStatsRepository) RankOf(ctx context.Context, seasonID, userID string, currency user.Currency) (int, error) {
	defer r.store.lock(ctx)()

	own := r.store.data.stats[statsKey(seasonID, userID)].For(currency).Balance
	rank := 1
	for _, row := range r.store.data.stats {
		if row.SeasonID == seasonID && row.For(currency).Balance > own {
			rank++
		}
	}
	return rank, nil
}

func (r *SeasonStatsRepository) RecordReward(ctx context.Context, reward season.Reward, now time.Time) (bool, error) {
	defer r.store.lock(ctx)()

	grantKey := statsKey(reward.SeasonID, reward.UserID) + "|" + string(reward.Currency)
	if _, paid := r.store.data.rewards[grantKey]; paid {
		return false, nil
	}
	r.store.data.rewards[grantKey] = reward

	key := statsKey(reward.SeasonID, reward.UserID)
	row, exists := r.store.data.stats[key]
	if !exists {
		row = season.Stats{SeasonID: reward.SeasonID, UserID: reward.UserID, CreatedAt: now}
	}
	if row.Rank == 0 || reward.Rank < row.Rank {
		row.Rank = reward.Rank
	}
	if reward.Currency == user.CurrencySweepstakes {
		row.SweepstakesRewards += reward.Amount
	} else {
		row.TokenRewards += reward.Amount
	}
	row.Achievements = season.AddAchievement(slices.Clone(row.Achievements), reward.Achievement)
	row.UpdatedAt = now
	r.store.data.stats[key] = row
	return true, nil
}

// ranked orders a season's rows by balance descending with competition ranks.
func (r *SeasonStatsRepository) ranked(ctx context.Context, seasonID string, currency user.Currency) []season.LeaderboardEntry {
	defer r.store.lock(ctx)()

	entries := make([]season.LeaderboardEntry, 0)
	for _, row := range r.store.data.stats {
		if row.SeasonID != seasonID {
			continue
		}
		entries = append(entries, season.LeaderboardEntry{UserID: row.UserID, Stats: row.For(currency)})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Stats.Balance != entries[j].Stats.Balance {
			return entries[i].Stats.Balance > entries[j].Stats.Balance
		}
		return entries[i].UserID < entries[j].UserID
	})

	balances := make([]int64, len(entries))
	for i, e := range entries {
		balances[i] = e.Stats.Balance
	}
	for i, rank := range season.CompetitionRanks(balances) {
		entries[i].Rank = rank
	}
	return entries
}
