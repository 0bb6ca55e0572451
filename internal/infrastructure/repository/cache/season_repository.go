package cache

import (
	"context"
	"time"

	"github.com/riskibarqy/chess-wager/internal/domain/season"
	basecache "github.com/riskibarqy/chess-wager/internal/platform/cache"
)

const (
	seasonActiveKey = "season:active"
	seasonIDPrefix  = "season:id:"
)

// SeasonRepository is a read-through cache over the season lookups that run
// on every match and settlement. Any write drops every cached season.
type SeasonRepository struct {
	season.Repository
	cache *basecache.Store[cachedSeason]
}

type cachedSeason struct {
	value  season.Season
	exists bool
}

func NewSeasonRepository(next season.Repository, ttl time.Duration) *SeasonRepository {
	return &SeasonRepository{
		Repository: next,
		cache:      basecache.NewStore[cachedSeason](ttl),
	}
}

func (r *SeasonRepository) GetActive(ctx context.Context) (season.Season, bool, error) {
	return r.load(ctx, seasonActiveKey, r.Repository.GetActive)
}

func (r *SeasonRepository) GetByID(ctx context.Context, seasonID string) (season.Season, bool, error) {
	return r.load(ctx, seasonIDPrefix+seasonID, func(ctx context.Context) (season.Season, bool, error) {
		return r.Repository.GetByID(ctx, seasonID)
	})
}

func (r *SeasonRepository) load(
	ctx context.Context,
	key string,
	fetch func(context.Context) (season.Season, bool, error),
) (season.Season, bool, error) {
	v, err := r.cache.GetOrLoad(ctx, key, func(ctx context.Context) (cachedSeason, error) {
		item, exists, err := fetch(ctx)
		if err != nil {
			return cachedSeason{}, err
		}
		return cachedSeason{value: item, exists: exists}, nil
	})
	if err != nil {
		return season.Season{}, false, err
	}
	return v.value, v.exists, nil
}

func (r *SeasonRepository) invalidate(ctx context.Context) {
	r.cache.DeletePrefix(ctx, "season:")
}

func (r *SeasonRepository) Create(ctx context.Context, s season.Season) error {
	defer r.invalidate(ctx)
	return r.Repository.Create(ctx, s)
}

func (r *SeasonRepository) TransitionStatus(ctx context.Context, seasonID string, from, to season.Status, now time.Time) (bool, error) {
	defer r.invalidate(ctx)
	return r.Repository.TransitionStatus(ctx, seasonID, from, to, now)
}

func (r *SeasonRepository) MarkRewardsDistributed(ctx context.Context, seasonID string, now time.Time) (bool, error) {
	defer r.invalidate(ctx)
	return r.Repository.MarkRewardsDistributed(ctx, seasonID, now)
}

func (r *SeasonRepository) IncrementMetadata(ctx context.Context, seasonID string, delta season.Metadata, now time.Time) error {
	defer r.invalidate(ctx)
	return r.Repository.IncrementMetadata(ctx, seasonID, delta, now)
}
