package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/riskibarqy/chess-wager/internal/domain/notification"
	"github.com/riskibarqy/chess-wager/internal/domain/season"
	"github.com/riskibarqy/chess-wager/internal/domain/user"
	"github.com/riskibarqy/chess-wager/internal/domain/wager"
	"github.com/riskibarqy/chess-wager/internal/platform/cache"
	idgen "github.com/riskibarqy/chess-wager/internal/platform/id"
	"github.com/riskibarqy/chess-wager/internal/platform/logging"
)

const (
	rewardPlaces       = 3
	statsSeedBatchSize = 500
	statsSeedWorkers   = 4
)

type CreateSeasonInput struct {
	StartDate time.Time      `validate:"required"`
	EndDate   time.Time      `validate:"required,gtfield=StartDate"`
	Rewards   season.Rewards `validate:"-"`
}

type SeasonTransitionResult struct {
	Activated []string `json:"activated"`
	Completed []string `json:"completed"`
	// Rewarded lists seasons whose reward distribution finished on this pass.
	Rewarded []string `json:"rewarded,omitempty"`
	Created  string   `json:"created,omitempty"`
}

type RewardGrant struct {
	UserID      string        `json:"user_id"`
	Currency    user.Currency `json:"currency"`
	Rank        int           `json:"rank"`
	Amount      int64         `json:"amount"`
	Achievement string        `json:"achievement"`
}

type RewardDistributionResult struct {
	SeasonID string        `json:"season_id"`
	Grants   []RewardGrant `json:"grants"`
	// Skipped counts grants booked by an earlier call.
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

type UserSeasonStats struct {
	Stats           season.Stats
	TokenRank       int
	SweepstakesRank int
}

// SeasonService drives the season lifecycle and keeps per-user season stats.
// Stats writes are increments and never affect wager settlement.
type SeasonService struct {
	seasons    season.Repository
	stats      season.StatsRepository
	users      user.Repository
	ledger     user.Ledger
	tx         Transactor
	dispatcher notification.Dispatcher
	cache      *cache.Store[[]season.LeaderboardEntry]
	metrics    Metrics
	idGen      idgen.Generator
	logger     *logging.Logger
	length     time.Duration
	now        func() time.Time
}

func NewSeasonService(
	seasons season.Repository,
	stats season.StatsRepository,
	users user.Repository,
	ledger user.Ledger,
	tx Transactor,
	dispatcher notification.Dispatcher,
	leaderboardCache *cache.Store[[]season.LeaderboardEntry],
	idGen idgen.Generator,
	logger *logging.Logger,
) *SeasonService {
	if logger == nil {
		logger = logging.Default()
	}
	if leaderboardCache == nil {
		leaderboardCache = cache.NewStore[[]season.LeaderboardEntry](30 * time.Second)
	}
	return &SeasonService{
		seasons:    seasons,
		stats:      stats,
		users:      users,
		ledger:     ledger,
		tx:         tx,
		dispatcher: dispatcher,
		cache:      leaderboardCache,
		metrics:    NoopMetrics,
		idGen:      idGen,
		logger:     logger,
		length:     season.DefaultLength,
		now:        time.Now,
	}
}

func (s *SeasonService) WithSeasonLength(length time.Duration) *SeasonService {
	if length > 0 {
		s.length = length
	}
	return s
}

func (s *SeasonService) WithMetrics(m Metrics) *SeasonService {
	if m != nil {
		s.metrics = m
	}
	return s
}

// CheckSeasonTransitions applies every wall-clock transition that is due and
// retries reward distributions an earlier pass left unfinished.
func (s *SeasonService) CheckSeasonTransitions(ctx context.Context) (SeasonTransitionResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.SeasonService.CheckSeasonTransitions")
	defer span.End()

	var result SeasonTransitionResult
	pending, err := s.seasons.ListRewardsPending(ctx)
	if err != nil {
		return result, storeError("list seasons with pending rewards", err)
	}
	for _, item := range pending {
		if s.finishRewards(ctx, item.ID) {
			result.Rewarded = append(result.Rewarded, item.ID)
		}
	}

	items, err := s.seasons.ListUnfinished(ctx)
	if err != nil {
		return result, storeError("list unfinished seasons", err)
	}

	now := s.now().UTC()
	var lastCompleted *season.Season
	for i := range items {
		item := items[i]
		switch {
		case item.ShouldComplete(now):
			done, err := s.completeSeason(ctx, item, now)
			if err != nil {
				return result, err
			}
			if !done {
				continue
			}
			result.Completed = append(result.Completed, item.ID)
			lastCompleted = &item
			if s.finishRewards(ctx, item.ID) {
				result.Rewarded = append(result.Rewarded, item.ID)
			}
		case item.ShouldActivate(now):
			ok, err := s.seasons.TransitionStatus(ctx, item.ID, season.StatusUpcoming, season.StatusActive, now)
			if err != nil {
				return result, storeError("activate season", err)
			}
			if !ok {
				continue
			}
			if err := s.seedStats(ctx, item.ID, now); err != nil {
				s.logger.WarnContext(ctx, "seed season stats failed", "season_id", item.ID, "error", err)
			}
			result.Activated = append(result.Activated, item.ID)
			s.logger.InfoContext(ctx, "season activated", "season_id", item.ID, "number", item.Number)
		}
	}

	if lastCompleted == nil {
		return result, nil
	}
	next, created, err := s.createFollowUp(ctx, *lastCompleted, now)
	if err != nil {
		return result, err
	}
	if created {
		result.Created = next.ID
	}
	return result, nil
}

// completeSeason closes the season first so its standings are frozen before
// any reward is read from them.
func (s *SeasonService) completeSeason(ctx context.Context, item season.Season, now time.Time) (bool, error) {
	ok, err := s.seasons.TransitionStatus(ctx, item.ID, item.Status, season.StatusCompleted, now)
	if err != nil {
		return false, storeError("complete season", err)
	}
	if ok {
		s.logger.InfoContext(ctx, "season completed", "season_id", item.ID, "number", item.Number)
	}
	return ok, nil
}

// finishRewards runs the distribution for a completed season and reports
// whether it is now fully paid. Failures stay pending for the next pass.
func (s *SeasonService) finishRewards(ctx context.Context, seasonID string) bool {
	_, err := s.DistributeSeasonRewards(ctx, seasonID)
	switch {
	case err == nil:
		return true
	case errors.Is(err, ErrNotAvailable):
		return false
	default:
		s.logger.ErrorContext(ctx, "distribute season rewards failed, will retry", "season_id", seasonID, "error", err)
		return false
	}
}

// createFollowUp opens the next season unless one is already queued or
// running.
func (s *SeasonService) createFollowUp(ctx context.Context, prev season.Season, now time.Time) (season.Season, bool, error) {
	hasUpcoming, err := s.seasons.HasUpcoming(ctx)
	if err != nil {
		return season.Season{}, false, storeError("check upcoming season", err)
	}
	if hasUpcoming {
		return season.Season{}, false, nil
	}
	_, hasActive, err := s.seasons.GetActive(ctx)
	if err != nil {
		return season.Season{}, false, storeError("get active season", err)
	}
	if hasActive {
		return season.Season{}, false, nil
	}

	maxNumber, err := s.seasons.MaxNumber(ctx)
	if err != nil {
		return season.Season{}, false, storeError("get max season number", err)
	}
	id, err := s.idGen.NewID()
	if err != nil {
		return season.Season{}, false, fmt.Errorf("generate season id: %w", err)
	}

	next := season.Next(prev, id, maxNumber+1, now, s.length)
	if err := s.seasons.Create(ctx, next); err != nil {
		return season.Season{}, false, storeError("create next season", err)
	}
	if err := s.seedStats(ctx, next.ID, now); err != nil {
		s.logger.WarnContext(ctx, "seed season stats failed", "season_id", next.ID, "error", err)
	}
	s.logger.InfoContext(ctx, "season auto-created", "season_id", next.ID, "number", next.Number)
	return next, true, nil
}

// seedStats upserts a zeroed stats row for every known user.
func (s *SeasonService) seedStats(ctx context.Context, seasonID string, now time.Time) error {
	userIDs, err := s.users.ListIDs(ctx)
	if err != nil {
		return storeError("list user ids", err)
	}

	p := pool.New().WithErrors().WithMaxGoroutines(statsSeedWorkers)
	for start := 0; start < len(userIDs); start += statsSeedBatchSize {
		end := min(start+statsSeedBatchSize, len(userIDs))
		batch := userIDs[start:end]
		p.Go(func() error {
			return s.stats.EnsureRows(ctx, seasonID, batch, now)
		})
	}
	if err := p.Wait(); err != nil {
		return storeError("ensure season stats rows", err)
	}
	return nil
}

// DistributeSeasonRewards pays the tiered rewards of a season. Every grant is
// booked at most once, so a call after a partial failure pays only what is
// still owed. Once all grants are booked the season is marked distributed
// and further calls report ErrNotAvailable.
func (s *SeasonService) DistributeSeasonRewards(ctx context.Context, seasonID string) (RewardDistributionResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.SeasonService.DistributeSeasonRewards", attrSeasonID.String(seasonID))
	defer span.End()

	seasonID = strings.TrimSpace(seasonID)
	result := RewardDistributionResult{SeasonID: seasonID}
	item, err := s.GetSeason(ctx, seasonID)
	if err != nil {
		return result, err
	}
	if item.RewardsDistributed() {
		return result, fmt.Errorf("%w: rewards for season %s were already distributed", ErrNotAvailable, item.ID)
	}

	var grants []RewardGrant
	for _, currency := range user.Currencies() {
		tier := item.Rewards.For(currency)
		leaders, err := s.stats.TopByBalance(ctx, item.ID, currency, rewardPlaces)
		if err != nil {
			return result, storeError("list season leaders", err)
		}
		for _, leader := range leaders {
			amount := tier.ForRank(leader.Rank)
			if amount <= 0 || leader.Stats.Balance <= 0 {
				continue
			}
			grants = append(grants, RewardGrant{
				UserID:      leader.UserID,
				Currency:    currency,
				Rank:        leader.Rank,
				Amount:      amount,
				Achievement: season.AchievementTag(item.Number, currency, leader.Rank),
			})
		}
	}

	now := s.now().UTC()
	var mu sync.Mutex
	var errs []error
	var events []notification.Event
	p := pool.New().WithMaxGoroutines(rewardPlaces)
	for _, grant := range grants {
		grant := grant
		p.Go(func() {
			paid, err := s.payReward(ctx, item, grant, now)
			if err != nil {
				s.logger.ErrorContext(ctx, "season reward payout failed",
					"season_id", item.ID,
					"user_id", grant.UserID,
					"currency", grant.Currency,
					"amount", grant.Amount,
					"error", err,
				)
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
				return
			}
			if !paid {
				mu.Lock()
				result.Skipped++
				mu.Unlock()
				return
			}
			s.metrics.SeasonRewardGranted(grant.Currency)

			mu.Lock()
			result.Grants = append(result.Grants, grant)
			events = append(events, notification.Event{
				UserID:    grant.UserID,
				Category:  notification.CategorySeasonReward,
				Message:   fmt.Sprintf("Season %d: rank %d in %s, %d %s awarded.", item.Number, grant.Rank, grant.Currency, grant.Amount, grant.Currency),
				SeasonID:  item.ID,
				Amount:    grant.Amount,
				Currency:  grant.Currency,
				CreatedAt: now,
			})
			mu.Unlock()
		})
	}
	p.Wait()

	result.Failed = len(errs)
	if len(errs) == 0 {
		if _, err := s.seasons.MarkRewardsDistributed(ctx, item.ID, now); err != nil {
			errs = append(errs, storeError("mark season rewards distributed", err))
		}
	}
	s.cache.DeletePrefix(ctx, leaderboardKeyPrefix(item.ID))
	publish(ctx, s.dispatcher, s.logger, events)
	s.logger.InfoContext(ctx, "season rewards distributed",
		"season_id", item.ID,
		"grants", len(result.Grants),
		"skipped", result.Skipped,
		"failed", result.Failed,
	)
	return result, errors.Join(errs...)
}

// payReward books the grant and credits it in one transaction. It reports
// false when the grant was already booked.
func (s *SeasonService) payReward(ctx context.Context, item season.Season, grant RewardGrant, now time.Time) (bool, error) {
	var paid bool
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		recorded, err := s.stats.RecordReward(ctx, season.Reward{
			SeasonID:    item.ID,
			UserID:      grant.UserID,
			Currency:    grant.Currency,
			Rank:        grant.Rank,
			Amount:      grant.Amount,
			Achievement: grant.Achievement,
		}, now)
		if err != nil {
			return storeError("record season reward", err)
		}
		if !recorded {
			return nil
		}
		if err := s.ledger.Credit(ctx, grant.UserID, grant.Currency, grant.Amount); err != nil {
			return creditFailure(err, grant.UserID)
		}
		paid = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return paid, nil
}

// RecordBetPlaced books the escrow of both parties against the active season.
func (s *SeasonService) RecordBetPlaced(ctx context.Context, w wager.Wager) {
	s.record(ctx, w, "bet_placed", func(seasonID string, now time.Time) error {
		delta := season.BetPlacedDelta(w.Currency, w.Amount)
		for _, userID := range w.Participants() {
			if err := s.stats.ApplyDelta(ctx, seasonID, userID, delta, now); err != nil {
				return fmt.Errorf("apply bet delta for %s: %w", userID, err)
			}
		}
		return s.seasons.IncrementMetadata(ctx, seasonID, season.VolumeDelta(w.Currency, w.Pot()), now)
	})
}

// RecordSettlement books a concluded wager against the active season.
func (s *SeasonService) RecordSettlement(ctx context.Context, w wager.Wager, settlement wager.Settlement) {
	s.record(ctx, w, "settlement", func(seasonID string, now time.Time) error {
		type change struct {
			userID string
			delta  season.Delta
		}
		var changes []change
		if settlement.IsDraw() {
			changes = []change{
				{w.FinalWhiteID, season.DrawDelta(w.Currency, w.Amount)},
				{w.FinalBlackID, season.DrawDelta(w.Currency, w.Amount)},
			}
		} else {
			changes = []change{
				{settlement.Resolution.WinnerID, season.WinDelta(w.Currency, w.Amount)},
				{settlement.LoserID, season.LossDelta(w.Currency, w.Amount)},
			}
		}
		for _, c := range changes {
			if err := s.stats.ApplyDelta(ctx, seasonID, c.userID, c.delta, now); err != nil {
				return fmt.Errorf("apply settlement delta for %s: %w", c.userID, err)
			}
		}
		return s.seasons.IncrementMetadata(ctx, seasonID, season.Metadata{SettledWagers: 1}, now)
	})
}

func (s *SeasonService) record(ctx context.Context, w wager.Wager, kind string, apply func(seasonID string, now time.Time) error) {
	active, exists, err := s.seasons.GetActive(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "season stats skipped: active season lookup failed", "wager_id", w.ID, "kind", kind, "error", err)
		return
	}
	if !exists {
		s.logger.DebugContext(ctx, "season stats skipped: no active season", "wager_id", w.ID, "kind", kind)
		return
	}
	if err := apply(active.ID, s.now().UTC()); err != nil {
		s.logger.WarnContext(ctx, "season stats update failed", "wager_id", w.ID, "season_id", active.ID, "kind", kind, "error", err)
		return
	}
	s.cache.DeletePrefix(ctx, leaderboardKeyPrefix(active.ID))
}

func (s *SeasonService) CreateSeason(ctx context.Context, input CreateSeasonInput) (season.Season, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.SeasonService.CreateSeason")
	defer span.End()

	if err := season.ValidateWindow(input.StartDate, input.EndDate); err != nil {
		return season.Season{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err := validateInput(ctx, input); err != nil {
		return season.Season{}, err
	}
	if err := validateRewards(input.Rewards); err != nil {
		return season.Season{}, err
	}

	now := s.now().UTC()
	status := season.StatusAt(input.StartDate, input.EndDate, now)
	if status == season.StatusCompleted {
		return season.Season{}, fmt.Errorf("%w: season end date is in the past", ErrInvalidInput)
	}
	if status == season.StatusActive {
		_, hasActive, err := s.seasons.GetActive(ctx)
		if err != nil {
			return season.Season{}, storeError("get active season", err)
		}
		if hasActive {
			return season.Season{}, fmt.Errorf("%w: another season is already active", ErrInvalidInput)
		}
	}

	maxNumber, err := s.seasons.MaxNumber(ctx)
	if err != nil {
		return season.Season{}, storeError("get max season number", err)
	}
	id, err := s.idGen.NewID()
	if err != nil {
		return season.Season{}, fmt.Errorf("generate season id: %w", err)
	}

	item := season.Season{
		ID:        id,
		Number:    maxNumber + 1,
		StartDate: input.StartDate.UTC(),
		EndDate:   input.EndDate.UTC(),
		Status:    status,
		Rewards:   input.Rewards,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.seasons.Create(ctx, item); err != nil {
		return season.Season{}, storeError("create season", err)
	}
	if status == season.StatusActive {
		if err := s.seedStats(ctx, item.ID, now); err != nil {
			s.logger.WarnContext(ctx, "seed season stats failed", "season_id", item.ID, "error", err)
		}
	}
	return item, nil
}

func validateRewards(r season.Rewards) error {
	for _, tier := range []season.Tier{r.Token, r.Sweepstakes} {
		if tier.First < 0 || tier.Second < 0 || tier.Third < 0 {
			return fmt.Errorf("%w: reward amounts must not be negative", ErrInvalidInput)
		}
	}
	return nil
}

func (s *SeasonService) GetSeason(ctx context.Context, seasonID string) (season.Season, error) {
	seasonID = strings.TrimSpace(seasonID)
	if seasonID == "" {
		return season.Season{}, fmt.Errorf("%w: season id is required", ErrInvalidInput)
	}
	item, exists, err := s.seasons.GetByID(ctx, seasonID)
	if err != nil {
		return season.Season{}, storeError("get season", err)
	}
	if !exists {
		return season.Season{}, fmt.Errorf("%w: season %s", ErrNotFound, seasonID)
	}
	return item, nil
}

func (s *SeasonService) GetActiveSeason(ctx context.Context) (season.Season, error) {
	item, exists, err := s.seasons.GetActive(ctx)
	if err != nil {
		return season.Season{}, storeError("get active season", err)
	}
	if !exists {
		return season.Season{}, fmt.Errorf("%w: no active season", ErrNotFound)
	}
	return item, nil
}

func (s *SeasonService) ListSeasons(ctx context.Context, limit int) ([]season.Season, error) {
	items, err := s.seasons.List(ctx, normalizeLimit(limit))
	if err != nil {
		return nil, storeError("list seasons", err)
	}
	return items, nil
}

func (s *SeasonService) Leaderboard(ctx context.Context, seasonID string, currency user.Currency, limit, offset int) ([]season.LeaderboardEntry, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.SeasonService.Leaderboard", attrSeasonID.String(seasonID))
	defer span.End()

	if !currency.Valid() {
		return nil, fmt.Errorf("%w: unknown currency %q", ErrInvalidInput, currency)
	}
	if offset < 0 {
		return nil, fmt.Errorf("%w: offset must not be negative", ErrInvalidInput)
	}
	item, err := s.GetSeason(ctx, seasonID)
	if err != nil {
		return nil, err
	}
	limit = normalizeLimit(limit)

	key := fmt.Sprintf("%s%s:%d:%d", leaderboardKeyPrefix(item.ID), currency, limit, offset)
	entries, err := s.cache.GetOrLoad(ctx, key, func(ctx context.Context) ([]season.LeaderboardEntry, error) {
		return s.stats.Leaderboard(ctx, item.ID, currency, limit, offset)
	})
	if err != nil {
		return nil, storeError("load leaderboard", err)
	}
	return entries, nil
}

func (s *SeasonService) GetUserStats(ctx context.Context, seasonID, userID string) (UserSeasonStats, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.SeasonService.GetUserStats",
		attrSeasonID.String(seasonID), attrUserID.String(userID))
	defer span.End()

	userID = strings.TrimSpace(userID)
	if userID == "" {
		return UserSeasonStats{}, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	item, err := s.GetSeason(ctx, seasonID)
	if err != nil {
		return UserSeasonStats{}, err
	}
	stats, exists, err := s.stats.Get(ctx, item.ID, userID)
	if err != nil {
		return UserSeasonStats{}, storeError("get season stats", err)
	}
	if !exists {
		return UserSeasonStats{}, fmt.Errorf("%w: no stats for user %s in season %s", ErrNotFound, userID, item.ID)
	}

	out := UserSeasonStats{Stats: stats}
	if out.TokenRank, err = s.stats.RankOf(ctx, item.ID, userID, user.CurrencyToken); err != nil {
		return UserSeasonStats{}, storeError("rank token balance", err)
	}
	if out.SweepstakesRank, err = s.stats.RankOf(ctx, item.ID, userID, user.CurrencySweepstakes); err != nil {
		return UserSeasonStats{}, storeError("rank sweepstakes balance", err)
	}
	return out, nil
}

func leaderboardKeyPrefix(seasonID string) string {
	return "leaderboard:" + seasonID + ":"
}
