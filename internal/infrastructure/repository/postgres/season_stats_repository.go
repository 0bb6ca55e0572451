package postgres

import (
	"context"
	"strings"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/riskibarqy/chess-wager/internal/domain/season"
	"github.com/riskibarqy/chess-wager/internal/domain/user"
	qb "github.com/riskibarqy/chess-wager/internal/platform/querybuilder"
)

const (
	statsTable   = "season_stats"
	rewardsTable = "season_rewards"
)

type SeasonStatsRepository struct {
	db *sqlx.DB
}

func NewSeasonStatsRepository(db *sqlx.DB) *SeasonStatsRepository {
	return &SeasonStatsRepository{db: db}
}

func (r *SeasonStatsRepository) EnsureRows(ctx context.Context, seasonID string, userIDs []string, now time.Time) error {
	if len(userIDs) == 0 {
		return nil
	}
	b := qb.InsertInto(statsTable).
		Columns("season_id", "user_id", "created_at", "updated_at").
		Suffix("ON CONFLICT (season_id, user_id) DO NOTHING")
	for _, userID := range userIDs {
		b.Values(seasonID, userID, now, now)
	}

	query, args, err := b.ToSQL()
	if err != nil {
		return crerr.Wrap(err, "build ensure season stats query")
	}
	if _, err := executor(ctx, r.db).ExecContext(ctx, query, args...); err != nil {
		return crerr.Wrapf(err, "ensure %d season stats rows season_id=%s", len(userIDs), seasonID)
	}
	return nil
}

func (r *SeasonStatsRepository) ApplyDelta(ctx context.Context, seasonID, userID string, delta season.Delta, now time.Time) error {
	query, args, err := applyDeltaQuery(seasonID, userID, delta, now)
	if err != nil {
		return err
	}
	if _, err := executor(ctx, r.db).ExecContext(ctx, query, args...); err != nil {
		return crerr.Wrapf(err, "apply season delta season_id=%s user_id=%s", seasonID, userID)
	}
	return nil
}

// applyDeltaQuery upserts the row and adds every metric of one currency.
func applyDeltaQuery(seasonID, userID string, delta season.Delta, now time.Time) (string, []any, error) {
	if !delta.Currency.Valid() {
		return "", nil, crerr.Newf("unknown currency %q", delta.Currency)
	}

	columns := []string{"season_id", "user_id", "created_at", "updated_at"}
	values := []any{seasonID, userID, now, now}
	updates := make([]string, 0, len(statsMetrics)+1)
	for i, metric := range statsMetrics {
		col := statsColumn(delta.Currency, metric)
		columns = append(columns, col)
		values = append(values, metricValues(delta.CurrencyStats)[i])
		updates = append(updates, col+" = "+statsTable+"."+col+" + EXCLUDED."+col)
	}
	updates = append(updates, "updated_at = EXCLUDED.updated_at")

	query, args, err := qb.InsertInto(statsTable).
		Columns(columns...).
		Values(values...).
		Suffix("ON CONFLICT (season_id, user_id) DO UPDATE SET " + strings.Join(updates, ", ")).
		ToSQL()
	if err != nil {
		return "", nil, crerr.Wrap(err, "build apply season delta query")
	}
	return query, args, nil
}

func (r *SeasonStatsRepository) Get(ctx context.Context, seasonID, userID string) (season.Stats, bool, error) {
	query, args, err := qb.Select(qb.Columns(seasonStatsTableModel{})...).
		From(statsTable).
		Where(qb.Eq("season_id", seasonID), qb.Eq("user_id", userID)).
		ToSQL()
	if err != nil {
		return season.Stats{}, false, crerr.Wrap(err, "build get season stats query")
	}

	var row seasonStatsTableModel
	if err := executor(ctx, r.db).GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return season.Stats{}, false, nil
		}
		return season.Stats{}, false, crerr.Wrapf(err, "get season stats season_id=%s user_id=%s", seasonID, userID)
	}
	return row.toDomain(), true, nil
}

// leaderboardQuery ranks a season by one currency's balance with
// competition ranking; ties share a rank and leave a gap.
func leaderboardQuery(seasonID string, c user.Currency, positiveOnly bool) (*qb.SelectBuilder, error) {
	if !c.Valid() {
		return nil, crerr.Newf("unknown currency %q", c)
	}
	balance := statsColumn(c, "balance")
	columns := []string{"user_id", "RANK() OVER (ORDER BY " + balance + " DESC) AS position"}
	for _, metric := range statsMetrics {
		columns = append(columns, statsColumn(c, metric)+" AS "+metric)
	}

	conditions := []qb.Condition{qb.Eq("season_id", seasonID)}
	if positiveOnly {
		conditions = append(conditions, qb.Gt(balance, 0))
	}
	return qb.Select(columns...).
		From(statsTable).
		Where(conditions...).
		OrderBy(balance+" DESC", "user_id"), nil
}

func (r *SeasonStatsRepository) ranked(ctx context.Context, b *qb.SelectBuilder) ([]season.LeaderboardEntry, error) {
	query, args, err := b.ToSQL()
	if err != nil {
		return nil, crerr.Wrap(err, "build leaderboard query")
	}

	var rows []leaderboardRow
	if err := executor(ctx, r.db).SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, crerr.Wrap(err, "list leaderboard")
	}
	out := make([]season.LeaderboardEntry, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *SeasonStatsRepository) TopByBalance(ctx context.Context, seasonID string, currency user.Currency, limit int) ([]season.LeaderboardEntry, error) {
	if limit <= 0 {
		return []season.LeaderboardEntry{}, nil
	}
	b, err := leaderboardQuery(seasonID, currency, true)
	if err != nil {
		return nil, err
	}
	return r.ranked(ctx, b.Limit(limit))
}

func (r *SeasonStatsRepository) Leaderboard(ctx context.Context, seasonID string, currency user.Currency, limit, offset int) ([]season.LeaderboardEntry, error) {
	b, err := leaderboardQuery(seasonID, currency, false)
	if err != nil {
		return nil, err
	}
	return r.ranked(ctx, b.Limit(limit).Offset(offset))
}

func (r *SeasonStatsRepository) RankOf(ctx context.Context, seasonID, userID string, currency user.Currency) (int, error) {
	if !currency.Valid() {
		return 0, crerr.Newf("unknown currency %q", currency)
	}
	balance := statsColumn(currency, "balance")
	query, args, err := qb.Select("COUNT(*) + 1").
		From(statsTable).
		Where(
			qb.Eq("season_id", seasonID),
			qb.Expr(balance+" > COALESCE((SELECT own."+balance+" FROM season_stats own WHERE own.season_id = ? AND own.user_id = ?), 0)", seasonID, userID),
		).
		ToSQL()
	if err != nil {
		return 0, crerr.Wrap(err, "build rank query")
	}

	var rank int
	if err := executor(ctx, r.db).GetContext(ctx, &rank, query, args...); err != nil {
		return 0, crerr.Wrapf(err, "rank of user_id=%s season_id=%s", userID, seasonID)
	}
	return rank, nil
}

// RecordReward claims the grant row in season_rewards, then folds it into the
// stats row. Run it inside the transaction that credits the ledger.
func (r *SeasonStatsRepository) RecordReward(ctx context.Context, reward season.Reward, now time.Time) (bool, error) {
	if !reward.Currency.Valid() {
		return false, crerr.Newf("unknown currency %q", reward.Currency)
	}

	grant, args, err := qb.InsertInto(rewardsTable).
		Columns("season_id", "user_id", "currency", "rank", "amount", "achievement", "created_at").
		Values(reward.SeasonID, reward.UserID, string(reward.Currency), reward.Rank, reward.Amount, reward.Achievement, now).
		Suffix("ON CONFLICT (season_id, user_id, currency) DO NOTHING").
		ToSQL()
	if err != nil {
		return false, crerr.Wrap(err, "build season reward grant query")
	}
	res, err := executor(ctx, r.db).ExecContext(ctx, grant, args...)
	if err != nil {
		return false, crerr.Wrapf(err, "insert season reward season_id=%s user_id=%s", reward.SeasonID, reward.UserID)
	}
	inserted, err := affected(res)
	if err != nil || !inserted {
		return false, err
	}

	rewards := statsColumn(reward.Currency, "rewards")
	achievements := []string{}
	if reward.Achievement != "" {
		achievements = append(achievements, reward.Achievement)
	}

	query, args, err := qb.InsertInto(statsTable).
		Columns("season_id", "user_id", "rank", rewards, "achievements", "created_at", "updated_at").
		Values(reward.SeasonID, reward.UserID, reward.Rank, reward.Amount, pq.StringArray(achievements), now, now).
		Suffix(`ON CONFLICT (season_id, user_id) DO UPDATE SET
    rank = CASE
        WHEN season_stats.rank = 0 OR EXCLUDED.rank < season_stats.rank THEN EXCLUDED.rank
        ELSE season_stats.rank
    END,
    ` + rewards + ` = season_stats.` + rewards + ` + EXCLUDED.` + rewards + `,
    achievements = CASE
        WHEN cardinality(EXCLUDED.achievements) = 0 OR EXCLUDED.achievements[1] = ANY(season_stats.achievements)
            THEN season_stats.achievements
        ELSE season_stats.achievements || EXCLUDED.achievements
    END,
    updated_at = EXCLUDED.updated_at`).
		ToSQL()
	if err != nil {
		return false, crerr.Wrap(err, "build record reward query")
	}
	if _, err := executor(ctx, r.db).ExecContext(ctx, query, args...); err != nil {
		return false, crerr.Wrapf(err, "record reward season_id=%s user_id=%s", reward.SeasonID, reward.UserID)
	}
	return true, nil
}
