package postgres

import (
	"context"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/chess-wager/internal/domain/season"
	qb "github.com/riskibarqy/chess-wager/internal/platform/querybuilder"
)

const seasonsTable = "seasons"

type SeasonRepository struct {
	db *sqlx.DB
}

func NewSeasonRepository(db *sqlx.DB) *SeasonRepository {
	return &SeasonRepository{db: db}
}

func (r *SeasonRepository) Create(ctx context.Context, s season.Season) error {
	row, err := seasonRowFromDomain(s)
	if err != nil {
		return err
	}
	query, args, err := qb.InsertModel(seasonsTable, row).ToSQL()
	if err != nil {
		return crerr.Wrap(err, "build insert season query")
	}
	if _, err := executor(ctx, r.db).ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return crerr.Wrapf(err, "season number %d already exists", s.Number)
		}
		return crerr.Wrapf(err, "insert season id=%s", s.ID)
	}
	return nil
}

func (r *SeasonRepository) getOne(ctx context.Context, op string, b *qb.SelectBuilder) (season.Season, bool, error) {
	query, args, err := b.ToSQL()
	if err != nil {
		return season.Season{}, false, crerr.Wrapf(err, "build %s query", op)
	}

	var row seasonTableModel
	if err := executor(ctx, r.db).GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return season.Season{}, false, nil
		}
		return season.Season{}, false, crerr.Wrap(err, op)
	}
	s, err := row.toDomain()
	if err != nil {
		return season.Season{}, false, err
	}
	return s, true, nil
}

func (r *SeasonRepository) list(ctx context.Context, op string, b *qb.SelectBuilder) ([]season.Season, error) {
	query, args, err := b.ToSQL()
	if err != nil {
		return nil, crerr.Wrapf(err, "build %s query", op)
	}

	var rows []seasonTableModel
	if err := executor(ctx, r.db).SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, crerr.Wrap(err, op)
	}
	out := make([]season.Season, 0, len(rows))
	for _, row := range rows {
		s, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func selectSeasons() *qb.SelectBuilder {
	return qb.Select(seasonColumns...).From(seasonsTable)
}

func (r *SeasonRepository) GetByID(ctx context.Context, seasonID string) (season.Season, bool, error) {
	return r.getOne(ctx, "get season", selectSeasons().Where(qb.Eq("id", seasonID)))
}

func (r *SeasonRepository) GetActive(ctx context.Context) (season.Season, bool, error) {
	return r.getOne(ctx, "get active season", selectSeasons().
		Where(qb.Eq("status", string(season.StatusActive))).
		OrderBy("number DESC").
		Limit(1))
}

func (r *SeasonRepository) List(ctx context.Context, limit int) ([]season.Season, error) {
	return r.list(ctx, "list seasons", selectSeasons().OrderBy("number DESC").Limit(limit))
}

func (r *SeasonRepository) ListUnfinished(ctx context.Context) ([]season.Season, error) {
	return r.list(ctx, "list unfinished seasons", selectSeasons().
		Where(qb.In("status", string(season.StatusUpcoming), string(season.StatusActive))).
		OrderBy("start_date", "number"))
}

func (r *SeasonRepository) ListRewardsPending(ctx context.Context) ([]season.Season, error) {
	return r.list(ctx, "list seasons with pending rewards", selectSeasons().
		Where(qb.Eq("status", string(season.StatusCompleted)), qb.IsNull("rewards_distributed_at")).
		OrderBy("number"))
}

func (r *SeasonRepository) MaxNumber(ctx context.Context) (int, error) {
	var maxNumber int
	if err := executor(ctx, r.db).GetContext(ctx, &maxNumber, `SELECT COALESCE(MAX(number), 0) FROM seasons`); err != nil {
		return 0, crerr.Wrap(err, "max season number")
	}
	return maxNumber, nil
}

func (r *SeasonRepository) HasUpcoming(ctx context.Context) (bool, error) {
	var exists bool
	err := executor(ctx, r.db).GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM seasons WHERE status = $1)`, string(season.StatusUpcoming))
	if err != nil {
		return false, crerr.Wrap(err, "check upcoming season")
	}
	return exists, nil
}

func (r *SeasonRepository) exec(ctx context.Context, op string, b *qb.UpdateBuilder) (bool, error) {
	query, args, err := b.ToSQL()
	if err != nil {
		return false, crerr.Wrapf(err, "build %s query", op)
	}
	res, err := executor(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		return false, crerr.Wrap(err, op)
	}
	return affected(res)
}

func (r *SeasonRepository) TransitionStatus(ctx context.Context, seasonID string, from, to season.Status, now time.Time) (bool, error) {
	return r.exec(ctx, "transition season status", qb.Update(seasonsTable).
		Set("status", string(to)).
		Set("updated_at", now).
		Where(qb.Eq("id", seasonID), qb.Eq("status", string(from))))
}

func (r *SeasonRepository) MarkRewardsDistributed(ctx context.Context, seasonID string, now time.Time) (bool, error) {
	return r.exec(ctx, "mark season rewards distributed", qb.Update(seasonsTable).
		Set("rewards_distributed_at", now).
		Set("updated_at", now).
		Where(qb.Eq("id", seasonID), qb.IsNull("rewards_distributed_at")))
}

func (r *SeasonRepository) IncrementMetadata(ctx context.Context, seasonID string, delta season.Metadata, now time.Time) error {
	ok, err := r.exec(ctx, "increment season metadata", qb.Update(seasonsTable).
		Increment("total_wagers", delta.TotalWagers).
		Increment("settled_wagers", delta.SettledWagers).
		Increment("token_volume", delta.TokenVolume).
		Increment("sweepstakes_volume", delta.SweepstakesVolume).
		Set("updated_at", now).
		Where(qb.Eq("id", seasonID)))
	if err != nil {
		return err
	}
	if !ok {
		return crerr.Newf("season %s not found", seasonID)
	}
	return nil
}
