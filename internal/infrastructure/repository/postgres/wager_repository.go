package postgres

import (
	"context"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/chess-wager/internal/domain/wager"
	qb "github.com/riskibarqy/chess-wager/internal/platform/querybuilder"
)

const wagersTable = "wagers"

type WagerRepository struct {
	db *sqlx.DB
}

func NewWagerRepository(db *sqlx.DB) *WagerRepository {
	return &WagerRepository{db: db}
}

func (r *WagerRepository) Create(ctx context.Context, w wager.Wager) error {
	query, args, err := qb.InsertModel(wagersTable, wagerRowFromDomain(w)).ToSQL()
	if err != nil {
		return crerr.Wrap(err, "build insert wager query")
	}
	if _, err := executor(ctx, r.db).ExecContext(ctx, query, args...); err != nil {
		return crerr.Wrapf(err, "insert wager id=%s", w.ID)
	}
	return nil
}

func (r *WagerRepository) GetByID(ctx context.Context, wagerID string) (wager.Wager, bool, error) {
	query, args, err := qb.Select(wagerColumns...).From(wagersTable).Where(qb.Eq("id", wagerID)).ToSQL()
	if err != nil {
		return wager.Wager{}, false, crerr.Wrap(err, "build get wager query")
	}

	var row wagerTableModel
	if err := executor(ctx, r.db).GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return wager.Wager{}, false, nil
		}
		return wager.Wager{}, false, crerr.Wrapf(err, "get wager id=%s", wagerID)
	}
	return row.toDomain(), true, nil
}

// guardedUpdate runs a conditional UPDATE ... RETURNING and reports false
// when no row satisfied the guard.
func (r *WagerRepository) guardedUpdate(ctx context.Context, op string, b *qb.UpdateBuilder) (wager.Wager, bool, error) {
	query, args, err := b.Returning(wagerColumns...).ToSQL()
	if err != nil {
		return wager.Wager{}, false, crerr.Wrapf(err, "build %s query", op)
	}

	var row wagerTableModel
	if err := executor(ctx, r.db).GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return wager.Wager{}, false, nil
		}
		return wager.Wager{}, false, crerr.Wrap(err, op)
	}
	return row.toDomain(), true, nil
}

func (r *WagerRepository) CancelPending(ctx context.Context, wagerID, creatorID string, now time.Time) (wager.Wager, bool, error) {
	return r.guardedUpdate(ctx, "cancel pending wager", qb.Update(wagersTable).
		Set("status", string(wager.StatusCanceled)).
		Set("updated_at", now).
		Where(
			qb.Eq("id", wagerID),
			qb.Eq("status", string(wager.StatusPending)),
			qb.Eq("creator_id", creatorID),
		))
}

func (r *WagerRepository) ExpirePending(ctx context.Context, wagerID string, now time.Time) (wager.Wager, bool, error) {
	return r.guardedUpdate(ctx, "expire pending wager", qb.Update(wagersTable).
		Set("status", string(wager.StatusExpired)).
		Set("updated_at", now).
		Where(
			qb.Eq("id", wagerID),
			qb.Eq("status", string(wager.StatusPending)),
			qb.Lte("expires_at", now),
		))
}

func (r *WagerRepository) ClaimPending(ctx context.Context, wagerID, opponentID string, now time.Time) (wager.Wager, bool, error) {
	return r.guardedUpdate(ctx, "claim pending wager", qb.Update(wagersTable).
		Set("status", string(wager.StatusMatched)).
		Set("opponent_id", opponentID).
		Set("matched_at", now).
		Set("updated_at", now).
		Where(
			qb.Eq("id", wagerID),
			qb.Eq("status", string(wager.StatusPending)),
			qb.IsNull("opponent_id"),
			qb.NotEq("creator_id", opponentID),
			qb.Gt("expires_at", now),
		))
}

func (r *WagerRepository) ReleaseClaim(ctx context.Context, wagerID, opponentID string, now time.Time) (bool, error) {
	_, ok, err := r.guardedUpdate(ctx, "release wager claim", qb.Update(wagersTable).
		Set("status", string(wager.StatusPending)).
		SetExpr("opponent_id", "NULL").
		SetExpr("final_white_id", "NULL").
		SetExpr("final_black_id", "NULL").
		SetExpr("matched_at", "NULL").
		Set("updated_at", now).
		Where(
			qb.Eq("id", wagerID),
			qb.Eq("status", string(wager.StatusMatched)),
			qb.Eq("opponent_id", opponentID),
			qb.IsNull("game_id"),
		))
	return ok, err
}

func (r *WagerRepository) AssignColors(ctx context.Context, wagerID, whiteID, blackID string, now time.Time) error {
	_, ok, err := r.guardedUpdate(ctx, "assign wager colors", qb.Update(wagersTable).
		Set("final_white_id", whiteID).
		Set("final_black_id", blackID).
		Set("updated_at", now).
		Where(
			qb.Eq("id", wagerID),
			qb.Eq("status", string(wager.StatusMatched)),
			qb.IsNull("final_white_id"),
			qb.IsNull("final_black_id"),
		))
	if err != nil {
		return err
	}
	if !ok {
		return crerr.Newf("assign colors: wager %s is not a fresh match", wagerID)
	}
	return nil
}

func (r *WagerRepository) AttachMatch(ctx context.Context, wagerID, gameID, gameLink string, now time.Time) (wager.Wager, error) {
	w, ok, err := r.guardedUpdate(ctx, "attach wager match", qb.Update(wagersTable).
		Set("game_id", gameID).
		Set("game_link", gameLink).
		Set("updated_at", now).
		Where(
			qb.Eq("id", wagerID),
			qb.Eq("status", string(wager.StatusMatched)),
			qb.IsNull("game_id"),
		))
	if err != nil {
		return wager.Wager{}, err
	}
	if !ok {
		return wager.Wager{}, crerr.Newf("attach match: wager %s is not awaiting a game", wagerID)
	}
	return w, nil
}

func (r *WagerRepository) Resolve(ctx context.Context, res wager.Resolution) (wager.Wager, bool, error) {
	if !wager.StatusMatched.CanTransitionTo(res.Status) {
		return wager.Wager{}, false, nil
	}
	return r.guardedUpdate(ctx, "resolve wager", qb.Update(wagersTable).
		Set("status", string(res.Status)).
		Set("winner_id", nullString(res.WinnerID)).
		Set("winnings", res.Winnings).
		Set("settled_at", res.SettledAt).
		Set("updated_at", res.SettledAt).
		Where(
			qb.Eq("id", res.WagerID),
			qb.Eq("status", string(wager.StatusMatched)),
		))
}

func (r *WagerRepository) list(ctx context.Context, op string, b *qb.SelectBuilder) ([]wager.Wager, error) {
	query, args, err := b.ToSQL()
	if err != nil {
		return nil, crerr.Wrapf(err, "build %s query", op)
	}

	var rows []wagerTableModel
	if err := executor(ctx, r.db).SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, crerr.Wrap(err, op)
	}
	return wagersFromRows(rows), nil
}

func selectWagers() *qb.SelectBuilder {
	return qb.Select(wagerColumns...).From(wagersTable)
}

func (r *WagerRepository) ListExpiredPending(ctx context.Context, now time.Time, after wager.Cursor, limit int) ([]wager.Wager, error) {
	return r.list(ctx, "list expired pending wagers", keysetQuery("expires_at", after, limit,
		qb.Eq("status", string(wager.StatusPending)), qb.Lte("expires_at", now)))
}

func (r *WagerRepository) ListMatchedWithGame(ctx context.Context, after wager.Cursor, limit int) ([]wager.Wager, error) {
	return r.list(ctx, "list matched wagers", keysetQuery("matched_at", after, limit,
		qb.Eq("status", string(wager.StatusMatched)), qb.IsNotNull("game_id")))
}

// keysetQuery selects one page ordered by (timeColumn, id) past after.
func keysetQuery(timeColumn string, after wager.Cursor, limit int, conditions ...qb.Condition) *qb.SelectBuilder {
	if after.ID != "" {
		conditions = append(conditions, qb.RowGt([]string{timeColumn, "id"}, after.At, after.ID))
	}
	return selectWagers().
		Where(conditions...).
		OrderBy(timeColumn, "id").
		Limit(limit)
}

func (r *WagerRepository) ListMatchedByGame(ctx context.Context, gameID string) ([]wager.Wager, error) {
	return r.list(ctx, "list matched wagers by game", selectWagers().
		Where(qb.Eq("status", string(wager.StatusMatched)), qb.Eq("game_id", gameID)).
		OrderBy("created_at", "id"))
}

func (r *WagerRepository) ListOpen(ctx context.Context, f wager.OpenFilter, now time.Time) ([]wager.Wager, error) {
	return r.list(ctx, "list open wagers", openWagersQuery(f, now))
}

func openWagersQuery(f wager.OpenFilter, now time.Time) *qb.SelectBuilder {
	conditions := []qb.Condition{
		qb.Eq("status", string(wager.StatusPending)),
		qb.IsNull("opponent_id"),
		qb.Gt("expires_at", now),
	}
	if f.Currency != "" {
		conditions = append(conditions, qb.Eq("currency", string(f.Currency)))
	}
	if f.Variant != "" {
		conditions = append(conditions, qb.Eq("variant", string(f.Variant)))
	}
	if f.TimeControl != "" {
		conditions = append(conditions, qb.Eq("time_control", f.TimeControl))
	}
	if f.RatingClass != "" {
		conditions = append(conditions, qb.Eq("rating_class", string(f.RatingClass)))
	}
	if f.ExcludeUser != "" {
		conditions = append(conditions, qb.NotEq("creator_id", f.ExcludeUser))
	}
	return selectWagers().Where(conditions...).OrderBy("created_at DESC", "id DESC").Limit(f.Limit)
}

func (r *WagerRepository) ListByUser(ctx context.Context, userID string, limit int) ([]wager.Wager, error) {
	return r.list(ctx, "list user wagers", selectWagers().
		Where(qb.Expr("(creator_id = ? OR opponent_id = ?)", userID, userID)).
		OrderBy("created_at DESC", "id DESC").
		Limit(limit))
}
