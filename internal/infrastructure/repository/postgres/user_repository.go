package postgres

import (
	"context"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/chess-wager/internal/domain/user"
	qb "github.com/riskibarqy/chess-wager/internal/platform/querybuilder"
)

// UserRepository reads users and implements user.Ledger with single
// conditional UPDATE statements.
type UserRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByID(ctx context.Context, userID string) (user.User, bool, error) {
	query, args, err := qb.Select(userColumns...).From("users").Where(qb.Eq("id", userID)).ToSQL()
	if err != nil {
		return user.User{}, false, crerr.Wrap(err, "build get user query")
	}

	var row userTableModel
	if err := executor(ctx, r.db).GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return user.User{}, false, nil
		}
		return user.User{}, false, crerr.Wrapf(err, "get user id=%s", userID)
	}
	return row.toDomain(), true, nil
}

func (r *UserRepository) ListIDs(ctx context.Context) ([]string, error) {
	query, args, err := qb.Select("id").From("users").OrderBy("created_at", "id").ToSQL()
	if err != nil {
		return nil, crerr.Wrap(err, "build list user ids query")
	}

	var ids []string
	if err := executor(ctx, r.db).SelectContext(ctx, &ids, query, args...); err != nil {
		return nil, crerr.Wrap(err, "list user ids")
	}
	return ids, nil
}

func (r *UserRepository) Debit(ctx context.Context, userID string, currency user.Currency, amount int64) (bool, error) {
	if amount <= 0 {
		return false, crerr.Newf("debit amount must be positive: %d", amount)
	}
	column, ok := balanceColumn(currency)
	if !ok {
		return false, crerr.Newf("unknown currency %q", currency)
	}

	query, args, err := qb.Update("users").
		Increment(column, -amount).
		Set("updated_at", time.Now().UTC()).
		Where(qb.Eq("id", userID), qb.Gte(column, amount)).
		ToSQL()
	if err != nil {
		return false, crerr.Wrap(err, "build debit query")
	}

	db := executor(ctx, r.db)
	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, crerr.Wrapf(err, "debit user id=%s currency=%s", userID, currency)
	}
	done, err := affected(res)
	if err != nil || done {
		return done, err
	}
	return false, r.ensureExists(ctx, db, userID)
}

func (r *UserRepository) Credit(ctx context.Context, userID string, currency user.Currency, amount int64) error {
	if amount <= 0 {
		return crerr.Newf("credit amount must be positive: %d", amount)
	}
	column, ok := balanceColumn(currency)
	if !ok {
		return crerr.Newf("unknown currency %q", currency)
	}

	query, args, err := qb.Update("users").
		Increment(column, amount).
		Set("updated_at", time.Now().UTC()).
		Where(qb.Eq("id", userID)).
		ToSQL()
	if err != nil {
		return crerr.Wrap(err, "build credit query")
	}

	res, err := executor(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		return crerr.Wrapf(err, "credit user id=%s currency=%s", userID, currency)
	}
	done, err := affected(res)
	if err != nil {
		return err
	}
	if !done {
		return crerr.Wrapf(user.ErrNotFound, "credit user id=%s", userID)
	}
	return nil
}

func (r *UserRepository) ensureExists(ctx context.Context, db queryer, userID string) error {
	var exists bool
	if err := db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, userID); err != nil {
		return crerr.Wrapf(err, "check user id=%s", userID)
	}
	if !exists {
		return crerr.Wrapf(user.ErrNotFound, "debit user id=%s", userID)
	}
	return nil
}

// Upsert writes a user row; used to seed local databases.
func (r *UserRepository) Upsert(ctx context.Context, u user.User) error {
	now := time.Now().UTC()
	query, args, err := qb.InsertInto("users").
		Columns(userColumns...).
		Values(u.ID, u.Username, nullString(u.ChessUsername), nullString(u.ChessAccessToken),
			u.Balances.Token, u.Balances.Sweepstakes, now, now).
		Suffix(`ON CONFLICT (id) DO UPDATE SET
    username = EXCLUDED.username,
    chess_username = EXCLUDED.chess_username,
    chess_access_token = EXCLUDED.chess_access_token,
    updated_at = EXCLUDED.updated_at`).
		ToSQL()
	if err != nil {
		return crerr.Wrap(err, "build upsert user query")
	}
	if _, err := executor(ctx, r.db).ExecContext(ctx, query, args...); err != nil {
		return crerr.Wrapf(err, "upsert user id=%s", u.ID)
	}
	return nil
}
