package postgres

import (
	"context"
	"database/sql"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/chess-wager/internal/domain/notification"
	"github.com/riskibarqy/chess-wager/internal/domain/user"
	qb "github.com/riskibarqy/chess-wager/internal/platform/querybuilder"
)

type notificationTableModel struct {
	ID        string         `db:"id"`
	UserID    string         `db:"user_id"`
	Category  string         `db:"category"`
	Message   string         `db:"message"`
	WagerID   sql.NullString `db:"wager_id"`
	SeasonID  sql.NullString `db:"season_id"`
	Amount    int64          `db:"amount"`
	Currency  sql.NullString `db:"currency"`
	CreatedAt time.Time      `db:"created_at"`
}

func (m notificationTableModel) toDomain() notification.Event {
	return notification.Event{
		ID:        m.ID,
		UserID:    m.UserID,
		Category:  notification.Category(m.Category),
		Message:   m.Message,
		WagerID:   m.WagerID.String,
		SeasonID:  m.SeasonID.String,
		Amount:    m.Amount,
		Currency:  user.Currency(m.Currency.String),
		CreatedAt: m.CreatedAt,
	}
}

type NotificationRepository struct {
	db *sqlx.DB
}

func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Insert(ctx context.Context, events []notification.Event) error {
	if len(events) == 0 {
		return nil
	}
	b := qb.InsertInto("notifications").Columns(qb.Columns(notificationTableModel{})...)
	for _, e := range events {
		b.Values(e.ID, e.UserID, string(e.Category), e.Message, nullString(e.WagerID),
			nullString(e.SeasonID), e.Amount, nullString(string(e.Currency)), e.CreatedAt.UTC())
	}

	query, args, err := b.ToSQL()
	if err != nil {
		return crerr.Wrap(err, "build insert notifications query")
	}
	if _, err := executor(ctx, r.db).ExecContext(ctx, query, args...); err != nil {
		return crerr.Wrapf(err, "insert %d notifications", len(events))
	}
	return nil
}

func (r *NotificationRepository) ListByUser(ctx context.Context, userID string, limit int) ([]notification.Event, error) {
	query, args, err := qb.Select(qb.Columns(notificationTableModel{})...).
		From("notifications").
		Where(qb.Eq("user_id", userID)).
		OrderBy("created_at DESC", "id DESC").
		Limit(limit).
		ToSQL()
	if err != nil {
		return nil, crerr.Wrap(err, "build list notifications query")
	}

	var rows []notificationTableModel
	if err := executor(ctx, r.db).SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, crerr.Wrapf(err, "list notifications user_id=%s", userID)
	}
	out := make([]notification.Event, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}
