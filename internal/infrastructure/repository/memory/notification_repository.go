package memory

import (
	"context"
	"slices"

	"github.com/riskibarqy/chess-wager/internal/domain/notification"
)

type NotificationRepository struct {
	store *Store
}

func NewNotificationRepository(store *Store) *NotificationRepository {
	return &NotificationRepository{store: store}
}

func (r *NotificationRepository) Insert(ctx context.Context, events []notification.Event) error {
	defer r.store.lock(ctx)()

	r.store.data.notifications = append(r.store.data.notifications, events...)
	return nil
}

func (r *NotificationRepository) ListByUser(ctx context.Context, userID string, limit int) ([]notification.Event, error) {
	defer r.store.lock(ctx)()

	out := make([]notification.Event, 0)
	for _, e := range slices.Backward(r.store.data.notifications) {
		if e.UserID != userID {
			continue
		}
		out = append(out, e)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}
