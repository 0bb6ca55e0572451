package notification

import "context"

// Dispatcher delivers events. Delivery is fire-and-forget from the caller's
// point of view; errors are for logging only.
type Dispatcher interface {
	Dispatch(ctx context.Context, events ...Event) error
}

type Repository interface {
	Insert(ctx context.Context, events []Event) error
	ListByUser(ctx context.Context, userID string, limit int) ([]Event, error)
}
