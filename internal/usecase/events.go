package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/riskibarqy/chess-wager/internal/domain/notification"
	"github.com/riskibarqy/chess-wager/internal/domain/user"
	"github.com/riskibarqy/chess-wager/internal/platform/logging"
)

// publish hands events to the dispatcher. Failures are logged and dropped.
func publish(ctx context.Context, dispatcher notification.Dispatcher, logger *logging.Logger, events []notification.Event) {
	if dispatcher == nil || len(events) == 0 {
		return
	}
	if err := dispatcher.Dispatch(ctx, events...); err != nil {
		logger.WarnContext(ctx, "dispatch notifications failed", "count", len(events), "error", err)
	}
}

func debitFailure(err error, userID string) error {
	if errors.Is(err, user.ErrNotFound) {
		return fmt.Errorf("%w: user %s", ErrNotFound, userID)
	}
	return storeError("debit balance", err)
}

func creditFailure(err error, userID string) error {
	if errors.Is(err, user.ErrNotFound) {
		return fmt.Errorf("%w: user %s", ErrNotFound, userID)
	}
	return storeError("credit balance", err)
}
