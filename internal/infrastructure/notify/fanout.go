package notify

import (
	"context"
	"errors"

	"github.com/riskibarqy/chess-wager/internal/domain/notification"
	"github.com/riskibarqy/chess-wager/internal/platform/logging"
)

// Fanout hands events to every dispatcher in order. The first dispatcher
// may stamp ids that later ones see. A failing dispatcher does not stop
// the rest.
type Fanout struct {
	dispatchers []notification.Dispatcher
	logger      *logging.Logger
}

func NewFanout(logger *logging.Logger, dispatchers ...notification.Dispatcher) *Fanout {
	if logger == nil {
		logger = logging.Default()
	}
	kept := make([]notification.Dispatcher, 0, len(dispatchers))
	for _, d := range dispatchers {
		if d != nil {
			kept = append(kept, d)
		}
	}
	return &Fanout{dispatchers: kept, logger: logger}
}

func (f *Fanout) Dispatch(ctx context.Context, events ...notification.Event) error {
	if len(events) == 0 {
		return nil
	}
	var errs []error
	for _, d := range f.dispatchers {
		if err := d.Dispatch(ctx, events...); err != nil {
			f.logger.WarnContext(ctx, "notification dispatch failed", "events", len(events), "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
