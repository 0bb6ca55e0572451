package notify

import (
	"context"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/chess-wager/internal/domain/notification"
	"github.com/riskibarqy/chess-wager/internal/platform/id"
)

// Inbox persists events so users can read them later. It stamps missing
// ids and timestamps before the insert.
type Inbox struct {
	repo  notification.Repository
	idGen id.Generator
	now   func() time.Time
}

func NewInbox(repo notification.Repository, idGen id.Generator) *Inbox {
	if idGen == nil {
		idGen = id.NewUUIDGenerator()
	}
	return &Inbox{repo: repo, idGen: idGen, now: time.Now}
}

func (i *Inbox) Dispatch(ctx context.Context, events ...notification.Event) error {
	if len(events) == 0 {
		return nil
	}
	stamped, err := i.stamp(events)
	if err != nil {
		return err
	}
	if err := i.repo.Insert(ctx, stamped); err != nil {
		return crerr.Wrapf(err, "persist %d notifications", len(stamped))
	}
	copy(events, stamped)
	return nil
}

func (i *Inbox) stamp(events []notification.Event) ([]notification.Event, error) {
	out := make([]notification.Event, 0, len(events))
	now := i.now().UTC()
	for _, event := range events {
		if event.ID == "" {
			generated, err := i.idGen.NewID()
			if err != nil {
				return nil, crerr.Wrap(err, "generate notification id")
			}
			event.ID = generated
		}
		if event.CreatedAt.IsZero() {
			event.CreatedAt = now
		}
		out = append(out, event)
	}
	return out, nil
}
