package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/riskibarqy/chess-wager/internal/domain/chessmatch"
	"github.com/riskibarqy/chess-wager/internal/domain/notification"
	"github.com/riskibarqy/chess-wager/internal/domain/user"
	"github.com/riskibarqy/chess-wager/internal/domain/wager"
	idgen "github.com/riskibarqy/chess-wager/internal/platform/id"
	"github.com/riskibarqy/chess-wager/internal/platform/logging"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

type CreateWagerInput struct {
	CreatorID   string `validate:"required"`
	Amount      int64  `validate:"gt=0"`
	Currency    string `validate:"required,currency"`
	Color       string `validate:"required,wagercolor"`
	TimeControl string `validate:"required,timecontrol"`
	Variant     string `validate:"required,variant"`
	RatingClass string `validate:"omitempty,oneof=ultraBullet bullet blitz rapid classical"`
	// TargetMatchID optionally names an external match that must still be
	// open for wagering.
	TargetMatchID string
}

// WagerChange is a committed wager transition and the events it produced.
// The events have already been handed to the dispatcher.
type WagerChange struct {
	Wager  wager.Wager
	Events []notification.Event
}

// WagerService owns escrow: creation debits the creator, cancel and expiry
// refund them. Each balance change shares a transaction with its status write.
type WagerService struct {
	wagers     wager.Repository
	ledger     user.Ledger
	tx         Transactor
	oracle     chessmatch.Oracle
	dispatcher notification.Dispatcher
	activity   *ActivityCounter
	metrics    Metrics
	idGen      idgen.Generator
	logger     *logging.Logger
	ttl        time.Duration
	now        func() time.Time
}

func NewWagerService(
	wagers wager.Repository,
	ledger user.Ledger,
	tx Transactor,
	oracle chessmatch.Oracle,
	dispatcher notification.Dispatcher,
	activity *ActivityCounter,
	idGen idgen.Generator,
	logger *logging.Logger,
) *WagerService {
	if logger == nil {
		logger = logging.Default()
	}
	return &WagerService{
		wagers:     wagers,
		ledger:     ledger,
		tx:         tx,
		oracle:     oracle,
		dispatcher: dispatcher,
		activity:   activity,
		metrics:    NoopMetrics,
		idGen:      idGen,
		logger:     logger,
		ttl:        wager.DefaultTTL,
		now:        time.Now,
	}
}

func (s *WagerService) WithTTL(ttl time.Duration) *WagerService {
	if ttl > 0 {
		s.ttl = ttl
	}
	return s
}

func (s *WagerService) WithMetrics(m Metrics) *WagerService {
	if m != nil {
		s.metrics = m
	}
	return s
}

func (s *WagerService) CreateWager(ctx context.Context, input CreateWagerInput) (WagerChange, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.WagerService.CreateWager")
	defer span.End()

	input.CreatorID = strings.TrimSpace(input.CreatorID)
	input.Currency = strings.ToLower(strings.TrimSpace(input.Currency))
	input.Color = strings.ToLower(strings.TrimSpace(input.Color))
	input.TimeControl = strings.TrimSpace(input.TimeControl)
	input.Variant = strings.TrimSpace(input.Variant)
	if input.Variant == "" {
		input.Variant = string(wager.VariantStandard)
	}
	if err := validateInput(ctx, input); err != nil {
		return WagerChange{}, err
	}

	tc, err := wager.ParseTimeControl(input.TimeControl)
	if err != nil {
		return WagerChange{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	ratingClass := wager.RatingClass(input.RatingClass)
	if ratingClass == "" {
		ratingClass = tc.RatingClass()
	}

	if target := strings.TrimSpace(input.TargetMatchID); target != "" {
		if err := s.ensureMatchOpen(ctx, target); err != nil {
			return WagerChange{}, err
		}
	}

	wagerID, err := s.idGen.NewID()
	if err != nil {
		return WagerChange{}, fmt.Errorf("generate wager id: %w", err)
	}

	now := s.now().UTC()
	w := wager.Wager{
		ID:           wagerID,
		CreatorID:    input.CreatorID,
		CreatorColor: wager.Color(input.Color),
		Amount:       input.Amount,
		Currency:     user.Currency(input.Currency),
		TimeControl:  tc.String(),
		Variant:      wager.Variant(input.Variant),
		RatingClass:  ratingClass,
		Status:       wager.StatusPending,
		ExpiresAt:    now.Add(s.ttl),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		ok, err := s.ledger.Debit(ctx, w.CreatorID, w.Currency, w.Amount)
		if err != nil {
			return debitFailure(err, w.CreatorID)
		}
		if !ok {
			return fmt.Errorf("%w: %d %s required", ErrInsufficientBalance, w.Amount, w.Currency)
		}
		if err := s.wagers.Create(ctx, w); err != nil {
			return storeError("create wager", err)
		}
		return nil
	})
	if err != nil {
		return WagerChange{}, err
	}

	s.activity.WagerPlaced()
	s.logger.InfoContext(ctx, "wager created",
		"wager_id", w.ID,
		"creator_id", w.CreatorID,
		"amount", w.Amount,
		"currency", w.Currency,
	)
	change := WagerChange{Wager: w, Events: []notification.Event{wager.PlacedEvent(w, now)}}
	publish(ctx, s.dispatcher, s.logger, change.Events)
	return change, nil
}

func (s *WagerService) ensureMatchOpen(ctx context.Context, matchID string) error {
	if s.oracle == nil {
		return fmt.Errorf("%w: match oracle is not configured", ErrDependencyUnavailable)
	}
	outcome, err := s.oracle.GetOutcome(ctx, matchID)
	if err != nil {
		return fmt.Errorf("%w: check match %s: %v", ErrExternalService, matchID, err)
	}
	if outcome.Concluded {
		return fmt.Errorf("%w: match %s is no longer open for wagering", ErrInvalidInput, matchID)
	}
	return nil
}

// CancelWager refunds the creator if the wager is still pending. Anything
// else (matched, terminal, someone else's) reads as not found.
func (s *WagerService) CancelWager(ctx context.Context, wagerID, callerID string) (WagerChange, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.WagerService.CancelWager", attrWagerID.String(wagerID))
	defer span.End()

	wagerID = strings.TrimSpace(wagerID)
	callerID = strings.TrimSpace(callerID)
	if wagerID == "" || callerID == "" {
		return WagerChange{}, fmt.Errorf("%w: wager id and caller id are required", ErrInvalidInput)
	}

	now := s.now().UTC()
	var canceled wager.Wager
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		w, ok, err := s.wagers.CancelPending(ctx, wagerID, callerID, now)
		if err != nil {
			return storeError("cancel wager", err)
		}
		if !ok {
			return fmt.Errorf("%w: no cancelable wager %s", ErrNotFound, wagerID)
		}
		if err := s.ledger.Credit(ctx, w.CreatorID, w.Currency, w.Amount); err != nil {
			return creditFailure(err, w.CreatorID)
		}
		canceled = w
		return nil
	})
	if err != nil {
		return WagerChange{}, err
	}

	s.logger.InfoContext(ctx, "wager canceled", "wager_id", canceled.ID, "creator_id", canceled.CreatorID)
	change := WagerChange{Wager: canceled, Events: []notification.Event{wager.CanceledEvent(canceled, now)}}
	publish(ctx, s.dispatcher, s.logger, change.Events)
	return change, nil
}

// ExpireWager moves one overdue pending wager to expired and refunds the
// creator. It reports false when the wager was no longer eligible.
func (s *WagerService) ExpireWager(ctx context.Context, wagerID string) (WagerChange, bool, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.WagerService.ExpireWager", attrWagerID.String(wagerID))
	defer span.End()

	now := s.now().UTC()
	var expired wager.Wager
	var changed bool
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		w, ok, err := s.wagers.ExpirePending(ctx, wagerID, now)
		if err != nil {
			return storeError("expire wager", err)
		}
		if !ok {
			return nil
		}
		if err := s.ledger.Credit(ctx, w.CreatorID, w.Currency, w.Amount); err != nil {
			return creditFailure(err, w.CreatorID)
		}
		expired, changed = w, true
		return nil
	})
	if err != nil || !changed {
		return WagerChange{}, false, err
	}

	s.activity.WagerExpired()
	s.metrics.WagerExpired()
	change := WagerChange{Wager: expired, Events: []notification.Event{wager.ExpiredEvent(expired, now)}}
	publish(ctx, s.dispatcher, s.logger, change.Events)
	return change, true, nil
}

func (s *WagerService) GetWager(ctx context.Context, wagerID string) (wager.Wager, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.WagerService.GetWager", attrWagerID.String(wagerID))
	defer span.End()

	wagerID = strings.TrimSpace(wagerID)
	if wagerID == "" {
		return wager.Wager{}, fmt.Errorf("%w: wager id is required", ErrInvalidInput)
	}
	w, exists, err := s.wagers.GetByID(ctx, wagerID)
	if err != nil {
		return wager.Wager{}, storeError("get wager", err)
	}
	if !exists {
		return wager.Wager{}, fmt.Errorf("%w: wager %s", ErrNotFound, wagerID)
	}
	return w, nil
}

func (s *WagerService) ListOpenWagers(ctx context.Context, filter wager.OpenFilter) ([]wager.Wager, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.WagerService.ListOpenWagers")
	defer span.End()

	if filter.Currency != "" && !filter.Currency.Valid() {
		return nil, fmt.Errorf("%w: unknown currency %q", ErrInvalidInput, filter.Currency)
	}
	if filter.Variant != "" && !filter.Variant.Valid() {
		return nil, fmt.Errorf("%w: unknown variant %q", ErrInvalidInput, filter.Variant)
	}
	if filter.RatingClass != "" && !filter.RatingClass.Valid() {
		return nil, fmt.Errorf("%w: unknown rating class %q", ErrInvalidInput, filter.RatingClass)
	}
	filter.Limit = normalizeLimit(filter.Limit)

	items, err := s.wagers.ListOpen(ctx, filter, s.now().UTC())
	if err != nil {
		return nil, storeError("list open wagers", err)
	}
	return items, nil
}

func (s *WagerService) ListUserWagers(ctx context.Context, userID string, limit int) ([]wager.Wager, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.WagerService.ListUserWagers")
	defer span.End()

	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	items, err := s.wagers.ListByUser(ctx, userID, normalizeLimit(limit))
	if err != nil {
		return nil, storeError("list user wagers", err)
	}
	return items, nil
}

func normalizeLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultListLimit
	case limit > maxListLimit:
		return maxListLimit
	default:
		return limit
	}
}
