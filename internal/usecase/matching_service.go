package usecase

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/riskibarqy/chess-wager/internal/domain/chessmatch"
	"github.com/riskibarqy/chess-wager/internal/domain/notification"
	"github.com/riskibarqy/chess-wager/internal/domain/user"
	"github.com/riskibarqy/chess-wager/internal/domain/wager"
	"github.com/riskibarqy/chess-wager/internal/platform/logging"
)

// seasonRecorder receives best-effort season bookkeeping. Implementations
// log their own failures.
type seasonRecorder interface {
	RecordBetPlaced(ctx context.Context, w wager.Wager)
	RecordSettlement(ctx context.Context, w wager.Wager, settlement wager.Settlement)
}

// MatchingService moves a wager from pending to matched. The local steps
// (claim, opponent debit, colors) commit together; the external match request
// follows and is compensated by a refund plus claim release if it fails.
type MatchingService struct {
	wagers     wager.Repository
	users      user.Repository
	ledger     user.Ledger
	tx         Transactor
	creator    chessmatch.Creator
	dispatcher notification.Dispatcher
	activity   *ActivityCounter
	seasons    seasonRecorder
	logger     *logging.Logger
	coin       func() bool
	now        func() time.Time
}

func NewMatchingService(
	wagers wager.Repository,
	users user.Repository,
	ledger user.Ledger,
	tx Transactor,
	creator chessmatch.Creator,
	dispatcher notification.Dispatcher,
	activity *ActivityCounter,
	seasons seasonRecorder,
	logger *logging.Logger,
) *MatchingService {
	if logger == nil {
		logger = logging.Default()
	}
	return &MatchingService{
		wagers:     wagers,
		users:      users,
		ledger:     ledger,
		tx:         tx,
		creator:    creator,
		dispatcher: dispatcher,
		activity:   activity,
		seasons:    seasons,
		logger:     logger,
		coin:       func() bool { return rand.IntN(2) == 0 },
		now:        time.Now,
	}
}

func (s *MatchingService) AcceptWager(ctx context.Context, wagerID, opponentID string) (WagerChange, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MatchingService.AcceptWager",
		attrWagerID.String(wagerID), attrUserID.String(opponentID))
	defer span.End()

	wagerID = strings.TrimSpace(wagerID)
	opponentID = strings.TrimSpace(opponentID)
	if wagerID == "" || opponentID == "" {
		return WagerChange{}, fmt.Errorf("%w: wager id and opponent id are required", ErrInvalidInput)
	}
	if s.creator == nil {
		return WagerChange{}, fmt.Errorf("%w: match creation is not configured", ErrDependencyUnavailable)
	}

	current, exists, err := s.wagers.GetByID(ctx, wagerID)
	if err != nil {
		return WagerChange{}, storeError("get wager", err)
	}
	if !exists {
		return WagerChange{}, fmt.Errorf("%w: wager %s", ErrNotFound, wagerID)
	}
	if current.CreatorID == opponentID {
		return WagerChange{}, fmt.Errorf("%w: %v", ErrInvalidInput, wager.ErrSelfAccept)
	}
	now := s.now().UTC()
	if current.Status != wager.StatusPending || current.OpponentID != "" || current.IsExpired(now) {
		return WagerChange{}, fmt.Errorf("%w: wager %s is not open", ErrNotAvailable, wagerID)
	}

	creatorCreds, err := s.credentials(ctx, current.CreatorID)
	if err != nil {
		return WagerChange{}, err
	}
	opponentCreds, err := s.credentials(ctx, opponentID)
	if err != nil {
		return WagerChange{}, err
	}
	tc, err := wager.ParseTimeControl(current.TimeControl)
	if err != nil {
		return WagerChange{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	var claimed wager.Wager
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		w, ok, err := s.wagers.ClaimPending(ctx, wagerID, opponentID, now)
		if err != nil {
			return storeError("claim wager", err)
		}
		if !ok {
			return fmt.Errorf("%w: wager %s was taken or closed", ErrNotAvailable, wagerID)
		}
		if w.CreatorID == opponentID {
			return fmt.Errorf("%w: %v", ErrInvalidInput, wager.ErrSelfAccept)
		}

		debited, err := s.ledger.Debit(ctx, opponentID, w.Currency, w.Amount)
		if err != nil {
			return debitFailure(err, opponentID)
		}
		if !debited {
			return fmt.Errorf("%w: %d %s required", ErrInsufficientBalance, w.Amount, w.Currency)
		}

		whiteID, blackID, err := wager.ResolveColors(w, opponentID, s.coin)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		if err := s.wagers.AssignColors(ctx, w.ID, whiteID, blackID, now); err != nil {
			return storeError("assign colors", err)
		}
		w.FinalWhiteID, w.FinalBlackID = whiteID, blackID
		claimed = w
		return nil
	})
	if err != nil {
		return WagerChange{}, err
	}

	req := chessmatch.MatchRequest{
		ClockLimitSeconds:     tc.LimitSeconds,
		ClockIncrementSeconds: tc.IncrementSeconds,
		Variant:               string(claimed.Variant),
		White:                 creatorCreds,
		Black:                 opponentCreds,
	}
	if claimed.FinalWhiteID == opponentID {
		req.White, req.Black = opponentCreds, creatorCreds
	}

	match, err := s.creator.CreateMatch(ctx, req)
	if err != nil {
		s.compensate(ctx, claimed, opponentID)
		if errors.Is(err, ErrDependencyUnavailable) {
			return WagerChange{}, fmt.Errorf("create match: %w", err)
		}
		return WagerChange{}, fmt.Errorf("%w: create match: %v", ErrExternalService, err)
	}

	matched, err := s.wagers.AttachMatch(ctx, claimed.ID, match.ID, match.Link, s.now().UTC())
	if err != nil {
		s.logger.ErrorContext(ctx, "attach match failed, releasing claim",
			"wager_id", claimed.ID,
			"game_id", match.ID,
			"error", err,
		)
		s.compensate(ctx, claimed, opponentID)
		return WagerChange{}, storeError("attach match", err)
	}

	s.activity.MatchCreated()
	if s.seasons != nil {
		s.seasons.RecordBetPlaced(ctx, matched)
	}
	s.logger.InfoContext(ctx, "wager matched",
		"wager_id", matched.ID,
		"game_id", matched.GameID,
		"white_id", matched.FinalWhiteID,
		"black_id", matched.FinalBlackID,
	)
	change := WagerChange{Wager: matched, Events: wager.MatchedEvents(matched, now)}
	publish(ctx, s.dispatcher, s.logger, change.Events)
	return change, nil
}

func (s *MatchingService) credentials(ctx context.Context, userID string) (chessmatch.Credentials, error) {
	u, exists, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return chessmatch.Credentials{}, storeError("get user", err)
	}
	if !exists {
		return chessmatch.Credentials{}, fmt.Errorf("%w: user %s", ErrNotFound, userID)
	}
	if !u.HasChessLink() {
		return chessmatch.Credentials{}, fmt.Errorf("%w: user %s has no linked chess account", ErrInvalidInput, userID)
	}
	return chessmatch.Credentials{Username: u.ChessUsername, AccessToken: u.ChessAccessToken}, nil
}

// compensate undoes a committed claim: the opponent is refunded and the
// wager returns to pending with no opponent. The refund rolls back when the
// claim can no longer be released, e.g. a game got attached after all. It
// must run even if the caller gave up, so it detaches from ctx cancellation.
func (s *MatchingService) compensate(ctx context.Context, w wager.Wager, opponentID string) {
	ctx = context.WithoutCancel(ctx)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.ledger.Credit(ctx, opponentID, w.Currency, w.Amount); err != nil {
			return creditFailure(err, opponentID)
		}
		released, err := s.wagers.ReleaseClaim(ctx, w.ID, opponentID, s.now().UTC())
		if err != nil {
			return storeError("release claim", err)
		}
		if !released {
			return fmt.Errorf("release claim on wager %s: %w", w.ID, wager.ErrClaimNotHeld)
		}
		return nil
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "wager match compensation failed",
			"wager_id", w.ID,
			"opponent_id", opponentID,
			"amount", w.Amount,
			"currency", w.Currency,
			"error", err,
		)
		return
	}
	s.logger.WarnContext(ctx, "wager match rolled back", "wager_id", w.ID, "opponent_id", opponentID)
}
