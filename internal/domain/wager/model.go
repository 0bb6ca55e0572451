package wager

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/riskibarqy/chess-wager/internal/domain/user"
)

// DefaultTTL is how long a wager stays open for acceptance.
const DefaultTTL = 30 * time.Minute

var (
	ErrInvalidTimeControl = errors.New("invalid time control")
	ErrInvalidTransition  = errors.New("invalid status transition")
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusMatched  Status = "matched"
	StatusWon      Status = "won"
	StatusLost     Status = "lost"
	StatusDraw     Status = "draw"
	StatusCanceled Status = "canceled"
	StatusExpired  Status = "expired"
)

var transitions = map[Status][]Status{
	StatusPending: {StatusMatched, StatusCanceled, StatusExpired},
	StatusMatched: {StatusWon, StatusLost, StatusDraw},
}

func (s Status) IsTerminal() bool {
	_, ok := transitions[s]
	return !ok
}

func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Color is the creator's requested side.
type Color string

const (
	ColorWhite  Color = "white"
	ColorBlack  Color = "black"
	ColorRandom Color = "random"
)

func (c Color) Valid() bool {
	return c == ColorWhite || c == ColorBlack || c == ColorRandom
}

type Variant string

const (
	VariantStandard      Variant = "standard"
	VariantChess960      Variant = "chess960"
	VariantCrazyhouse    Variant = "crazyhouse"
	VariantAntichess     Variant = "antichess"
	VariantAtomic        Variant = "atomic"
	VariantHorde         Variant = "horde"
	VariantKingOfTheHill Variant = "kingOfTheHill"
	VariantRacingKings   Variant = "racingKings"
	VariantThreeCheck    Variant = "threeCheck"
)

var knownVariants = map[Variant]struct{}{
	VariantStandard:      {},
	VariantChess960:      {},
	VariantCrazyhouse:    {},
	VariantAntichess:     {},
	VariantAtomic:        {},
	VariantHorde:         {},
	VariantKingOfTheHill: {},
	VariantRacingKings:   {},
	VariantThreeCheck:    {},
}

func (v Variant) Valid() bool {
	_, ok := knownVariants[v]
	return ok
}

type RatingClass string

const (
	RatingUltraBullet RatingClass = "ultraBullet"
	RatingBullet      RatingClass = "bullet"
	RatingBlitz       RatingClass = "blitz"
	RatingRapid       RatingClass = "rapid"
	RatingClassical   RatingClass = "classical"
)

func (r RatingClass) Valid() bool {
	switch r {
	case RatingUltraBullet, RatingBullet, RatingBlitz, RatingRapid, RatingClassical:
		return true
	default:
		return false
	}
}

// TimeControl is a clock in "minutes+increment" form, e.g. "5+3".
type TimeControl struct {
	LimitSeconds     int
	IncrementSeconds int
}

func ParseTimeControl(raw string) (TimeControl, error) {
	minutesRaw, incRaw, ok := strings.Cut(strings.TrimSpace(raw), "+")
	if !ok {
		return TimeControl{}, fmt.Errorf("%w: %q", ErrInvalidTimeControl, raw)
	}

	minutes, err := strconv.ParseFloat(minutesRaw, 64)
	if err != nil || minutes < 0 || minutes > 180 {
		return TimeControl{}, fmt.Errorf("%w: minutes in %q", ErrInvalidTimeControl, raw)
	}
	inc, err := strconv.Atoi(incRaw)
	if err != nil || inc < 0 || inc > 180 {
		return TimeControl{}, fmt.Errorf("%w: increment in %q", ErrInvalidTimeControl, raw)
	}

	tc := TimeControl{LimitSeconds: int(minutes * 60), IncrementSeconds: inc}
	if tc.LimitSeconds == 0 && tc.IncrementSeconds == 0 {
		return TimeControl{}, fmt.Errorf("%w: zero clock", ErrInvalidTimeControl)
	}
	return tc, nil
}

func (tc TimeControl) String() string {
	if tc.LimitSeconds%60 == 0 {
		return fmt.Sprintf("%d+%d", tc.LimitSeconds/60, tc.IncrementSeconds)
	}
	return fmt.Sprintf("%s+%d", strconv.FormatFloat(float64(tc.LimitSeconds)/60, 'f', -1, 64), tc.IncrementSeconds)
}

// RatingClass follows the usual estimate of limit + 40 moves of increment.
func (tc TimeControl) RatingClass() RatingClass {
	estimated := tc.LimitSeconds + 40*tc.IncrementSeconds
	switch {
	case estimated < 29:
		return RatingUltraBullet
	case estimated < 179:
		return RatingBullet
	case estimated < 479:
		return RatingBlitz
	case estimated < 1499:
		return RatingRapid
	default:
		return RatingClassical
	}
}

// Wager is a two-party stake on a chess match the parties play themselves.
// Empty string ids stand for "not set yet".
type Wager struct {
	ID           string
	CreatorID    string
	OpponentID   string
	CreatorColor Color
	Amount       int64
	Currency     user.Currency
	TimeControl  string
	Variant      Variant
	RatingClass  RatingClass
	Status       Status
	GameID       string
	GameLink     string
	FinalWhiteID string
	FinalBlackID string
	WinnerID     string
	Winnings     int64
	ExpiresAt    time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
	MatchedAt    *time.Time
	SettledAt    *time.Time
}

func (w Wager) Pot() int64 {
	return w.Amount * 2
}

func (w Wager) Participants() []string {
	out := []string{w.CreatorID}
	if w.OpponentID != "" {
		out = append(out, w.OpponentID)
	}
	return out
}

func (w Wager) IsExpired(now time.Time) bool {
	return w.Status == StatusPending && !w.ExpiresAt.After(now)
}

// OpenFilter narrows the open-wager listing.
type OpenFilter struct {
	Currency    user.Currency
	Variant     Variant
	TimeControl string
	RatingClass RatingClass
	ExcludeUser string
	Limit       int
}
