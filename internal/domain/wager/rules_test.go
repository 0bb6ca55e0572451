package wager

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riskibarqy/chess-wager/internal/domain/chessmatch"
	"github.com/riskibarqy/chess-wager/internal/domain/notification"
	"github.com/riskibarqy/chess-wager/internal/domain/user"
)

func matchedWager() Wager {
	return Wager{
		ID:           "w1",
		CreatorID:    "alice",
		OpponentID:   "bob",
		CreatorColor: ColorWhite,
		Amount:       100,
		Currency:     user.CurrencyToken,
		Status:       StatusMatched,
		FinalWhiteID: "alice",
		FinalBlackID: "bob",
		GameID:       "g1",
	}
}

func TestStatusTransitions(t *testing.T) {
	t.Parallel()

	assert.True(t, StatusPending.CanTransitionTo(StatusMatched))
	assert.True(t, StatusPending.CanTransitionTo(StatusExpired))
	assert.True(t, StatusMatched.CanTransitionTo(StatusDraw))
	assert.False(t, StatusMatched.CanTransitionTo(StatusPending))
	assert.False(t, StatusWon.CanTransitionTo(StatusDraw))
	assert.False(t, StatusPending.CanTransitionTo(StatusWon))

	for _, s := range []Status{StatusWon, StatusLost, StatusDraw, StatusCanceled, StatusExpired} {
		assert.True(t, s.IsTerminal(), s)
	}
	assert.False(t, StatusPending.IsTerminal())
	assert.False(t, StatusMatched.IsTerminal())
}

func TestParseTimeControl(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw     string
		want    TimeControl
		class   RatingClass
		wantErr bool
	}{
		{raw: "5+3", want: TimeControl{LimitSeconds: 300, IncrementSeconds: 3}, class: RatingBlitz},
		{raw: "1+0", want: TimeControl{LimitSeconds: 60}, class: RatingBullet},
		{raw: "0.25+0", want: TimeControl{LimitSeconds: 15}, class: RatingUltraBullet},
		{raw: "10+5", want: TimeControl{LimitSeconds: 600, IncrementSeconds: 5}, class: RatingRapid},
		{raw: "30+20", want: TimeControl{LimitSeconds: 1800, IncrementSeconds: 20}, class: RatingClassical},
		{raw: "5", wantErr: true},
		{raw: "a+1", wantErr: true},
		{raw: "5+-1", wantErr: true},
		{raw: "0+0", wantErr: true},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.raw, func(t *testing.T) {
			t.Parallel()
			got, err := ParseTimeControl(tc.raw)
			if tc.wantErr {
				require.ErrorIs(t, err, ErrInvalidTimeControl)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.class, got.RatingClass())
		})
	}
}

func TestTimeControlString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "5+3", TimeControl{LimitSeconds: 300, IncrementSeconds: 3}.String())
	assert.Equal(t, "0.5+0", TimeControl{LimitSeconds: 30}.String())
}

func TestResolveColors(t *testing.T) {
	t.Parallel()

	w := Wager{CreatorID: "alice", CreatorColor: ColorWhite}
	white, black, err := ResolveColors(w, "bob", func() bool { panic("coin must not be used") })
	require.NoError(t, err)
	assert.Equal(t, "alice", white)
	assert.Equal(t, "bob", black)

	w.CreatorColor = ColorBlack
	white, black, err = ResolveColors(w, "bob", nil)
	require.NoError(t, err)
	assert.Equal(t, "bob", white)
	assert.Equal(t, "alice", black)

	w.CreatorColor = ColorRandom
	white, _, err = ResolveColors(w, "bob", func() bool { return false })
	require.NoError(t, err)
	assert.Equal(t, "bob", white)
	white, _, err = ResolveColors(w, "bob", func() bool { return true })
	require.NoError(t, err)
	assert.Equal(t, "alice", white)

	_, _, err = ResolveColors(w, "alice", func() bool { return true })
	require.ErrorIs(t, err, ErrSelfAccept)
}

func TestSettleDecisive(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	w := matchedWager()

	got, err := Settle(w, chessmatch.WinnerWhite, now)
	require.NoError(t, err)
	assert.Equal(t, StatusWon, got.Resolution.Status)
	assert.Equal(t, "alice", got.Resolution.WinnerID)
	assert.Equal(t, int64(200), got.Resolution.Winnings)
	assert.Equal(t, "bob", got.LoserID)
	require.Len(t, got.Credits, 1)
	assert.Equal(t, Credit{UserID: "alice", Currency: user.CurrencyToken, Amount: 200}, got.Credits[0])
	require.Len(t, got.Events, 2)
	assert.Equal(t, notification.CategoryWagerWon, got.Events[0].Category)
	assert.Equal(t, notification.CategoryWagerLost, got.Events[1].Category)
	assert.Equal(t, "bob", got.Events[1].UserID)

	got, err = Settle(w, chessmatch.WinnerBlack, now)
	require.NoError(t, err)
	assert.Equal(t, "bob", got.Resolution.WinnerID)
	assert.Equal(t, "alice", got.LoserID)
}

func TestSettleDrawRefundsBothSides(t *testing.T) {
	t.Parallel()

	now := time.Now()
	for _, winner := range []chessmatch.Winner{chessmatch.WinnerDraw, chessmatch.WinnerNone} {
		got, err := Settle(matchedWager(), winner, now)
		require.NoError(t, err)
		assert.True(t, got.IsDraw())
		assert.Empty(t, got.Resolution.WinnerID)
		assert.Zero(t, got.Resolution.Winnings)
		assert.ElementsMatch(t, []Credit{
			{UserID: "alice", Currency: user.CurrencyToken, Amount: 100},
			{UserID: "bob", Currency: user.CurrencyToken, Amount: 100},
		}, got.Credits)
	}
}

func TestSettleRejectsNonMatched(t *testing.T) {
	t.Parallel()

	w := matchedWager()
	w.Status = StatusWon
	_, err := Settle(w, chessmatch.WinnerWhite, time.Now())
	require.ErrorIs(t, err, ErrNotMatched)

	w = matchedWager()
	w.FinalBlackID = ""
	_, err = Settle(w, chessmatch.WinnerWhite, time.Now())
	require.ErrorIs(t, err, ErrColorsUnset)

	_, err = Settle(matchedWager(), chessmatch.Winner("purple"), time.Now())
	require.ErrorIs(t, err, ErrUnknownWinner)
}
