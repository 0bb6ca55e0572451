package resilience

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errUpstream = errors.New("upstream down")

func TestBreaker_OpensAndRecovers(t *testing.T) {
	b := NewBreaker(BreakerSettings{Enabled: true, FailureThreshold: 2, OpenTimeout: 5 * time.Second, HalfOpenProbes: 1})
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return now }

	fail := func() error { return errUpstream }
	ok := func() error { return nil }

	require.ErrorIs(t, b.Execute(fail, nil), errUpstream)
	assert.Equal(t, StateClosed, b.State())
	require.ErrorIs(t, b.Execute(fail, nil), errUpstream)
	assert.Equal(t, StateOpen, b.State())

	called := false
	err := b.Execute(func() error { called = true; return nil }, nil)
	require.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)

	now = now.Add(6 * time.Second)
	assert.Equal(t, StateHalfOpen, b.State())
	require.NoError(t, b.Execute(ok, nil))
	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_NonTrippingErrorsCountAsSuccess(t *testing.T) {
	b := NewBreaker(BreakerSettings{Enabled: true, FailureThreshold: 1})
	notFound := errors.New("not found")

	err := b.Execute(func() error { return notFound }, func(err error) bool { return errors.Is(err, errUpstream) })
	require.ErrorIs(t, err, notFound)
	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_DisabledNeverOpens(t *testing.T) {
	b := NewBreaker(BreakerSettings{FailureThreshold: 1})
	for range 5 {
		require.ErrorIs(t, b.Execute(func() error { return errUpstream }, nil), errUpstream)
	}
	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	b := NewBreaker(BreakerSettings{Enabled: true, FailureThreshold: 1, OpenTimeout: time.Second})
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return now }

	_ = b.Execute(func() error { return errUpstream }, nil)
	now = now.Add(2 * time.Second)
	_ = b.Execute(func() error { return errUpstream }, nil)

	assert.Equal(t, StateOpen, b.State())
	require.ErrorIs(t, b.Execute(func() error { return nil }, nil), ErrCircuitOpen)
}
