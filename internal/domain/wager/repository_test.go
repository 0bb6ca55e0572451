package wager

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCursorPrecedes(t *testing.T) {
	t0 := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	c := Cursor{At: t0, ID: "w2"}

	assert.True(t, Cursor{}.Precedes(t0, "w0"), "zero cursor starts at the beginning")
	assert.True(t, c.Precedes(t0, "w3"))
	assert.False(t, c.Precedes(t0, "w2"))
	assert.False(t, c.Precedes(t0, "w1"))
	assert.True(t, c.Precedes(t0.Add(time.Second), "w0"))
	assert.False(t, c.Precedes(t0.Add(-time.Second), "w9"))

	matchedAt := t0.Add(time.Minute)
	assert.Equal(t, Cursor{At: matchedAt, ID: "w5"}, MatchCursor(Wager{ID: "w5", MatchedAt: &matchedAt}))
	assert.Equal(t, Cursor{At: t0, ID: "w6"}, ExpiryCursor(Wager{ID: "w6", ExpiresAt: t0}))
}
