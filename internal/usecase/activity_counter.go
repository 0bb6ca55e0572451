package usecase

import (
	"sync"
	"time"
)

// ActivitySnapshot is the daily activity view exposed to admins.
type ActivitySnapshot struct {
	Day            string    `json:"day"`
	WagersPlaced   int64     `json:"wagers_placed"`
	MatchesCreated int64     `json:"matches_created"`
	WagersSettled  int64     `json:"wagers_settled"`
	WagersExpired  int64     `json:"wagers_expired"`
	ResetAt        time.Time `json:"reset_at"`
}

// ActivityCounter keeps process-wide "today" counters. It is created once in
// app wiring and reset by the daily scheduler job.
type ActivityCounter struct {
	mu   sync.Mutex
	snap ActivitySnapshot
}

func NewActivityCounter(now time.Time) *ActivityCounter {
	c := &ActivityCounter{}
	c.Reset(now)
	return c
}

// Reset zeroes the counters and starts a new day at now (UTC).
func (c *ActivityCounter) Reset(now time.Time) ActivitySnapshot {
	if c == nil {
		return ActivitySnapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	prev := c.snap
	now = now.UTC()
	c.snap = ActivitySnapshot{Day: now.Format(time.DateOnly), ResetAt: now}
	return prev
}

func (c *ActivityCounter) Snapshot() ActivitySnapshot {
	if c == nil {
		return ActivitySnapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap
}

func (c *ActivityCounter) WagerPlaced() { c.add(func(s *ActivitySnapshot) { s.WagersPlaced++ }) }
func (c *ActivityCounter) MatchCreated() { c.add(func(s *ActivitySnapshot) { s.MatchesCreated++ }) }
func (c *ActivityCounter) WagerSettled() { c.add(func(s *ActivitySnapshot) { s.WagersSettled++ }) }
func (c *ActivityCounter) WagerExpired() { c.add(func(s *ActivitySnapshot) { s.WagersExpired++ }) }

func (c *ActivityCounter) add(fn func(*ActivitySnapshot)) {
	if c == nil {
		return
	}
	c.mu.Lock()
	fn(&c.snap)
	c.mu.Unlock()
}
