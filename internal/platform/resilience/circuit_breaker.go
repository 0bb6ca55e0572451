package resilience

import (
	"errors"
	"sync"
	"time"
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half_open"
)

// Breaker guards calls to an upstream dependency. A disabled breaker admits
// every call and never opens.
type Breaker struct {
	mu       sync.Mutex
	settings BreakerSettings

	state    State
	failures int
	openedAt time.Time
	probes   int
	passed   int
	now      func() time.Time
}

func NewBreaker(settings BreakerSettings) *Breaker {
	return &Breaker{
		settings: settings.normalized(),
		state:    StateClosed,
		now:      time.Now,
	}
}

// Execute runs fn when the breaker admits it. Errors for which tripping
// returns true count as failures; any other outcome counts as success.
func (b *Breaker) Execute(fn func() error, tripping func(error) bool) error {
	if err := b.allow(); err != nil {
		return err
	}
	err := fn()
	if err != nil && (tripping == nil || tripping(err)) {
		b.failure()
		return err
	}
	b.success()
	return err
}

func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateOpen && b.now().Sub(b.openedAt) >= b.settings.OpenTimeout {
		return StateHalfOpen
	}
	return b.state
}

func (b *Breaker) allow() error {
	if !b.settings.Enabled {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateOpen {
		if b.now().Sub(b.openedAt) < b.settings.OpenTimeout {
			return ErrCircuitOpen
		}
		b.reset(StateHalfOpen)
	}
	if b.state == StateHalfOpen {
		if b.probes >= b.settings.HalfOpenProbes {
			return ErrCircuitOpen
		}
		b.probes++
	}
	return nil
}

func (b *Breaker) success() {
	if !b.settings.Enabled {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		b.failures = 0
	case StateHalfOpen:
		b.probes = max(b.probes-1, 0)
		b.passed++
		if b.passed >= b.settings.HalfOpenProbes && b.probes == 0 {
			b.reset(StateClosed)
		}
	}
}

func (b *Breaker) failure() {
	if !b.settings.Enabled {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		b.failures++
		if b.failures >= b.settings.FailureThreshold {
			b.reset(StateOpen)
		}
	case StateHalfOpen, StateOpen:
		b.reset(StateOpen)
	}
}

func (b *Breaker) reset(to State) {
	b.state = to
	b.failures = 0
	b.probes = 0
	b.passed = 0
	b.openedAt = time.Time{}
	if to == StateOpen {
		b.openedAt = b.now()
	}
}
