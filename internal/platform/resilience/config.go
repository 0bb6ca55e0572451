package resilience

import "time"

// BreakerSettings tunes a Breaker. Zero fields fall back to defaults.
type BreakerSettings struct {
	Enabled          bool
	FailureThreshold int
	OpenTimeout      time.Duration
	HalfOpenProbes   int
}

func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		Enabled:          true,
		FailureThreshold: 5,
		OpenTimeout:      30 * time.Second,
		HalfOpenProbes:   1,
	}
}

func (s BreakerSettings) normalized() BreakerSettings {
	defaults := DefaultBreakerSettings()
	if s.FailureThreshold < 1 {
		s.FailureThreshold = defaults.FailureThreshold
	}
	if s.OpenTimeout <= 0 {
		s.OpenTimeout = defaults.OpenTimeout
	}
	if s.HalfOpenProbes < 1 {
		s.HalfOpenProbes = defaults.HalfOpenProbes
	}
	return s
}
