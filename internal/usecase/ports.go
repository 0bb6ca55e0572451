package usecase

import (
	"context"

	"github.com/riskibarqy/chess-wager/internal/domain/user"
)

// Transactor runs fn inside one store transaction. Repository calls made with
// the ctx passed to fn join the transaction; fn's error rolls everything back.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Metrics receives counters from the core services.
type Metrics interface {
	WagerSettled(outcome string)
	WagerExpired()
	ReconcileError(job string)
	SeasonRewardGranted(currency user.Currency)
}

type noopMetrics struct{}

func (noopMetrics) WagerSettled(string) {}
func (noopMetrics) WagerExpired() {}
func (noopMetrics) ReconcileError(string) {}
func (noopMetrics) SeasonRewardGranted(user.Currency) {}

// NoopMetrics discards every counter.
var NoopMetrics Metrics = noopMetrics{}
