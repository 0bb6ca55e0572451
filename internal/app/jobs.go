package app

import (
	"context"
	"time"

	"github.com/riskibarqy/chess-wager/internal/config"
	"github.com/riskibarqy/chess-wager/internal/infrastructure/scheduler"
	"github.com/riskibarqy/chess-wager/internal/platform/logging"
	"github.com/riskibarqy/chess-wager/internal/usecase"
)

const (
	jobSeasonTransitions = "season-transitions"
	jobResetDailyCounter = "reset-daily-counters"
)

type sweeper interface {
	ExpireStaleWagers(ctx context.Context) (usecase.SweepResult, error)
	PollOutcomes(ctx context.Context) (usecase.PollResult, error)
}

type seasonChecker interface {
	CheckSeasonTransitions(ctx context.Context) (usecase.SeasonTransitionResult, error)
}

// reconcileJobs lists the periodic jobs. Each tick is bounded by its own
// interval so a stuck run cannot outlive the next slot by much.
func reconcileJobs(
	cfg config.Config,
	sweeps sweeper,
	seasons seasonChecker,
	activity *usecase.ActivityCounter,
	logger *logging.Logger,
) []scheduler.Job {
	return []scheduler.Job{
		{
			Name:    usecase.JobExpireWagers,
			Spec:    scheduler.Every(cfg.SweepInterval),
			Timeout: cfg.SweepInterval,
			Run: func(ctx context.Context) error {
				_, err := sweeps.ExpireStaleWagers(ctx)
				return err
			},
		},
		{
			Name:    usecase.JobPollOutcomes,
			Spec:    scheduler.Every(cfg.OutcomePollInterval),
			Timeout: cfg.OutcomePollInterval,
			Run: func(ctx context.Context) error {
				_, err := sweeps.PollOutcomes(ctx)
				return err
			},
		},
		{
			Name:    jobSeasonTransitions,
			Spec:    scheduler.Every(cfg.SeasonCheckInterval),
			Timeout: cfg.SeasonCheckInterval,
			Run: func(ctx context.Context) error {
				_, err := seasons.CheckSeasonTransitions(ctx)
				return err
			},
		},
		{
			Name: jobResetDailyCounter,
			Spec: cfg.DailyResetSpec,
			Run: func(ctx context.Context) error {
				prev := activity.Reset(time.Now())
				logger.InfoContext(ctx, "daily activity counters reset",
					"day", prev.Day,
					"wagers_placed", prev.WagersPlaced,
					"matches_created", prev.MatchesCreated,
					"wagers_settled", prev.WagersSettled,
					"wagers_expired", prev.WagersExpired,
				)
				return nil
			},
		},
	}
}
