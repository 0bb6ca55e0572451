package chessmatch

import "context"

// Oracle reports whether and how an external match concluded.
type Oracle interface {
	GetOutcome(ctx context.Context, matchID string) (Outcome, error)
}

// Creator opens a match between two linked accounts on the chess platform.
type Creator interface {
	CreateMatch(ctx context.Context, req MatchRequest) (Match, error)
}
