package memory

import (
	"time"

	"github.com/riskibarqy/chess-wager/internal/domain/user"
)

// SeedUsers returns the demo accounts loaded when STORE_DRIVER=memory. The
// chess tokens are placeholders; match creation against a real platform
// needs real ones.
func SeedUsers(now time.Time) []user.User {
	now = now.UTC()
	seed := func(id, name string, token, sweepstakes int64) user.User {
		return user.User{
			ID:               id,
			Username:         name,
			ChessUsername:    name,
			ChessAccessToken: "lip_" + name,
			Balances:         user.Balances{Token: token, Sweepstakes: sweepstakes},
			CreatedAt:        now,
			UpdatedAt:        now,
		}
	}
	return []user.User{
		seed("demo-alice", "alice", 10_000, 1_000),
		seed("demo-bob", "bob", 10_000, 1_000),
		seed("demo-carol", "carol", 2_500, 250),
		seed("demo-dave", "dave", 500, 0),
	}
}
