package memory

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/riskibarqy/chess-wager/internal/domain/notification"
	"github.com/riskibarqy/chess-wager/internal/domain/season"
	"github.com/riskibarqy/chess-wager/internal/domain/user"
	"github.com/riskibarqy/chess-wager/internal/domain/wager"
)

// Store is the shared in-memory state behind every memory repository. One
// mutex guards all tables so a transaction can span repositories.
type Store struct {
	mu   sync.Mutex
	data state
}

type state struct {
	users         map[string]user.User
	userOrder     []string
	wagers        map[string]wager.Wager
	wagerOrder    []string
	seasons       map[string]season.Season
	stats         map[string]season.Stats
	rewards       map[string]season.Reward
	notifications []notification.Event
}

type txKey struct{ store *Store }

func NewStore(users ...user.User) *Store {
	s := &Store{data: state{
		users:   make(map[string]user.User, len(users)),
		wagers:  make(map[string]wager.Wager),
		seasons: make(map[string]season.Season),
		stats:   make(map[string]season.Stats),
		rewards: make(map[string]season.Reward),
	}}
	for _, u := range users {
		s.data.users[u.ID] = u
		s.data.userOrder = append(s.data.userOrder, u.ID)
	}
	return s
}

// lock acquires the store unless ctx already runs inside its transaction.
func (s *Store) lock(ctx context.Context) func() {
	if inTx, _ := ctx.Value(txKey{s}).(bool); inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// WithinTx holds the store for the duration of fn and restores the previous
// state if fn fails.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if inTx, _ := ctx.Value(txKey{s}).(bool); inTx {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	if err := fn(context.WithValue(ctx, txKey{s}, true)); err != nil {
		s.data = snapshot
		return err
	}
	return nil
}

func (d state) clone() state {
	stats := make(map[string]season.Stats, len(d.stats))
	for k, v := range d.stats {
		v.Achievements = slices.Clone(v.Achievements)
		stats[k] = v
	}
	return state{
		users:         maps.Clone(d.users),
		userOrder:     slices.Clone(d.userOrder),
		wagers:        maps.Clone(d.wagers),
		wagerOrder:    slices.Clone(d.wagerOrder),
		seasons:       maps.Clone(d.seasons),
		stats:         stats,
		rewards:       maps.Clone(d.rewards),
		notifications: slices.Clone(d.notifications),
	}
}

// PutUser inserts or replaces a user; used for seeding and tests.
func (s *Store) PutUser(u user.User) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data.users[u.ID]; !exists {
		s.data.userOrder = append(s.data.userOrder, u.ID)
	}
	s.data.users[u.ID] = u
}
