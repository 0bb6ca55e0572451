package memory

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/riskibarqy/chess-wager/internal/domain/user"
)

// UserRepository reads users and implements user.Ledger.
type UserRepository struct {
	store *Store
}

func NewUserRepository(store *Store) *UserRepository {
	return &UserRepository{store: store}
}

func (r *UserRepository) GetByID(ctx context.Context, userID string) (user.User, bool, error) {
	defer r.store.lock(ctx)()

	u, ok := r.store.data.users[userID]
	return u, ok, nil
}

func (r *UserRepository) ListIDs(ctx context.Context) ([]string, error) {
	defer r.store.lock(ctx)()

	return slices.Clone(r.store.data.userOrder), nil
}

func (r *UserRepository) Debit(ctx context.Context, userID string, currency user.Currency, amount int64) (bool, error) {
	if amount <= 0 {
		return false, fmt.Errorf("debit amount must be positive: %d", amount)
	}
	defer r.store.lock(ctx)()

	u, ok := r.store.data.users[userID]
	if !ok {
		return false, fmt.Errorf("%w: %s", user.ErrNotFound, userID)
	}
	balance := balanceOf(&u, currency)
	if balance == nil {
		return false, fmt.Errorf("unknown currency %q", currency)
	}
	if *balance < amount {
		return false, nil
	}
	*balance -= amount
	u.UpdatedAt = time.Now().UTC()
	r.store.data.users[userID] = u
	return true, nil
}

func (r *UserRepository) Credit(ctx context.Context, userID string, currency user.Currency, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("credit amount must be positive: %d", amount)
	}
	defer r.store.lock(ctx)()

	u, ok := r.store.data.users[userID]
	if !ok {
		return fmt.Errorf("%w: %s", user.ErrNotFound, userID)
	}
	balance := balanceOf(&u, currency)
	if balance == nil {
		return fmt.Errorf("unknown currency %q", currency)
	}
	*balance += amount
	u.UpdatedAt = time.Now().UTC()
	r.store.data.users[userID] = u
	return nil
}

func balanceOf(u *user.User, currency user.Currency) *int64 {
	switch currency {
	case user.CurrencyToken:
		return &u.Balances.Token
	case user.CurrencySweepstakes:
		return &u.Balances.Sweepstakes
	default:
		return nil
	}
}
