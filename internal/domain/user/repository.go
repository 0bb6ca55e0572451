package user

import "context"

type Repository interface {
	GetByID(ctx context.Context, userID string) (User, bool, error)
	ListIDs(ctx context.Context) ([]string, error)
}

// Ledger is the only legal mutator of balance fields. Both operations are
// single conditional statements against the store, never load-then-save.
type Ledger interface {
	// Debit subtracts amount only when the balance covers it and reports
	// false otherwise. An unknown user yields ErrNotFound.
	Debit(ctx context.Context, userID string, currency Currency, amount int64) (bool, error)
	// Credit adds amount; an unknown user yields ErrNotFound.
	Credit(ctx context.Context, userID string, currency Currency, amount int64) error
}
