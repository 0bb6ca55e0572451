package user

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrNotFound = errors.New("user not found")

// Currency selects one of the two independent balances a user holds.
type Currency string

const (
	CurrencyToken       Currency = "token"
	CurrencySweepstakes Currency = "sweepstakes"
)

func Currencies() []Currency {
	return []Currency{CurrencyToken, CurrencySweepstakes}
}

func ParseCurrency(raw string) (Currency, error) {
	c := Currency(strings.ToLower(strings.TrimSpace(raw)))
	if !c.Valid() {
		return "", fmt.Errorf("unknown currency %q", raw)
	}
	return c, nil
}

func (c Currency) Valid() bool {
	switch c {
	case CurrencyToken, CurrencySweepstakes:
		return true
	default:
		return false
	}
}

type Balances struct {
	Token       int64
	Sweepstakes int64
}

func (b Balances) Of(c Currency) int64 {
	switch c {
	case CurrencyToken:
		return b.Token
	case CurrencySweepstakes:
		return b.Sweepstakes
	default:
		return 0
	}
}

// User is owned by the account system; this service only reads it and
// mutates its balances through Ledger.
type User struct {
	ID               string
	Username         string
	ChessUsername    string
	ChessAccessToken string
	Balances         Balances
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (u User) HasChessLink() bool {
	return strings.TrimSpace(u.ChessAccessToken) != ""
}

// Principal is the authenticated caller resolved from a bearer token.
type Principal struct {
	UserID string
	Email  string
}
