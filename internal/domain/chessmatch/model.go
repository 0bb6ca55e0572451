package chessmatch

import "strings"

// Winner is the oracle's verdict for a concluded match.
type Winner string

const (
	WinnerWhite Winner = "white"
	WinnerBlack Winner = "black"
	WinnerDraw  Winner = "draw"
	WinnerNone  Winner = "none"
)

type Outcome struct {
	MatchID   string
	Concluded bool
	Winner    Winner
	// Status is the provider's raw status, kept for logs.
	Status string
}

func (o Outcome) Decisive() bool {
	return o.Concluded && (o.Winner == WinnerWhite || o.Winner == WinnerBlack)
}

type Credentials struct {
	Username    string
	AccessToken string
}

func (c Credentials) Valid() bool {
	return strings.TrimSpace(c.AccessToken) != ""
}

type MatchRequest struct {
	ClockLimitSeconds     int
	ClockIncrementSeconds int
	Variant               string
	Rated                 bool
	White                 Credentials
	Black                 Credentials
}

type Match struct {
	ID   string
	Link string
}
