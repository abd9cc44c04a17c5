package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PlatformAccountID is the system account that collects room commission.
var PlatformAccountID = uuid.MustParse("00000000-0000-0000-0000-000000000001")

type Account struct {
	ID              uuid.UUID `json:"id"`
	Username        string    `json:"username"`
	Balance         int64     `json:"balance"`
	GamesPlayed     int64     `json:"games_played"`
	GamesWon        int64     `json:"games_won"`
	AmountWon       int64     `json:"amount_won"`
	AmountLost      int64     `json:"amount_lost"`
	IsSystemAccount bool      `json:"is_system_account"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// NetEarnings is AmountWon minus AmountLost.
func (a *Account) NetEarnings() int64 {
	return a.AmountWon - a.AmountLost
}

// WinRate returns the percentage of played games won, rounded to two places.
func (a *Account) WinRate() decimal.Decimal {
	if a.GamesPlayed == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(a.GamesWon).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(a.GamesPlayed)).
		Round(2)
}
