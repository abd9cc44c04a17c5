// Package payout splits a room's pool into platform commission and winner payout.
package payout

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidStake          = errors.New("stake must be > 0")
	ErrInvalidCount          = errors.New("participant count must be >= 0")
	ErrInvalidCommissionRate = errors.New("commission rate must be in [0, 1)")
	ErrOverflow              = errors.New("pool exceeds representable amount")
)

// Split is the result of Compute. Commission + Payout == TotalPool always holds.
type Split struct {
	TotalPool  int64 `json:"total_pool"`
	Commission int64 `json:"commission"`
	Payout     int64 `json:"payout"`
}

// RatePlaces is the number of decimal places a commission rate may carry.
// Rooms store the rate as NUMERIC(6,5).
const RatePlaces = 5

// ValidateRate checks that rate is a fraction in [0, 1) with at most
// RatePlaces decimal places.
func ValidateRate(rate decimal.Decimal) error {
	if rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("%w: %s", ErrInvalidCommissionRate, rate)
	}
	if !rate.Equal(rate.Truncate(RatePlaces)) {
		return fmt.Errorf("%w: %s has more than %d decimal places", ErrInvalidCommissionRate, rate, RatePlaces)
	}
	return nil
}

// Compute returns the pool split for count participants each paying stake.
// Commission is floor(pool * rate) so rounding always favours the players;
// the payout is the exact remainder.
func Compute(stake int64, count int, rate decimal.Decimal) (Split, error) {
	if stake <= 0 {
		return Split{}, ErrInvalidStake
	}
	if count < 0 {
		return Split{}, ErrInvalidCount
	}
	if err := ValidateRate(rate); err != nil {
		return Split{}, err
	}
	if count > 0 && stake > math.MaxInt64/int64(count) {
		return Split{}, ErrOverflow
	}

	total := stake * int64(count)
	commission := decimal.NewFromInt(total).Mul(rate).Floor().IntPart()
	return Split{
		TotalPool:  total,
		Commission: commission,
		Payout:     total - commission,
	}, nil
}
