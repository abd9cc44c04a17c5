package models

import (
	"time"

	"github.com/google/uuid"
)

// Ledger transaction kinds.
const (
	TxKindDeposit    = "deposit"
	TxKindWithdraw   = "withdraw"
	TxKindStakeHold  = "stake_hold"
	TxKindWinCredit  = "win_credit"
	TxKindCommission = "commission"
	TxKindRefund     = "refund"
)

// Ledger transaction statuses. Withdrawals stay pending until paid out externally.
const (
	TxStatusCompleted = "completed"
	TxStatusPending   = "pending"
)

// LedgerTransaction is an immutable record of one balance change.
// Amount is always a magnitude; the direction follows from Kind.
type LedgerTransaction struct {
	ID           uuid.UUID  `json:"id"`
	AccountID    uuid.UUID  `json:"account_id"`
	Kind         string     `json:"kind"`
	Amount       int64      `json:"amount"`
	BalanceAfter int64      `json:"balance_after"`
	Status       string     `json:"status"`
	RoomID       *uuid.UUID `json:"room_id,omitempty"`
	Description  string     `json:"description,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// IsDebit reports whether the kind removes funds from the account.
func IsDebit(kind string) bool {
	return kind == TxKindWithdraw || kind == TxKindStakeHold
}

// SignedAmount returns Amount with the sign implied by Kind.
func (t *LedgerTransaction) SignedAmount() int64 {
	if IsDebit(t.Kind) {
		return -t.Amount
	}
	return t.Amount
}
