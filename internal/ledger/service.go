// Package ledger owns account balances. Every balance change goes through
// Debit or Credit, which write exactly one LedgerTransaction in the same
// store transaction as the balance mutation.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/Khelendrameena/zugu-ludo-backend/internal/models"
	"github.com/Khelendrameena/zugu-ludo-backend/internal/store"
)

var (
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrAccountNotFound   = errors.New("account not found")
	ErrInvalidKind       = errors.New("invalid transaction kind")
	ErrLedgerMismatch    = errors.New("ledger does not reconcile with balance")
	ErrBalanceOverflow   = errors.New("balance would overflow")
)

// Entry describes one balance change. Amount is a magnitude.
type Entry struct {
	AccountID   uuid.UUID
	Kind        string
	Amount      int64
	RoomID      *uuid.UUID
	Status      string
	Description string
}

type Service interface {
	// Debit removes funds. It fails with ErrInsufficientFunds and no mutation
	// when the balance is lower than the amount.
	Debit(ctx context.Context, tx store.Tx, e Entry) (*models.LedgerTransaction, error)
	// Credit adds funds. Zero amounts are recorded.
	Credit(ctx context.Context, tx store.Tx, e Entry) (*models.LedgerTransaction, error)
	Balance(ctx context.Context, accountID uuid.UUID) (int64, error)
	// Reconcile replays the account's transactions and compares the sum with the balance.
	Reconcile(ctx context.Context, accountID uuid.UUID) error
}

type service struct {
	reader store.Reader
	now    func() time.Time
}

func NewService(reader store.Reader) Service {
	return &service{reader: reader, now: func() time.Time { return time.Now().UTC() }}
}

var _ Service = (*service)(nil)

func (s *service) Debit(ctx context.Context, tx store.Tx, e Entry) (*models.LedgerTransaction, error) {
	if !models.IsDebit(e.Kind) {
		return nil, fmt.Errorf("%w: %q is not a debit", ErrInvalidKind, e.Kind)
	}
	return s.apply(ctx, tx, e, -e.Amount)
}

func (s *service) Credit(ctx context.Context, tx store.Tx, e Entry) (*models.LedgerTransaction, error) {
	if !isCredit(e.Kind) {
		return nil, fmt.Errorf("%w: %q is not a credit", ErrInvalidKind, e.Kind)
	}
	return s.apply(ctx, tx, e, e.Amount)
}

func (s *service) apply(ctx context.Context, tx store.Tx, e Entry, delta int64) (*models.LedgerTransaction, error) {
	if e.Amount < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidAmount, e.Amount)
	}
	acc, err := tx.GetAccountForUpdate(ctx, e.AccountID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, e.AccountID)
		}
		return nil, err
	}
	if delta > 0 && acc.Balance > math.MaxInt64-delta {
		return nil, fmt.Errorf("%w: %s", ErrBalanceOverflow, e.AccountID)
	}
	if acc.Balance+delta < 0 {
		return nil, ErrInsufficientFunds
	}
	newBalance, err := tx.AdjustBalance(ctx, e.AccountID, delta)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNegativeBalance):
			return nil, ErrInsufficientFunds
		case errors.Is(err, store.ErrBalanceOverflow):
			return nil, fmt.Errorf("%w: %s", ErrBalanceOverflow, e.AccountID)
		}
		return nil, err
	}

	status := e.Status
	if status == "" {
		status = models.TxStatusCompleted
	}
	entry := &models.LedgerTransaction{
		ID:           uuid.New(),
		AccountID:    e.AccountID,
		Kind:         e.Kind,
		Amount:       e.Amount,
		BalanceAfter: newBalance,
		Status:       status,
		RoomID:       e.RoomID,
		Description:  e.Description,
		CreatedAt:    s.now(),
	}
	if err := tx.InsertTransaction(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *service) Balance(ctx context.Context, accountID uuid.UUID) (int64, error) {
	acc, err := s.reader.GetAccount(ctx, accountID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return 0, fmt.Errorf("%w: %s", ErrAccountNotFound, accountID)
		}
		return 0, err
	}
	return acc.Balance, nil
}

func (s *service) Reconcile(ctx context.Context, accountID uuid.UUID) error {
	acc, err := s.reader.GetAccount(ctx, accountID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrAccountNotFound, accountID)
		}
		return err
	}
	txs, err := s.reader.ListTransactions(ctx, accountID, 0)
	if err != nil {
		return err
	}
	var sum int64
	for _, t := range txs {
		sum += t.SignedAmount()
	}
	if sum != acc.Balance {
		return fmt.Errorf("%w: account %s balance %d, ledger sum %d", ErrLedgerMismatch, accountID, acc.Balance, sum)
	}
	if len(txs) > 0 && txs[0].BalanceAfter != acc.Balance {
		return fmt.Errorf("%w: account %s balance %d, last entry %d", ErrLedgerMismatch, accountID, acc.Balance, txs[0].BalanceAfter)
	}
	return nil
}

func isCredit(kind string) bool {
	switch kind {
	case models.TxKindDeposit, models.TxKindWinCredit, models.TxKindCommission, models.TxKindRefund:
		return true
	}
	return false
}
