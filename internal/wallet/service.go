// Package wallet exposes player-facing balance operations on top of the ledger.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/Khelendrameena/zugu-ludo-backend/internal/ledger"
	"github.com/Khelendrameena/zugu-ludo-backend/internal/models"
	"github.com/Khelendrameena/zugu-ludo-backend/internal/store"
)

var (
	ErrAccountExists   = errors.New("account already exists")
	ErrInvalidUsername = errors.New("username must be 3 to 32 characters")
)

type Service interface {
	OpenAccount(ctx context.Context, id uuid.UUID, username string) (*models.Account, error)
	Account(ctx context.Context, id uuid.UUID) (*models.Account, error)
	Deposit(ctx context.Context, id uuid.UUID, amount int64) (*models.LedgerTransaction, error)
	// Withdraw debits immediately and records a pending transaction; paying
	// out to an external destination happens elsewhere.
	Withdraw(ctx context.Context, id uuid.UUID, amount int64) (*models.LedgerTransaction, error)
	Transactions(ctx context.Context, id uuid.UUID, limit int) ([]*models.LedgerTransaction, error)
}

type service struct {
	store  store.Store
	ledger ledger.Service
}

func NewService(st store.Store, l ledger.Service) Service {
	return &service{store: st, ledger: l}
}

var _ Service = (*service)(nil)

func (s *service) OpenAccount(ctx context.Context, id uuid.UUID, username string) (*models.Account, error) {
	username = strings.TrimSpace(username)
	if len(username) < 3 || len(username) > 32 {
		return nil, ErrInvalidUsername
	}
	acc := &models.Account{ID: id, Username: username}
	err := s.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		return tx.InsertAccount(ctx, acc)
	})
	if errors.Is(err, store.ErrDuplicate) {
		return nil, ErrAccountExists
	}
	if err != nil {
		return nil, err
	}
	return acc, nil
}

func (s *service) Account(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	acc, err := s.store.GetAccount(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ledger.ErrAccountNotFound, id)
	}
	return acc, err
}

func (s *service) Deposit(ctx context.Context, id uuid.UUID, amount int64) (*models.LedgerTransaction, error) {
	return s.move(ctx, ledger.Entry{
		AccountID:   id,
		Kind:        models.TxKindDeposit,
		Amount:      amount,
		Description: "wallet deposit",
	})
}

func (s *service) Withdraw(ctx context.Context, id uuid.UUID, amount int64) (*models.LedgerTransaction, error) {
	return s.move(ctx, ledger.Entry{
		AccountID:   id,
		Kind:        models.TxKindWithdraw,
		Amount:      amount,
		Status:      models.TxStatusPending,
		Description: "wallet withdrawal",
	})
}

func (s *service) move(ctx context.Context, e ledger.Entry) (*models.LedgerTransaction, error) {
	if e.Amount <= 0 {
		return nil, fmt.Errorf("%w: %d", ledger.ErrInvalidAmount, e.Amount)
	}
	var out *models.LedgerTransaction
	err := s.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		if models.IsDebit(e.Kind) {
			out, err = s.ledger.Debit(ctx, tx, e)
		} else {
			out, err = s.ledger.Credit(ctx, tx, e)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *service) Transactions(ctx context.Context, id uuid.UUID, limit int) ([]*models.LedgerTransaction, error) {
	if _, err := s.Account(ctx, id); err != nil {
		return nil, err
	}
	return s.store.ListTransactions(ctx, id, limit)
}
