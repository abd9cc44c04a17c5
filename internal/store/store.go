// Package store defines the persistence contract used by the ledger and the
// room engine. Every mutation runs inside InTx and commits all-or-nothing.
package store

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/Khelendrameena/zugu-ludo-backend/internal/models"
)

var (
	// ErrNotFound is returned when a row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrVersionConflict is returned by UpdateRoom when the stored version moved on.
	ErrVersionConflict = errors.New("version conflict")
	// ErrNegativeBalance is returned by AdjustBalance when the result would drop below zero.
	ErrNegativeBalance = errors.New("balance would become negative")
	// ErrBalanceOverflow is returned when a credit would exceed the int64 range.
	ErrBalanceOverflow = errors.New("balance would overflow")
	// ErrDuplicate is returned when inserting a row whose key already exists.
	ErrDuplicate = errors.New("duplicate key")
)

// Reader serves point-in-time reads outside of any transaction.
type Reader interface {
	GetAccount(ctx context.Context, id uuid.UUID) (*models.Account, error)
	GetRoom(ctx context.Context, id uuid.UUID) (*models.Room, error)
	// ListRooms returns rooms newest first.
	ListRooms(ctx context.Context, filter models.RoomFilter) ([]*models.Room, error)
	// ListTransactions returns an account's ledger newest first. limit <= 0 means all.
	ListTransactions(ctx context.Context, accountID uuid.UUID, limit int) ([]*models.LedgerTransaction, error)
	// ListMoves returns a room's moves in move order.
	ListMoves(ctx context.Context, roomID uuid.UUID) ([]*models.Move, error)
	TopPlayers(ctx context.Context, limit int) ([]*models.Account, error)
	TopEarners(ctx context.Context, limit int) ([]*models.Account, error)
	PlatformStats(ctx context.Context) (*models.PlatformStats, error)
}

// Tx is the set of operations available inside a transaction. Rows read
// with a ForUpdate method stay locked until the transaction ends.
type Tx interface {
	GetAccountForUpdate(ctx context.Context, id uuid.UUID) (*models.Account, error)
	InsertAccount(ctx context.Context, a *models.Account) error
	// AdjustBalance adds delta to the balance and returns the new balance.
	AdjustBalance(ctx context.Context, id uuid.UUID, delta int64) (int64, error)
	// UpdateAccountStats writes the game counters of a; the balance is untouched.
	UpdateAccountStats(ctx context.Context, a *models.Account) error
	InsertTransaction(ctx context.Context, t *models.LedgerTransaction) error

	GetRoomForUpdate(ctx context.Context, id uuid.UUID) (*models.Room, error)
	InsertRoom(ctx context.Context, r *models.Room) error
	// UpdateRoom persists r if the stored version equals r.Version, then
	// increments r.Version. New participants are inserted, existing ones updated.
	UpdateRoom(ctx context.Context, r *models.Room) error
	InsertMove(ctx context.Context, m *models.Move) error
}

// Store is a Reader that can also run transactions.
type Store interface {
	Reader
	// InTx runs fn inside a transaction. fn's error aborts everything fn wrote.
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}
