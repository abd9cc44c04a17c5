package rooms

import (
	"errors"

	"github.com/Khelendrameena/zugu-ludo-backend/internal/ledger"
	"github.com/Khelendrameena/zugu-ludo-backend/internal/payout"
)

var (
	ErrRoomNotFound           = errors.New("room not found")
	ErrRoomNotJoinable        = errors.New("room is not joinable")
	ErrAlreadyJoined          = errors.New("account already joined this room")
	ErrParticipantNotFound    = errors.New("account is not a participant of this room")
	ErrRoomNotInProgress      = errors.New("room is not in progress")
	ErrRoomClosed             = errors.New("room is already closed")
	ErrConcurrentModification = errors.New("room was modified concurrently")
	ErrInvalidCapacity        = errors.New("invalid room capacity")
	ErrCancelNotAllowed       = errors.New("only the creator may cancel a waiting room")

	// Re-exported so callers can match every room failure from one package.
	ErrInvalidAmount         = ledger.ErrInvalidAmount
	ErrInsufficientFunds     = ledger.ErrInsufficientFunds
	ErrAccountNotFound       = ledger.ErrAccountNotFound
	ErrBalanceOverflow       = ledger.ErrBalanceOverflow
	ErrInvalidCommissionRate = payout.ErrInvalidCommissionRate
)
