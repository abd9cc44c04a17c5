package rooms

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/Khelendrameena/zugu-ludo-backend/internal/ledger"
	"github.com/Khelendrameena/zugu-ludo-backend/internal/models"
	"github.com/Khelendrameena/zugu-ludo-backend/internal/payout"
	"github.com/Khelendrameena/zugu-ludo-backend/internal/store"
)

// Settlement is the outcome of a successful winner declaration.
type Settlement struct {
	Room         *models.Room              `json:"room"`
	Split        payout.Split              `json:"split"`
	WinnerCredit *models.LedgerTransaction `json:"winner_credit"`
	Commission   *models.LedgerTransaction `json:"commission"`
}

// SettlementEngine pays out a room inside the caller's transaction.
type SettlementEngine struct {
	ledger ledger.Service
	now    func() time.Time
}

func NewSettlementEngine(l ledger.Service) *SettlementEngine {
	return &SettlementEngine{ledger: l, now: func() time.Time { return time.Now().UTC() }}
}

// Settle declares winnerID the winner of roomID. Every guard is checked
// against the locked room row, so a second call on the same room fails with
// ErrRoomNotInProgress and nothing is paid twice. Any error leaves tx to be
// rolled back by the caller.
func (e *SettlementEngine) Settle(ctx context.Context, tx store.Tx, roomID, winnerID uuid.UUID) (*Settlement, error) {
	room, err := tx.GetRoomForUpdate(ctx, roomID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}
	if err := CheckDeclare(room, winnerID); err != nil {
		return nil, err
	}

	split, err := payout.Compute(room.Stake, len(room.Participants), room.CommissionRate)
	if err != nil {
		return nil, err
	}

	// Lock every affected account in a fixed order to avoid deadlocks with
	// concurrent settlements sharing players.
	accounts, err := lockAccounts(ctx, tx, room, models.PlatformAccountID)
	if err != nil {
		return nil, err
	}

	winCredit, err := e.ledger.Credit(ctx, tx, ledger.Entry{
		AccountID:   winnerID,
		Kind:        models.TxKindWinCredit,
		Amount:      split.Payout,
		RoomID:      &room.ID,
		Description: fmt.Sprintf("won room %s", room.ID),
	})
	if err != nil {
		return nil, fmt.Errorf("credit winner: %w", err)
	}
	commission, err := e.ledger.Credit(ctx, tx, ledger.Entry{
		AccountID:   models.PlatformAccountID,
		Kind:        models.TxKindCommission,
		Amount:      split.Commission,
		RoomID:      &room.ID,
		Description: fmt.Sprintf("commission from room %s", room.ID),
	})
	if err != nil {
		return nil, fmt.Errorf("credit commission: %w", err)
	}

	if err := Complete(room, winnerID, split, e.now()); err != nil {
		return nil, err
	}

	for _, p := range room.Participants {
		acc := accounts[p.AccountID]
		recordResult(acc, p, room.Stake, split.Payout)
		if err := tx.UpdateAccountStats(ctx, acc); err != nil {
			return nil, fmt.Errorf("update stats for %s: %w", p.AccountID, err)
		}
	}

	if err := tx.UpdateRoom(ctx, room); err != nil {
		if errors.Is(err, store.ErrVersionConflict) {
			return nil, ErrConcurrentModification
		}
		return nil, err
	}

	return &Settlement{Room: room, Split: split, WinnerCredit: winCredit, Commission: commission}, nil
}

// recordResult updates the play counters. Amounts track net results: losers
// lose their stake, the winner gains payout minus their own stake.
func recordResult(acc *models.Account, p models.Participant, stake, payoutAmount int64) {
	acc.GamesPlayed++
	if !p.IsWinner {
		acc.AmountLost += stake
		return
	}
	acc.GamesWon++
	if net := payoutAmount - stake; net >= 0 {
		acc.AmountWon += net
	} else {
		acc.AmountLost += -net
	}
}

// lockAccounts locks every participant plus extra accounts in UUID order.
func lockAccounts(ctx context.Context, tx store.Tx, room *models.Room, extra ...uuid.UUID) (map[uuid.UUID]*models.Account, error) {
	ids := make([]uuid.UUID, 0, len(room.Participants)+len(extra))
	for _, p := range room.Participants {
		ids = append(ids, p.AccountID)
	}
	ids = append(ids, extra...)
	slices.SortFunc(ids, func(a, b uuid.UUID) int {
		switch {
		case a.String() < b.String():
			return -1
		case a.String() > b.String():
			return 1
		}
		return 0
	})
	ids = slices.Compact(ids)

	accounts := make(map[uuid.UUID]*models.Account, len(ids))
	for _, id := range ids {
		acc, err := tx.GetAccountForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, id)
			}
			return nil, err
		}
		accounts[id] = acc
	}
	return accounts, nil
}
