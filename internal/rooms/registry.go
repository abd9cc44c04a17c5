// Package rooms runs the wagering room lifecycle: creation, capacity-gated
// joining, winner settlement, cancellation and move recording.
package rooms

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Khelendrameena/zugu-ludo-backend/internal/broadcast"
	"github.com/Khelendrameena/zugu-ludo-backend/internal/ledger"
	"github.com/Khelendrameena/zugu-ludo-backend/internal/models"
	"github.com/Khelendrameena/zugu-ludo-backend/internal/store"
)

// Defaults fill in terms a creator leaves out. MinStake and MaxStake bound
// the stake of new rooms; zero means unbounded.
type Defaults struct {
	CommissionRate decimal.Decimal
	Capacity       int
	MinStake       int64
	MaxStake       int64
}

func (d Defaults) checkStake(stake int64) error {
	if d.MinStake > 0 && stake < d.MinStake {
		return fmt.Errorf("%w: stake %d below minimum %d", ErrInvalidAmount, stake, d.MinStake)
	}
	if d.MaxStake > 0 && stake > d.MaxStake {
		return fmt.Errorf("%w: stake %d above maximum %d", ErrInvalidAmount, stake, d.MaxStake)
	}
	return nil
}

// CreateRequest asks for a new room. Nil rate and zero capacity use Defaults.
type CreateRequest struct {
	Stake          int64
	CommissionRate *decimal.Decimal
	Capacity       int
}

// CancelRequest names who is cancelling. Without Override only the creator
// may cancel, and only while the room is waiting.
type CancelRequest struct {
	By       uuid.UUID
	Override bool
	Reason   string
}

// MoveInput is an adjudicated move reported for a participant.
type MoveInput struct {
	DiceValue    int
	PieceMoved   int
	FromPosition int
	ToPosition   int
}

// Registry is the entry point for every room operation. Mutations on one
// room are serialized; different rooms proceed in parallel.
type Registry struct {
	store     store.Store
	ledger    ledger.Service
	engine    *SettlementEngine
	publisher broadcast.Publisher
	defaults  Defaults
	locks     *roomLocks
	logger    *slog.Logger
	now       func() time.Time
}

func NewRegistry(st store.Store, l ledger.Service, pub broadcast.Publisher, defaults Defaults, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	if pub == nil {
		pub = broadcast.NewLogPublisher(logger)
	}
	return &Registry{
		store:     st,
		ledger:    l,
		engine:    NewSettlementEngine(l),
		publisher: pub,
		defaults:  defaults,
		locks:     newRoomLocks(),
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Get returns the room or ErrRoomNotFound.
func (g *Registry) Get(ctx context.Context, id uuid.UUID) (*models.Room, error) {
	room, err := g.store.GetRoom(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}
	return room, nil
}

func (g *Registry) List(ctx context.Context, filter models.RoomFilter) ([]*models.Room, error) {
	return g.store.ListRooms(ctx, filter)
}

// Available lists waiting rooms with a free seat, newest first.
func (g *Registry) Available(ctx context.Context) ([]*models.Room, error) {
	return g.store.ListRooms(ctx, models.RoomFilter{OnlyOpen: true})
}

// History lists the rooms accountID took part in, newest first.
func (g *Registry) History(ctx context.Context, accountID uuid.UUID) ([]models.GameHistoryEntry, error) {
	rooms, err := g.store.ListRooms(ctx, models.RoomFilter{Participant: &accountID})
	if err != nil {
		return nil, err
	}
	entries := make([]models.GameHistoryEntry, 0, len(rooms))
	for _, r := range rooms {
		p, _ := r.Participant(accountID)
		entries = append(entries, models.GameHistoryEntry{
			RoomID:       r.ID,
			Stake:        r.Stake,
			Status:       r.Status,
			Seat:         p.Seat,
			Position:     p.Position,
			IsWinner:     p.IsWinner,
			WinnerID:     r.WinnerID,
			PayoutAmount: r.PayoutAmount,
			JoinedAt:     p.JoinedAt,
			CompletedAt:  r.CompletedAt,
		})
	}
	return entries, nil
}

// Create opens a room and seats the creator in the same transaction, so a
// creator who cannot cover the stake leaves no room behind.
func (g *Registry) Create(ctx context.Context, creator uuid.UUID, req CreateRequest) (*models.Room, error) {
	terms := Terms{Stake: req.Stake, CommissionRate: g.defaults.CommissionRate, Capacity: g.defaults.Capacity}
	if req.CommissionRate != nil {
		terms.CommissionRate = *req.CommissionRate
	}
	if req.Capacity != 0 {
		terms.Capacity = req.Capacity
	}
	if err := ValidateTerms(terms); err != nil {
		return nil, err
	}
	if err := g.defaults.checkStake(terms.Stake); err != nil {
		return nil, err
	}

	now := g.now()
	room := NewRoom(uuid.New(), creator, terms, now)
	var seat models.Participant
	err := g.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if _, err := tx.GetAccountForUpdate(ctx, creator); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("%w: %s", ErrAccountNotFound, creator)
			}
			return err
		}
		var err error
		seat, _, err = Admit(room, creator, now)
		if err != nil {
			return err
		}
		if err := tx.InsertRoom(ctx, room); err != nil {
			return err
		}
		return g.holdStake(ctx, tx, room, creator)
	})
	if err != nil {
		return nil, err
	}

	g.logger.InfoContext(ctx, "room created", "room_id", room.ID, "creator", creator, "stake", room.Stake, "capacity", room.Capacity)
	g.publish(ctx, room.ID, broadcast.EventParticipantJoined, joinedPayload(room, seat))
	return room, nil
}

// Join seats accountID and debits the stake. Filling the last seat starts
// the room in the same transaction.
func (g *Registry) Join(ctx context.Context, roomID, accountID uuid.UUID) (*models.Room, error) {
	release, err := g.locks.acquire(ctx, roomID)
	if err != nil {
		return nil, err
	}
	defer release()

	var (
		room    *models.Room
		seat    models.Participant
		started bool
	)
	err = g.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		room, err = g.roomForUpdate(ctx, tx, roomID)
		if err != nil {
			return err
		}
		seat, started, err = Admit(room, accountID, g.now())
		if err != nil {
			return err
		}
		if err := g.holdStake(ctx, tx, room, accountID); err != nil {
			return err
		}
		return g.updateRoom(ctx, tx, room)
	})
	if err != nil {
		return nil, err
	}

	g.logger.InfoContext(ctx, "participant joined", "room_id", roomID, "account_id", accountID, "seat", seat.Seat, "started", started)
	g.publish(ctx, roomID, broadcast.EventParticipantJoined, joinedPayload(room, seat))
	if started {
		g.publish(ctx, roomID, broadcast.EventRoomStarted, map[string]any{
			"participants": room.Participants,
			"total_pool":   room.TotalPool,
			"started_at":   room.StartedAt,
		})
	}
	return room, nil
}

// DeclareWinner settles the room exactly once.
func (g *Registry) DeclareWinner(ctx context.Context, roomID, winnerID uuid.UUID) (*Settlement, error) {
	release, err := g.locks.acquire(ctx, roomID)
	if err != nil {
		return nil, err
	}
	defer release()

	// Once the lock is held, settlement runs to completion or fails as a
	// whole; a caller going away does not abort it.
	ctx = context.WithoutCancel(ctx)

	var result *Settlement
	err = g.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		result, err = g.engine.Settle(ctx, tx, roomID, winnerID)
		return err
	})
	if err != nil {
		return nil, err
	}

	g.logger.InfoContext(ctx, "room settled", "room_id", roomID, "winner", winnerID,
		"total_pool", result.Split.TotalPool, "commission", result.Split.Commission, "payout", result.Split.Payout)
	g.publish(ctx, roomID, broadcast.EventRoomCompleted, map[string]any{
		"winner_id":  winnerID,
		"payout":     result.Split.Payout,
		"commission": result.Split.Commission,
		"total_pool": result.Split.TotalPool,
	})
	return result, nil
}

// Cancel closes a waiting or in-progress room and refunds every paid stake.
func (g *Registry) Cancel(ctx context.Context, roomID uuid.UUID, req CancelRequest) (*models.Room, error) {
	release, err := g.locks.acquire(ctx, roomID)
	if err != nil {
		return nil, err
	}
	defer release()

	var (
		room     *models.Room
		refunded int64
	)
	err = g.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		room, err = g.roomForUpdate(ctx, tx, roomID)
		if err != nil {
			return err
		}
		if err := CheckCancel(room); err != nil {
			return err
		}
		if !req.Override && (room.CreatedBy != req.By || room.Status != models.RoomStatusWaiting) {
			return fmt.Errorf("%w: room %s", ErrCancelNotAllowed, room.ID)
		}
		if _, err := lockAccounts(ctx, tx, room); err != nil {
			return err
		}
		for _, p := range room.Participants {
			if !p.StakePaid {
				continue
			}
			_, err := g.ledger.Credit(ctx, tx, ledger.Entry{
				AccountID:   p.AccountID,
				Kind:        models.TxKindRefund,
				Amount:      room.Stake,
				RoomID:      &room.ID,
				Description: fmt.Sprintf("refund for cancelled room %s", room.ID),
			})
			if err != nil {
				return fmt.Errorf("refund %s: %w", p.AccountID, err)
			}
			refunded += room.Stake
		}
		if err := Cancel(room, g.now()); err != nil {
			return err
		}
		return g.updateRoom(ctx, tx, room)
	})
	if err != nil {
		return nil, err
	}

	g.logger.InfoContext(ctx, "room cancelled", "room_id", roomID, "by", req.By, "refunded", refunded, "reason", req.Reason)
	g.publish(ctx, roomID, broadcast.EventRoomCancelled, map[string]any{
		"refunded": refunded,
		"reason":   req.Reason,
	})
	return room, nil
}

// RecordMove appends an adjudicated move by a participant of an in-progress room.
func (g *Registry) RecordMove(ctx context.Context, roomID, accountID uuid.UUID, in MoveInput) (*models.Move, error) {
	release, err := g.locks.acquire(ctx, roomID)
	if err != nil {
		return nil, err
	}
	defer release()

	var move *models.Move
	err = g.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		room, err := g.roomForUpdate(ctx, tx, roomID)
		if err != nil {
			return err
		}
		if err := CheckMove(room, accountID); err != nil {
			return err
		}
		p, _ := room.Participant(accountID)
		room.MoveCount++
		move = &models.Move{
			ID:           uuid.New(),
			RoomID:       roomID,
			AccountID:    accountID,
			Seat:         p.Seat,
			MoveNumber:   room.MoveCount,
			DiceValue:    in.DiceValue,
			PieceMoved:   in.PieceMoved,
			FromPosition: in.FromPosition,
			ToPosition:   in.ToPosition,
			CreatedAt:    g.now(),
		}
		if err := tx.InsertMove(ctx, move); err != nil {
			return err
		}
		return g.updateRoom(ctx, tx, room)
	})
	if err != nil {
		return nil, err
	}

	g.publish(ctx, roomID, broadcast.EventMoveRecorded, move)
	return move, nil
}

// Moves lists a room's moves in order.
func (g *Registry) Moves(ctx context.Context, roomID uuid.UUID) ([]*models.Move, error) {
	if _, err := g.Get(ctx, roomID); err != nil {
		return nil, err
	}
	return g.store.ListMoves(ctx, roomID)
}

func (g *Registry) holdStake(ctx context.Context, tx store.Tx, room *models.Room, accountID uuid.UUID) error {
	_, err := g.ledger.Debit(ctx, tx, ledger.Entry{
		AccountID:   accountID,
		Kind:        models.TxKindStakeHold,
		Amount:      room.Stake,
		RoomID:      &room.ID,
		Description: fmt.Sprintf("stake for room %s", room.ID),
	})
	return err
}

func (g *Registry) roomForUpdate(ctx context.Context, tx store.Tx, id uuid.UUID) (*models.Room, error) {
	room, err := tx.GetRoomForUpdate(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrRoomNotFound
	}
	return room, err
}

func (g *Registry) updateRoom(ctx context.Context, tx store.Tx, room *models.Room) error {
	err := tx.UpdateRoom(ctx, room)
	if errors.Is(err, store.ErrVersionConflict) {
		return ErrConcurrentModification
	}
	return err
}

// publish runs after commit. Failures are logged and never returned.
func (g *Registry) publish(ctx context.Context, roomID uuid.UUID, kind string, payload any) {
	ctx = context.WithoutCancel(ctx)
	ev, err := broadcast.NewEvent(roomID, kind, payload)
	if err == nil {
		err = g.publisher.Publish(ctx, ev)
	}
	if err != nil {
		g.logger.ErrorContext(ctx, "publish room event", "room_id", roomID, "kind", kind, "error", err)
	}
}

func joinedPayload(room *models.Room, p models.Participant) map[string]any {
	return map[string]any{
		"account_id":   p.AccountID,
		"seat":         p.Seat,
		"position":     p.Position,
		"participants": len(room.Participants),
		"capacity":     room.Capacity,
		"total_pool":   room.TotalPool,
	}
}
