package rooms

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Khelendrameena/zugu-ludo-backend/internal/models"
	"github.com/Khelendrameena/zugu-ludo-backend/internal/payout"
)

// The functions in this file are the room state machine. They only inspect
// and mutate the room value they are given; persistence and locking are the
// caller's job. Guards never mutate.

// Terms fixes the economics of a room at creation.
type Terms struct {
	Stake          int64
	CommissionRate decimal.Decimal
	Capacity       int
}

// ValidateTerms checks stake > 0, 0 <= rate < 1 and 2 <= capacity <= palette size.
func ValidateTerms(t Terms) error {
	if t.Stake <= 0 {
		return fmt.Errorf("%w: stake %d", ErrInvalidAmount, t.Stake)
	}
	if err := payout.ValidateRate(t.CommissionRate); err != nil {
		return err
	}
	if t.Capacity < 2 || t.Capacity > len(models.SeatPalette) {
		return fmt.Errorf("%w: %d (want 2..%d)", ErrInvalidCapacity, t.Capacity, len(models.SeatPalette))
	}
	// A full room must still have a representable pool.
	if _, err := payout.Compute(t.Stake, t.Capacity, t.CommissionRate); err != nil {
		return fmt.Errorf("%w: stake %d: %v", ErrInvalidAmount, t.Stake, err)
	}
	return nil
}

// NewRoom returns an empty waiting room. The creator still has to be admitted.
func NewRoom(id, creator uuid.UUID, t Terms, now time.Time) *models.Room {
	return &models.Room{
		ID:             id,
		CreatedBy:      creator,
		Stake:          t.Stake,
		CommissionRate: t.CommissionRate,
		Capacity:       t.Capacity,
		Status:         models.RoomStatusWaiting,
		Participants:   []models.Participant{},
		CreatedAt:      now,
	}
}

// CheckJoin reports why accountID may not join r, or nil.
func CheckJoin(r *models.Room, accountID uuid.UUID) error {
	if accountID == models.PlatformAccountID {
		return fmt.Errorf("%w: system account cannot play", ErrRoomNotJoinable)
	}
	if r.Status != models.RoomStatusWaiting {
		return fmt.Errorf("%w: status %s", ErrRoomNotJoinable, r.Status)
	}
	if _, ok := r.Participant(accountID); ok {
		return ErrAlreadyJoined
	}
	if r.IsFull() {
		return fmt.Errorf("%w: room is full", ErrRoomNotJoinable)
	}
	return nil
}

// Admit seats accountID, recomputes the pool and starts the room when it
// fills. started reports whether this admission flipped it to in progress.
func Admit(r *models.Room, accountID uuid.UUID, now time.Time) (p models.Participant, started bool, err error) {
	if err := CheckJoin(r, accountID); err != nil {
		return models.Participant{}, false, err
	}
	seat, ok := nextSeat(r)
	if !ok {
		return models.Participant{}, false, fmt.Errorf("%w: no free seat", ErrRoomNotJoinable)
	}
	p = models.Participant{
		RoomID:    r.ID,
		AccountID: accountID,
		Seat:      seat,
		Position:  len(r.Participants) + 1,
		StakePaid: true,
		JoinedAt:  now,
	}
	r.Participants = append(r.Participants, p)
	if err := RecomputePool(r); err != nil {
		return models.Participant{}, false, err
	}
	if r.IsFull() {
		r.Status = models.RoomStatusInProgress
		r.StartedAt = &now
		started = true
	}
	return p, started, nil
}

// RecomputePool derives the pool fields from stake, participants and rate.
func RecomputePool(r *models.Room) error {
	split, err := payout.Compute(r.Stake, len(r.Participants), r.CommissionRate)
	if err != nil {
		return err
	}
	applySplit(r, split)
	return nil
}

// CheckDeclare reports why winnerID may not be declared winner of r, or nil.
func CheckDeclare(r *models.Room, winnerID uuid.UUID) error {
	if r.Status != models.RoomStatusInProgress {
		return fmt.Errorf("%w: status %s", ErrRoomNotInProgress, r.Status)
	}
	if _, ok := r.Participant(winnerID); !ok {
		return ErrParticipantNotFound
	}
	if len(r.Participants) != r.Capacity {
		return fmt.Errorf("%w: in progress with %d of %d seats", ErrConcurrentModification, len(r.Participants), r.Capacity)
	}
	return nil
}

// Complete closes r with winnerID and the given split.
func Complete(r *models.Room, winnerID uuid.UUID, split payout.Split, now time.Time) error {
	if err := CheckDeclare(r, winnerID); err != nil {
		return err
	}
	p, _ := r.Participant(winnerID)
	p.IsWinner = true
	applySplit(r, split)
	r.WinnerID = &winnerID
	r.Status = models.RoomStatusCompleted
	r.CompletedAt = &now
	return nil
}

// CheckCancel reports whether r can still be cancelled.
func CheckCancel(r *models.Room) error {
	if r.IsTerminal() {
		return fmt.Errorf("%w: status %s", ErrRoomClosed, r.Status)
	}
	return nil
}

// Cancel moves r to cancelled.
func Cancel(r *models.Room, now time.Time) error {
	if err := CheckCancel(r); err != nil {
		return err
	}
	r.Status = models.RoomStatusCancelled
	r.CancelledAt = &now
	return nil
}

// CheckMove reports whether accountID may record a move in r.
func CheckMove(r *models.Room, accountID uuid.UUID) error {
	if r.Status != models.RoomStatusInProgress {
		return fmt.Errorf("%w: status %s", ErrRoomNotInProgress, r.Status)
	}
	if _, ok := r.Participant(accountID); !ok {
		return ErrParticipantNotFound
	}
	return nil
}

func nextSeat(r *models.Room) (string, bool) {
	for _, seat := range models.SeatPalette[:r.Capacity] {
		taken := slices.ContainsFunc(r.Participants, func(p models.Participant) bool { return p.Seat == seat })
		if !taken {
			return seat, true
		}
	}
	return "", false
}

func applySplit(r *models.Room, s payout.Split) {
	r.TotalPool = s.TotalPool
	r.CommissionAmount = s.Commission
	r.PayoutAmount = s.Payout
}
