package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Room statuses. Completed and cancelled are terminal.
const (
	RoomStatusWaiting    = "waiting"
	RoomStatusInProgress = "in_progress"
	RoomStatusCompleted  = "completed"
	RoomStatusCancelled  = "cancelled"
)

// SeatPalette is the fixed seat order; participants take the first free colour.
var SeatPalette = []string{"red", "blue", "green", "yellow"}

type Room struct {
	ID               uuid.UUID       `json:"id"`
	CreatedBy        uuid.UUID       `json:"created_by"`
	Stake            int64           `json:"stake"`
	CommissionRate   decimal.Decimal `json:"commission_rate"`
	Capacity         int             `json:"capacity"`
	Status           string          `json:"status"`
	Participants     []Participant   `json:"participants"`
	TotalPool        int64           `json:"total_pool"`
	CommissionAmount int64           `json:"commission_amount"`
	PayoutAmount     int64           `json:"payout_amount"`
	WinnerID         *uuid.UUID      `json:"winner_id,omitempty"`
	MoveCount        int             `json:"move_count"`
	Version          int64           `json:"version"`
	CreatedAt        time.Time       `json:"created_at"`
	StartedAt        *time.Time      `json:"started_at,omitempty"`
	CompletedAt      *time.Time      `json:"completed_at,omitempty"`
	CancelledAt      *time.Time      `json:"cancelled_at,omitempty"`
}

type Participant struct {
	RoomID    uuid.UUID `json:"room_id"`
	AccountID uuid.UUID `json:"account_id"`
	Seat      string    `json:"seat"`
	Position  int       `json:"position"`
	StakePaid bool      `json:"stake_paid"`
	IsWinner  bool      `json:"is_winner"`
	JoinedAt  time.Time `json:"joined_at"`
}

// IsFull reports whether every seat is taken.
func (r *Room) IsFull() bool {
	return len(r.Participants) >= r.Capacity
}

// IsTerminal reports whether the room can no longer change.
func (r *Room) IsTerminal() bool {
	return r.Status == RoomStatusCompleted || r.Status == RoomStatusCancelled
}

// Participant returns the participant for accountID, if any.
func (r *Room) Participant(accountID uuid.UUID) (*Participant, bool) {
	for i := range r.Participants {
		if r.Participants[i].AccountID == accountID {
			return &r.Participants[i], true
		}
	}
	return nil, false
}

// Clone returns a deep copy so callers can mutate without touching shared state.
func (r *Room) Clone() *Room {
	c := *r
	c.Participants = append([]Participant(nil), r.Participants...)
	if r.WinnerID != nil {
		id := *r.WinnerID
		c.WinnerID = &id
	}
	c.StartedAt = cloneTime(r.StartedAt)
	c.CompletedAt = cloneTime(r.CompletedAt)
	c.CancelledAt = cloneTime(r.CancelledAt)
	return &c
}

// RoomFilter narrows room listings. Zero values match everything.
type RoomFilter struct {
	Status      string
	OnlyOpen    bool
	Participant *uuid.UUID
	Limit       int
}

// GameHistoryEntry is one room from a player's point of view.
type GameHistoryEntry struct {
	RoomID       uuid.UUID  `json:"room_id"`
	Stake        int64      `json:"stake"`
	Status       string     `json:"status"`
	Seat         string     `json:"seat"`
	Position     int        `json:"position"`
	IsWinner     bool       `json:"is_winner"`
	WinnerID     *uuid.UUID `json:"winner_id,omitempty"`
	PayoutAmount int64      `json:"payout_amount"`
	JoinedAt     time.Time  `json:"joined_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
