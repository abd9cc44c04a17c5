package models

import (
	"time"

	"github.com/google/uuid"
)

// Move is an adjudicated move recorded against an in-progress room.
type Move struct {
	ID           uuid.UUID `json:"id"`
	RoomID       uuid.UUID `json:"room_id"`
	AccountID    uuid.UUID `json:"account_id"`
	Seat         string    `json:"seat"`
	MoveNumber   int       `json:"move_number"`
	DiceValue    int       `json:"dice_value"`
	PieceMoved   int       `json:"piece_moved"`
	FromPosition int       `json:"from_position"`
	ToPosition   int       `json:"to_position"`
	CreatedAt    time.Time `json:"created_at"`
}
