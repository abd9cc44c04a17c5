// Package broadcast hands room events to whoever fans them out to clients.
// Publishing happens after the originating transaction commits and is best
// effort: a failed publish never undoes the economic operation.
package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Event kinds.
const (
	EventParticipantJoined = "participant_joined"
	EventRoomStarted       = "room_started"
	EventRoomCompleted     = "room_completed"
	EventMoveRecorded      = "move_recorded"
	EventRoomCancelled     = "room_cancelled"
)

type Event struct {
	RoomID     uuid.UUID       `json:"room_id"`
	Kind       string          `json:"kind"`
	Payload    json.RawMessage `json:"payload"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// NewEvent marshals payload into an Event stamped with the current time.
func NewEvent(roomID uuid.UUID, kind string, payload any) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s payload: %w", kind, err)
	}
	return Event{RoomID: roomID, Kind: kind, Payload: raw, OccurredAt: time.Now().UTC()}, nil
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// LogPublisher writes events to the log. Used when no delivery queue is configured.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, ev Event) error {
	p.logger.InfoContext(ctx, "room event",
		slog.String("room_id", ev.RoomID.String()),
		slog.String("kind", ev.Kind),
		slog.String("payload", string(ev.Payload)),
	)
	return nil
}

// Fanout publishes to every publisher and joins their errors.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, ev Event) error {
	var errs []error
	for _, p := range f {
		if err := p.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
