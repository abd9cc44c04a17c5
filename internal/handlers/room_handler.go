package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"slices"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Khelendrameena/zugu-ludo-backend/internal/middleware"
	"github.com/Khelendrameena/zugu-ludo-backend/internal/models"
	"github.com/Khelendrameena/zugu-ludo-backend/internal/moves"
	"github.com/Khelendrameena/zugu-ludo-backend/internal/rooms"
)

// RoomService is the subset of the room registry the handler needs.
type RoomService interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Room, error)
	List(ctx context.Context, filter models.RoomFilter) ([]*models.Room, error)
	Available(ctx context.Context) ([]*models.Room, error)
	History(ctx context.Context, accountID uuid.UUID) ([]models.GameHistoryEntry, error)
	Create(ctx context.Context, creator uuid.UUID, req rooms.CreateRequest) (*models.Room, error)
	Join(ctx context.Context, roomID, accountID uuid.UUID) (*models.Room, error)
	DeclareWinner(ctx context.Context, roomID, winnerID uuid.UUID) (*rooms.Settlement, error)
	Cancel(ctx context.Context, roomID uuid.UUID, req rooms.CancelRequest) (*models.Room, error)
	RecordMove(ctx context.Context, roomID, accountID uuid.UUID, in rooms.MoveInput) (*models.Move, error)
	Moves(ctx context.Context, roomID uuid.UUID) ([]*models.Move, error)
}

var _ RoomService = (*rooms.Registry)(nil)

// RoomHandler serves /api/v1/rooms and /api/v1/me/games.
type RoomHandler struct {
	Rooms     RoomService
	Validator *moves.Validator
	Logger    *slog.Logger
}

var roomStatuses = []string{
	models.RoomStatusWaiting, models.RoomStatusInProgress,
	models.RoomStatusCompleted, models.RoomStatusCancelled,
}

// ListRooms handles GET /rooms?status=&limit=.
func (h *RoomHandler) ListRooms(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if status != "" && !slices.Contains(roomStatuses, status) {
		http.Error(w, `{"error":"invalid status"}`, http.StatusBadRequest)
		return
	}
	list, err := h.Rooms.List(r.Context(), models.RoomFilter{Status: status, Limit: limitParam(r, 50)})
	if err != nil {
		writeError(w, r, h.Logger, "list rooms", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// AvailableRooms handles GET /rooms/available.
func (h *RoomHandler) AvailableRooms(w http.ResponseWriter, r *http.Request) {
	list, err := h.Rooms.Available(r.Context())
	if err != nil {
		writeError(w, r, h.Logger, "available rooms", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

type createRoomRequest struct {
	Stake          int64            `json:"stake"`
	CommissionRate *decimal.Decimal `json:"commission_rate"`
	Capacity       int              `json:"capacity"`
}

// CreateRoom handles POST /rooms. The caller is seated and staked. Only
// admins may override the platform commission rate.
func (h *RoomHandler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req createRoomRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.CommissionRate != nil && p.Role != middleware.RoleAdmin {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "commission_rate is set by admins only"})
		return
	}
	room, err := h.Rooms.Create(r.Context(), p.AccountID, rooms.CreateRequest{
		Stake:          req.Stake,
		CommissionRate: req.CommissionRate,
		Capacity:       req.Capacity,
	})
	if err != nil {
		writeError(w, r, h.Logger, "create room", err)
		return
	}
	writeJSON(w, http.StatusCreated, room)
}

// GetRoom handles GET /rooms/{id}.
func (h *RoomHandler) GetRoom(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	room, err := h.Rooms.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, h.Logger, "get room", err)
		return
	}
	writeJSON(w, http.StatusOK, room)
}

// JoinRoom handles POST /rooms/{id}/join.
func (h *RoomHandler) JoinRoom(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	room, err := h.Rooms.Join(r.Context(), id, p.AccountID)
	if err != nil {
		writeError(w, r, h.Logger, "join room", err)
		return
	}
	writeJSON(w, http.StatusOK, room)
}

type declareWinnerRequest struct {
	WinnerID uuid.UUID `json:"winner_id"`
}

// DeclareWinner handles POST /rooms/{id}/winner. Adjudicators only (enforced by the router).
func (h *RoomHandler) DeclareWinner(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req declareWinnerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.WinnerID == uuid.Nil {
		http.Error(w, `{"error":"winner_id is required"}`, http.StatusBadRequest)
		return
	}
	result, err := h.Rooms.DeclareWinner(r.Context(), id, req.WinnerID)
	if err != nil {
		writeError(w, r, h.Logger, "declare winner", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type cancelRoomRequest struct {
	Reason string `json:"reason"`
}

// CancelRoom handles POST /rooms/{id}/cancel. Adjudicators and admins may
// cancel any open room; a player only their own room while it is waiting.
func (h *RoomHandler) CancelRoom(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	// The body is optional.
	var req cancelRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}

	room, err := h.Rooms.Cancel(r.Context(), id, rooms.CancelRequest{
		By:       p.AccountID,
		Override: p.Role == middleware.RoleAdjudicator || p.Role == middleware.RoleAdmin,
		Reason:   req.Reason,
	})
	if err != nil {
		writeError(w, r, h.Logger, "cancel room", err)
		return
	}
	writeJSON(w, http.StatusOK, room)
}

type recordMoveRequest struct {
	AccountID *uuid.UUID      `json:"account_id"`
	Move      json.RawMessage `json:"move"`
}

// RecordMove handles POST /rooms/{id}/moves. Players report their own moves;
// adjudicators name the participant in account_id.
func (h *RoomHandler) RecordMove(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req recordMoveRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	mover := p.AccountID
	if req.AccountID != nil && *req.AccountID != p.AccountID {
		if p.Role != middleware.RoleAdjudicator && p.Role != middleware.RoleAdmin {
			writeJSON(w, http.StatusForbidden, map[string]string{"error": "players may only report their own moves"})
			return
		}
		mover = *req.AccountID
	}

	mv, err := h.Validator.Parse(req.Move)
	if err != nil {
		writeError(w, r, h.Logger, "record move", err)
		return
	}
	move, err := h.Rooms.RecordMove(r.Context(), id, mover, rooms.MoveInput{
		DiceValue:    mv.DiceValue,
		PieceMoved:   mv.PieceMoved,
		FromPosition: mv.FromPosition,
		ToPosition:   mv.ToPosition,
	})
	if err != nil {
		writeError(w, r, h.Logger, "record move", err)
		return
	}
	writeJSON(w, http.StatusCreated, move)
}

// ListMoves handles GET /rooms/{id}/moves.
func (h *RoomHandler) ListMoves(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	list, err := h.Rooms.Moves(r.Context(), id)
	if err != nil {
		writeError(w, r, h.Logger, "list moves", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// MyGames handles GET /me/games.
func (h *RoomHandler) MyGames(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	games, err := h.Rooms.History(r.Context(), p.AccountID)
	if err != nil {
		writeError(w, r, h.Logger, "game history", err)
		return
	}
	writeJSON(w, http.StatusOK, games)
}
