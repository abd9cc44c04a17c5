package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/Khelendrameena/zugu-ludo-backend/internal/middleware"
	"github.com/Khelendrameena/zugu-ludo-backend/internal/moves"
	"github.com/Khelendrameena/zugu-ludo-backend/internal/payout"
	"github.com/Khelendrameena/zugu-ludo-backend/internal/rooms"
	"github.com/Khelendrameena/zugu-ludo-backend/internal/wallet"
)

const maxListLimit = 100

// statusFor maps domain errors to HTTP status codes. Unknown errors are 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, rooms.ErrInvalidAmount),
		errors.Is(err, rooms.ErrInvalidCapacity),
		errors.Is(err, rooms.ErrInvalidCommissionRate),
		errors.Is(err, rooms.ErrBalanceOverflow),
		errors.Is(err, payout.ErrOverflow),
		errors.Is(err, payout.ErrInvalidStake),
		errors.Is(err, wallet.ErrInvalidUsername):
		return http.StatusBadRequest
	case errors.Is(err, rooms.ErrInsufficientFunds):
		return http.StatusPaymentRequired
	case errors.Is(err, rooms.ErrCancelNotAllowed):
		return http.StatusForbidden
	case errors.Is(err, rooms.ErrRoomNotFound),
		errors.Is(err, rooms.ErrAccountNotFound):
		return http.StatusNotFound
	case errors.Is(err, rooms.ErrRoomNotJoinable),
		errors.Is(err, rooms.ErrAlreadyJoined),
		errors.Is(err, rooms.ErrRoomNotInProgress),
		errors.Is(err, rooms.ErrRoomClosed),
		errors.Is(err, rooms.ErrConcurrentModification),
		errors.Is(err, wallet.ErrAccountExists):
		return http.StatusConflict
	case errors.Is(err, rooms.ErrParticipantNotFound),
		errors.Is(err, moves.ErrInvalidMove):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// writeError reports err to the client; internal errors are logged and hidden.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, op string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), op, "error", err)
		writeJSON(w, status, map[string]string{"error": "internal error"})
		return
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return false
	}
	return true
}

// principal returns the caller or writes 401.
func principal(w http.ResponseWriter, r *http.Request) (*middleware.Principal, bool) {
	p := middleware.PrincipalFromCtx(r.Context())
	if p == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return nil, false
	}
	return p, true
}

// pathID parses the {id} path segment or writes 400.
func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, `{"error":"invalid id"}`, http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

// limitParam reads ?limit=, clamped to [1, maxListLimit].
func limitParam(r *http.Request, def int) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || n < 1 {
		return def
	}
	return min(n, maxListLimit)
}
