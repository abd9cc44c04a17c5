package handlers

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Khelendrameena/zugu-ludo-backend/internal/models"
	"github.com/Khelendrameena/zugu-ludo-backend/internal/store"
)

// StatsHandler serves the public leaderboard and platform statistics.
type StatsHandler struct {
	Reader store.Reader
	Logger *slog.Logger
}

type leaderboardEntry struct {
	Rank        int             `json:"rank"`
	AccountID   uuid.UUID       `json:"account_id"`
	Username    string          `json:"username"`
	GamesPlayed int64           `json:"games_played"`
	GamesWon    int64           `json:"games_won"`
	WinRate     decimal.Decimal `json:"win_rate"`
	NetEarnings int64           `json:"net_earnings"`
}

func toLeaderboard(accounts []*models.Account) []leaderboardEntry {
	out := make([]leaderboardEntry, 0, len(accounts))
	for i, a := range accounts {
		out = append(out, leaderboardEntry{
			Rank:        i + 1,
			AccountID:   a.ID,
			Username:    a.Username,
			GamesPlayed: a.GamesPlayed,
			GamesWon:    a.GamesWon,
			WinRate:     a.WinRate(),
			NetEarnings: a.NetEarnings(),
		})
	}
	return out
}

// TopPlayers handles GET /leaderboard/players, ranked by games won.
func (h *StatsHandler) TopPlayers(w http.ResponseWriter, r *http.Request) {
	list, err := h.Reader.TopPlayers(r.Context(), limitParam(r, 10))
	if err != nil {
		writeError(w, r, h.Logger, "top players", err)
		return
	}
	writeJSON(w, http.StatusOK, toLeaderboard(list))
}

// TopEarners handles GET /leaderboard/earners, ranked by net earnings.
func (h *StatsHandler) TopEarners(w http.ResponseWriter, r *http.Request) {
	list, err := h.Reader.TopEarners(r.Context(), limitParam(r, 10))
	if err != nil {
		writeError(w, r, h.Logger, "top earners", err)
		return
	}
	writeJSON(w, http.StatusOK, toLeaderboard(list))
}

// PlatformStats handles GET /stats.
func (h *StatsHandler) PlatformStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Reader.PlatformStats(r.Context())
	if err != nil {
		writeError(w, r, h.Logger, "platform stats", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
