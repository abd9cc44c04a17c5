package router

import (
	"net/http"

	"github.com/Khelendrameena/zugu-ludo-backend/internal/handlers"
	"github.com/Khelendrameena/zugu-ludo-backend/internal/middleware"
)

// New returns an http.Handler that serves the API under /api/v1.
// Leaderboards, stats and health are public; everything else needs a bearer token.
func New(tokens *middleware.Tokens, rooms *handlers.RoomHandler, wallet *handlers.WalletHandler, stats *handlers.StatsHandler) http.Handler {
	mux := http.NewServeMux()
	base := "/api/v1"

	auth := middleware.Authenticate(tokens)
	adjudicator := func(h http.HandlerFunc) http.Handler {
		return auth(middleware.RequireRole(middleware.RoleAdjudicator, middleware.RoleAdmin)(h))
	}
	authed := func(h http.HandlerFunc) http.Handler {
		return auth(h)
	}

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	mux.Handle("GET "+base+"/rooms", authed(rooms.ListRooms))
	mux.Handle("POST "+base+"/rooms", authed(rooms.CreateRoom))
	mux.Handle("GET "+base+"/rooms/available", authed(rooms.AvailableRooms))
	mux.Handle("GET "+base+"/rooms/{id}", authed(rooms.GetRoom))
	mux.Handle("POST "+base+"/rooms/{id}/join", authed(rooms.JoinRoom))
	mux.Handle("POST "+base+"/rooms/{id}/winner", adjudicator(rooms.DeclareWinner))
	mux.Handle("POST "+base+"/rooms/{id}/cancel", authed(rooms.CancelRoom))
	mux.Handle("GET "+base+"/rooms/{id}/moves", authed(rooms.ListMoves))
	mux.Handle("POST "+base+"/rooms/{id}/moves", authed(rooms.RecordMove))
	mux.Handle("GET "+base+"/me/games", authed(rooms.MyGames))

	mux.Handle("POST "+base+"/accounts", authed(wallet.OpenAccount))
	mux.Handle("GET "+base+"/wallet", authed(wallet.GetWallet))
	mux.Handle("POST "+base+"/wallet/deposit", authed(wallet.Deposit))
	mux.Handle("POST "+base+"/wallet/withdraw", authed(wallet.Withdraw))
	mux.Handle("GET "+base+"/wallet/transactions", authed(wallet.Transactions))

	mux.HandleFunc("GET "+base+"/leaderboard/players", stats.TopPlayers)
	mux.HandleFunc("GET "+base+"/leaderboard/earners", stats.TopEarners)
	mux.HandleFunc("GET "+base+"/stats", stats.PlatformStats)

	return mux
}
