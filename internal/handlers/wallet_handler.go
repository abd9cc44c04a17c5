package handlers

import (
	"log/slog"
	"net/http"

	"github.com/Khelendrameena/zugu-ludo-backend/internal/wallet"
)

// WalletHandler serves /api/v1/accounts and /api/v1/wallet.
type WalletHandler struct {
	Wallet wallet.Service
	Logger *slog.Logger
}

type openAccountRequest struct {
	Username string `json:"username"`
}

// OpenAccount handles POST /accounts for the authenticated subject.
func (h *WalletHandler) OpenAccount(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req openAccountRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	acc, err := h.Wallet.OpenAccount(r.Context(), p.AccountID, req.Username)
	if err != nil {
		writeError(w, r, h.Logger, "open account", err)
		return
	}
	writeJSON(w, http.StatusCreated, acc)
}

// GetWallet handles GET /wallet.
func (h *WalletHandler) GetWallet(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	acc, err := h.Wallet.Account(r.Context(), p.AccountID)
	if err != nil {
		writeError(w, r, h.Logger, "get wallet", err)
		return
	}
	writeJSON(w, http.StatusOK, acc)
}

type amountRequest struct {
	Amount int64 `json:"amount"`
}

// Deposit handles POST /wallet/deposit.
func (h *WalletHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req amountRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	txn, err := h.Wallet.Deposit(r.Context(), p.AccountID, req.Amount)
	if err != nil {
		writeError(w, r, h.Logger, "deposit", err)
		return
	}
	writeJSON(w, http.StatusCreated, txn)
}

// Withdraw handles POST /wallet/withdraw. The debit is immediate; the
// transaction stays pending until paid out.
func (h *WalletHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req amountRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	txn, err := h.Wallet.Withdraw(r.Context(), p.AccountID, req.Amount)
	if err != nil {
		writeError(w, r, h.Logger, "withdraw", err)
		return
	}
	writeJSON(w, http.StatusAccepted, txn)
}

// Transactions handles GET /wallet/transactions?limit=.
func (h *WalletHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	list, err := h.Wallet.Transactions(r.Context(), p.AccountID, limitParam(r, 50))
	if err != nil {
		writeError(w, r, h.Logger, "list transactions", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}
