package handler

import (
	"net/http"

	"github.com/shopspring/decimal"
)

type transferRequest struct {
	FromCardID  int64           `json:"from_card_id"`
	ToCardID    int64           `json:"to_card_id"`
	Amount      decimal.Decimal `json:"amount"`
	CVV         string          `json:"cvv,omitempty"`
	Description string          `json:"description,omitempty"`
}

// Transfer executes an atomic money movement between two cards
func (h *Handler) Transfer(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
		return
	}
	var req transferRequest
	if !decodeBody(w, r, &req) {
		return
	}

	transfer, err := h.transfers.Transfer(r.Context(), ident, req.FromCardID, req.ToCardID, req.Amount, req.CVV, req.Description)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, transfer)
}

// TransferHistory lists the caller's transfers, or any user's for admins via ?user_id=
func (h *Handler) TransferHistory(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
		return
	}
	userID := ident.UserID
	if v := r.URL.Query().Get("user_id"); v != "" {
		parsed, err := parseID(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid user_id"})
			return
		}
		userID = parsed
	}

	transfers, err := h.transfers.HistoryByUser(r.Context(), ident, userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, transfers)
}

// CardTransferHistory lists all transfers touching one card
func (h *Handler) CardTransferHistory(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
		return
	}
	cardID, err := pathID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid card id"})
		return
	}

	transfers, err := h.transfers.HistoryByCard(r.Context(), ident, cardID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, transfers)
}

// CardStats returns aggregate transfer statistics for one card
func (h *Handler) CardStats(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
		return
	}
	cardID, err := pathID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid card id"})
		return
	}

	stats, err := h.transfers.CardStats(r.Context(), ident, cardID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// UserStats returns aggregate transfer statistics across a user's cards
func (h *Handler) UserStats(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
		return
	}
	userID, err := pathID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid user id"})
		return
	}

	stats, err := h.transfers.UserStats(r.Context(), ident, userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
