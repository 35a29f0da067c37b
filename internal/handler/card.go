package handler

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/avdeenkov/cardbank/internal/service"
	"github.com/avdeenkov/cardbank/internal/statement"
)

type createCardRequest struct {
	UserID         int64           `json:"user_id"`
	ExpirationDate string          `json:"expiration_date"` // YYYY-MM-DD, optional
	InitialBalance decimal.Decimal `json:"initial_balance"`
}

// CreateCard handles card issuance, for the caller or (admin) for any user
func (h *Handler) CreateCard(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
		return
	}
	var req createCardRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.UserID == 0 {
		req.UserID = ident.UserID
	}

	params := service.CreateCardParams{
		UserID:         req.UserID,
		InitialBalance: req.InitialBalance,
	}
	if req.ExpirationDate != "" {
		expires, err := time.Parse("2006-01-02", req.ExpirationDate)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "expiration_date must be YYYY-MM-DD"})
			return
		}
		params.ExpirationDate = expires
	}

	card, err := h.cards.CreateCard(r.Context(), ident, params)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, card)
}

// GetCard returns one card with its masked number
func (h *Handler) GetCard(w http.ResponseWriter, r *http.Request) {
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

	card, err := h.cards.GetCard(r.Context(), ident, cardID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, card)
}

// ListCards lists the caller's cards, or any user's for admins via ?user_id=
func (h *Handler) ListCards(w http.ResponseWriter, r *http.Request) {
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

	cards, err := h.cards.ListCards(r.Context(), ident, userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cards)
}

// UpdateCard re-derives the card holder name from the owner's profile
func (h *Handler) UpdateCard(w http.ResponseWriter, r *http.Request) {
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

	card, err := h.cards.UpdateCard(r.Context(), ident, cardID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, card)
}

// DeleteCard removes a card and its dependent records (admin only)
func (h *Handler) DeleteCard(w http.ResponseWriter, r *http.Request) {
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

	if err := h.cards.DeleteCard(r.Context(), ident, cardID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

// BlockCard blocks an ACTIVE card (admin only)
func (h *Handler) BlockCard(w http.ResponseWriter, r *http.Request) {
	h.cardTransition(w, r, h.cards.BlockCard)
}

// ActivateCard re-activates a BLOCKED card (admin only)
func (h *Handler) ActivateCard(w http.ResponseWriter, r *http.Request) {
	h.cardTransition(w, r, h.cards.ActivateCard)
}

func (h *Handler) cardTransition(w http.ResponseWriter, r *http.Request, op cardTransitionFunc) {
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

	card, err := op(r.Context(), ident, cardID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, card)
}

// Statement renders a card's transfer history as an XML account statement
func (h *Handler) Statement(w http.ResponseWriter, r *http.Request) {
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

	card, err := h.cards.GetCard(r.Context(), ident, cardID)
	if err != nil {
		writeError(w, err)
		return
	}
	transfers, err := h.transfers.HistoryByCard(r.Context(), ident, cardID)
	if err != nil {
		writeError(w, err)
		return
	}

	out, err := statement.Build(card, transfers, time.Now())
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(http.StatusOK)
	w.Write(out)
}
