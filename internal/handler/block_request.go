package handler

import (
	"net/http"

	"github.com/avdeenkov/cardbank/internal/models"
)

type createBlockRequestBody struct {
	Reason string `json:"reason"`
}

// CreateBlockRequest files a request to block one of the caller's cards
func (h *Handler) CreateBlockRequest(w http.ResponseWriter, r *http.Request) {
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
	var body createBlockRequestBody
	if !decodeBody(w, r, &body) {
		return
	}

	req, err := h.blocks.CreateBlockRequest(r.Context(), ident, cardID, body.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

type decideBlockRequestBody struct {
	AdminComment string `json:"admin_comment"`
}

// ApproveBlockRequest approves a pending block request and blocks the card
func (h *Handler) ApproveBlockRequest(w http.ResponseWriter, r *http.Request) {
	h.decideBlockRequest(w, r, true)
}

// RejectBlockRequest rejects a pending block request
func (h *Handler) RejectBlockRequest(w http.ResponseWriter, r *http.Request) {
	h.decideBlockRequest(w, r, false)
}

func (h *Handler) decideBlockRequest(w http.ResponseWriter, r *http.Request, approve bool) {
	ident, ok := identity(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
		return
	}
	requestID, err := pathID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request id"})
		return
	}
	var body decideBlockRequestBody
	if !decodeBody(w, r, &body) {
		return
	}

	var req *models.BlockRequest
	if approve {
		req, err = h.blocks.ApproveBlockRequest(r.Context(), ident, requestID, body.AdminComment)
	} else {
		req, err = h.blocks.RejectBlockRequest(r.Context(), ident, requestID, body.AdminComment)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

// ListBlockRequests lists block requests, optionally filtered by ?status=
func (h *Handler) ListBlockRequests(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
		return
	}

	var status *models.BlockRequestStatus
	if v := r.URL.Query().Get("status"); v != "" {
		s := models.BlockRequestStatus(v)
		switch s {
		case models.BlockRequestPending, models.BlockRequestApproved, models.BlockRequestRejected:
			status = &s
		default:
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid status filter"})
			return
		}
	}

	requests, err := h.blocks.ListBlockRequests(r.Context(), ident, status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, requests)
}

// PendingBlockRequestCount returns the number of pending requests
func (h *Handler) PendingBlockRequestCount(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
		return
	}

	count, err := h.blocks.PendingCount(r.Context(), ident)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"pending": count})
}

// CardsWithPendingRequests lists the cards that have a pending block request
func (h *Handler) CardsWithPendingRequests(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
		return
	}

	cards, err := h.blocks.CardsWithPendingRequests(r.Context(), ident)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cards)
}
