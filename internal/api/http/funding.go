package http

import (
	"net/http"

	"github.com/shopspring/decimal"
)

type topUpRequest struct {
	Amount        decimal.Decimal `json:"amount"`
	PaymentSystem string          `json:"payment_system"`
	Receipt       string          `json:"receipt"`
}

func (h *Handler) requestTopUp(w http.ResponseWriter, r *http.Request) {
	var req topUpRequest
	if !decode(w, r, &req) {
		return
	}
	fr, err := h.svc.Funding.RequestTopUp(r.Context(), accountID(r), req.Amount, req.PaymentSystem, req.Receipt)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, fr)
}

type withdrawalRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Card   string          `json:"card"`
}

func (h *Handler) requestWithdrawal(w http.ResponseWriter, r *http.Request) {
	var req withdrawalRequest
	if !decode(w, r, &req) {
		return
	}
	fr, err := h.svc.Funding.RequestWithdrawal(r.Context(), accountID(r), req.Amount, req.Card)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, fr)
}

func (h *Handler) listFunding(w http.ResponseWriter, r *http.Request) {
	reqs, err := h.svc.Funding.ListByAccount(r.Context(), accountID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"requests": reqs})
}

func (h *Handler) pendingFunding(w http.ResponseWriter, r *http.Request) {
	reqs, err := h.svc.Funding.ListPending(r.Context(), accountID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"requests": reqs})
}

func (h *Handler) approveFunding(w http.ResponseWriter, r *http.Request) {
	fr, err := h.svc.Funding.Approve(r.Context(), accountID(r), pathID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, fr)
}

func (h *Handler) rejectFunding(w http.ResponseWriter, r *http.Request) {
	fr, err := h.svc.Funding.Reject(r.Context(), accountID(r), pathID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, fr)
}
