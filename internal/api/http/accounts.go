package http

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"adboard-backend/internal/domain"
)

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	acc, err := h.svc.Accounts.Get(r.Context(), accountID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, acc)
}

func (h *Handler) updateVerification(w http.ResponseWriter, r *http.Request) {
	var v domain.Verification
	if !decode(w, r, &v) {
		return
	}
	id := accountID(r)
	if err := h.svc.Accounts.UpdateVerification(r.Context(), id, id, v); err != nil {
		writeError(w, err)
		return
	}
	h.me(w, r)
}

func (h *Handler) balance(w http.ResponseWriter, r *http.Request) {
	bal, err := h.svc.Ledger.Balance(r.Context(), accountID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]decimal.Decimal{"balance": bal})
}

type banRequest struct {
	Reason string     `json:"reason"`
	Until  *time.Time `json:"until"`
}

func (h *Handler) ban(w http.ResponseWriter, r *http.Request) {
	var req banRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.svc.Accounts.Ban(r.Context(), accountID(r), pathID(r), req.Reason, req.Until); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) unban(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Accounts.Unban(r.Context(), accountID(r), pathID(r)); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type adjustRequest struct {
	Mode   domain.AdjustmentMode `json:"mode"`
	Amount decimal.Decimal       `json:"amount"`
	Note   string                `json:"note"`
}

func (h *Handler) adjustBalance(w http.ResponseWriter, r *http.Request) {
	var req adjustRequest
	if !decode(w, r, &req) {
		return
	}
	adj, err := h.svc.Ledger.Adjust(r.Context(), accountID(r), pathID(r), req.Mode, req.Amount, req.Note)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, adj)
}

func (h *Handler) broadcast(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message string `json:"message"`
	}
	if !decode(w, r, &req) {
		return
	}
	n, err := h.svc.Accounts.Broadcast(r.Context(), accountID(r), req.Message)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"delivered": n})
}
