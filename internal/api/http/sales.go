package http

import (
	"context"
	"net/http"

	"adboard-backend/internal/domain"
)

func (h *Handler) reserve(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AdID int64 `json:"ad_id"`
	}
	if !decode(w, r, &req) {
		return
	}
	sale, err := h.svc.Sales.Reserve(r.Context(), accountID(r), req.AdID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sale)
}

func (h *Handler) listSales(w http.ResponseWriter, r *http.Request) {
	sales, err := h.svc.Sales.ListByAccount(r.Context(), accountID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sales": sales})
}

func (h *Handler) getSale(w http.ResponseWriter, r *http.Request) {
	sale, err := h.svc.Sales.Get(r.Context(), accountID(r), pathID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sale)
}

func (h *Handler) completeSale(w http.ResponseWriter, r *http.Request) {
	h.settleSale(w, r, h.svc.Sales.Complete)
}

func (h *Handler) cancelSale(w http.ResponseWriter, r *http.Request) {
	h.settleSale(w, r, h.svc.Sales.Cancel)
}

func (h *Handler) settleSale(w http.ResponseWriter, r *http.Request, settle func(ctx context.Context, buyerID, saleID int64) (*domain.Sale, error)) {
	sale, err := settle(r.Context(), accountID(r), pathID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sale)
}
