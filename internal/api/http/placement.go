package http

import (
	"net/http"

	"github.com/shopspring/decimal"

	"adboard-backend/internal/domain"
)

type quoteRequest struct {
	Mode  domain.PlacementMode `json:"mode"`
	Picks []domain.Pick        `json:"picks"`
}

type purchaseRequest struct {
	Ad          domain.AdSubmission  `json:"ad"`
	Mode        domain.PlacementMode `json:"mode"`
	Picks       []domain.Pick        `json:"picks"`
	QuotedTotal decimal.Decimal      `json:"quoted_total"`
}

type checkoutRequest struct {
	Ad          domain.AdSubmission `json:"ad"`
	QuotedTotal decimal.Decimal     `json:"quoted_total"`
}

type addPickRequest struct {
	Mode domain.PlacementMode `json:"mode"`
	Pick domain.Pick          `json:"pick"`
}

type cartResponse struct {
	Cart  *domain.PlacementSelection `json:"cart"`
	Quote *domain.Quote              `json:"quote"`
}

func (h *Handler) quote(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if !decode(w, r, &req) {
		return
	}
	q, err := h.svc.Placement.Quote(r.Context(), req.Picks, req.Mode)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (h *Handler) purchase(w http.ResponseWriter, r *http.Request) {
	var req purchaseRequest
	if !decode(w, r, &req) {
		return
	}
	p, err := h.svc.Placement.Purchase(r.Context(), accountID(r), req.Ad, req.Picks, req.Mode, req.QuotedTotal)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *Handler) cart(w http.ResponseWriter, r *http.Request) {
	sel, q, err := h.svc.Placement.Cart(r.Context(), accountID(r))
	h.writeCart(w, sel, q, err)
}

func (h *Handler) addPick(w http.ResponseWriter, r *http.Request) {
	var req addPickRequest
	if !decode(w, r, &req) {
		return
	}
	sel, q, err := h.svc.Placement.AddToCart(r.Context(), accountID(r), req.Mode, req.Pick)
	h.writeCart(w, sel, q, err)
}

func (h *Handler) removePick(w http.ResponseWriter, r *http.Request) {
	sel, q, err := h.svc.Placement.RemoveFromCart(r.Context(), accountID(r), pathID(r))
	h.writeCart(w, sel, q, err)
}

func (h *Handler) writeCart(w http.ResponseWriter, sel *domain.PlacementSelection, q *domain.Quote, err error) {
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cartResponse{Cart: sel, Quote: q})
}

func (h *Handler) abandonCart(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Placement.AbandonCart(r.Context(), accountID(r)); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) checkout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if !decode(w, r, &req) {
		return
	}
	p, err := h.svc.Placement.Checkout(r.Context(), accountID(r), req.Ad, req.QuotedTotal)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}
