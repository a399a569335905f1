package http

import (
	"net/http"

	"github.com/shopspring/decimal"

	"adboard-backend/internal/domain"
)

func (h *Handler) submitAd(w http.ResponseWriter, r *http.Request) {
	var sub domain.AdSubmission
	if !decode(w, r, &sub) {
		return
	}
	ad, err := h.svc.Ads.Submit(r.Context(), accountID(r), sub)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ad)
}

func (h *Handler) searchAds(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, err)
		return
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		writeError(w, err)
		return
	}
	ads, err := h.svc.Ads.Search(r.Context(), domain.AdFilter{
		Category: q.Get("category"),
		City:     q.Get("city"),
		Query:    q.Get("q"),
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ads": ads})
}

func (h *Handler) myAds(w http.ResponseWriter, r *http.Request) {
	ads, err := h.svc.Ads.ListByOwner(r.Context(), accountID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ads": ads})
}

func (h *Handler) getAd(w http.ResponseWriter, r *http.Request) {
	ad, err := h.svc.Ads.Get(r.Context(), accountID(r), pathID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ad)
}

func (h *Handler) requestExtension(w http.ResponseWriter, r *http.Request) {
	req, err := h.svc.Ads.RequestExtension(r.Context(), accountID(r), pathID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

// approveAd approves the ad; ?publish=true also publishes it in one step.
func (h *Handler) approveAd(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("publish") == "true" {
		res, err := h.svc.Ads.ApproveAndPublish(r.Context(), accountID(r), pathID(r))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
		return
	}
	ad, err := h.svc.Ads.Approve(r.Context(), accountID(r), pathID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ad)
}

func (h *Handler) rejectAd(w http.ResponseWriter, r *http.Request) {
	ad, err := h.svc.Ads.Reject(r.Context(), accountID(r), pathID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ad)
}

func (h *Handler) publishAd(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Ads.Publish(r.Context(), accountID(r), pathID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) editAdText(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if !decode(w, r, &req) {
		return
	}
	ad, err := h.svc.Ads.EditText(r.Context(), accountID(r), pathID(r), req.Text)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ad)
}

func (h *Handler) editAdPrice(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Price decimal.Decimal `json:"price"`
	}
	if !decode(w, r, &req) {
		return
	}
	ad, err := h.svc.Ads.EditPrice(r.Context(), accountID(r), pathID(r), req.Price)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ad)
}

func (h *Handler) deactivateAd(w http.ResponseWriter, r *http.Request) {
	ad, err := h.svc.Ads.Deactivate(r.Context(), accountID(r), pathID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ad)
}

func (h *Handler) approveExtension(w http.ResponseWriter, r *http.Request) {
	ad, err := h.svc.Ads.ApproveExtension(r.Context(), accountID(r), pathID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ad)
}

func (h *Handler) rejectExtension(w http.ResponseWriter, r *http.Request) {
	req, err := h.svc.Ads.RejectExtension(r.Context(), accountID(r), pathID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}
