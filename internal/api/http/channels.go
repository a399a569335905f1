package http

import (
	"net/http"
	"strconv"

	"adboard-backend/internal/domain"
)

func (h *Handler) listChannels(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	activeOnly := true
	if v := q.Get("active"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			writeErrorCode(w, http.StatusBadRequest, "bad_request", "active must be a boolean")
			return
		}
		activeOnly = parsed
	}
	channels, err := h.svc.Channels.List(r.Context(), domain.Region(q.Get("region")), activeOnly)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"channels": channels})
}

func (h *Handler) createChannel(w http.ResponseWriter, r *http.Request) {
	var ch domain.Channel
	if !decode(w, r, &ch) {
		return
	}
	if err := h.svc.Channels.Create(r.Context(), accountID(r), &ch); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ch)
}

func (h *Handler) updateChannel(w http.ResponseWriter, r *http.Request) {
	var ch domain.Channel
	if !decode(w, r, &ch) {
		return
	}
	ch.ID = pathID(r)
	if err := h.svc.Channels.Update(r.Context(), accountID(r), &ch); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ch)
}
