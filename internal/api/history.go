package api

import (
	"net/http"
	"strconv"

	"tourguide/pkg/store"
)

// HistoryHandler serves the persisted event history across sessions.
type HistoryHandler struct {
	events store.EventStore
}

func NewHistoryHandler(es store.EventStore) *HistoryHandler {
	return &HistoryHandler{events: es}
}

// HandleHistory returns recorded events, newest first.
// GET /api/events/history?n=50
func (h *HistoryHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	n, _ := strconv.Atoi(r.URL.Query().Get("n"))
	records, err := h.events.RecentEvents(r.Context(), n)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if records == nil {
		records = []store.EventRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}
