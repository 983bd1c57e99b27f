package api

import (
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"

	"tourguide/pkg/catalog"
	"tourguide/pkg/playback"
)

// PlaybackHandler lets external players pull narration cues.
type PlaybackHandler struct {
	queue      *playback.Manager
	dispatcher *playback.Dispatcher
	catalog    func() *catalog.Catalog
}

func NewPlaybackHandler(q *playback.Manager, d *playback.Dispatcher, current func() *catalog.Catalog) *PlaybackHandler {
	return &PlaybackHandler{queue: q, dispatcher: d, catalog: current}
}

// HandleNext pops the next cue, or answers 204 when the queue is empty.
// GET /api/playback/next
func (h *PlaybackHandler) HandleNext(w http.ResponseWriter, r *http.Request) {
	c := h.queue.Pop()
	if c == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// HandleQueue lists the waiting cues without consuming them.
// GET /api/playback/queue
func (h *PlaybackHandler) HandleQueue(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.queue.List())
}

// HandleReplay queues a region's narration at the front.
// POST /api/playback/replay/:id
func (h *PlaybackHandler) HandleReplay(w http.ResponseWriter, r *http.Request) {
	params := httprouter.ParamsFromContext(r.Context())
	id, err := strconv.ParseInt(params.ByName("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid region id")
		return
	}
	region, ok := h.catalog().Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown region")
		return
	}
	c, ok := h.dispatcher.Replay(&region)
	if !ok {
		writeError(w, http.StatusUnprocessableEntity, "region has no audio or text")
		return
	}
	writeJSON(w, http.StatusOK, c)
}
