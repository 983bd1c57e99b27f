package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"tourguide/pkg/location"
	"tourguide/pkg/model"
	"tourguide/pkg/session"
)

const (
	writeWait    = 10 * time.Second
	pingInterval = 30 * time.Second
	// streamBuffer is how many events a slow websocket client may lag behind
	// before events are dropped for it.
	streamBuffer = 32
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Phones on the local network connect from other origins.
	CheckOrigin: func(*http.Request) bool { return true },
}

// SessionHandler serves the tracking session state and its event stream.
type SessionHandler struct {
	session *session.Manager
}

func NewSessionHandler(s *session.Manager) *SessionHandler {
	return &SessionHandler{session: s}
}

// HandleSnapshot returns the current session view.
// GET /api/session
func (h *SessionHandler) HandleSnapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.session.Snapshot())
}

// HandleStart (re)starts tracking with fresh state.
// POST /api/session/start
func (h *SessionHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	if err := h.session.Start(); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, location.ErrUnavailable) {
			status = http.StatusServiceUnavailable
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, h.session.Snapshot())
}

// HandleStop ends tracking.
// POST /api/session/stop
func (h *SessionHandler) HandleStop(w http.ResponseWriter, r *http.Request) {
	h.session.Stop()
	writeJSON(w, http.StatusOK, h.session.Snapshot())
}

// HandleEvents returns the recent events, oldest first.
// GET /api/events?n=20
func (h *SessionHandler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	n, _ := strconv.Atoi(r.URL.Query().Get("n"))
	events := h.session.Events(n)
	if events == nil {
		events = []model.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

// HandleEventStream pushes every new event to a websocket client as JSON.
// GET /api/events/stream
func (h *SessionHandler) HandleEventStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("Event stream upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ch := make(chan model.Event, streamBuffer)
	unsubscribe := h.session.Subscribe(func(ev model.Event) {
		select {
		case ch <- ev:
		default:
			slog.Warn("Event stream client too slow, dropping event", "remote", r.RemoteAddr, "type", ev.Type)
		}
	})
	defer unsubscribe()

	closed := readUntilClosed(conn)
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	slog.Debug("Event stream client connected", "remote", r.RemoteAddr)
	for {
		select {
		case <-closed:
			slog.Debug("Event stream client disconnected", "remote", r.RemoteAddr)
			return
		case ev := <-ch:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

// readUntilClosed discards client messages and closes the returned channel
// when the connection ends.
func readUntilClosed(conn *websocket.Conn) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
	return done
}
