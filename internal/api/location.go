package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"tourguide/pkg/location"
)

// maxSampleBytes bounds a single position message.
const maxSampleBytes = 4 << 10

// LocationHandler feeds positions from phones and browsers into the push source.
type LocationHandler struct {
	src *location.PushSource
}

func NewLocationHandler(src *location.PushSource) *LocationHandler {
	return &LocationHandler{src: src}
}

// sampleInput keeps coordinates optional so a missing one is an error, not zero.
type sampleInput struct {
	Lat       *float64   `json:"lat"`
	Lon       *float64   `json:"lon"`
	Accuracy  float64    `json:"accuracy"`
	Timestamp *time.Time `json:"timestamp"`
	Error     string     `json:"error"` // client-side failure, e.g. permission denied
}

var errMissingCoordinate = errors.New("lat and lon are required")

func (in *sampleInput) sample() (location.Sample, error) {
	if in.Lat == nil || in.Lon == nil {
		return location.Sample{}, errMissingCoordinate
	}
	s := location.Sample{Lat: *in.Lat, Lon: *in.Lon, Accuracy: in.Accuracy}
	if in.Timestamp != nil {
		s.Timestamp = *in.Timestamp
	}
	return s, nil
}

// deliver pushes the sample, or reports the client's error to the watchers.
func (h *LocationHandler) deliver(in *sampleInput) error {
	if in.Error != "" {
		h.src.Fail(errors.New(in.Error))
		return nil
	}
	s, err := in.sample()
	if err != nil {
		return err
	}
	h.src.Push(s)
	return nil
}

// HandlePush accepts one position.
// POST /api/location {"lat":47.49,"lon":19.04,"accuracy":12}
func (h *LocationHandler) HandlePush(w http.ResponseWriter, r *http.Request) {
	var in sampleInput
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSampleBytes)).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if err := h.deliver(&in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleStream reads a continuous position stream. Each text message is one
// sampleInput; malformed messages are answered with an error and skipped.
// GET /api/location/stream
func (h *LocationHandler) HandleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("Location stream upgrade failed", "error", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxSampleBytes)

	slog.Info("Location stream connected", "remote", r.RemoteAddr)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Warn("Location stream closed", "remote", r.RemoteAddr, "error", err)
			} else {
				slog.Info("Location stream disconnected", "remote", r.RemoteAddr)
			}
			return
		}

		var in sampleInput
		err = json.Unmarshal(data, &in)
		if err == nil {
			err = h.deliver(&in)
		}
		if err != nil {
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if werr := conn.WriteJSON(map[string]string{"error": err.Error()}); werr != nil {
				return
			}
		}
	}
}
