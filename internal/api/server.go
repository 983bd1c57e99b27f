package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tourguide/pkg/version"
)

// Handlers groups the endpoint handlers. Nil handlers leave their routes out.
type Handlers struct {
	Session  *SessionHandler
	Location *LocationHandler
	Catalog  *CatalogHandler
	Playback *PlaybackHandler
	History  *HistoryHandler
}

// NewRouter registers every route and wraps the router with Sentry.
func NewRouter(h Handlers, shutdown func()) http.Handler {
	router := httprouter.New()

	router.HandlerFunc(http.MethodGet, "/health", handleHealth)
	router.HandlerFunc(http.MethodGet, "/api/version", handleVersion)
	router.HandlerFunc(http.MethodGet, "/api/log/latest", handleLatestLog)
	router.HandlerFunc(http.MethodGet, "/api/log/events", handleEventLog)
	router.Handler(http.MethodGet, "/metrics", promhttp.Handler())

	if h.Session != nil {
		router.HandlerFunc(http.MethodGet, "/api/session", h.Session.HandleSnapshot)
		router.HandlerFunc(http.MethodPost, "/api/session/start", h.Session.HandleStart)
		router.HandlerFunc(http.MethodPost, "/api/session/stop", h.Session.HandleStop)
		router.HandlerFunc(http.MethodGet, "/api/events", h.Session.HandleEvents)
		router.HandlerFunc(http.MethodGet, "/api/events/stream", h.Session.HandleEventStream)
	}
	if h.History != nil {
		router.HandlerFunc(http.MethodGet, "/api/events/history", h.History.HandleHistory)
	}
	if h.Location != nil {
		router.HandlerFunc(http.MethodPost, "/api/location", h.Location.HandlePush)
		router.HandlerFunc(http.MethodGet, "/api/location/stream", h.Location.HandleStream)
	}
	if h.Catalog != nil {
		router.HandlerFunc(http.MethodGet, "/api/regions", h.Catalog.HandleRegions)
		router.HandlerFunc(http.MethodPost, "/api/catalog/reload", h.Catalog.HandleReload)
	}
	if h.Playback != nil {
		router.HandlerFunc(http.MethodGet, "/api/playback/next", h.Playback.HandleNext)
		router.HandlerFunc(http.MethodGet, "/api/playback/queue", h.Playback.HandleQueue)
		router.HandlerFunc(http.MethodPost, "/api/playback/replay/:id", h.Playback.HandleReplay)
	}

	router.HandlerFunc(http.MethodPost, "/api/shutdown", func(w http.ResponseWriter, r *http.Request) {
		slog.Info("Graceful shutdown initiated via API")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("Shutting down...")); err != nil {
			slog.Error("Failed to write shutdown response", "error", err)
		}
		if shutdown == nil {
			return
		}
		// Let the response flush first.
		go func() {
			time.Sleep(100 * time.Millisecond)
			shutdown()
		}()
	})

	return sentryMiddleware(router)
}

// NewServer creates the HTTP server. Write timeouts are left to the
// handlers because the websocket streams are long-lived.
func NewServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("OK")); err != nil {
		slog.Error("Failed to write health response", "error", err)
	}
}

func handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"version": version.Version,
		"commit":  version.Commit,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
