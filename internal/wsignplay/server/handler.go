// Package server exposes the player's local HTTP API: health, status,
// operator actions, cached media, the kiosk page and its websocket.
package server

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/wrale/wrale-signage-player/api/types/v1alpha1"
	"github.com/wrale/wrale-signage-player/internal/wsignplay/mediacache"
	"github.com/wrale/wrale-signage-player/internal/wsignplay/metrics"
)

// Player is the engine as seen by the API
type Player interface {
	Status() v1alpha1.PlayerStatus
	StartSession()
	Retry()
}

// MediaStore serves cached blobs
type MediaStore interface {
	Open(ctx context.Context, key string) (*os.File, *mediacache.Entry, error)
	List(ctx context.Context) ([]mediacache.Entry, error)
}

// Handler encapsulates the local HTTP API
type Handler struct {
	player  Player
	media   MediaStore
	render  http.Handler
	page    http.Handler
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

// NewHandler creates the API handler. render serves the render websocket
// and page serves the kiosk page.
func NewHandler(player Player, media MediaStore, render, page http.Handler, m *metrics.Metrics, logger zerolog.Logger) *Handler {
	return &Handler{
		player:  player,
		media:   media,
		render:  render,
		page:    page,
		metrics: m,
		logger:  logger,
	}
}

// Router returns the HTTP router
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(requestIDHeaderMiddleware)
	r.Use(middleware.RealIP)
	r.Use(recoverMiddleware(h.logger))
	r.Use(logMiddleware(h.logger))
	r.Use(h.metrics.Middleware)

	r.Get("/healthz", h.handleHealth)
	r.Get("/readyz", h.handleReady)
	r.Handle("/metrics", h.metrics.Handler())

	r.Route("/api/v1alpha1", func(r chi.Router) {
		r.Use(middleware.Timeout(10 * time.Second))

		r.Get("/status", h.GetStatus)
		r.Post("/session/start", h.StartSession)
		r.Post("/retry", h.Retry)
		r.Get("/media", h.ListMedia)

		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "not found")
		})
	})

	r.Get("/media/{key}", h.ServeMedia)
	r.Get("/render/ws", h.render.ServeHTTP)
	r.Get("/", h.page.ServeHTTP)

	return r
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady reports ready once the engine has left booting
func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	st := h.player.Status()
	if st.State == v1alpha1.PlayerStateBooting {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "booting"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "state": string(st.State)})
}

// GetStatus returns the player status
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.player.Status())
}

// StartSession performs the operator start gesture
func (h *Handler) StartSession(w http.ResponseWriter, r *http.Request) {
	h.player.StartSession()
	h.logger.Info().Str("remote", r.RemoteAddr).Msg("session start requested")
	writeJSON(w, http.StatusAccepted, h.player.Status())
}

// Retry asks for an immediate pairing or sync attempt
func (h *Handler) Retry(w http.ResponseWriter, r *http.Request) {
	h.player.Retry()
	writeJSON(w, http.StatusAccepted, h.player.Status())
}

// ListMedia returns the cache index
func (h *Handler) ListMedia(w http.ResponseWriter, r *http.Request) {
	entries, err := h.media.List(r.Context())
	if err != nil {
		h.handleError(w, r, err, "failed to list media")
		return
	}
	if entries == nil {
		entries = []mediacache.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// ServeMedia streams a cached blob with range support
func (h *Handler) ServeMedia(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	f, entry, err := h.media.Open(r.Context(), key)
	if err != nil {
		h.handleError(w, r, err, "failed to open media")
		return
	}
	defer f.Close()

	if entry.ContentType != "" {
		w.Header().Set("Content-Type", entry.ContentType)
	}
	w.Header().Set("Cache-Control", "private, max-age=31536000, immutable")
	http.ServeContent(w, r, "", entry.StoredAt, f)
}
