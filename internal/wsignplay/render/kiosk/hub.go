// Package kiosk bridges the player to a browser page over a WebSocket. The
// page served at / draws whatever the hub last sent and reports media and
// visibility events back.
package kiosk

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/wrale/wrale-signage-player/api/types/v1alpha1"
)

const (
	// Time allowed to write a message to the page
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the page
	pongWait = 60 * time.Second

	// Send pings to the page with this period
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from the page
	maxMessageSize = 1024

	sendBuffer   = 64
	signalBuffer = 64
)

// The page is served by the same listener, so the default same-origin
// check applies.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Hub fans render messages out to connected pages and collects their events.
// It implements render.Surface and render.Presenter.
type Hub struct {
	logger zerolog.Logger

	// Registered connections, owned by run
	connections map[*connection]bool
	register    chan *connection
	unregister  chan *connection
	broadcast   chan []byte
	done        chan struct{}

	signals chan v1alpha1.PageEvent

	// Replayed to pages that connect later
	mu        sync.Mutex
	screen    []byte
	keepAlive []byte
	wakeLock  bool
	count     int
}

// NewHub creates a hub; Run must be started for messages to flow
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		logger:      logger,
		connections: make(map[*connection]bool),
		register:    make(chan *connection),
		unregister:  make(chan *connection),
		broadcast:   make(chan []byte, sendBuffer),
		done:        make(chan struct{}),
		signals:     make(chan v1alpha1.PageEvent, signalBuffer),
	}
}

// Run services connections until ctx is cancelled
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for c := range h.connections {
				h.drop(c)
			}
			return
		case c := <-h.register:
			h.connections[c] = true
			for _, m := range h.replay() {
				c.send <- m
			}
			h.setCount(len(h.connections))
			h.logger.Info().
				Str("remote", c.remote).
				Int("connections", len(h.connections)).
				Msg("render page connected")
		case c := <-h.unregister:
			if h.connections[c] {
				h.drop(c)
				h.logger.Info().
					Str("remote", c.remote).
					Int("connections", len(h.connections)).
					Msg("render page disconnected")
			}
		case m := <-h.broadcast:
			for c := range h.connections {
				select {
				case c.send <- m:
				default:
					h.logger.Warn().Str("remote", c.remote).Msg("render page too slow, dropping")
					h.drop(c)
				}
			}
		}
	}
}

func (h *Hub) drop(c *connection) {
	delete(h.connections, c)
	close(c.send)
	h.setCount(len(h.connections))
}

func (h *Hub) setCount(n int) {
	h.mu.Lock()
	h.count = n
	h.mu.Unlock()
}

// Connections returns the number of connected pages
func (h *Hub) Connections() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.count
}

func (h *Hub) replay() [][]byte {
	h.mu.Lock()
	defer h.mu.Unlock()

	var out [][]byte
	if h.keepAlive != nil {
		out = append(out, h.keepAlive)
	}
	if h.wakeLock {
		if m, err := encode(v1alpha1.RenderMessage{Type: v1alpha1.RenderMessageWakeLock}); err == nil {
			out = append(out, m)
		}
	}
	if h.screen != nil {
		out = append(out, h.screen)
	}
	return out
}

func encode(msg v1alpha1.RenderMessage) ([]byte, error) {
	msg.TypeMeta = v1alpha1.TypeMeta{Kind: "RenderMessage", APIVersion: v1alpha1.APIVersion}
	msg.Timestamp = time.Now().UTC()
	return json.Marshal(msg)
}

// send encodes and queues msg for every page. remember stores it for replay.
func (h *Hub) send(msg v1alpha1.RenderMessage, remember func(data []byte)) {
	data, err := encode(msg)
	if err != nil {
		h.logger.Error().Err(err).Str("type", string(msg.Type)).Msg("failed to encode render message")
		return
	}
	if remember != nil {
		h.mu.Lock()
		remember(data)
		h.mu.Unlock()
	}

	select {
	case h.broadcast <- data:
	default:
		h.logger.Warn().Str("type", string(msg.Type)).Msg("render queue full, message dropped")
	}
}

// Present shows a frame on every page
func (h *Hub) Present(frame v1alpha1.RenderFrame) {
	h.send(v1alpha1.RenderMessage{Type: v1alpha1.RenderMessageFrame, Frame: &frame}, func(data []byte) {
		h.screen = data
	})
}

// ShowState shows a status screen on every page
func (h *Hub) ShowState(state v1alpha1.RenderState) {
	h.send(v1alpha1.RenderMessage{Type: v1alpha1.RenderMessageState, State: &state}, func(data []byte) {
		h.screen = data
	})
}

// Signals delivers page events
func (h *Hub) Signals() <-chan v1alpha1.PageEvent {
	return h.signals
}

func (h *Hub) RequestFullscreen() {
	h.send(v1alpha1.RenderMessage{Type: v1alpha1.RenderMessageFullscreen}, nil)
}

func (h *Hub) RequestWakeLock() {
	h.send(v1alpha1.RenderMessage{Type: v1alpha1.RenderMessageWakeLock}, func([]byte) {
		h.wakeLock = true
	})
}

func (h *Hub) SetKeepAliveMedia(enabled bool) {
	h.send(v1alpha1.RenderMessage{Type: v1alpha1.RenderMessageKeepAliveMedia, Enabled: enabled}, func(data []byte) {
		h.keepAlive = data
	})
}

// ServeWs upgrades a render page connection
func (h *Hub) ServeWs(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Str("remote", r.RemoteAddr).Msg("websocket upgrade failed")
		return
	}

	c := &connection{
		remote: r.RemoteAddr,
		ws:     ws,
		send:   make(chan []byte, sendBuffer),
		hub:    h,
		logger: h.logger,
	}

	select {
	case h.register <- c:
	case <-h.done:
		_ = ws.Close()
		return
	case <-r.Context().Done():
		_ = ws.Close()
		return
	}

	go c.writePump()
	c.readPump()
}
