package kiosk

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/wrale/wrale-signage-player/api/types/v1alpha1"
)

// connection is a middleman between one page and the hub
type connection struct {
	remote string
	ws     *websocket.Conn
	send   chan []byte
	hub    *Hub
	logger zerolog.Logger
}

func (c *connection) cleanup() {
	select {
	case c.hub.unregister <- c:
	case <-c.hub.done:
	}
	if err := c.ws.Close(); err != nil {
		c.logger.Debug().Err(err).Str("remote", c.remote).Msg("error closing render connection")
	}
}

func (c *connection) readPump() {
	defer c.cleanup()

	c.ws.SetReadLimit(maxMessageSize)
	if err := c.ws.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error().Err(err).Str("remote", c.remote).Msg("failed to set read deadline")
		return
	}
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn().Err(err).Str("remote", c.remote).Msg("render read error")
			}
			return
		}

		var ev v1alpha1.PageEvent
		if err := json.Unmarshal(message, &ev); err != nil || ev.Type == "" {
			c.logger.Warn().Str("remote", c.remote).Msg("invalid page event")
			continue
		}

		// any message from the page proves it is alive
		_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))

		select {
		case c.hub.signals <- ev:
		default:
			c.logger.Warn().Str("type", string(ev.Type)).Msg("page event dropped, player busy")
		}
	}
}

func (c *connection) write(mt int, payload []byte) error {
	if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.ws.WriteMessage(mt, payload)
}

func (c *connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				_ = c.write(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.write(websocket.TextMessage, message); err != nil {
				c.logger.Warn().Err(err).Str("remote", c.remote).Msg("failed to write render message")
				return
			}
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, []byte{}); err != nil {
				c.logger.Debug().Err(err).Str("remote", c.remote).Msg("failed to write ping")
				return
			}
		}
	}
}
