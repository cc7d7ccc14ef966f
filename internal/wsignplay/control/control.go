// Package control keeps a push channel open to the backend. The backend uses
// it to announce playlist changes and request reloads; the player answers with
// periodic status reports.
package control

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/wrale/wrale-signage-player/api/types/v1alpha1"
	"github.com/wrale/wrale-signage-player/internal/wsignplay/credential"
	werrors "github.com/wrale/wrale-signage-player/internal/wsignplay/errors"
)

const (
	writeWait = 10 * time.Second

	// A connection that lived this long resets the reconnect backoff
	stableAfter = 30 * time.Second
)

// Player is what the control channel drives and reports on
type Player interface {
	SyncNow()
	Reload()
	ControlStatus() v1alpha1.ControlStatus
}

// Options configures the manager
type Options struct {
	// URL is the backend control endpoint (ws:// or wss://)
	URL            string
	StatusInterval time.Duration
	RetryInitial   time.Duration
	RetryMax       time.Duration
}

// Manager maintains the control connection
type Manager struct {
	opts   Options
	store  credential.Store
	player Player
	dialer *websocket.Dialer
	logger zerolog.Logger
}

// NewManager creates a control channel manager
func NewManager(opts Options, store credential.Store, player Player, logger zerolog.Logger) *Manager {
	if opts.StatusInterval <= 0 {
		opts.StatusInterval = 30 * time.Second
	}
	if opts.RetryInitial <= 0 {
		opts.RetryInitial = time.Second
	}
	if opts.RetryMax <= 0 {
		opts.RetryMax = time.Minute
	}
	return &Manager{
		opts:   opts,
		store:  store,
		player: player,
		dialer: websocket.DefaultDialer,
		logger: logger,
	}
}

// Run keeps the channel connected until ctx is cancelled
func (m *Manager) Run(ctx context.Context) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = m.opts.RetryInitial
	b.MaxInterval = m.opts.RetryMax
	b.MaxElapsedTime = 0
	b.Reset()

	for {
		start := time.Now()
		err := m.session(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if time.Since(start) > stableAfter {
			b.Reset()
		}

		wait := b.NextBackOff()
		ev := m.logger.Warn()
		if werrors.IsNotFound(err) {
			ev = m.logger.Debug()
		}
		ev.Err(err).Dur("retry_in", wait).Msg("control channel down")

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

// session runs one connection until it fails or ctx ends
func (m *Manager) session(ctx context.Context) error {
	const op = "Manager.session"

	cred, err := m.store.Load(ctx)
	if err != nil {
		return err
	}
	if !cred.Valid() {
		return werrors.NewError("NOT_FOUND", "no device credential", op, werrors.ErrNotFound)
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+cred.Token)
	conn, resp, err := m.dialer.DialContext(ctx, m.opts.URL, header)
	if err != nil {
		if resp != nil {
			return werrors.NewError("UNAVAILABLE", fmt.Sprintf("HTTP %d", resp.StatusCode), op, err)
		}
		return werrors.NewError("UNAVAILABLE", "dial failed", op, err)
	}
	defer conn.Close()

	m.logger.Info().Str("url", m.opts.URL).Msg("control channel connected")

	readErr := make(chan error, 1)
	go func() {
		readErr <- m.readMessages(conn)
	}()

	ticker := time.NewTicker(m.opts.StatusInterval)
	defer ticker.Stop()

	if err := m.sendStatus(conn); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return ctx.Err()
		case err := <-readErr:
			return err
		case <-ticker.C:
			if err := m.sendStatus(conn); err != nil {
				return err
			}
		}
	}
}

func (m *Manager) readMessages(conn *websocket.Conn) error {
	for {
		var msg v1alpha1.ControlMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return err
		}

		switch msg.Type {
		case v1alpha1.ControlMessageSequenceUpdate:
			m.logger.Info().Msg("playlist change announced")
			m.player.SyncNow()
		case v1alpha1.ControlMessageReload:
			m.logger.Info().Msg("reload requested")
			m.player.Reload()
		default:
			m.logger.Debug().Str("type", string(msg.Type)).Msg("ignoring control message")
		}
	}
}

func (m *Manager) sendStatus(conn *websocket.Conn) error {
	status := m.player.ControlStatus()
	msg := v1alpha1.ControlMessage{
		TypeMeta: v1alpha1.TypeMeta{
			Kind:       "ControlMessage",
			APIVersion: v1alpha1.APIVersion,
		},
		Type:      v1alpha1.ControlMessageStatus,
		Timestamp: time.Now().UTC(),
		Status:    &status,
	}

	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteJSON(msg)
}
