// Package keepalive keeps an unattended display awake: full-screen mode, a
// wake-lock that survives visibility changes, and background media activity
// while content is playing.
package keepalive

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/wrale/wrale-signage-player/internal/wsignplay/render"
)

// DefaultActivityInterval is how often host activity is simulated while playing
const DefaultActivityInterval = 50 * time.Second

const inhibitReason = "Wrale Signage playback"

// Session tracks the start gesture, page visibility and playback
type Session struct {
	presenter        render.Presenter
	inhibitor        Inhibitor
	activityInterval time.Duration
	logger           zerolog.Logger

	mu           sync.Mutex
	started      bool
	visible      bool
	playing      bool
	inhibited    bool
	stopActivity context.CancelFunc
}

// NewSession creates a session. The page starts out visible.
func NewSession(presenter render.Presenter, inhibitor Inhibitor, activityInterval time.Duration, logger zerolog.Logger) *Session {
	if inhibitor == nil {
		inhibitor = NoopInhibitor{}
	}
	if activityInterval <= 0 {
		activityInterval = DefaultActivityInterval
	}
	return &Session{
		presenter:        presenter,
		inhibitor:        inhibitor,
		activityInterval: activityInterval,
		logger:           logger,
		visible:          true,
	}
}

// Begin handles the start gesture. Repeated gestures re-request full-screen.
func (s *Session) Begin() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		s.logger.Info().Msg("session started by gesture")
	}
	s.started = true
	s.presenter.RequestFullscreen()
	if s.visible {
		s.acquireLocked()
	}
	s.applyMediaLocked()
}

// Started reports whether the start gesture happened
func (s *Session) Started() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

// VisibilityChanged handles the page being hidden or shown again
func (s *Session) VisibilityChanged(visible bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.visible == visible {
		return
	}
	s.visible = visible
	if !visible {
		s.releaseLocked()
		return
	}
	if s.started {
		s.acquireLocked()
	}
}

// WakeLockReleased handles the platform dropping the page wake-lock
func (s *Session) WakeLockReleased() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logger.Debug().Bool("visible", s.visible).Msg("wake-lock released by platform")
	if s.started && s.visible {
		s.presenter.RequestWakeLock()
	}
}

// SetPlaying toggles the keep-alive media and host activity while content plays
func (s *Session) SetPlaying(playing bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.playing == playing {
		return
	}
	s.playing = playing
	s.applyMediaLocked()

	if playing {
		ctx, cancel := context.WithCancel(context.Background())
		s.stopActivity = cancel
		go s.simulateActivity(ctx)
	} else if s.stopActivity != nil {
		s.stopActivity()
		s.stopActivity = nil
	}
}

// Close stops background activity and releases the host inhibitor
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopActivity != nil {
		s.stopActivity()
		s.stopActivity = nil
	}
	s.releaseLocked()
	return s.inhibitor.Close()
}

// applyMediaLocked plays the hidden media element only after the gesture,
// since autoplay is refused before it.
func (s *Session) applyMediaLocked() {
	s.presenter.SetKeepAliveMedia(s.playing && s.started)
}

func (s *Session) acquireLocked() {
	s.presenter.RequestWakeLock()
	if s.inhibited {
		return
	}
	if err := s.inhibitor.Inhibit(inhibitReason); err != nil {
		s.logger.Warn().Err(err).Msg("host screensaver inhibit failed")
		return
	}
	s.inhibited = true
}

func (s *Session) releaseLocked() {
	if !s.inhibited {
		return
	}
	if err := s.inhibitor.Release(); err != nil {
		s.logger.Warn().Err(err).Msg("host screensaver release failed")
	}
	s.inhibited = false
}

func (s *Session) simulateActivity(ctx context.Context) {
	ticker := time.NewTicker(s.activityInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.inhibitor.SimulateActivity(); err != nil {
				s.logger.Debug().Err(err).Msg("simulate activity failed")
			}
		}
	}
}
