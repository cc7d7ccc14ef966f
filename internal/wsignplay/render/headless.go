package render

import (
	"github.com/rs/zerolog"

	"github.com/wrale/wrale-signage-player/api/types/v1alpha1"
)

// Headless logs what would be rendered. It is used when no kiosk page is
// attached, e.g. with the local server disabled.
type Headless struct {
	logger  zerolog.Logger
	signals chan v1alpha1.PageEvent
}

// NewHeadless creates a logging surface
func NewHeadless(logger zerolog.Logger) *Headless {
	return &Headless{
		logger:  logger,
		signals: make(chan v1alpha1.PageEvent),
	}
}

func (h *Headless) Present(frame v1alpha1.RenderFrame) {
	ev := h.logger.Debug().Uint64("seq", frame.Seq)
	if frame.Incoming != nil {
		ev = ev.Str("item", string(frame.Incoming.ItemID)).Str("source", frame.Incoming.Source)
	}
	ev.Bool("transition", frame.Outgoing != nil).Msg("present")
}

func (h *Headless) ShowState(state v1alpha1.RenderState) {
	h.logger.Info().
		Str("state", string(state.State)).
		Str("code", state.PairingCode).
		Str("message", state.Message).
		Msg("show state")
}

// Signals never delivers anything
func (h *Headless) Signals() <-chan v1alpha1.PageEvent {
	return h.signals
}

func (h *Headless) RequestFullscreen()     {}
func (h *Headless) RequestWakeLock()       {}
func (h *Headless) SetKeepAliveMedia(bool) {}
