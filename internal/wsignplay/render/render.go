// Package render defines the surface the player draws on. The player decides
// what is visible; a surface only shows it and reports back what happened.
package render

import (
	"github.com/wrale/wrale-signage-player/api/types/v1alpha1"
)

// Surface shows frames and status screens and reports page events
type Surface interface {
	// Present shows a frame. It must not block.
	Present(frame v1alpha1.RenderFrame)
	// ShowState replaces the content with a status screen. It must not block.
	ShowState(state v1alpha1.RenderState)
	// Signals delivers media and page events
	Signals() <-chan v1alpha1.PageEvent
}

// Presenter is implemented by surfaces that can be put into unattended mode
type Presenter interface {
	RequestFullscreen()
	RequestWakeLock()
	SetKeepAliveMedia(enabled bool)
}
