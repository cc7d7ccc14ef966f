package v1alpha1

import "time"

// RenderMessageType defines messages sent from the player to a render surface
type RenderMessageType string

const (
	// RenderMessageFrame replaces the content layers
	RenderMessageFrame RenderMessageType = "FRAME"
	// RenderMessageState shows a non-playing screen (pairing, offline, ...)
	RenderMessageState RenderMessageType = "STATE"
	// RenderMessageFullscreen asks the surface to enter full-screen mode
	RenderMessageFullscreen RenderMessageType = "FULLSCREEN"
	// RenderMessageWakeLock asks the surface to take a screen wake-lock
	RenderMessageWakeLock RenderMessageType = "WAKE_LOCK"
	// RenderMessageKeepAliveMedia toggles the hidden looping media element
	RenderMessageKeepAliveMedia RenderMessageType = "KEEPALIVE_MEDIA"
)

// RenderMessage is sent over the render surface WebSocket
type RenderMessage struct {
	// TypeMeta describes API version details
	TypeMeta `json:",inline"`
	// Type indicates the kind of render message
	Type RenderMessageType `json:"type"`
	// Frame is set for FRAME messages
	Frame *RenderFrame `json:"frame,omitempty"`
	// State is set for STATE messages
	State *RenderState `json:"state,omitempty"`
	// Enabled is set for KEEPALIVE_MEDIA messages
	Enabled bool `json:"enabled,omitempty"`
	// Timestamp indicates when message was created
	Timestamp time.Time `json:"timestamp"`
}

// RenderFrame describes what the surface must show. During a transition both
// layers are rendered, the outgoing one fading out over TransitionMillis.
type RenderFrame struct {
	// Seq identifies the frame; page events echo it back
	Seq uint64 `json:"seq"`
	// Incoming is the item becoming (or being) visible
	Incoming *RenderLayer `json:"incoming,omitempty"`
	// Outgoing is the item fading out, only during a transition
	Outgoing *RenderLayer `json:"outgoing,omitempty"`
	// TransitionMillis is the crossfade length
	TransitionMillis int64 `json:"transitionMillis,omitempty"`
}

// RenderLayer is one media layer
type RenderLayer struct {
	ItemID ItemID    `json:"itemId"`
	Type   MediaType `json:"type"`
	Source string    `json:"source"`
	Name   string    `json:"name,omitempty"`
}

// RenderState describes a status screen
type RenderState struct {
	State       PlayerState `json:"state"`
	PairingCode string      `json:"pairingCode,omitempty"`
	Message     string      `json:"message,omitempty"`
	// Retry shows a retry affordance
	Retry bool `json:"retry,omitempty"`
}

// PageEventType defines events reported by a render surface
type PageEventType string

const (
	// PageEventEnded means a video reached its natural end
	PageEventEnded PageEventType = "ENDED"
	// PageEventMediaError means the incoming media failed to load or play
	PageEventMediaError PageEventType = "MEDIA_ERROR"
	// PageEventVisibility reports a visibility change of the page
	PageEventVisibility PageEventType = "VISIBILITY"
	// PageEventGesture reports the operator start gesture
	PageEventGesture PageEventType = "GESTURE"
	// PageEventRetry reports a tap on the retry affordance
	PageEventRetry PageEventType = "RETRY"
	// PageEventWakeLockReleased reports that the platform dropped the wake-lock
	PageEventWakeLockReleased PageEventType = "WAKE_LOCK_RELEASED"
)

// PageEvent is sent by a render surface to the player
type PageEvent struct {
	Type    PageEventType `json:"type"`
	Seq     uint64        `json:"seq,omitempty"`
	ItemID  ItemID        `json:"itemId,omitempty"`
	Visible bool          `json:"visible,omitempty"`
	Message string        `json:"message,omitempty"`
}
