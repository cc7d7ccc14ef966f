package v1alpha1

import (
	"time"

	"github.com/google/uuid"
)

// PlayerState is the operational state of a player
type PlayerState string

const (
	PlayerStateBooting   PlayerState = "booting"
	PlayerStatePairing   PlayerState = "pairing"
	PlayerStatePlaying   PlayerState = "playing"
	PlayerStateEmpty     PlayerState = "empty"
	PlayerStateSuspended PlayerState = "suspended"
	PlayerStateOffline   PlayerState = "offline"
)

// PlayerStatus is served by the local status endpoint
type PlayerStatus struct {
	// TypeMeta describes API version details
	TypeMeta `json:",inline"`
	// SessionID changes every time the player process starts
	SessionID uuid.UUID `json:"sessionId"`
	// State is the current operational state
	State PlayerState `json:"state"`
	// Detail explains the state, e.g. why the player is offline
	Detail string `json:"detail,omitempty"`
	// PairingCode is set while the player waits to be paired
	PairingCode string `json:"pairingCode,omitempty"`
	// ActiveFingerprint identifies the playlist being rendered
	ActiveFingerprint string `json:"activeFingerprint,omitempty"`
	// ActiveItems is the number of items in the active playlist
	ActiveItems int `json:"activeItems"`
	// PendingFingerprint identifies a playlist waiting for the loop boundary
	PendingFingerprint string `json:"pendingFingerprint,omitempty"`
	// Cursor is the playback position
	Cursor *CursorStatus `json:"cursor,omitempty"`
	// Current is the item on screen
	Current *PlaylistItem `json:"current,omitempty"`
	// SessionStarted reports whether the start gesture happened
	SessionStarted bool `json:"sessionStarted"`
	// LastSync is when the backend last answered a playlist request
	LastSync *time.Time `json:"lastSync,omitempty"`
	// UpdatedAt is when this status was produced
	UpdatedAt time.Time `json:"updatedAt"`
}

// CursorStatus exposes the playback cursor
type CursorStatus struct {
	Current       int       `json:"current"`
	Previous      *int      `json:"previous,omitempty"`
	Transitioning bool      `json:"transitioning"`
	LastAdvance   time.Time `json:"lastAdvance"`
}
