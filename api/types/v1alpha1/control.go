package v1alpha1

import (
	"time"

	"github.com/google/uuid"
)

// ControlMessageType defines types of control messages
type ControlMessageType string

const (
	// ControlMessageSequenceUpdate tells the player its playlist changed
	ControlMessageSequenceUpdate ControlMessageType = "SEQUENCE_UPDATE"
	// ControlMessageReload tells the player to restart its session
	ControlMessageReload ControlMessageType = "RELOAD"
	// ControlMessageStatus carries a player status report
	ControlMessageStatus ControlMessageType = "STATUS"
)

// ControlMessage represents a message sent over the backend control WebSocket
type ControlMessage struct {
	// TypeMeta describes API version details
	TypeMeta `json:",inline"`
	// Type indicates the kind of control message
	Type ControlMessageType `json:"type"`
	// Timestamp indicates when message was created
	Timestamp time.Time `json:"timestamp"`
	// Error contains error details if applicable
	Error *Error `json:"error,omitempty"`
	// Status contains player status if applicable
	Status *ControlStatus `json:"status,omitempty"`
}

// ControlStatus represents current player state for control messages
type ControlStatus struct {
	// SessionID changes every time the player process starts
	SessionID uuid.UUID `json:"sessionId"`
	// State indicates the player operational state
	State PlayerState `json:"state"`
	// CurrentURL indicates content being shown
	CurrentURL string `json:"currentUrl,omitempty"`
	// ItemID identifies the item being shown
	ItemID ItemID `json:"itemId,omitempty"`
	// Fingerprint identifies the active playlist revision
	Fingerprint string `json:"fingerprint,omitempty"`
	// UpdatedAt indicates when status was generated
	UpdatedAt time.Time `json:"updatedAt"`
}
