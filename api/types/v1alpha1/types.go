// Package v1alpha1 contains wire types shared by the Wrale Signage player,
// its backend and its render surface.
package v1alpha1

// APIVersion is the version string stamped on messages produced by the player
const APIVersion = "v1alpha1"

// TypeMeta describes an individual object's type and API version
type TypeMeta struct {
	// Kind is a string value representing the type of this object
	Kind string `json:"kind,omitempty"`
	// APIVersion defines the versioned schema of this object
	APIVersion string `json:"apiVersion,omitempty"`
}

// Error codes with a meaning the player acts on
const (
	// ErrorCodeSuspended tells the player to stop showing content until further notice
	ErrorCodeSuspended = "SUSPENDED"
	// ErrorCodeCredentialRejected tells the player its credential is no longer valid
	ErrorCodeCredentialRejected = "CREDENTIAL_REJECTED"
)

// Error is the error body returned by the backend and by the local API
type Error struct {
	// Code provides error classification
	Code string `json:"code"`
	// Message provides error details
	Message string `json:"message"`
}

func (e *Error) Error() string {
	if e.Code == "" {
		return e.Message
	}
	return e.Code + ": " + e.Message
}
