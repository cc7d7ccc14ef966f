package player

import (
	werrors "github.com/wrale/wrale-signage-player/internal/wsignplay/errors"
)

// Disposition is what the engine does about a failed sync
type Disposition int

const (
	// Absorb keeps playing cached content and leaves the state unchanged
	Absorb Disposition = iota
	// GoOffline shows the offline screen with a retry affordance
	GoOffline
	// Suspend clears all content until a later sync succeeds
	Suspend
	// Repair forgets the credential and pairs again
	Repair
)

func (d Disposition) String() string {
	switch d {
	case Absorb:
		return "absorb"
	case GoOffline:
		return "offline"
	case Suspend:
		return "suspend"
	case Repair:
		return "repair"
	}
	return "unknown"
}

// Classify maps a sync error to a disposition. hasContent reports whether a
// non-empty active snapshot is rendering.
func Classify(err error, hasContent bool) Disposition {
	switch {
	case err == nil:
		return Absorb
	case werrors.IsSuspended(err):
		return Suspend
	case werrors.IsCredentialRejected(err):
		return Repair
	case hasContent:
		return Absorb
	default:
		return GoOffline
	}
}
