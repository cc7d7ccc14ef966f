package player

import (
	"github.com/wrale/wrale-signage-player/api/types/v1alpha1"
)

// State is the operational state of the player
type State = v1alpha1.PlayerState

const (
	StateBooting   = v1alpha1.PlayerStateBooting
	StatePairing   = v1alpha1.PlayerStatePairing
	StatePlaying   = v1alpha1.PlayerStatePlaying
	StateEmpty     = v1alpha1.PlayerStateEmpty
	StateSuspended = v1alpha1.PlayerStateSuspended
	StateOffline   = v1alpha1.PlayerStateOffline
)

// AllStates lists every operational state
var AllStates = []State{
	StateBooting,
	StatePairing,
	StatePlaying,
	StateEmpty,
	StateSuspended,
	StateOffline,
}

func stateNames() []string {
	names := make([]string, len(AllStates))
	for i, s := range AllStates {
		names[i] = string(s)
	}
	return names
}

// hasContentState reports whether the state was derived from a successful sync
func hasContentState(s State) bool {
	return s == StatePlaying || s == StateEmpty
}

// renderState is the status screen shown for a non-playing state
func renderState(s State, detail, code string) v1alpha1.RenderState {
	rs := v1alpha1.RenderState{State: s, Message: detail}
	switch s {
	case StatePairing:
		rs.PairingCode = code
	case StateOffline:
		rs.Retry = true
	}
	return rs
}
