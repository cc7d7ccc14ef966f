package player

import (
	"github.com/wrale/wrale-signage-player/api/types/v1alpha1"
)

// publish copies the engine view into the status served to other goroutines.
// It must run on the Run goroutine.
func (e *Engine) publish() {
	pb := &e.playback
	st := v1alpha1.PlayerStatus{
		TypeMeta: v1alpha1.TypeMeta{
			Kind:       "PlayerStatus",
			APIVersion: v1alpha1.APIVersion,
		},
		SessionID:   e.sessionID,
		ActiveItems: pb.Active().Len(),
	}
	if a := pb.Active(); a != nil {
		st.ActiveFingerprint = a.Fingerprint
	}
	if p := pb.Pending(); p != nil {
		st.PendingFingerprint = p.Fingerprint
	}
	if item, ok := pb.Current(); ok {
		c := pb.Cursor()
		cs := &v1alpha1.CursorStatus{
			Current:       c.Current,
			Transitioning: c.Transitioning,
			LastAdvance:   c.LastAdvance,
		}
		if c.Previous >= 0 {
			prev := c.Previous
			cs.Previous = &prev
		}
		st.Cursor = cs
		wire := item.ToWire()
		st.Current = &wire
	}
	if !e.lastSync.IsZero() {
		t := e.lastSync
		st.LastSync = &t
	}

	e.mu.Lock()
	st.State = e.state
	st.Detail = e.detail
	st.PairingCode = e.code
	e.status = st
	e.mu.Unlock()
}

// Status returns a snapshot of the player status
func (e *Engine) Status() v1alpha1.PlayerStatus {
	e.mu.RLock()
	st := e.status
	e.mu.RUnlock()

	st.SessionStarted = e.keep.Started()
	st.UpdatedAt = e.now().UTC()
	return st
}

// ControlStatus summarizes the status for the backend control channel
func (e *Engine) ControlStatus() v1alpha1.ControlStatus {
	st := e.Status()
	cs := v1alpha1.ControlStatus{
		SessionID:   st.SessionID,
		State:       st.State,
		Fingerprint: st.ActiveFingerprint,
		UpdatedAt:   st.UpdatedAt,
	}
	if st.Current != nil {
		cs.CurrentURL = st.Current.URL
		cs.ItemID = st.Current.ItemID
	}
	return cs
}
