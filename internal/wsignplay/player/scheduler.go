package player

import (
	"time"

	"github.com/wrale/wrale-signage-player/internal/wsignplay/playlist"
)

// Cursor is the playback position within the active snapshot
type Cursor struct {
	Current int
	// Previous is the outgoing index during a transition, -1 otherwise
	Previous      int
	Transitioning bool
	LastAdvance   time.Time
}

func resetCursor(now time.Time) Cursor {
	return Cursor{Current: 0, Previous: -1, LastAdvance: now}
}

// Playback holds the active and pending snapshots and the cursor. It is a
// pure state machine; the engine owns the timers that drive it. Every call
// that changes the visible item bumps Seq.
type Playback struct {
	active   *playlist.Snapshot
	pending  *playlist.Snapshot
	cursor   Cursor
	outgoing *playlist.Item
	seq      uint64
}

// Active returns the snapshot being rendered, possibly nil
func (p *Playback) Active() *playlist.Snapshot { return p.active }

// Pending returns the snapshot waiting for the loop boundary, possibly nil
func (p *Playback) Pending() *playlist.Snapshot { return p.pending }

// Cursor returns the current cursor
func (p *Playback) Cursor() Cursor { return p.cursor }

// Seq identifies the item currently entering or on screen
func (p *Playback) Seq() uint64 { return p.seq }

// HasContent reports whether a non-empty snapshot is active
func (p *Playback) HasContent() bool { return !p.active.Empty() }

// Current returns the item at the cursor
func (p *Playback) Current() (playlist.Item, bool) {
	if p.active.Empty() || p.cursor.Current >= len(p.active.Items) {
		return playlist.Item{}, false
	}
	return p.active.Items[p.cursor.Current], true
}

// Outgoing returns the item fading out during a transition. After a
// promotion it belongs to the previous snapshot.
func (p *Playback) Outgoing() (playlist.Item, bool) {
	if p.outgoing == nil {
		return playlist.Item{}, false
	}
	return *p.outgoing, true
}

// Load makes s active immediately and starts from its first item
func (p *Playback) Load(s *playlist.Snapshot, now time.Time) {
	p.active = s
	p.pending = nil
	p.outgoing = nil
	p.cursor = resetCursor(now)
	p.seq++
}

// Stage holds s until the active snapshot finishes its loop
func (p *Playback) Stage(s *playlist.Snapshot) {
	p.pending = s
}

// DropPending discards the pending snapshot and reports whether one existed
func (p *Playback) DropPending() bool {
	had := p.pending != nil
	p.pending = nil
	return had
}

// Advance moves to the next item and starts a transition. A pending snapshot
// replaces the active one only when the last item is left. It reports
// whether a promotion happened and does nothing without content.
func (p *Playback) Advance(now time.Time) bool {
	if p.active.Empty() {
		return false
	}

	out := p.active.Items[p.cursor.Current]
	p.outgoing = &out
	p.cursor.Previous = p.cursor.Current
	p.cursor.Transitioning = true
	p.cursor.LastAdvance = now
	p.seq++

	last := p.cursor.Current == len(p.active.Items)-1
	if last && p.pending != nil {
		p.active = p.pending
		p.pending = nil
		p.cursor.Current = 0
		if p.active.Empty() {
			p.outgoing = nil
			p.cursor = resetCursor(now)
		}
		return true
	}

	p.cursor.Current = (p.cursor.Current + 1) % len(p.active.Items)
	return false
}

// Settle ends the transition
func (p *Playback) Settle() {
	p.cursor.Transitioning = false
	p.cursor.Previous = -1
	p.outgoing = nil
}

// Clear drops all content and the cursor
func (p *Playback) Clear(now time.Time) {
	p.active = nil
	p.pending = nil
	p.outgoing = nil
	p.cursor = resetCursor(now)
	p.seq++
}
