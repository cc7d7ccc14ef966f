package render

import (
	"sync"

	"github.com/wrale/wrale-signage-player/api/types/v1alpha1"
)

// Recorder is an in-memory surface that keeps everything it was asked to
// show. Tests drive page events through Emit.
type Recorder struct {
	mu         sync.Mutex
	frames     []v1alpha1.RenderFrame
	states     []v1alpha1.RenderState
	fullscreen int
	wakeLocks  int
	keepAlive  bool
	signals    chan v1alpha1.PageEvent
}

// NewRecorder creates a recorder with a buffered signal channel
func NewRecorder() *Recorder {
	return &Recorder{signals: make(chan v1alpha1.PageEvent, 64)}
}

func (r *Recorder) Present(frame v1alpha1.RenderFrame) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, frame)
}

func (r *Recorder) ShowState(state v1alpha1.RenderState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, state)
}

func (r *Recorder) Signals() <-chan v1alpha1.PageEvent {
	return r.signals
}

// Emit delivers a page event as if the page had sent it
func (r *Recorder) Emit(ev v1alpha1.PageEvent) {
	r.signals <- ev
}

func (r *Recorder) RequestFullscreen() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fullscreen++
}

func (r *Recorder) RequestWakeLock() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.wakeLocks++
}

func (r *Recorder) SetKeepAliveMedia(enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keepAlive = enabled
}

// Frames returns a copy of every presented frame
func (r *Recorder) Frames() []v1alpha1.RenderFrame {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]v1alpha1.RenderFrame(nil), r.frames...)
}

// States returns a copy of every status screen shown
func (r *Recorder) States() []v1alpha1.RenderState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]v1alpha1.RenderState(nil), r.states...)
}

// LastFrame returns the most recent frame
func (r *Recorder) LastFrame() (v1alpha1.RenderFrame, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.frames) == 0 {
		return v1alpha1.RenderFrame{}, false
	}
	return r.frames[len(r.frames)-1], true
}

// LastState returns the most recent status screen
func (r *Recorder) LastState() (v1alpha1.RenderState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.states) == 0 {
		return v1alpha1.RenderState{}, false
	}
	return r.states[len(r.states)-1], true
}

// Presentation reports fullscreen and wake-lock requests and keep-alive media
func (r *Recorder) Presentation() (fullscreen, wakeLocks int, keepAlive bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fullscreen, r.wakeLocks, r.keepAlive
}
