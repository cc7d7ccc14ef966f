package player

import (
	"context"
	"time"

	"github.com/wrale/wrale-signage-player/api/types/v1alpha1"
	"github.com/wrale/wrale-signage-player/internal/wsignplay/credential"
	"github.com/wrale/wrale-signage-player/internal/wsignplay/metrics"
	"github.com/wrale/wrale-signage-player/internal/wsignplay/playlist"
)

type outcome int

const (
	outcomeNone outcome = iota
	outcomeDone
	outcomeRejected
	outcomeReload
)

// session is one credentialed run of the engine loop. All fields are owned
// by the loop goroutine.
type session struct {
	e        *Engine
	ctx      context.Context
	token    string
	results  chan syncResult
	syncing  bool
	watchdog *Watchdog

	advanceTimer    *time.Timer
	transitionTimer *time.Timer
}

func timerC(t *time.Timer) <-chan time.Time {
	if t == nil {
		return nil
	}
	return t.C
}

func stopTimer(t **time.Timer) {
	if *t != nil {
		(*t).Stop()
		*t = nil
	}
}

// runSession syncs and plays until the context ends, the credential is
// rejected or a reload is requested.
func (e *Engine) runSession(ctx context.Context, cred *credential.Credential) outcome {
	sctx, cancel := context.WithCancel(ctx)
	defer cancel()

	fire := make(chan uint64, 1)
	s := &session{
		e:        e,
		ctx:      sctx,
		token:    cred.Token,
		results:  make(chan syncResult, 1),
		watchdog: NewWatchdog(e.opts.WatchdogInterval, fire),
	}
	defer s.stop()
	go s.watchdog.Run(sctx)

	// Content is always re-derived from a fresh sync
	e.playback.Clear(e.now())
	e.lastSync = time.Time{}
	drain(e.reloadCh)
	drain(e.syncCh)

	ticker := time.NewTicker(e.opts.SyncInterval)
	defer ticker.Stop()
	s.startSync()

	for {
		select {
		case <-ctx.Done():
			return outcomeDone
		case <-e.reloadCh:
			return outcomeReload
		case <-ticker.C:
			s.startSync()
		case <-e.syncCh:
			s.startSync()
		case <-e.retryCh:
			s.startSync()
		case res := <-s.results:
			s.syncing = false
			if out := s.applySync(res); out != outcomeNone {
				return out
			}
		case <-timerC(s.advanceTimer):
			s.advanceTimer = nil
			s.advance(metrics.ReasonTimer)
		case <-timerC(s.transitionTimer):
			s.transitionTimer = nil
			s.settle()
		case ev := <-e.mediaCh:
			s.mediaEvent(ev)
		case seq := <-fire:
			if seq != e.playback.Seq() || e.State() != StatePlaying {
				continue
			}
			item, _ := e.playback.Current()
			e.logger.Warn().
				Str("item", item.ID).
				Str("type", string(item.Type)).
				Time("last_advance", e.playback.Cursor().LastAdvance).
				Msg("playback stalled, forcing advance")
			s.advance(metrics.ReasonWatchdog)
		}
	}
}

func drain(ch chan struct{}) {
	select {
	case <-ch:
	default:
	}
}

// startSync launches a sync unless one is in flight
func (s *session) startSync() {
	if s.syncing {
		return
	}
	s.syncing = true

	pb := &s.e.playback
	var known []string
	if a := pb.Active(); a != nil {
		known = append(known, a.Fingerprint)
	}
	if p := pb.Pending(); p != nil {
		known = append(known, p.Fingerprint)
	}

	go func(ctx context.Context, token string, known []string) {
		s.results <- s.e.syncer.run(ctx, token, known...)
	}(s.ctx, s.token, known)
}

// applySync folds a sync result into the playback state
func (s *session) applySync(res syncResult) outcome {
	e := s.e
	pb := &e.playback

	if res.err != nil {
		e.metrics.Sync("error")
		d := Classify(res.err, pb.HasContent())
		e.logger.Warn().Err(res.err).Str("disposition", d.String()).Msg("sync failed")

		switch d {
		case Suspend:
			s.clear()
			e.setState(StateSuspended, "service suspended")
		case Repair:
			return outcomeRejected
		case GoOffline:
			s.clear()
			e.setState(StateOffline, "backend unreachable")
		}
		return outcomeNone
	}

	e.metrics.Sync("ok")
	e.lastSync = res.at

	active := pb.Active()
	switch {
	case active != nil && res.fingerprint == active.Fingerprint:
		if pb.DropPending() {
			e.logger.Info().Str("fingerprint", res.fingerprint).Msg("playlist reverted, pending dropped")
		}
		if !hasContentState(e.State()) {
			s.enterContent()
		}
	case pb.Pending() != nil && res.fingerprint == pb.Pending().Fingerprint:
		// already waiting for the loop boundary
	case res.snapshot == nil:
		e.logger.Debug().Str("fingerprint", res.fingerprint).Msg("sync result superseded")
	case !pb.HasContent():
		e.logger.Info().
			Str("fingerprint", res.fingerprint).
			Int("items", res.snapshot.Len()).
			Msg("playlist activated")
		pb.Load(res.snapshot, e.now())
		s.enterContent()
	default:
		e.logger.Info().
			Str("fingerprint", res.fingerprint).
			Int("items", res.snapshot.Len()).
			Msg("playlist staged for loop boundary")
		pb.Stage(res.snapshot)
	}

	e.publish()
	return outcomeNone
}

// enterContent derives playing or empty from the active snapshot
func (s *session) enterContent() {
	e := s.e
	if !e.playback.HasContent() {
		s.stopPlayback()
		e.setState(StateEmpty, "")
		return
	}
	e.setState(StatePlaying, "")
	e.keep.SetPlaying(true)
	s.present()
}

// advance is the single entry point that moves playback forward, whether
// triggered by a timer, the media element or the watchdog.
func (s *session) advance(reason string) {
	e := s.e
	pb := &e.playback
	if !pb.HasContent() {
		return
	}

	if pb.Advance(e.now()) {
		e.metrics.Promotion()
		e.logger.Info().Str("fingerprint", pb.Active().Fingerprint).Msg("pending playlist promoted")
		if !pb.HasContent() {
			s.enterContent()
			e.publish()
			return
		}
	}
	e.metrics.Advance(reason)
	s.present()
}

// present renders the current frame and arms every trigger for it
func (s *session) present() {
	e := s.e
	pb := &e.playback

	item, ok := pb.Current()
	if !ok {
		return
	}
	if e.opts.Transition <= 0 {
		pb.Settle()
	}

	stopTimer(&s.advanceTimer)
	stopTimer(&s.transitionTimer)

	bound := e.opts.VideoCeiling
	if item.Type == playlist.Image {
		d := item.DisplayDuration(e.opts.DefaultImageDuration)
		s.advanceTimer = time.NewTimer(d)
		bound = d + e.opts.WatchdogGrace
	}
	s.watchdog.Arm(Expectation{
		Seq:   pb.Seq(),
		Since: pb.Cursor().LastAdvance,
		Bound: bound,
	})

	if pb.Cursor().Transitioning {
		s.transitionTimer = time.NewTimer(e.opts.Transition)
	}
	e.surface.Present(s.frame())
	e.publish()
}

// settle ends the crossfade
func (s *session) settle() {
	s.e.playback.Settle()
	if _, ok := s.e.playback.Current(); ok {
		s.e.surface.Present(s.frame())
	}
	s.e.publish()
}

func (s *session) frame() v1alpha1.RenderFrame {
	pb := &s.e.playback
	f := v1alpha1.RenderFrame{Seq: pb.Seq()}
	if item, ok := pb.Current(); ok {
		f.Incoming = layer(item)
	}
	if out, ok := pb.Outgoing(); ok {
		f.Outgoing = layer(out)
		f.TransitionMillis = s.e.opts.Transition.Milliseconds()
	}
	return f
}

func layer(item playlist.Item) *v1alpha1.RenderLayer {
	return &v1alpha1.RenderLayer{
		ItemID: v1alpha1.ItemID(item.ID),
		Type:   item.ToWire().Type,
		Source: item.Source,
		Name:   item.Name,
	}
}

// mediaEvent advances on end-of-media or media errors of the current frame
func (s *session) mediaEvent(ev v1alpha1.PageEvent) {
	e := s.e
	if ev.Seq != e.playback.Seq() || e.State() != StatePlaying {
		e.logger.Debug().Uint64("seq", ev.Seq).Str("type", string(ev.Type)).Msg("stale media event ignored")
		return
	}

	switch ev.Type {
	case v1alpha1.PageEventEnded:
		item, _ := e.playback.Current()
		if item.Type != playlist.Video {
			return
		}
		s.advance(metrics.ReasonMediaEnd)
	case v1alpha1.PageEventMediaError:
		e.logger.Warn().Str("item", string(ev.ItemID)).Str("message", ev.Message).Msg("media failed, skipping")
		s.advance(metrics.ReasonMediaError)
	}
}

// stopPlayback cancels every timer and the watchdog expectation
func (s *session) stopPlayback() {
	stopTimer(&s.advanceTimer)
	stopTimer(&s.transitionTimer)
	s.watchdog.Disarm()
	s.e.keep.SetPlaying(false)
}

// clear drops all content
func (s *session) clear() {
	s.stopPlayback()
	s.e.playback.Clear(s.e.now())
}

// stop tears the session down
func (s *session) stop() {
	s.clear()
	s.e.publish()
}
