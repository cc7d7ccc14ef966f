// Package player runs the unattended playback engine: it pairs the device,
// keeps the playlist in sync, drives the display loop and heals stalls.
package player

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/wrale/wrale-signage-player/api/types/v1alpha1"
	"github.com/wrale/wrale-signage-player/internal/wsignplay/credential"
	werrors "github.com/wrale/wrale-signage-player/internal/wsignplay/errors"
	"github.com/wrale/wrale-signage-player/internal/wsignplay/metrics"
	"github.com/wrale/wrale-signage-player/internal/wsignplay/playlist"
	"github.com/wrale/wrale-signage-player/internal/wsignplay/render"
)

// Options tunes the engine
type Options struct {
	SyncInterval         time.Duration
	SyncTimeout          time.Duration
	DefaultImageDuration time.Duration
	Transition           time.Duration
	WatchdogInterval     time.Duration
	WatchdogGrace        time.Duration
	VideoCeiling         time.Duration
	ResolveConcurrency   int
	PairingRetryInitial  time.Duration
	PairingRetryMax      time.Duration
}

// DefaultOptions returns the stock timings
func DefaultOptions() Options {
	return Options{
		SyncInterval:         30 * time.Second,
		SyncTimeout:          15 * time.Second,
		DefaultImageDuration: playlist.DefaultImageDuration,
		Transition:           time.Second,
		WatchdogInterval:     DefaultWatchdogInterval,
		WatchdogGrace:        3 * time.Second,
		VideoCeiling:         300 * time.Second,
		ResolveConcurrency:   4,
		PairingRetryInitial:  2 * time.Second,
		PairingRetryMax:      time.Minute,
	}
}

// Pairer obtains a credential for an unpaired device
type Pairer interface {
	Pair(ctx context.Context, show func(code string)) (*credential.Credential, error)
}

// KeepAlive is told about gestures, visibility and playback
type KeepAlive interface {
	Begin()
	Started() bool
	VisibilityChanged(visible bool)
	WakeLockReleased()
	SetPlaying(playing bool)
}

// Engine owns the operational state machine
type Engine struct {
	opts      Options
	sessionID uuid.UUID
	store     credential.Store
	pairer    Pairer
	syncer    *syncer
	surface   render.Surface
	keep      KeepAlive
	metrics   *metrics.Metrics
	logger    zerolog.Logger
	now       func() time.Time

	retryCh  chan struct{}
	syncCh   chan struct{}
	reloadCh chan struct{}
	mediaCh  chan v1alpha1.PageEvent

	// Owned by the Run goroutine. playback persists across sessions so
	// frame sequence numbers never repeat.
	playback Playback
	lastSync time.Time

	mu     sync.RWMutex
	state  State
	detail string
	code   string
	status v1alpha1.PlayerStatus
}

// New creates an engine
func New(opts Options, store credential.Store, pairer Pairer, fetcher Fetcher, resolver Resolver,
	surface render.Surface, keep KeepAlive, m *metrics.Metrics, logger zerolog.Logger) *Engine {
	if opts.ResolveConcurrency < 1 {
		opts.ResolveConcurrency = 1
	}
	e := &Engine{
		opts:      opts,
		sessionID: uuid.New(),
		store:     store,
		pairer:    pairer,
		syncer: &syncer{
			fetcher:     fetcher,
			resolver:    resolver,
			timeout:     opts.SyncTimeout,
			concurrency: opts.ResolveConcurrency,
			logger:      logger,
		},
		surface:  surface,
		keep:     keep,
		metrics:  m,
		logger:   logger,
		now:      time.Now,
		retryCh:  make(chan struct{}, 1),
		syncCh:   make(chan struct{}, 1),
		reloadCh: make(chan struct{}, 1),
		mediaCh:  make(chan v1alpha1.PageEvent, 16),
		state:    StateBooting,
	}
	e.publish()
	return e
}

// SessionID identifies this process run
func (e *Engine) SessionID() uuid.UUID {
	return e.sessionID
}

// Retry asks for an immediate pairing or sync attempt
func (e *Engine) Retry() { nudge(e.retryCh) }

// SyncNow asks for an immediate sync
func (e *Engine) SyncNow() { nudge(e.syncCh) }

// Reload restarts the session as if the process had booted again
func (e *Engine) Reload() { nudge(e.reloadCh) }

// StartSession handles the operator start gesture
func (e *Engine) StartSession() { e.keep.Begin() }

func nudge(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

// Run drives the engine until ctx is cancelled
func (e *Engine) Run(ctx context.Context) error {
	e.logger.Info().Str("session_id", e.sessionID.String()).Msg("player engine starting")
	go e.dispatchSignals(ctx)

	e.setState(StateBooting, "")
	for {
		cred, err := e.credential(ctx)
		if err != nil {
			return nil
		}

		switch e.runSession(ctx, cred) {
		case outcomeDone:
			e.logger.Info().Msg("player engine stopped")
			return nil
		case outcomeRejected:
			e.logger.Warn().Msg("credential rejected, pairing again")
			if err := e.store.Clear(ctx); err != nil {
				e.logger.Error().Err(err).Msg("failed to clear credential")
			}
			e.setState(StateBooting, "")
		case outcomeReload:
			e.logger.Info().Msg("reloading session")
			e.setState(StateBooting, "")
		}
	}
}

// credential loads the stored credential or pairs. It only fails when ctx ends.
func (e *Engine) credential(ctx context.Context) (*credential.Credential, error) {
	cred, err := e.store.Load(ctx)
	if err == nil {
		return cred, nil
	}
	if !werrors.IsNotFound(err) {
		e.logger.Warn().Err(err).Msg("stored credential unusable")
	}
	return e.pair(ctx)
}

// pair runs the pairing flow, retrying with backoff while no code can be issued
func (e *Engine) pair(ctx context.Context) (*credential.Credential, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = e.opts.PairingRetryInitial
	b.MaxInterval = e.opts.PairingRetryMax
	b.MaxElapsedTime = 0
	b.Reset()

	for {
		cred, err := e.pairer.Pair(ctx, func(code string) {
			e.setPairing(code)
		})
		if err == nil {
			return cred, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		wait := b.NextBackOff()
		e.logger.Warn().Err(err).Dur("retry_in", wait).Msg("pairing unavailable")
		e.setState(StateOffline, "pairing unavailable")

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-e.retryCh:
			timer.Stop()
			b.Reset()
		case <-timer.C:
		}
	}
}

// dispatchSignals routes page events: media events go to the engine loop,
// everything else to keep-alive.
func (e *Engine) dispatchSignals(ctx context.Context) {
	signals := e.surface.Signals()
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-signals:
			switch ev.Type {
			case v1alpha1.PageEventEnded, v1alpha1.PageEventMediaError:
				select {
				case e.mediaCh <- ev:
				default:
					e.logger.Warn().Str("type", string(ev.Type)).Msg("media event dropped, engine busy")
				}
			case v1alpha1.PageEventGesture:
				e.keep.Begin()
			case v1alpha1.PageEventVisibility:
				e.keep.VisibilityChanged(ev.Visible)
			case v1alpha1.PageEventWakeLockReleased:
				e.keep.WakeLockReleased()
			case v1alpha1.PageEventRetry:
				e.Retry()
			}
		}
	}
}

// setState records a transition and shows the matching status screen
func (e *Engine) setState(s State, detail string) {
	e.mu.Lock()
	prev := e.state
	e.state = s
	e.detail = detail
	if s != StatePairing {
		e.code = ""
	}
	code := e.code
	e.mu.Unlock()

	if prev != s {
		e.logger.Info().
			Str("from", string(prev)).
			Str("to", string(s)).
			Str("detail", detail).
			Msg("state transition")
		e.metrics.SetState(string(s), stateNames())
	}
	if s != StatePlaying {
		e.surface.ShowState(renderState(s, detail, code))
	}
	e.publish()
}

func (e *Engine) setPairing(code string) {
	e.mu.Lock()
	e.code = code
	e.mu.Unlock()
	e.setState(StatePairing, "")
}

// State returns the current operational state
func (e *Engine) State() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}
