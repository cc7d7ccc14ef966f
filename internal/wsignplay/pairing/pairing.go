// Package pairing binds an unpaired device to the backend with a short code
// that an administrator redeems.
package pairing

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/wrale/wrale-signage-player/api/types/v1alpha1"
	"github.com/wrale/wrale-signage-player/internal/wsignplay/credential"
	werrors "github.com/wrale/wrale-signage-player/internal/wsignplay/errors"
)

// DefaultPollInterval is how often redemption is checked
const DefaultPollInterval = 5 * time.Second

// Backend is the part of the backend API used for pairing
type Backend interface {
	StartPairing(ctx context.Context) (string, error)
	PairingStatus(ctx context.Context, code string) (*v1alpha1.PairingStatusResponse, error)
}

// Controller runs the pairing flow
type Controller struct {
	backend      Backend
	store        credential.Store
	pollInterval time.Duration
	logger       zerolog.Logger
	now          func() time.Time
}

// NewController creates a pairing controller
func NewController(backend Backend, store credential.Store, pollInterval time.Duration, logger zerolog.Logger) *Controller {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	return &Controller{
		backend:      backend,
		store:        store,
		pollInterval: pollInterval,
		logger:       logger,
		now:          time.Now,
	}
}

// Pair obtains a code, hands it to show and waits until it is redeemed. The
// issued credential is persisted before it is returned. Failing to obtain a
// code returns an error matching errors.ErrPairingUnavailable; once a code is
// on screen, Pair only returns on success or context cancellation.
func (c *Controller) Pair(ctx context.Context, show func(code string)) (*credential.Credential, error) {
	const op = "Controller.Pair"

	for {
		code, err := c.backend.StartPairing(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, werrors.NewError("PAIRING_UNAVAILABLE", "could not obtain a pairing code", op,
				&wrapped{sentinel: werrors.ErrPairingUnavailable, cause: err})
		}

		c.logger.Info().Str("code", code).Msg("pairing code issued")
		show(code)

		token, err := c.await(ctx, code)
		if err != nil {
			return nil, err
		}
		if token == "" {
			c.logger.Info().Str("code", code).Msg("pairing code expired, requesting a new one")
			continue
		}

		cred := &credential.Credential{Token: token, PairedAt: c.now().UTC()}
		if err := c.store.Save(ctx, cred); err != nil {
			// Playback can proceed; the device pairs again after a restart.
			c.logger.Error().Err(err).Msg("failed to persist credential")
		}
		c.logger.Info().Msg("device paired")
		return cred, nil
	}
}

// await polls until code is redeemed. It returns the issued token, or an
// empty token when the code expired.
func (c *Controller) await(ctx context.Context, code string) (string, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
		}

		status, err := c.backend.PairingStatus(ctx, code)
		if err != nil {
			if werrors.IsNotFound(err) {
				return "", nil
			}
			c.logger.Debug().Err(err).Str("code", code).Msg("pairing status check failed")
			continue
		}

		switch status.Status {
		case v1alpha1.PairingStatusPaired:
			if token := status.DeviceToken(); token != "" {
				return token, nil
			}
			c.logger.Debug().Str("code", code).Msg("paired without credential, still waiting")
		case v1alpha1.PairingStatusExpired:
			return "", nil
		}
	}
}

// wrapped chains a sentinel in front of the cause so both match errors.Is
type wrapped struct {
	sentinel error
	cause    error
}

func (w *wrapped) Error() string {
	return w.sentinel.Error() + ": " + w.cause.Error()
}

func (w *wrapped) Unwrap() []error {
	return []error{w.sentinel, w.cause}
}
