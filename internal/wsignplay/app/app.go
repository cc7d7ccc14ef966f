// Package app assembles the player process with fx
package app

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"golang.org/x/sync/errgroup"

	"github.com/wrale/wrale-signage-player/internal/wsignplay/client"
	"github.com/wrale/wrale-signage-player/internal/wsignplay/config"
	"github.com/wrale/wrale-signage-player/internal/wsignplay/control"
	"github.com/wrale/wrale-signage-player/internal/wsignplay/credential"
	credredis "github.com/wrale/wrale-signage-player/internal/wsignplay/credential/redis"
	"github.com/wrale/wrale-signage-player/internal/wsignplay/database"
	"github.com/wrale/wrale-signage-player/internal/wsignplay/keepalive"
	"github.com/wrale/wrale-signage-player/internal/wsignplay/logging"
	"github.com/wrale/wrale-signage-player/internal/wsignplay/mediacache"
	"github.com/wrale/wrale-signage-player/internal/wsignplay/metrics"
	"github.com/wrale/wrale-signage-player/internal/wsignplay/pairing"
	"github.com/wrale/wrale-signage-player/internal/wsignplay/player"
	"github.com/wrale/wrale-signage-player/internal/wsignplay/render/kiosk"
	"github.com/wrale/wrale-signage-player/internal/wsignplay/server"
)

// Options returns the fx options that build a player from cfg
func Options(cfg *config.Config) fx.Option {
	return fx.Options(
		fx.Supply(cfg),
		fx.Provide(
			newLogger,
			metrics.New,
			newDatabase,
			newCache,
			newClient,
			newCredentialStore,
			newHub,
			newKeepAlive,
			newPairing,
			newEngine,
			newHandler,
		),
		fx.WithLogger(func(logger zerolog.Logger) fxevent.Logger {
			return &fxLogger{logger: logging.Component(logger, "fx")}
		}),
		fx.Invoke(registerHooks),
	)
}

// New creates the player application
func New(cfg *config.Config) *fx.App {
	return fx.New(Options(cfg))
}

func newLogger(cfg *config.Config) zerolog.Logger {
	return logging.Setup(cfg.Log.Level, cfg.Log.Format)
}

func newDatabase(lc fx.Lifecycle, cfg *config.Config) (*sql.DB, error) {
	if err := os.MkdirAll(cfg.Cache.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	db, err := database.Open(context.Background(), filepath.Join(cfg.Cache.Dir, mediacache.IndexFile))
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return db.Close()
		},
	})
	return db, nil
}

func newCache(cfg *config.Config, db *sql.DB, logger zerolog.Logger, m *metrics.Metrics) (*mediacache.Cache, error) {
	opts := mediacache.Options{
		Dir:           cfg.Cache.Dir,
		PublicBaseURL: cfg.MediaBaseURL(),
		SecureOrigin:  cfg.Cache.SecureOrigin,
		FetchTimeout:  cfg.Cache.FetchTimeout,
	}
	return mediacache.New(db, opts, logging.Component(logger, "mediacache"), m)
}

func newClient(cfg *config.Config) (*client.Client, error) {
	return client.NewClient(cfg.Backend.URL)
}

func newCredentialStore(lc fx.Lifecycle, cfg *config.Config) (credential.Store, error) {
	store, closeFn, err := NewCredentialStore(cfg)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return closeFn()
		},
	})
	return store, nil
}

// NewCredentialStore opens the configured credential store. The returned
// function releases its resources.
func NewCredentialStore(cfg *config.Config) (credential.Store, func() error, error) {
	switch cfg.Credential.Backend {
	case "redis":
		rc := redis.NewClient(&redis.Options{
			Addr:     cfg.Credential.Redis.Addr,
			Password: cfg.Credential.Redis.Password,
			DB:       cfg.Credential.Redis.DB,
		})
		return credredis.NewStore(rc, cfg.Credential.Redis.Key), rc.Close, nil
	case "file", "":
		return credential.NewFileStore(cfg.Credential.Path), func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unknown credential backend %q", cfg.Credential.Backend)
	}
}

func newHub(logger zerolog.Logger) *kiosk.Hub {
	return kiosk.NewHub(logging.Component(logger, "kiosk"))
}

func newKeepAlive(lc fx.Lifecycle, cfg *config.Config, hub *kiosk.Hub, logger zerolog.Logger) *keepalive.Session {
	logger = logging.Component(logger, "keepalive")
	inhibitor := keepalive.NewInhibitor(cfg.KeepAlive.DBus, logger)
	s := keepalive.NewSession(hub, inhibitor, cfg.KeepAlive.ActivityInterval, logger)
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return s.Close()
		},
	})
	return s
}

func newPairing(cfg *config.Config, c *client.Client, store credential.Store, logger zerolog.Logger) *pairing.Controller {
	return pairing.NewController(c, store, cfg.Pairing.PollInterval, logging.Component(logger, "pairing"))
}

func newEngine(
	cfg *config.Config,
	store credential.Store,
	pc *pairing.Controller,
	c *client.Client,
	cache *mediacache.Cache,
	hub *kiosk.Hub,
	keep *keepalive.Session,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *player.Engine {
	opts := player.DefaultOptions()
	opts.SyncInterval = cfg.Sync.Interval
	opts.SyncTimeout = cfg.Sync.Timeout
	opts.DefaultImageDuration = cfg.Playback.DefaultImageDuration
	opts.Transition = cfg.Playback.Transition
	opts.WatchdogInterval = cfg.Watchdog.Interval
	opts.WatchdogGrace = cfg.Watchdog.Grace
	opts.VideoCeiling = cfg.Watchdog.VideoCeiling
	opts.ResolveConcurrency = cfg.Cache.Concurrency
	opts.PairingRetryMax = cfg.Pairing.RetryMaxInterval

	return player.New(opts, store, pc, c, cache, hub, keep, m, logging.Component(logger, "player"))
}

func newHandler(engine *player.Engine, cache *mediacache.Cache, hub *kiosk.Hub, m *metrics.Metrics, logger zerolog.Logger) *server.Handler {
	return server.NewHandler(engine, cache, http.HandlerFunc(hub.ServeWs), kiosk.PageHandler(), m, logging.Component(logger, "server"))
}

// hookParams collects everything the lifecycle hooks start
type hookParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    *config.Config
	Engine    *player.Engine
	Hub       *kiosk.Hub
	Handler   *server.Handler
	Client    *client.Client
	Store     credential.Store
	Logger    zerolog.Logger
}

// registerHooks starts the background workers and the local server
func registerHooks(p hookParams) {
	var (
		cancel context.CancelFunc
		g      errgroup.Group
		srv    *server.Server
	)

	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if p.Config.Server.Enabled {
				srv = server.New(p.Config.Server, p.Handler.Router(), logging.Component(p.Logger, "server"))
				if err := srv.Start(ctx); err != nil {
					return fmt.Errorf("failed to start local server: %w", err)
				}
			}

			var runCtx context.Context
			runCtx, cancel = context.WithCancel(context.Background())

			g.Go(func() error {
				p.Hub.Run(runCtx)
				return nil
			})
			g.Go(func() error {
				return p.Engine.Run(runCtx)
			})
			if p.Config.Control.Enabled {
				mgr := control.NewManager(control.Options{
					URL:            p.Client.ControlURL(),
					StatusInterval: p.Config.Control.StatusInterval,
					RetryMax:       p.Config.Pairing.RetryMaxInterval,
				}, p.Store, p.Engine, logging.Component(p.Logger, "control"))
				g.Go(func() error {
					return mgr.Run(runCtx)
				})
			}

			p.Logger.Info().
				Str("session_id", p.Engine.SessionID().String()).
				Str("backend", p.Config.Backend.URL).
				Msg("player started")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if cancel != nil {
				cancel()
			}

			done := make(chan error, 1)
			go func() { done <- g.Wait() }()

			var err error
			select {
			case err = <-done:
			case <-ctx.Done():
				err = ctx.Err()
			}

			if srv != nil {
				shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
				defer stop()
				if serr := srv.Shutdown(shutdownCtx); serr != nil && err == nil {
					err = serr
				}
			}
			p.Logger.Info().Msg("player stopped")
			return err
		},
	})
}
