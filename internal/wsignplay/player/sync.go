package player

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/wrale/wrale-signage-player/api/types/v1alpha1"
	"github.com/wrale/wrale-signage-player/internal/wsignplay/playlist"
)

// Fetcher retrieves the playlist assigned to a credential
type Fetcher interface {
	FetchPlaylist(ctx context.Context, token string) ([]v1alpha1.PlaylistItem, error)
}

// Resolver turns a remote media URL into a renderable handle. It never fails;
// on trouble it returns the URL unchanged.
type Resolver interface {
	Resolve(ctx context.Context, url string) string
}

// syncResult is posted by the sync worker into the engine loop
type syncResult struct {
	at          time.Time
	err         error
	fingerprint string
	// snapshot is nil when the fingerprint matched one the engine already
	// holds, in which case nothing was resolved
	snapshot *playlist.Snapshot
}

// syncer fetches and resolves playlists off the engine goroutine
type syncer struct {
	fetcher     Fetcher
	resolver    Resolver
	timeout     time.Duration
	concurrency int
	logger      zerolog.Logger
}

// run performs one sync. known holds the fingerprints the engine had when
// the sync started; a match skips media resolution.
func (s *syncer) run(ctx context.Context, token string, known ...string) syncResult {
	fetchCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	wire, err := s.fetcher.FetchPlaylist(fetchCtx, token)
	if err != nil {
		return syncResult{at: time.Now(), err: err}
	}

	items := playlist.FromWire(wire)
	fp := playlist.Fingerprint(items)
	for _, k := range known {
		if k != "" && k == fp {
			return syncResult{at: time.Now(), fingerprint: fp}
		}
	}

	s.resolve(ctx, items)
	return syncResult{
		at:          time.Now(),
		fingerprint: fp,
		snapshot:    &playlist.Snapshot{Items: items, Fingerprint: fp},
	}
}

// resolve replaces every item source with its cached handle
func (s *syncer) resolve(ctx context.Context, items []playlist.Item) {
	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i := range items {
		i := i
		g.Go(func() error {
			items[i] = items[i].WithSource(s.resolver.Resolve(gctx, items[i].URL))
			return nil
		})
	}
	_ = g.Wait()

	s.logger.Debug().
		Int("items", len(items)).
		Dur("elapsed", time.Since(start)).
		Msg("media resolved")
}
