// Package mediacache keeps durable local copies of playlist media so the
// player keeps rendering while the network is down.
package mediacache

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	werrors "github.com/wrale/wrale-signage-player/internal/wsignplay/errors"
	"github.com/wrale/wrale-signage-player/internal/wsignplay/metrics"
)

// DefaultFetchTimeout bounds a single media download
const DefaultFetchTimeout = 2 * time.Minute

// IndexFile is the name of the SQLite index inside the cache directory
const IndexFile = "index.db"

// Options configures a Cache
type Options struct {
	// Dir holds the blobs
	Dir string
	// PublicBaseURL, when set, makes handles point at the local media
	// endpoint instead of file:// paths
	PublicBaseURL string
	// SecureOrigin skips caching of plain http URLs
	SecureOrigin bool
	FetchTimeout time.Duration
	HTTPClient   *http.Client
}

// Cache resolves remote media URLs to local handles
type Cache struct {
	repo    *repository
	blobs   *blobStore
	opts    Options
	client  *http.Client
	group   singleflight.Group
	logger  zerolog.Logger
	metrics *metrics.Metrics
}

// New creates a cache over an opened index database
func New(db *sql.DB, opts Options, logger zerolog.Logger, m *metrics.Metrics) (*Cache, error) {
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = DefaultFetchTimeout
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{}
	}

	c := &Cache{
		repo:    &repository{db: db},
		blobs:   &blobStore{rootDir: opts.Dir, logger: logger},
		opts:    opts,
		client:  client,
		logger:  logger,
		metrics: m,
	}
	if err := c.blobs.CheckAccess(); err != nil {
		return nil, err
	}
	return c, nil
}

// Resolve returns a handle the render surface can load for rawURL. On any
// failure it returns rawURL itself, so it never fails.
func (c *Cache) Resolve(ctx context.Context, rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		c.metrics.CacheLookup(metrics.LookupBypass)
		return rawURL
	}
	if u.Scheme == "http" && c.opts.SecureOrigin {
		c.metrics.CacheLookup(metrics.LookupBypass)
		return rawURL
	}

	key := Key(rawURL)
	if e, err := c.repo.get(ctx, key); err == nil && c.blobs.Exists(e.Path) {
		c.metrics.CacheLookup(metrics.LookupHit)
		return c.handle(e)
	} else if err == nil {
		c.logger.Warn().Str("url", rawURL).Str("key", key).Msg("cached blob missing, refetching")
	} else if !werrors.IsNotFound(err) {
		c.logger.Warn().Err(err).Str("url", rawURL).Msg("cache index lookup failed")
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		return c.fetch(ctx, rawURL, key)
	})
	if err != nil {
		c.metrics.CacheLookup(metrics.LookupError)
		c.logger.Warn().Err(err).Str("url", rawURL).Msg("media not cached, using remote url")
		return rawURL
	}

	c.metrics.CacheLookup(metrics.LookupMiss)
	return c.handle(v.(*Entry))
}

// fetch downloads rawURL into the cache. The download is detached from the
// caller's cancellation because concurrent resolvers share it.
func (c *Cache) fetch(ctx context.Context, rawURL, key string) (*Entry, error) {
	const op = "Cache.fetch"

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.opts.FetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, werrors.NewError("INVALID_INPUT", "invalid media url", op, err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, werrors.NewError("UNAVAILABLE", "media fetch failed", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, werrors.NewError("UNAVAILABLE", fmt.Sprintf("media fetch returned %d", resp.StatusCode), op, werrors.ErrUnavailable)
	}

	rel, n, err := c.blobs.Store(ctx, key, resp.Body)
	if err != nil {
		return nil, werrors.NewError("INTERNAL", "failed to store media", op, err)
	}

	e := &Entry{
		URL:         rawURL,
		Key:         key,
		Path:        rel,
		ContentType: resp.Header.Get("Content-Type"),
		Size:        n,
		StoredAt:    time.Now().UTC(),
	}
	if err := c.repo.put(ctx, e); err != nil {
		return nil, err
	}

	c.metrics.CacheStored(n)
	c.logger.Info().Str("url", rawURL).Str("key", key).Int64("size", n).Msg("media cached")
	return e, nil
}

func (c *Cache) handle(e *Entry) string {
	if c.opts.PublicBaseURL != "" {
		return strings.TrimRight(c.opts.PublicBaseURL, "/") + "/media/" + e.Key
	}
	return "file://" + c.blobs.Path(e.Path)
}

// List returns every cache entry, oldest first
func (c *Cache) List(ctx context.Context) ([]Entry, error) {
	return c.repo.list(ctx)
}

// Open returns the blob stored under key. The caller closes the file.
func (c *Cache) Open(ctx context.Context, key string) (*os.File, *Entry, error) {
	const op = "Cache.Open"

	e, err := c.repo.get(ctx, key)
	if err != nil {
		return nil, nil, err
	}
	f, err := c.blobs.Open(e.Path)
	if os.IsNotExist(err) {
		return nil, nil, werrors.NewError("NOT_FOUND", "blob missing", op, werrors.ErrNotFound)
	}
	if err != nil {
		return nil, nil, werrors.NewError("INTERNAL", "failed to open blob", op, err)
	}
	return f, e, nil
}
