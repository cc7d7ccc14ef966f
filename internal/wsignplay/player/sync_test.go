package player

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wrale/wrale-signage-player/api/types/v1alpha1"
	werrors "github.com/wrale/wrale-signage-player/internal/wsignplay/errors"
	"github.com/wrale/wrale-signage-player/internal/wsignplay/playlist"
	"github.com/wrale/wrale-signage-player/internal/wsignplay/testutil"
)

// fakeFetcher answers playlist requests from a swappable function. While
// hanging, requests block until their context ends.
type fakeFetcher struct {
	mu       sync.Mutex
	respond  func(token string) ([]v1alpha1.PlaylistItem, error)
	calls    int
	hanging  bool
	inFlight int
}

func newFetcher(items []v1alpha1.PlaylistItem, err error) *fakeFetcher {
	f := &fakeFetcher{}
	f.set(items, err)
	return f
}

func (f *fakeFetcher) set(items []v1alpha1.PlaylistItem, err error) {
	f.setFunc(func(string) ([]v1alpha1.PlaylistItem, error) {
		return items, err
	})
}

func (f *fakeFetcher) setFunc(fn func(token string) ([]v1alpha1.PlaylistItem, error)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.respond = fn
}

func (f *fakeFetcher) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeFetcher) hang(on bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hanging = on
}

func (f *fakeFetcher) InFlight() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.inFlight
}

func (f *fakeFetcher) FetchPlaylist(ctx context.Context, token string) ([]v1alpha1.PlaylistItem, error) {
	f.mu.Lock()
	f.calls++
	fn := f.respond
	if f.hanging {
		f.inFlight++
		f.mu.Unlock()
		<-ctx.Done()
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
		return nil, ctx.Err()
	}
	f.mu.Unlock()

	items, err := fn(token)
	if err != nil {
		return nil, err
	}
	// callers own the result
	return append([]v1alpha1.PlaylistItem(nil), items...), nil
}

type countingResolver struct {
	mu    sync.Mutex
	calls int
}

func (r *countingResolver) Resolve(ctx context.Context, url string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	return "http://127.0.0.1:8088/media/" + url
}

func (r *countingResolver) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func wireVideo(id string, order int) v1alpha1.PlaylistItem {
	return v1alpha1.PlaylistItem{
		ItemID:       v1alpha1.ItemID(id),
		Type:         v1alpha1.MediaTypeVideo,
		URL:          "https://cdn.example.com/" + id + ".mp4",
		DisplayOrder: order,
	}
}

func wireImage(id string, order int) v1alpha1.PlaylistItem {
	return v1alpha1.PlaylistItem{
		ItemID:       v1alpha1.ItemID(id),
		Type:         v1alpha1.MediaTypeImage,
		URL:          "https://cdn.example.com/" + id + ".png",
		DisplayOrder: order,
	}
}

func newSyncer(t *testing.T, f Fetcher, r Resolver) *syncer {
	return &syncer{
		fetcher:     f,
		resolver:    r,
		timeout:     time.Second,
		concurrency: 2,
		logger:      testutil.Logger(t),
	}
}

func TestSyncer_ResolvesNewPlaylist(t *testing.T) {
	wire := []v1alpha1.PlaylistItem{wireVideo("1", 0), wireImage("2", 1), wireVideo("3", 2)}
	resolver := &countingResolver{}
	s := newSyncer(t, newFetcher(wire, nil), resolver)

	res := s.run(context.Background(), "tok", "some-other-fingerprint")
	require.NoError(t, res.err)
	require.NotNil(t, res.snapshot)

	assert.Equal(t, 3, resolver.Calls())
	assert.Equal(t, playlist.Fingerprint(playlist.FromWire(wire)), res.fingerprint)
	assert.Equal(t, res.fingerprint, res.snapshot.Fingerprint)
	for _, item := range res.snapshot.Items {
		assert.Equal(t, "http://127.0.0.1:8088/media/"+item.URL, item.Source)
	}
	assert.False(t, res.at.IsZero())
}

func TestSyncer_KnownFingerprintSkipsResolution(t *testing.T) {
	wire := []v1alpha1.PlaylistItem{wireVideo("1", 0), wireVideo("2", 1)}
	fp := playlist.Fingerprint(playlist.FromWire(wire))
	resolver := &countingResolver{}
	s := newSyncer(t, newFetcher(wire, nil), resolver)

	res := s.run(context.Background(), "tok", "", fp)
	require.NoError(t, res.err)
	assert.Nil(t, res.snapshot)
	assert.Equal(t, fp, res.fingerprint)
	assert.Zero(t, resolver.Calls())
}

func TestSyncer_FetchError(t *testing.T) {
	s := newSyncer(t, newFetcher(nil, werrors.ErrSuspended), &countingResolver{})

	res := s.run(context.Background(), "tok")
	assert.ErrorIs(t, res.err, werrors.ErrSuspended)
	assert.Nil(t, res.snapshot)
}

type blockingFetcher struct{}

func (blockingFetcher) FetchPlaylist(ctx context.Context, token string) ([]v1alpha1.PlaylistItem, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestSyncer_Timeout(t *testing.T) {
	s := newSyncer(t, blockingFetcher{}, &countingResolver{})
	s.timeout = 20 * time.Millisecond

	res := s.run(context.Background(), "tok")
	assert.ErrorIs(t, res.err, context.DeadlineExceeded)
	assert.Equal(t, GoOffline, Classify(res.err, false))
}
