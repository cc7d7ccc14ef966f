package mediacache

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	werrors "github.com/wrale/wrale-signage-player/internal/wsignplay/errors"
	"github.com/wrale/wrale-signage-player/internal/wsignplay/metrics"
	"github.com/wrale/wrale-signage-player/internal/wsignplay/testutil"
)

type mediaServer struct {
	*httptest.Server
	hits atomic.Int32
	gate chan struct{}
}

func newMediaServer(t *testing.T) *mediaServer {
	ms := &mediaServer{}
	ms.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ms.hits.Add(1)
		if ms.gate != nil {
			<-ms.gate
		}
		switch r.URL.Path {
		case "/broken.png":
			http.Error(w, "nope", http.StatusInternalServerError)
		default:
			w.Header().Set("Content-Type", "image/png")
			io.WriteString(w, "png:"+r.URL.Path)
		}
	}))
	t.Cleanup(ms.Close)
	return ms
}

func newCache(t *testing.T, opts Options) *Cache {
	if opts.Dir == "" {
		opts.Dir = t.TempDir()
	}
	c, err := New(testutil.SetupTestDB(t), opts, testutil.Logger(t), metrics.New())
	require.NoError(t, err)
	return c
}

func TestResolve_CachesOnce(t *testing.T) {
	ms := newMediaServer(t)
	c := newCache(t, Options{PublicBaseURL: "http://127.0.0.1:8088/"})
	ctx := context.Background()
	url := ms.URL + "/a.png"

	first := c.Resolve(ctx, url)
	second := c.Resolve(ctx, url)

	assert.Equal(t, "http://127.0.0.1:8088/media/"+Key(url), first)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), ms.hits.Load())

	f, e, err := c.Open(ctx, Key(url))
	require.NoError(t, err)
	defer f.Close()
	body, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "png:/a.png", string(body))
	assert.Equal(t, "image/png", e.ContentType)
	assert.Equal(t, int64(len(body)), e.Size)
}

func TestResolve_FileHandle(t *testing.T) {
	ms := newMediaServer(t)
	c := newCache(t, Options{})

	handle := c.Resolve(context.Background(), ms.URL+"/b.png")
	require.True(t, strings.HasPrefix(handle, "file://"))

	data, err := os.ReadFile(strings.TrimPrefix(handle, "file://"))
	require.NoError(t, err)
	assert.Equal(t, "png:/b.png", string(data))
}

func TestResolve_FallsBackToRemote(t *testing.T) {
	ms := newMediaServer(t)
	ctx := context.Background()

	tests := []struct {
		name string
		opts Options
		url  string
	}{
		{name: "server error", url: ms.URL + "/broken.png"},
		{name: "unreachable", url: "http://127.0.0.1:1/missing.png"},
		{name: "insecure origin", opts: Options{SecureOrigin: true}, url: ms.URL + "/c.png"},
		{name: "not http", url: "data:image/png;base64,AAAA"},
		{name: "unparseable", url: "http://[::1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newCache(t, tt.opts)
			assert.Equal(t, tt.url, c.Resolve(ctx, tt.url))
		})
	}
}

func TestResolve_RepairsMissingBlob(t *testing.T) {
	ms := newMediaServer(t)
	c := newCache(t, Options{})
	ctx := context.Background()
	url := ms.URL + "/d.png"

	handle := c.Resolve(ctx, url)
	require.NoError(t, os.Remove(strings.TrimPrefix(handle, "file://")))

	assert.Equal(t, handle, c.Resolve(ctx, url))
	assert.Equal(t, int32(2), ms.hits.Load())

	entries, err := c.List(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestResolve_CollapsesConcurrentFetches(t *testing.T) {
	ms := newMediaServer(t)
	ms.gate = make(chan struct{})
	c := newCache(t, Options{})
	url := ms.URL + "/e.png"

	const callers = 8
	var wg sync.WaitGroup
	results := make([]string, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = c.Resolve(context.Background(), url)
		}(i)
	}

	// Release the in-flight request once every caller has queued up
	assert.Eventually(t, func() bool { return ms.hits.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	close(ms.gate)
	wg.Wait()

	assert.Equal(t, int32(1), ms.hits.Load())
	for _, r := range results {
		assert.Equal(t, results[0], r)
	}
}

func TestOpen_Unknown(t *testing.T) {
	c := newCache(t, Options{})
	_, _, err := c.Open(context.Background(), Key("https://example.com/none.png"))
	assert.True(t, werrors.IsNotFound(err))
}
