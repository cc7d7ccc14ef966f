package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wrale/wrale-signage-player/api/types/v1alpha1"
	"github.com/wrale/wrale-signage-player/internal/wsignplay/config"
	werrors "github.com/wrale/wrale-signage-player/internal/wsignplay/errors"
	"github.com/wrale/wrale-signage-player/internal/wsignplay/mediacache"
	"github.com/wrale/wrale-signage-player/internal/wsignplay/metrics"
	"github.com/wrale/wrale-signage-player/internal/wsignplay/render/kiosk"
	"github.com/wrale/wrale-signage-player/internal/wsignplay/testutil"
)

type fakePlayer struct {
	mu      sync.Mutex
	state   v1alpha1.PlayerState
	started bool
	retries int
}

func (p *fakePlayer) Status() v1alpha1.PlayerStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return v1alpha1.PlayerStatus{
		TypeMeta:       v1alpha1.TypeMeta{Kind: "PlayerStatus", APIVersion: v1alpha1.APIVersion},
		State:          p.state,
		SessionStarted: p.started,
	}
}

func (p *fakePlayer) StartSession() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.started = true
}

func (p *fakePlayer) Retry() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.retries++
}

// fakeMedia serves blobs from a temp directory
type fakeMedia struct {
	dir     string
	entries map[string]mediacache.Entry
}

func newFakeMedia(t *testing.T) *fakeMedia {
	return &fakeMedia{dir: t.TempDir(), entries: map[string]mediacache.Entry{}}
}

func (m *fakeMedia) add(t *testing.T, url, contentType, body string) string {
	key := mediacache.Key(url)
	path := filepath.Join(m.dir, key)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	m.entries[key] = mediacache.Entry{
		URL:         url,
		Key:         key,
		Path:        path,
		ContentType: contentType,
		Size:        int64(len(body)),
		StoredAt:    time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	return key
}

func (m *fakeMedia) Open(ctx context.Context, key string) (*os.File, *mediacache.Entry, error) {
	e, ok := m.entries[key]
	if !ok {
		return nil, nil, werrors.NewError("NOT_FOUND", "no such entry", "fakeMedia.Open", werrors.ErrNotFound)
	}
	f, err := os.Open(e.Path)
	if err != nil {
		return nil, nil, err
	}
	return f, &e, nil
}

func (m *fakeMedia) List(ctx context.Context) ([]mediacache.Entry, error) {
	var out []mediacache.Entry
	for _, e := range m.entries {
		out = append(out, e)
	}
	return out, nil
}

type testServer struct {
	player *fakePlayer
	media  *fakeMedia
	hub    *kiosk.Hub
	router http.Handler
}

func newTestServer(t *testing.T) *testServer {
	logger := testutil.Logger(t)
	ts := &testServer{
		player: &fakePlayer{state: v1alpha1.PlayerStatePlaying},
		media:  newFakeMedia(t),
		hub:    kiosk.NewHub(logger),
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go ts.hub.Run(ctx)

	h := NewHandler(ts.player, ts.media, http.HandlerFunc(ts.hub.ServeWs), kiosk.PageHandler(), metrics.New(), logger)
	ts.router = h.Router()
	return ts
}

func (ts *testServer) do(method, path string, hdr map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestReady(t *testing.T) {
	ts := newTestServer(t)

	ts.player.state = v1alpha1.PlayerStateBooting
	assert.Equal(t, http.StatusServiceUnavailable, ts.do(http.MethodGet, "/readyz", nil).Code)

	ts.player.state = v1alpha1.PlayerStateOffline
	rec := ts.do(http.MethodGet, "/readyz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","state":"offline"}`, rec.Body.String())
}

func TestStatus(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(http.MethodGet, "/api/v1alpha1/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var st v1alpha1.PlayerStatus
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&st))
	assert.Equal(t, v1alpha1.PlayerStatePlaying, st.State)
	assert.Equal(t, "PlayerStatus", st.Kind)
}

func TestOperatorActions(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/api/v1alpha1/session/start", nil)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	var st v1alpha1.PlayerStatus
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&st))
	assert.True(t, st.SessionStarted)

	rec = ts.do(http.MethodPost, "/api/v1alpha1/retry", nil)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, 1, ts.player.retries)

	assert.Equal(t, http.StatusMethodNotAllowed, ts.do(http.MethodGet, "/api/v1alpha1/retry", nil).Code)
}

func TestUnknownAPIRoute(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(http.MethodGet, "/api/v1alpha1/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"code":"NOT_FOUND","message":"not found"}`, rec.Body.String())
}

func TestServeMedia(t *testing.T) {
	ts := newTestServer(t)
	key := ts.media.add(t, "https://cdn.example.com/a.png", "image/png", "0123456789")

	rec := ts.do(http.MethodGet, "/media/"+key, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, "0123456789", rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("Last-Modified"))

	rec = ts.do(http.MethodGet, "/media/"+key, map[string]string{"Range": "bytes=2-4"})
	assert.Equal(t, http.StatusPartialContent, rec.Code)
	assert.Equal(t, "234", rec.Body.String())

	rec = ts.do(http.MethodGet, "/media/"+strings.Repeat("0", 64), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListMedia(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(http.MethodGet, "/api/v1alpha1/media", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	ts.media.add(t, "https://cdn.example.com/a.png", "image/png", "x")
	rec = ts.do(http.MethodGet, "/api/v1alpha1/media", nil)
	var entries []mediacache.Entry
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "https://cdn.example.com/a.png", entries[0].URL)
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)
	ts.do(http.MethodGet, "/healthz", nil)

	rec := ts.do(http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `wsignplay_http_requests_total{endpoint="/healthz"`)
}

func TestKioskPageAndRenderSocket(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<html")

	// the websocket upgrade must survive the middleware stack
	srv := httptest.NewServer(ts.router)
	defer srv.Close()

	ts.hub.ShowState(v1alpha1.RenderState{State: v1alpha1.PlayerStatePairing, PairingCode: "K7Q2"})
	ws, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/render/ws", nil)
	require.NoError(t, err)
	defer ws.Close()

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg v1alpha1.RenderMessage
	require.NoError(t, ws.ReadJSON(&msg))
	assert.Equal(t, v1alpha1.RenderMessageState, msg.Type)
	assert.Equal(t, "K7Q2", msg.State.PairingCode)
}

func TestRecoverMiddleware(t *testing.T) {
	h := recoverMiddleware(testutil.Logger(t))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"code":"INTERNAL","message":"internal error"}`, rec.Body.String())
}

func TestServer_StartAndShutdown(t *testing.T) {
	ts := newTestServer(t)
	srv := New(config.ServerConfig{Host: "127.0.0.1", Port: 0, ReadTimeout: time.Second}, ts.router, testutil.Logger(t))
	require.NoError(t, srv.Start(context.Background()))

	resp, err := http.Get("http://" + srv.Addr() + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	assert.NoError(t, srv.Shutdown(ctx))
}
