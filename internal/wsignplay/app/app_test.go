package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"

	"github.com/wrale/wrale-signage-player/api/types/v1alpha1"
	"github.com/wrale/wrale-signage-player/internal/wsignplay/config"
	"github.com/wrale/wrale-signage-player/internal/wsignplay/player"
)

// newBackend pairs on the first status poll and serves a one-video playlist
func newBackend(t *testing.T) *httptest.Server {
	r := chi.NewRouter()
	r.Post("/api/v1alpha1/pairing/start", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(v1alpha1.PairingStartResponse{Code: "K7Q2"})
	})
	r.Get("/api/v1alpha1/pairing/status/{code}", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(v1alpha1.PairingStatusResponse{Status: v1alpha1.PairingStatusPaired, Token: "tok-1"})
	})
	r.Get("/api/v1alpha1/playlist", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-1" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		_ = json.NewEncoder(w).Encode([]v1alpha1.PlaylistItem{{
			ItemID: "1",
			Type:   v1alpha1.MediaTypeVideo,
			URL:    "http://" + r.Host + "/media/intro.mp4",
		}})
	})
	r.Get("/media/intro.mp4", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "video/mp4")
		_, _ = w.Write([]byte("not really a video"))
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(t *testing.T, backendURL string) *config.Config {
	dir := t.TempDir()
	v := config.New()
	v.Set("backend.url", backendURL)
	v.Set("pairing.pollInterval", 100*time.Millisecond)
	v.Set("cache.dir", filepath.Join(dir, "cache"))
	v.Set("credential.path", filepath.Join(dir, "credential.yaml"))
	v.Set("server.enabled", false)
	v.Set("control.enabled", false)
	v.Set("keepalive.dbus", false)
	v.Set("log.level", "warn")

	cfg, err := config.Load(v, "")
	require.NoError(t, err)
	return cfg
}

func TestAppGraphValidity(t *testing.T) {
	cfg := testConfig(t, "http://localhost:8080/api/v1alpha1")
	assert.NoError(t, fx.ValidateApp(Options(cfg)))
}

func TestEndToEndPlayback(t *testing.T) {
	backend := newBackend(t)
	cfg := testConfig(t, backend.URL+"/api/v1alpha1")

	var engine *player.Engine
	app := fx.New(Options(cfg), fx.Populate(&engine))
	require.NoError(t, app.Err())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, app.Start(ctx))
	defer func() {
		assert.NoError(t, app.Stop(ctx))
	}()

	require.Eventually(t, func() bool {
		return engine.State() == player.StatePlaying
	}, 3*time.Second, 10*time.Millisecond)

	st := engine.Status()
	require.NotNil(t, st.Current)
	assert.Equal(t, backend.URL+"/media/intro.mp4", st.Current.URL)
	assert.Equal(t, 1, st.ActiveItems)
}

func TestNewCredentialStore_UnknownBackend(t *testing.T) {
	cfg := &config.Config{}
	cfg.Credential.Backend = "etcd"
	_, _, err := NewCredentialStore(cfg)
	assert.Error(t, err)
}
