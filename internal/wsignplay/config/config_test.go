package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(New(), "")
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, cfg.Sync.Interval)
	assert.Equal(t, 5*time.Second, cfg.Pairing.PollInterval)
	assert.Equal(t, 10*time.Second, cfg.Playback.DefaultImageDuration)
	assert.Equal(t, time.Second, cfg.Playback.Transition)
	assert.Equal(t, 2*time.Second, cfg.Watchdog.Interval)
	assert.Equal(t, 3*time.Second, cfg.Watchdog.Grace)
	assert.Equal(t, 300*time.Second, cfg.Watchdog.VideoCeiling)
	assert.Equal(t, "file", cfg.Credential.Backend)
	assert.Equal(t, "127.0.0.1:8088", cfg.Server.Addr())
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "player.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
backend:
  url: https://signage.example.com/api/v1alpha1
sync:
  interval: 45s
watchdog:
  videoCeiling: 10m
cache:
  dir: /var/cache/wsignplay
`), 0o600))

	t.Setenv("WSIGNPLAY_SYNC_INTERVAL", "1m")
	t.Setenv("WSIGNPLAY_LOG_LEVEL", "debug")

	cfg, err := Load(New(), path)
	require.NoError(t, err)

	assert.Equal(t, "https://signage.example.com/api/v1alpha1", cfg.Backend.URL)
	assert.Equal(t, time.Minute, cfg.Sync.Interval)
	assert.Equal(t, 10*time.Minute, cfg.Watchdog.VideoCeiling)
	assert.Equal(t, "/var/cache/wsignplay", cfg.Cache.Dir)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_RejectsExtension(t *testing.T) {
	_, err := Load(New(), filepath.Join(t.TempDir(), "player.json"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg, err := Load(New(), "")
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "backend url", mutate: func(c *Config) { c.Backend.URL = "not a url" }},
		{name: "sync interval", mutate: func(c *Config) { c.Sync.Interval = 0 }},
		{name: "video ceiling", mutate: func(c *Config) { c.Watchdog.VideoCeiling = time.Second }},
		{name: "credential backend", mutate: func(c *Config) { c.Credential.Backend = "vault" }},
		{name: "concurrency", mutate: func(c *Config) { c.Cache.Concurrency = 0 }},
		{name: "server port", mutate: func(c *Config) { c.Server.Port = 70000 }},
		{name: "public url without server", mutate: func(c *Config) {
			c.Server.Enabled = false
			c.Cache.PublicBaseURL = "http://player.local:8088"
		}},
		{name: "public url", mutate: func(c *Config) { c.Cache.PublicBaseURL = "player.local" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.Error(t, cfg.validate())
		})
	}
}

func TestMediaBaseURL(t *testing.T) {
	cfg, err := Load(New(), "")
	require.NoError(t, err)
	assert.Equal(t, "http://"+cfg.Server.Addr(), cfg.MediaBaseURL())

	cfg.Cache.PublicBaseURL = "https://player.local"
	require.NoError(t, cfg.validate())
	assert.Equal(t, "https://player.local", cfg.MediaBaseURL())

	cfg.Cache.PublicBaseURL = ""
	cfg.Server.Enabled = false
	require.NoError(t, cfg.validate())
	assert.Empty(t, cfg.MediaBaseURL())
}
