package config

import (
	"fmt"
	"net/url"
	"time"
)

func (c *Config) validate() error {
	u, err := url.Parse(c.Backend.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid backend url: %q", c.Backend.URL)
	}
	if c.Sync.Interval < time.Second {
		return fmt.Errorf("sync interval must be at least 1s")
	}
	if c.Sync.Timeout <= 0 {
		return fmt.Errorf("sync timeout must be positive")
	}
	if c.Pairing.PollInterval < 100*time.Millisecond {
		return fmt.Errorf("pairing poll interval must be at least 100ms")
	}
	if c.Playback.DefaultImageDuration <= 0 {
		return fmt.Errorf("default image duration must be positive")
	}
	if c.Playback.Transition < 0 {
		return fmt.Errorf("transition must not be negative")
	}
	if c.Watchdog.Interval <= 0 {
		return fmt.Errorf("watchdog interval must be positive")
	}
	if c.Watchdog.VideoCeiling <= c.Watchdog.Grace {
		return fmt.Errorf("video ceiling must exceed the watchdog grace")
	}
	if c.Cache.Dir == "" {
		return fmt.Errorf("cache dir is required")
	}
	if c.Cache.Concurrency < 1 {
		return fmt.Errorf("invalid cache concurrency: %d", c.Cache.Concurrency)
	}
	switch c.Credential.Backend {
	case "file":
		if c.Credential.Path == "" {
			return fmt.Errorf("credential path is required for the file backend")
		}
	case "redis":
		if c.Credential.Redis.Addr == "" {
			return fmt.Errorf("redis addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("unknown credential backend: %q", c.Credential.Backend)
	}
	if c.Server.Enabled && (c.Server.Port < 1 || c.Server.Port > 65535) {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Cache.PublicBaseURL != "" {
		if !c.Server.Enabled {
			return fmt.Errorf("cache publicBaseURL requires the local server")
		}
		u, err := url.Parse(c.Cache.PublicBaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid cache publicBaseURL: %q", c.Cache.PublicBaseURL)
		}
	}
	return nil
}
