// Package config provides configuration management for the Wrale Signage player
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. WSIGNPLAY_BACKEND_URL
const EnvPrefix = "WSIGNPLAY"

// DefaultConfigDirs lists the directories searched for player.yaml, in order
var DefaultConfigDirs = []string{
	"/etc/wrale-signage",
	"/usr/local/etc/wrale-signage",
}

// allowedExtensions lists the allowed config file extensions
var allowedExtensions = []string{".yaml", ".yml"}

// Config holds all configuration for the player
type Config struct {
	Backend    BackendConfig    `mapstructure:"backend"`
	Sync       SyncConfig       `mapstructure:"sync"`
	Pairing    PairingConfig    `mapstructure:"pairing"`
	Playback   PlaybackConfig   `mapstructure:"playback"`
	Watchdog   WatchdogConfig   `mapstructure:"watchdog"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Credential CredentialConfig `mapstructure:"credential"`
	Server     ServerConfig     `mapstructure:"server"`
	Control    ControlConfig    `mapstructure:"control"`
	KeepAlive  KeepAliveConfig  `mapstructure:"keepalive"`
	Log        LogConfig        `mapstructure:"log"`
}

// BackendConfig locates the signage backend
type BackendConfig struct {
	URL string `mapstructure:"url"`
}

// SyncConfig controls playlist synchronization
type SyncConfig struct {
	Interval time.Duration `mapstructure:"interval"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// PairingConfig controls the pairing flow
type PairingConfig struct {
	PollInterval time.Duration `mapstructure:"pollInterval"`
	// RetryMaxInterval caps the backoff between failed pairing attempts
	RetryMaxInterval time.Duration `mapstructure:"retryMaxInterval"`
}

// PlaybackConfig controls the scheduler
type PlaybackConfig struct {
	DefaultImageDuration time.Duration `mapstructure:"defaultImageDuration"`
	Transition           time.Duration `mapstructure:"transition"`
}

// WatchdogConfig controls stall detection
type WatchdogConfig struct {
	Interval     time.Duration `mapstructure:"interval"`
	Grace        time.Duration `mapstructure:"grace"`
	VideoCeiling time.Duration `mapstructure:"videoCeiling"`
}

// CacheConfig controls the media cache
type CacheConfig struct {
	Dir string `mapstructure:"dir"`
	// PublicBaseURL is how the render surface reaches cached media. It
	// requires the local server; empty derives it from the server address.
	PublicBaseURL string        `mapstructure:"publicBaseURL"`
	SecureOrigin  bool          `mapstructure:"secureOrigin"`
	FetchTimeout  time.Duration `mapstructure:"fetchTimeout"`
	Concurrency   int           `mapstructure:"concurrency"`
}

// CredentialConfig selects where the device credential lives
type CredentialConfig struct {
	// Backend is file or redis
	Backend string      `mapstructure:"backend"`
	Path    string      `mapstructure:"path"`
	Redis   RedisConfig `mapstructure:"redis"`
}

// RedisConfig holds redis connection settings
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Key      string `mapstructure:"key"`
}

// ServerConfig holds local HTTP server settings
type ServerConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"readTimeout"`
	WriteTimeout time.Duration `mapstructure:"writeTimeout"`
	IdleTimeout  time.Duration `mapstructure:"idleTimeout"`
}

// Addr returns the listen address
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// MediaBaseURL returns the base URL cached media is served under, or an
// empty string when the local server is off and blobs load from disk.
func (c *Config) MediaBaseURL() string {
	if !c.Server.Enabled {
		return ""
	}
	if c.Cache.PublicBaseURL != "" {
		return c.Cache.PublicBaseURL
	}
	return "http://" + c.Server.Addr()
}

// ControlConfig controls the backend push channel
type ControlConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	StatusInterval time.Duration `mapstructure:"statusInterval"`
}

// KeepAliveConfig controls host screen keep-alive
type KeepAliveConfig struct {
	// DBus enables the org.freedesktop.ScreenSaver inhibitor
	DBus             bool          `mapstructure:"dbus"`
	ActivityInterval time.Duration `mapstructure:"activityInterval"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// setDefaults registers the default value of every key
func setDefaults(v *viper.Viper) {
	v.SetDefault("backend.url", "http://localhost:8080/api/v1alpha1")

	v.SetDefault("sync.interval", 30*time.Second)
	v.SetDefault("sync.timeout", 15*time.Second)

	v.SetDefault("pairing.pollInterval", 5*time.Second)
	v.SetDefault("pairing.retryMaxInterval", 60*time.Second)

	v.SetDefault("playback.defaultImageDuration", 10*time.Second)
	v.SetDefault("playback.transition", time.Second)

	v.SetDefault("watchdog.interval", 2*time.Second)
	v.SetDefault("watchdog.grace", 3*time.Second)
	v.SetDefault("watchdog.videoCeiling", 300*time.Second)

	v.SetDefault("cache.dir", defaultDataDir("cache"))
	v.SetDefault("cache.publicBaseURL", "")
	v.SetDefault("cache.secureOrigin", false)
	v.SetDefault("cache.fetchTimeout", 2*time.Minute)
	v.SetDefault("cache.concurrency", 4)

	v.SetDefault("credential.backend", "file")
	v.SetDefault("credential.path", defaultDataDir("credential.yaml"))
	v.SetDefault("credential.redis.addr", "localhost:6379")
	v.SetDefault("credential.redis.db", 0)
	v.SetDefault("credential.redis.key", "wsignplay:credential")

	v.SetDefault("server.enabled", true)
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8088)
	v.SetDefault("server.readTimeout", 15*time.Second)
	v.SetDefault("server.writeTimeout", 0)
	v.SetDefault("server.idleTimeout", 60*time.Second)

	v.SetDefault("control.enabled", true)
	v.SetDefault("control.statusInterval", 30*time.Second)

	v.SetDefault("keepalive.dbus", true)
	v.SetDefault("keepalive.activityInterval", 50*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// defaultDataDir returns a path under the per-user state directory
func defaultDataDir(name string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".wsignplay", name)
	}
	return filepath.Join(home, ".local", "state", "wsignplay", name)
}

// New returns a viper instance carrying defaults and environment overrides
func New() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads configuration from path, or from player.yaml in the default
// directories when path is empty. A missing default file is not an error.
func Load(v *viper.Viper, path string) (*Config, error) {
	if v == nil {
		v = New()
	}
	v.SetConfigType("yaml")

	if path != "" {
		clean, err := validateConfigPath(path)
		if err != nil {
			return nil, err
		}
		v.SetConfigFile(clean)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	} else {
		v.SetConfigName("player")
		for _, dir := range DefaultConfigDirs {
			v.AddConfigPath(dir)
		}
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("error reading config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// validateConfigPath cleans path and checks its extension
func validateConfigPath(path string) (string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("invalid config path: %w", err)
	}
	cleanPath := filepath.Clean(absPath)

	for _, ext := range allowedExtensions {
		if strings.HasSuffix(strings.ToLower(cleanPath), ext) {
			return cleanPath, nil
		}
	}
	return "", fmt.Errorf("config file must have .yaml or .yml extension")
}
