package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete waitroom configuration
type Config struct {
	Wait    WaitConfig    `mapstructure:"wait" yaml:"wait"`
	Store   StoreConfig   `mapstructure:"store" yaml:"store"`
	Server  ServerConfig  `mapstructure:"server" yaml:"server"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// WaitConfig controls the long-poll timings
type WaitConfig struct {
	// HeartbeatIntervalSeconds is the cadence of liveness notifications (default: 30)
	HeartbeatIntervalSeconds int `mapstructure:"heartbeat_interval_seconds" yaml:"heartbeat_interval_seconds"`
	// DefaultTimeoutSeconds applies when a caller omits a timeout (default: 120)
	DefaultTimeoutSeconds int `mapstructure:"default_timeout_seconds" yaml:"default_timeout_seconds"`
	// PollIntervalMs is how often the mailbox is checked between heartbeats (default: 1000)
	PollIntervalMs int `mapstructure:"poll_interval_ms" yaml:"poll_interval_ms"`
	// MaxTimeoutSeconds caps caller-supplied timeouts (default: 3600, 0 disables the cap)
	MaxTimeoutSeconds int `mapstructure:"max_timeout_seconds" yaml:"max_timeout_seconds"`
}

// StoreConfig selects where the pending message lives
type StoreConfig struct {
	// Backend is "memory", "file" or "sqlite" (default: "file")
	Backend string `mapstructure:"backend" yaml:"backend"`
	// Path is the record file or database. Empty uses the backend's default
	// file name in the working directory.
	Path string `mapstructure:"path" yaml:"path"`
	// Watch enables filesystem notifications for the file backend (default: true)
	Watch bool `mapstructure:"watch" yaml:"watch"`
}

// ServerConfig controls the tool server
type ServerConfig struct {
	// Addr is the listen address for serve and the dial address for clients (default: "localhost:8765")
	Addr string `mapstructure:"addr" yaml:"addr"`
	// Name is reported by check_status (default: "waitroom")
	Name string `mapstructure:"name" yaml:"name"`
	// WriteTimeoutSeconds bounds each websocket frame write (default: 10)
	WriteTimeoutSeconds int `mapstructure:"write_timeout_seconds" yaml:"write_timeout_seconds"`
}

// LoggingConfig controls structured logging
type LoggingConfig struct {
	// Enabled controls whether logging is enabled (default: true)
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	// Level is the log level: "debug", "info", "warn", "error" (default: "info")
	Level string `mapstructure:"level" yaml:"level"`
	// Dir is where waitroom.log is written. Empty logs to stderr.
	Dir string `mapstructure:"dir" yaml:"dir"`
	// MaxSizeMB is the maximum log file size in megabytes before rotation (default: 10)
	MaxSizeMB int `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	// MaxBackups is the number of backup log files to keep (default: 3)
	MaxBackups int `mapstructure:"max_backups" yaml:"max_backups"`
	// Compress gzips rotated backups (default: false)
	Compress bool `mapstructure:"compress" yaml:"compress"`
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Wait: WaitConfig{
			HeartbeatIntervalSeconds: 30,
			DefaultTimeoutSeconds:    120,
			PollIntervalMs:           1000,
			MaxTimeoutSeconds:        3600,
		},
		Store: StoreConfig{
			Backend: "file",
			Path:    "",
			Watch:   true,
		},
		Server: ServerConfig{
			Addr:                "localhost:8765",
			Name:                "waitroom",
			WriteTimeoutSeconds: 10,
		},
		Logging: LoggingConfig{
			Enabled:    true,
			Level:      "info",
			Dir:        "",
			MaxSizeMB:  10,
			MaxBackups: 3,
			Compress:   false,
		},
	}
}

// HeartbeatInterval returns the heartbeat cadence as a time.Duration
func (c *WaitConfig) HeartbeatInterval() time.Duration {
	return time.Duration(c.HeartbeatIntervalSeconds) * time.Second
}

// DefaultTimeout returns the default wait timeout as a time.Duration
func (c *WaitConfig) DefaultTimeout() time.Duration {
	return time.Duration(c.DefaultTimeoutSeconds) * time.Second
}

// PollInterval returns the mailbox poll interval as a time.Duration
func (c *WaitConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

// MaxTimeout returns the timeout cap as a time.Duration (0 means no cap)
func (c *WaitConfig) MaxTimeout() time.Duration {
	return time.Duration(c.MaxTimeoutSeconds) * time.Second
}

// WriteTimeout returns the websocket write deadline as a time.Duration
func (c *ServerConfig) WriteTimeout() time.Duration {
	return time.Duration(c.WriteTimeoutSeconds) * time.Second
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	// Wait defaults
	viper.SetDefault("wait.heartbeat_interval_seconds", defaults.Wait.HeartbeatIntervalSeconds)
	viper.SetDefault("wait.default_timeout_seconds", defaults.Wait.DefaultTimeoutSeconds)
	viper.SetDefault("wait.poll_interval_ms", defaults.Wait.PollIntervalMs)
	viper.SetDefault("wait.max_timeout_seconds", defaults.Wait.MaxTimeoutSeconds)

	// Store defaults
	viper.SetDefault("store.backend", defaults.Store.Backend)
	viper.SetDefault("store.path", defaults.Store.Path)
	viper.SetDefault("store.watch", defaults.Store.Watch)

	// Server defaults
	viper.SetDefault("server.addr", defaults.Server.Addr)
	viper.SetDefault("server.name", defaults.Server.Name)
	viper.SetDefault("server.write_timeout_seconds", defaults.Server.WriteTimeoutSeconds)

	// Logging defaults
	viper.SetDefault("logging.enabled", defaults.Logging.Enabled)
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.dir", defaults.Logging.Dir)
	viper.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)
	viper.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)
	viper.SetDefault("logging.compress", defaults.Logging.Compress)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration (convenience function)
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		// Fall back to defaults if unmarshaling fails
		return Default()
	}
	return cfg
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	// Check XDG_CONFIG_HOME first
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "waitroom")
	}
	// Fall back to ~/.config/waitroom
	home, err := os.UserHomeDir()
	if err != nil {
		return ".waitroom"
	}
	return filepath.Join(home, ".config", "waitroom")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// ValidStoreBackends returns the list of valid store backends
func ValidStoreBackends() []string {
	return []string{"memory", "file", "sqlite"}
}
