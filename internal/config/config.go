package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

const appName = "file-explorer"

// Transports understood by the explorer
const (
	TransportWebSocket = "websocket"
	TransportStdio     = "stdio"
)

// Environment overrides applied by ApplyEnv
const (
	EnvLogLevel = "FILE_EXPLORER_LOG_LEVEL"
	EnvLogPath  = "FILE_EXPLORER_LOG_PATH"
	EnvHostURL  = "FILE_EXPLORER_HOST_URL"
)

// DevHostConfig configures the development host
type DevHostConfig struct {
	Addr           string   `json:"addr"`
	Workspace      string   `json:"workspace"`                 // directory opened at startup, empty for none
	AllowedOrigins []string `json:"allowed_origins,omitempty"` // empty accepts any origin
	MaxFileBytes   int64    `json:"max_file_bytes"`
	CacheTTL       int      `json:"cache_ttl_seconds"`
}

// Config represents application configuration
type Config struct {
	HostURL            string        `json:"host_url"`
	Transport          string        `json:"transport"`               // websocket or stdio
	RequestTimeout     int           `json:"request_timeout_seconds"` // 0 waits forever
	NotificationBuffer int           `json:"notification_buffer"`
	LogLevel           string        `json:"log_level"` // debug, info, warn, error, none
	LogPath            string        `json:"-"`
	DevHost            DevHostConfig `json:"devhost"`
}

func defaultConfigDir() string {
	switch runtime.GOOS {
	case "linux":
		if configHome := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); configHome != "" {
			return filepath.Join(configHome, appName)
		}
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, ".config", appName)
	case "windows":
		if appData := strings.TrimSpace(os.Getenv("APPDATA")); appData != "" {
			return filepath.Join(appData, appName)
		}
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, "AppData", "Roaming", appName)
	default:
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, ".config", appName)
	}
}

func defaultStateDir() string {
	switch runtime.GOOS {
	case "linux":
		if stateHome := strings.TrimSpace(os.Getenv("XDG_STATE_HOME")); stateHome != "" {
			return filepath.Join(stateHome, appName)
		}
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, ".local", "state", appName)
	case "windows":
		if localAppData := strings.TrimSpace(os.Getenv("LOCALAPPDATA")); localAppData != "" {
			return filepath.Join(localAppData, appName)
		}
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, "AppData", "Local", appName)
	default:
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, ".config", appName)
	}
}

// DefaultLogPath returns where logs go unless overridden
func DefaultLogPath() string {
	return filepath.Join(defaultStateDir(), appName+".log")
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		HostURL:            "ws://127.0.0.1:7777/bridge",
		Transport:          TransportWebSocket,
		RequestTimeout:     30,
		NotificationBuffer: 16,
		LogLevel:           "info",
		LogPath:            DefaultLogPath(),
		DevHost: DevHostConfig{
			Addr:         "127.0.0.1:7777",
			MaxFileBytes: 1 << 20,
			CacheTTL:     300,
		},
	}
}

// Load loads configuration from file. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		return nil, err
	}

	// Unmarshal into default config (overrides only provided fields)
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	defaults := DefaultConfig()
	if config.HostURL == "" {
		config.HostURL = defaults.HostURL
	}
	if config.Transport == "" {
		config.Transport = defaults.Transport
	}
	if config.NotificationBuffer <= 0 {
		config.NotificationBuffer = defaults.NotificationBuffer
	}
	if config.LogLevel == "" {
		config.LogLevel = defaults.LogLevel
	}
	if config.LogPath == "" {
		config.LogPath = defaults.LogPath
	}
	if config.DevHost.Addr == "" {
		config.DevHost.Addr = defaults.DevHost.Addr
	}
	if config.DevHost.MaxFileBytes <= 0 {
		config.DevHost.MaxFileBytes = defaults.DevHost.MaxFileBytes
	}

	return config, config.Validate()
}

// Validate reports settings that cannot be used
func (c *Config) Validate() error {
	switch c.Transport {
	case TransportWebSocket, TransportStdio:
	default:
		return fmt.Errorf("unknown transport %q (want %s or %s)", c.Transport, TransportWebSocket, TransportStdio)
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("request_timeout_seconds must not be negative, got %d", c.RequestTimeout)
	}
	if c.DevHost.CacheTTL < 0 {
		return fmt.Errorf("devhost.cache_ttl_seconds must not be negative, got %d", c.DevHost.CacheTTL)
	}
	return nil
}

// ApplyEnv overrides settings from the environment
func (c *Config) ApplyEnv() {
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		c.LogLevel = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogPath)); v != "" {
		c.LogPath = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvHostURL)); v != "" {
		c.HostURL = v
	}
}

// Timeout is RequestTimeout as a duration
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Second
}

// CacheTTLDuration is the devhost listing cache lifetime
func (c *DevHostConfig) CacheTTLDuration() time.Duration {
	return time.Duration(c.CacheTTL) * time.Second
}

// Save saves configuration to file
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// GetConfigPath returns the default config path
func GetConfigPath() string {
	return filepath.Join(defaultConfigDir(), "config.json")
}
