// Package config handles XDG configuration directory, file paths and settings.
package config

import (
	"os"
	"path/filepath"
	"time"
)

const (
	// AppName is the application directory name.
	AppName = "tasksync"

	// ConfigFile is the settings filename.
	ConfigFile = "config.yaml"

	// TokenFile is the stored credential filename (file session store).
	TokenFile = "token.json"

	// SessionDBFile is the SQLite session database filename (sqlite session store).
	SessionDBFile = "session.db"

	// DefaultAPIURL is the remote task service.
	DefaultAPIURL = "https://todobackend-bi77.onrender.com"

	// DefaultTimeout bounds every remote call.
	DefaultTimeout = 10 * time.Second
)

// Session store backends.
const (
	SessionStoreFile   = "file"
	SessionStoreSQLite = "sqlite"
)

// Config holds configuration paths and settings.
type Config struct {
	// Dir is the configuration directory path.
	Dir string

	// Debug enables debug logging.
	Debug bool

	// Quiet suppresses informational output.
	Quiet bool

	// APIURL is the base URL of the remote task service.
	APIURL string

	// Timeout bounds each remote call.
	Timeout time.Duration

	// SessionStore selects where the credential is persisted: "file" or "sqlite".
	SessionStore string

	// MetricsFile, if set, receives a Prometheus text dump after each command.
	MetricsFile string
}

// New creates a new Config with defaults and the default or specified config directory.
// If configDir is empty, uses XDG_CONFIG_HOME/tasksync or $HOME/.config/tasksync.
// It does not read config.yaml; use Load for that.
func New(configDir string) (*Config, error) {
	dir := configDir
	if dir == "" {
		dir = DefaultConfigDir()
	}
	return &Config{
		Dir:          dir,
		APIURL:       DefaultAPIURL,
		Timeout:      DefaultTimeout,
		SessionStore: SessionStoreFile,
	}, nil
}

// DefaultConfigDir returns the default configuration directory.
// Uses XDG_CONFIG_HOME if set, otherwise $HOME/.config.
func DefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home can't be determined
		return AppName
	}
	return filepath.Join(home, ".config", AppName)
}

// ConfigPath returns the path to the settings file.
func (c *Config) ConfigPath() string {
	return filepath.Join(c.Dir, ConfigFile)
}

// TokenPath returns the path to the stored credential file.
func (c *Config) TokenPath() string {
	return filepath.Join(c.Dir, TokenFile)
}

// SessionDBPath returns the path to the SQLite session database.
func (c *Config) SessionDBPath() string {
	return filepath.Join(c.Dir, SessionDBFile)
}

// EnsureDir creates the config directory if it doesn't exist.
// Directory is created with mode 0700.
func (c *Config) EnsureDir() error {
	return os.MkdirAll(c.Dir, 0700)
}
