package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes environment overrides, e.g. TASKSYNC_API_URL.
const EnvPrefix = "TASKSYNC"

// Setting keys in config.yaml.
const (
	KeyAPIURL       = "api_url"
	KeyTimeout      = "timeout"
	KeySessionStore = "session_store"
	KeyMetricsFile  = "metrics_file"
)

// fileConfig is the on-disk shape of config.yaml.
type fileConfig struct {
	APIURL       string `yaml:"api_url"`
	Timeout      string `yaml:"timeout"`
	SessionStore string `yaml:"session_store"`
	MetricsFile  string `yaml:"metrics_file,omitempty"`
}

// Load creates a Config for configDir and merges settings from defaults,
// config.yaml (if present) and TASKSYNC_* environment variables, in that order.
func Load(configDir string) (*Config, error) {
	return load(configDir, true)
}

// LoadFile is Load without environment overrides. Use it when the result
// will be saved back to config.yaml.
func LoadFile(configDir string) (*Config, error) {
	return load(configDir, false)
}

func load(configDir string, env bool) (*Config, error) {
	cfg, err := New(configDir)
	if err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetDefault(KeyAPIURL, cfg.APIURL)
	v.SetDefault(KeyTimeout, cfg.Timeout.String())
	v.SetDefault(KeySessionStore, cfg.SessionStore)
	v.SetDefault(KeyMetricsFile, "")
	if env {
		v.SetEnvPrefix(EnvPrefix)
		v.AutomaticEnv()
	}

	path := cfg.ConfigPath()
	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("invalid %s: %w", ConfigFile, err)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read %s: %w", ConfigFile, err)
	}

	for _, key := range Keys() {
		if err := cfg.Set(key, v.GetString(key)); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// Keys returns the settable keys in sorted order.
func Keys() []string {
	keys := []string{KeyAPIURL, KeyTimeout, KeySessionStore, KeyMetricsFile}
	sort.Strings(keys)
	return keys
}

// Set validates and assigns a single setting by key.
func (c *Config) Set(key, value string) error {
	value = strings.TrimSpace(value)
	switch key {
	case KeyAPIURL:
		u, err := url.Parse(value)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("invalid %s: %q", key, value)
		}
		c.APIURL = strings.TrimRight(value, "/")
	case KeyTimeout:
		d, err := time.ParseDuration(value)
		if err != nil || d <= 0 {
			return fmt.Errorf("invalid %s: %q", key, value)
		}
		c.Timeout = d
	case KeySessionStore:
		if value != SessionStoreFile && value != SessionStoreSQLite {
			return fmt.Errorf("invalid %s: %q (want %s or %s)", key, value, SessionStoreFile, SessionStoreSQLite)
		}
		c.SessionStore = value
	case KeyMetricsFile:
		c.MetricsFile = value
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
	return nil
}

// YAML renders the persisted settings.
func (c *Config) YAML() ([]byte, error) {
	return yaml.Marshal(fileConfig{
		APIURL:       c.APIURL,
		Timeout:      c.Timeout.String(),
		SessionStore: c.SessionStore,
		MetricsFile:  c.MetricsFile,
	})
}

// Save writes the persisted settings to config.yaml with mode 0600.
func (c *Config) Save() error {
	if err := c.EnsureDir(); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := c.YAML()
	if err != nil {
		return err
	}
	return os.WriteFile(c.ConfigPath(), data, 0600)
}
