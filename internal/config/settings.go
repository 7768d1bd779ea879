package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ovirt/node-setup/internal/host"
	"github.com/ovirt/node-setup/internal/store"
)

const (
	appName    = "node-setup"
	configFile = "config.yaml"

	// EnvPrefix prefixes environment overrides, e.g. NODE_SETUP_STORE_PATH.
	EnvPrefix = "NODE_SETUP"

	// SystemStorePath is where the node keeps its defaults when run as root.
	SystemStorePath = "/etc/default/ovirt.yaml"
)

// Mutex for thread-safe file operations
var fileMutex sync.Mutex

// flagKeys maps command line flags to settings keys.
var flagKeys = map[string]string{
	"store":         "store.path",
	"store-backend": "store.backend",
	"probe":         "probe.method",
	"probe-timeout": "probe.timeout",
	"agent-hook":    "agent.hook",
	"dry-run":       "dry_run",
	"log-level":     "log.level",
}

// GetConfigDir returns $XDG_CONFIG_HOME/node-setup or $HOME/.config/node-setup.
func GetConfigDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appName), nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", appName), nil
}

// GetConfigPath returns the full path to the configuration file.
func GetConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, configFile), nil
}

// DefaultStorePath returns SystemStorePath for root and a file under
// $XDG_DATA_HOME/node-setup (or $HOME/.local/share/node-setup) otherwise.
func DefaultStorePath() string {
	if os.Geteuid() == 0 {
		return SystemStorePath
	}
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, appName, "ovirt.yaml")
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".local", "share", appName, "ovirt.yaml")
	}
	return SystemStorePath
}

// NewViper returns a viper instance preloaded with defaults, the settings
// file location and NODE_SETUP_* environment overrides.
func NewViper() *viper.Viper {
	v := viper.New()

	d := NewSettings()
	v.SetDefault("version", d.Version)
	v.SetDefault("store.backend", d.Store.Backend)
	v.SetDefault("store.path", d.Store.Path)
	v.SetDefault("probe.method", d.Probe.Method)
	v.SetDefault("probe.timeout", d.Probe.Timeout)
	v.SetDefault("agent.hook", d.Agent.Hook)
	v.SetDefault("agent.command_timeout", d.Agent.CommandTimeout)
	v.SetDefault("log.level", "")
	v.SetDefault("log.file", "")
	v.SetDefault("dry_run", false)

	v.SetConfigType("yaml")
	if path, err := GetConfigPath(); err == nil {
		v.SetConfigFile(path)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// BindFlags binds the known flags present in flags to their settings keys.
// Flags that were not defined are skipped.
func BindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := flags.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("failed to bind flag --%s: %w", name, err)
		}
	}
	return nil
}

// Load reads the settings file if it exists, applies environment and flag
// overrides, and validates the result.
func Load(v *viper.Viper) (*Settings, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks backend, probe method and timeouts.
func (s *Settings) Validate() error {
	if s.Version != 1 {
		return fmt.Errorf("unsupported config version: %d (expected 1)", s.Version)
	}
	switch s.Store.Backend {
	case store.BackendFile, store.BackendSQLite:
		if s.Store.Path == "" {
			return fmt.Errorf("store.path is required for the %s backend", s.Store.Backend)
		}
	case store.BackendMemory:
	default:
		return fmt.Errorf("unknown store backend %q (expected file, sqlite or memory)", s.Store.Backend)
	}
	switch s.Probe.Method {
	case host.ProbePing, host.ProbeTCP:
	default:
		return fmt.Errorf("unknown probe method %q (expected ping or tcp)", s.Probe.Method)
	}
	if s.Probe.Timeout <= 0 {
		return fmt.Errorf("probe.timeout must be positive, got %s", s.Probe.Timeout)
	}
	if s.Agent.CommandTimeout <= 0 {
		return fmt.Errorf("agent.command_timeout must be positive, got %s", s.Agent.CommandTimeout)
	}
	return nil
}

// OpenStore opens the configured store, creating the parent directory of
// file-backed stores.
func (s *Settings) OpenStore() (store.Store, error) {
	if s.Store.Backend != store.BackendMemory {
		if err := os.MkdirAll(filepath.Dir(s.Store.Path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}
	return store.Open(s.Store.Backend, s.Store.Path)
}

// Save writes the settings to path atomically.
func (s *Settings) Save(path string) error {
	fileMutex.Lock()
	defer fileMutex.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# node-setup configuration file
# Selects where Engine and CIM settings are stored and how the host is
# probed. Passwords are never written here.
#
# Location: ` + path + `

`)
	data = append(header, data...)

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temporary config file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to save config file: %w", err)
	}
	return nil
}
