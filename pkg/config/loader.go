// Configuration loading with Viper: YAML files, PIXELFORGE_ environment
// overrides, and optional hot reload via fsnotify.
package config

import (
	"fmt"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// ReloadCallback is invoked after a successful configuration reload
type ReloadCallback func(oldConfig, newConfig *Config)

// LoaderOptions defines options for the configuration loader
type LoaderOptions struct {
	// Configuration file path; when empty, config.yaml is searched in
	// ".", "./config", and "/etc/pixelforge"
	ConfigFile string

	// Environment variable prefix (default PIXELFORGE)
	EnvPrefix string

	// Enable watching for file changes
	EnableWatch bool
}

// Loader manages configuration loading and reloading
type Loader struct {
	viper      *viper.Viper
	config     *Config
	mu         sync.RWMutex
	callbacks  []ReloadCallback
	callbackMu sync.Mutex
}

// NewLoader creates a configuration loader and performs the initial load
func NewLoader(opts LoaderOptions) (*Loader, error) {
	v := viper.New()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/pixelforge")
	}

	prefix := opts.EnvPrefix
	if prefix == "" {
		prefix = "PIXELFORGE"
	}
	v.SetEnvPrefix(prefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	loader := &Loader{viper: v}

	if err := loader.load(); err != nil {
		return nil, err
	}

	if opts.EnableWatch {
		v.OnConfigChange(func(fsnotify.Event) {
			loader.reload()
		})
		v.WatchConfig()
	}

	return loader, nil
}

// Config returns the current configuration snapshot
func (l *Loader) Config() *Config {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.config
}

// OnReload registers a callback invoked after each successful reload
func (l *Loader) OnReload(cb ReloadCallback) {
	l.callbackMu.Lock()
	defer l.callbackMu.Unlock()
	l.callbacks = append(l.callbacks, cb)
}

// load reads, unmarshals, and validates the configuration
func (l *Loader) load() error {
	if err := l.viper.ReadInConfig(); err != nil {
		// A missing file is tolerated: defaults plus env vars still
		// produce a usable configuration.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := DefaultConfig()
	if err := l.viper.Unmarshal(cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	l.mu.Lock()
	l.config = cfg
	l.mu.Unlock()

	return nil
}

// reload re-reads the configuration and notifies callbacks; a failed
// reload keeps the previous configuration
func (l *Loader) reload() {
	l.mu.RLock()
	old := l.config
	l.mu.RUnlock()

	if err := l.load(); err != nil {
		return
	}

	l.mu.RLock()
	fresh := l.config
	l.mu.RUnlock()

	l.callbackMu.Lock()
	callbacks := make([]ReloadCallback, len(l.callbacks))
	copy(callbacks, l.callbacks)
	l.callbackMu.Unlock()

	for _, cb := range callbacks {
		cb(old, fresh)
	}
}
