// Package config provides centralized configuration for the orchestration
// core. It defines typed configuration structures with defaults and
// validation, loaded from YAML files and environment variables via Viper.
package config

import (
	"fmt"
	"time"

	"github.com/pixelforge/pixelforge/pkg/types"
)

// ============================================================================
// Main Configuration Structure
// ============================================================================

// Config represents the complete application configuration
type Config struct {
	// Server identity and environment
	Server ServerConfig `mapstructure:"server" yaml:"server" json:"server"`

	// Logging configuration
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging" json:"logging"`

	// Metrics configuration
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics" json:"metrics"`

	// Orchestrator behavior
	Orchestrator OrchestratorConfig `mapstructure:"orchestrator" yaml:"orchestrator" json:"orchestrator"`

	// Result cache configuration
	Cache CacheConfig `mapstructure:"cache" yaml:"cache" json:"cache"`

	// Redis configuration for the optional shared cache tier
	Redis RedisConfig `mapstructure:"redis" yaml:"redis" json:"redis"`

	// Models to register at startup
	Models []ModelSeed `mapstructure:"models" yaml:"models" json:"models"`
}

// ServerConfig defines process-level settings
type ServerConfig struct {
	// Environment (development, staging, production)
	Environment string `mapstructure:"environment" yaml:"environment" json:"environment"`

	// HTTP API listen address
	ListenAddr string `mapstructure:"listen_addr" yaml:"listen_addr" json:"listen_addr"`

	// Per-request handler timeout
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout" json:"request_timeout"`

	// Graceful shutdown timeout
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`
}

// LoggingConfig defines logging behavior
type LoggingConfig struct {
	// Log level (debug, info, warn, error)
	Level string `mapstructure:"level" yaml:"level" json:"level"`

	// Log format (json, console)
	Format string `mapstructure:"format" yaml:"format" json:"format"`

	// Output (stdout, stderr, file)
	Output string `mapstructure:"output" yaml:"output" json:"output"`

	// File path when output is file
	FilePath string `mapstructure:"file_path" yaml:"file_path" json:"file_path"`

	// Rotation settings (file output only)
	MaxSizeMB  int  `mapstructure:"max_size_mb" yaml:"max_size_mb" json:"max_size_mb"`
	MaxBackups int  `mapstructure:"max_backups" yaml:"max_backups" json:"max_backups"`
	MaxAgeDays int  `mapstructure:"max_age_days" yaml:"max_age_days" json:"max_age_days"`
	Compress   bool `mapstructure:"compress" yaml:"compress" json:"compress"`
}

// MetricsConfig defines Prometheus exposition settings
type MetricsConfig struct {
	// Enable metrics collection
	Enabled bool `mapstructure:"enabled" yaml:"enabled" json:"enabled"`

	// Listen address for the /metrics endpoint
	ListenAddr string `mapstructure:"listen_addr" yaml:"listen_addr" json:"listen_addr"`

	// Metric namespace
	Namespace string `mapstructure:"namespace" yaml:"namespace" json:"namespace"`
}

// OrchestratorConfig defines orchestration core behavior
type OrchestratorConfig struct {
	// Default selection strategy
	Strategy string `mapstructure:"strategy" yaml:"strategy" json:"strategy"`

	// Health check loop interval
	HealthCheckInterval time.Duration `mapstructure:"health_check_interval" yaml:"health_check_interval" json:"health_check_interval"`

	// Metrics cleanup loop interval
	CleanupInterval time.Duration `mapstructure:"cleanup_interval" yaml:"cleanup_interval" json:"cleanup_interval"`

	// Idle threshold beyond which per-model metrics are reset
	MetricsIdleThreshold time.Duration `mapstructure:"metrics_idle_threshold" yaml:"metrics_idle_threshold" json:"metrics_idle_threshold"`
}

// CacheConfig defines the result cache behavior
type CacheConfig struct {
	// Enable result caching
	Enabled bool `mapstructure:"enabled" yaml:"enabled" json:"enabled"`

	// Entry time-to-live
	TTL time.Duration `mapstructure:"ttl" yaml:"ttl" json:"ttl"`

	// Prune threshold; expired entries are removed once the cache
	// grows past this many entries
	PruneThreshold int `mapstructure:"prune_threshold" yaml:"prune_threshold" json:"prune_threshold"`

	// Enable the Redis-backed shared tier
	SharedTierEnabled bool `mapstructure:"shared_tier_enabled" yaml:"shared_tier_enabled" json:"shared_tier_enabled"`
}

// RedisConfig defines the shared cache tier connection
type RedisConfig struct {
	Address      string        `mapstructure:"address" yaml:"address" json:"address"`
	Password     string        `mapstructure:"password" yaml:"password" json:"password"`
	DB           int           `mapstructure:"db" yaml:"db" json:"db"`
	PoolSize     int           `mapstructure:"pool_size" yaml:"pool_size" json:"pool_size"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout" yaml:"dial_timeout" json:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout" yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout" json:"write_timeout"`
	KeyPrefix    string        `mapstructure:"key_prefix" yaml:"key_prefix" json:"key_prefix"`
}

// ModelSeed describes one model to register at startup
type ModelSeed struct {
	ID            string   `mapstructure:"id" yaml:"id" json:"id"`
	Provider      string   `mapstructure:"provider" yaml:"provider" json:"provider"`
	Type          string   `mapstructure:"type" yaml:"type" json:"type"`
	ModelName     string   `mapstructure:"model_name" yaml:"model_name" json:"model_name"`
	APIKey        string   `mapstructure:"api_key" yaml:"api_key" json:"api_key"`
	BaseURL       string   `mapstructure:"base_url" yaml:"base_url" json:"base_url"`
	Capabilities  []string `mapstructure:"capabilities" yaml:"capabilities" json:"capabilities"`
	MaxTokens     int      `mapstructure:"max_tokens" yaml:"max_tokens" json:"max_tokens"`
	Temperature   float64  `mapstructure:"temperature" yaml:"temperature" json:"temperature"`
	TopP          float64  `mapstructure:"top_p" yaml:"top_p" json:"top_p"`
	TimeoutSec    int      `mapstructure:"timeout_seconds" yaml:"timeout_seconds" json:"timeout_seconds"`
	MaxConcurrent int      `mapstructure:"max_concurrent_requests" yaml:"max_concurrent_requests" json:"max_concurrent_requests"`

	RequestsPerMinute int     `mapstructure:"requests_per_minute" yaml:"requests_per_minute" json:"requests_per_minute"`
	RequestsPerHour   int     `mapstructure:"requests_per_hour" yaml:"requests_per_hour" json:"requests_per_hour"`
	TokensPerMinute   int     `mapstructure:"tokens_per_minute" yaml:"tokens_per_minute" json:"tokens_per_minute"`
	QualityThreshold  float64 `mapstructure:"quality_threshold" yaml:"quality_threshold" json:"quality_threshold"`
	CostPer1KTokens   float64 `mapstructure:"cost_per_1k_tokens" yaml:"cost_per_1k_tokens" json:"cost_per_1k_tokens"`

	CacheTTL time.Duration `mapstructure:"cache_ttl" yaml:"cache_ttl" json:"cache_ttl"`
}

// ============================================================================
// Defaults & Validation
// ============================================================================

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Environment:     "development",
			ListenAddr:      ":8080",
			RequestTimeout:  120 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Metrics: MetricsConfig{
			Enabled:    true,
			ListenAddr: ":9090",
			Namespace:  "pixelforge",
		},
		Orchestrator: OrchestratorConfig{
			Strategy:             string(types.StrategyPerformance),
			HealthCheckInterval:  60 * time.Second,
			CleanupInterval:      time.Hour,
			MetricsIdleThreshold: 24 * time.Hour,
		},
		Cache: CacheConfig{
			Enabled:        true,
			TTL:            time.Hour,
			PruneThreshold: 1000,
		},
		Redis: RedisConfig{
			Address:     "localhost:6379",
			PoolSize:    10,
			DialTimeout: 5 * time.Second,
			KeyPrefix:   "pixelforge:gen:",
		},
	}
}

// Validate checks the configuration for internal consistency
func (c *Config) Validate() error {
	if _, err := types.FromStringStrategy(c.Orchestrator.Strategy); err != nil {
		return fmt.Errorf("orchestrator.strategy: %w", err)
	}

	if c.Orchestrator.HealthCheckInterval <= 0 {
		return fmt.Errorf("orchestrator.health_check_interval must be positive")
	}

	if c.Orchestrator.CleanupInterval <= 0 {
		return fmt.Errorf("orchestrator.cleanup_interval must be positive")
	}

	if c.Cache.Enabled && c.Cache.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be positive when caching is enabled")
	}

	if c.Cache.SharedTierEnabled && c.Redis.Address == "" {
		return fmt.Errorf("redis.address is required when the shared cache tier is enabled")
	}

	for i, seed := range c.Models {
		if seed.ID == "" {
			return fmt.Errorf("models[%d]: id is required", i)
		}
		if _, err := types.FromStringProvider(seed.Provider); err != nil {
			return fmt.Errorf("models[%d]: %w", i, err)
		}
		if _, err := types.FromStringModelType(seed.Type); err != nil {
			return fmt.Errorf("models[%d]: %w", i, err)
		}
	}

	return nil
}
