// Package orchestration implements the model orchestration core: the
// registry of model configurations and live status, configuration and
// health validation, rolling performance tracking, load-balanced selection
// with per-(model,user) rate limiting, and the manager that composes them
// with background health and cleanup loops.
package orchestration

import (
	"time"

	"github.com/pixelforge/pixelforge/pkg/types"
)

// Status thresholds. The 5-error gate flips availability; the looser
// 3-error bound only marks the model degraded.
const (
	errorGateThreshold     = 5
	degradedErrorThreshold = 3
	degradedSuccessRate    = 0.8
	degradedLatencyMs      = 30000

	defaultMaxConcurrent = 10
)

// ModelConfiguration is the immutable-after-registration identity of a
// model. It is created by callers of RegisterModel and owned by the
// registry until unregistration.
type ModelConfiguration struct {
	// ID uniquely identifies the model within the registry
	ID string `json:"id"`

	// Provider hosts the model
	Provider types.Provider `json:"provider"`

	// Type classifies the generation the model performs
	Type types.ModelType `json:"type"`

	// ModelName is the provider-side model identifier
	ModelName string `json:"model_name"`

	// APIKey authenticates against the provider (required for OpenAI/Anthropic)
	APIKey string `json:"api_key,omitempty"`

	// BaseURL overrides the provider endpoint
	BaseURL string `json:"base_url,omitempty"`

	// Capabilities the model claims; must be non-empty and compatible
	// with Type
	Capabilities []types.Capability `json:"capabilities"`

	// Generation parameter bounds
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
	TopP        float64       `json:"top_p"`
	Timeout     time.Duration `json:"timeout"`

	// Rate-limit budgets
	RequestsPerMinute int `json:"requests_per_minute"`
	RequestsPerHour   int `json:"requests_per_hour"`
	TokensPerMinute   int `json:"tokens_per_minute"`

	// MaxConcurrentRequests bounds in-flight load
	MaxConcurrentRequests int `json:"max_concurrent_requests"`

	// QualityThreshold is the minimum acceptable quality signal
	QualityThreshold float64 `json:"quality_threshold"`

	// CostPer1KTokens estimates request cost
	CostPer1KTokens float64 `json:"cost_per_1k_tokens"`

	// CacheTTL bounds result cache freshness for this model
	CacheTTL time.Duration `json:"cache_ttl"`

	// RegisteredAt is set by the registry
	RegisteredAt time.Time `json:"registered_at"`
}

// HasCapability reports whether the configuration declares c
func (c *ModelConfiguration) HasCapability(cap types.Capability) bool {
	for _, have := range c.Capabilities {
		if have == cap {
			return true
		}
	}
	return false
}

// ModelStatus is the mutable per-model runtime state, 1:1 with its
// configuration and sharing its lifecycle.
type ModelStatus struct {
	// ModelID links the status to its configuration
	ModelID string `json:"model_id"`

	// IsAvailable reports whether the model accepts new requests
	IsAvailable bool `json:"is_available"`

	// IsHealthy reports the last known health state
	IsHealthy bool `json:"is_healthy"`

	// CurrentLoad is the number of in-flight requests; never negative
	CurrentLoad int `json:"current_load"`

	// MaxConcurrentRequests mirrors the configuration bound
	MaxConcurrentRequests int `json:"max_concurrent_requests"`

	// ConsecutiveErrors counts failures since the last success
	ConsecutiveErrors int `json:"consecutive_errors"`

	// LastError is the most recent failure message
	LastError string `json:"last_error,omitempty"`

	// AvgResponseTimeMs is the rolling average latency
	AvgResponseTimeMs float64 `json:"avg_response_time_ms"`

	// SuccessRate is the fraction of successful responses
	SuccessRate float64 `json:"success_rate"`

	// LastHealthCheckAt is when the health loop last probed the model
	LastHealthCheckAt time.Time `json:"last_health_check_at"`
}

// IsOverloaded reports whether current load has reached the concurrency bound
func (s *ModelStatus) IsOverloaded() bool {
	return s.CurrentLoad >= s.MaxConcurrentRequests
}

// IsDegraded reports whether the model is performing below acceptable bounds
func (s *ModelStatus) IsDegraded() bool {
	return s.ConsecutiveErrors >= degradedErrorThreshold ||
		s.SuccessRate < degradedSuccessRate ||
		s.AvgResponseTimeMs > degradedLatencyMs
}

// ListFilter narrows ListModels results
type ListFilter struct {
	// Provider restricts to one provider when set
	Provider *types.Provider

	// Type restricts to one model type when set
	Type *types.ModelType

	// AvailableOnly drops unavailable models
	AvailableOnly bool
}
