package orchestration

import (
	"context"
	"time"

	"github.com/pixelforge/pixelforge/internal/observability/logging"
	"github.com/pixelforge/pixelforge/internal/observability/metrics"
	"github.com/pixelforge/pixelforge/pkg/types"
)

func testCollector() *metrics.Collector {
	return metrics.NewCollector(metrics.CollectorConfig{Namespace: "test"})
}

func testRegistry() *Registry {
	return NewRegistry(logging.NewNoopLogger(), testCollector())
}

func testConfig(id string, caps ...types.Capability) *ModelConfiguration {
	if len(caps) == 0 {
		caps = []types.Capability{types.CapabilityTextUnderstanding, types.CapabilityCodeGeneration}
	}
	return &ModelConfiguration{
		ID:                    id,
		Provider:              types.ProviderLocal,
		Type:                  types.ModelTypeMultimodal,
		ModelName:             id + "-backend",
		Capabilities:          caps,
		MaxTokens:             4096,
		Temperature:           0.7,
		TopP:                  0.9,
		Timeout:               30 * time.Second,
		RequestsPerMinute:     60,
		RequestsPerHour:       1000,
		TokensPerMinute:       100000,
		MaxConcurrentRequests: 2,
		QualityThreshold:      0.5,
		CostPer1KTokens:       0.01,
	}
}

// staticProber answers probes from a fixed table; unknown ids are healthy
type staticProber struct {
	unhealthy map[string]string
}

func (p *staticProber) Probe(_ context.Context, modelID string) (bool, string) {
	if msg, ok := p.unhealthy[modelID]; ok {
		return false, msg
	}
	return true, "ok"
}
