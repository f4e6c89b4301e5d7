package generation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pixelforge/pixelforge/internal/observability/logging"
	"github.com/pixelforge/pixelforge/internal/orchestration"
	"github.com/pixelforge/pixelforge/internal/providers"
	"github.com/pixelforge/pixelforge/pkg/errors"
	"github.com/pixelforge/pixelforge/pkg/types"
)

// failingProvider probes healthy but fails every generation call
type failingProvider struct{}

func (p *failingProvider) Initialize(context.Context) error { return nil }

func (p *failingProvider) GenerateCode(context.Context, *types.GenerationRequest) (*types.GenerationResult, error) {
	return nil, errors.ProviderError("broken-1", nil)
}

func (p *failingProvider) GenerateCodeStream(context.Context, *types.GenerationRequest) (<-chan types.StreamChunk, error) {
	return nil, errors.ProviderError("broken-1", nil)
}

func (p *failingProvider) ValidateModel(context.Context) (bool, string) { return true, "ok" }

func (p *failingProvider) Cleanup() error { return nil }

type serviceHarness struct {
	manager *orchestration.Manager
	set     *providers.Set
	service *Service
}

func modelConfig(id string) *orchestration.ModelConfiguration {
	return &orchestration.ModelConfiguration{
		ID:                    id,
		Provider:              types.ProviderLocal,
		Type:                  types.ModelTypeMultimodal,
		ModelName:             id + "-backend",
		Capabilities:          []types.Capability{types.CapabilityTextUnderstanding, types.CapabilityCodeGeneration},
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

func newServiceHarness(t *testing.T, backends map[string]providers.Provider) *serviceHarness {
	t.Helper()

	logger := logging.NewNoopLogger()
	collector := testCacheCollector()

	set := providers.NewSet(logger)
	for id, p := range backends {
		set.Register(id, p)
	}

	manager := orchestration.NewManager(logger, collector, set, orchestration.ManagerConfig{})
	for id := range backends {
		require.NoError(t, manager.RegisterModel(context.Background(), modelConfig(id)))
	}

	cache := NewResultCache(time.Hour, 100, logger, collector)
	service := NewService(manager, set, cache, nil,
		ServiceConfig{CacheEnabled: true}, logger, collector)

	return &serviceHarness{manager: manager, set: set, service: service}
}

func localBackend(id string) providers.Provider {
	return providers.NewLocal(providers.Options{
		ModelID:   id,
		Provider:  types.ProviderLocal,
		ModelName: id + "-backend",
	}, logging.NewNoopLogger())
}

func promptRequest(prompt string) *types.GenerationRequest {
	return &types.GenerationRequest{
		Prompt:    prompt,
		UserID:    "user-1",
		Framework: "react",
	}
}

func TestServiceGenerate(t *testing.T) {
	t.Run("happy path", func(t *testing.T) {
		h := newServiceHarness(t, map[string]providers.Provider{"local-1": localBackend("local-1")})

		req := promptRequest("a login form")
		result, err := h.service.Generate(context.Background(), req)
		require.NoError(t, err)

		assert.True(t, result.Success)
		assert.NotEmpty(t, result.Code)
		assert.Equal(t, "local-1", result.ModelID)
		assert.NotEmpty(t, req.ID, "request id should be assigned")
		assert.Equal(t, req.ID, result.RequestID)
		assert.False(t, result.Cached)

		m, ok := h.manager.GetModelMetrics("local-1")
		require.True(t, ok)
		assert.Equal(t, int64(1), m.TotalRequests)
		assert.Equal(t, int64(1), m.SuccessfulRequests)

		status, ok := h.manager.GetModelStatus("local-1")
		require.True(t, ok)
		assert.Equal(t, 0, status.CurrentLoad, "model should be released after the round trip")
	})

	t.Run("rejects a request with neither prompt nor image", func(t *testing.T) {
		h := newServiceHarness(t, map[string]providers.Provider{"local-1": localBackend("local-1")})

		result, err := h.service.Generate(context.Background(), &types.GenerationRequest{UserID: "user-1"})
		require.Error(t, err)
		assert.Nil(t, result)
		assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
	})

	t.Run("no capable model", func(t *testing.T) {
		h := newServiceHarness(t, map[string]providers.Provider{"local-1": localBackend("local-1")})

		// Image input demands image analysis, which the model lacks.
		req := promptRequest("match this mockup")
		req.ImageData = "aGVsbG8="

		result, err := h.service.Generate(context.Background(), req)
		require.Error(t, err)
		assert.Nil(t, result)
		assert.True(t, errors.IsType(err, errors.ErrorTypeUnavailable))
	})

	t.Run("backend failure returns the failure result with the error", func(t *testing.T) {
		h := newServiceHarness(t, map[string]providers.Provider{"broken-1": &failingProvider{}})

		result, err := h.service.Generate(context.Background(), promptRequest("a card"))
		require.Error(t, err)

		require.NotNil(t, result)
		assert.False(t, result.Success)
		assert.Equal(t, "broken-1", result.ModelID)
		assert.NotEmpty(t, result.ErrorCode)
		assert.NotEmpty(t, result.ErrorMessage)

		m, ok := h.manager.GetModelMetrics("broken-1")
		require.True(t, ok)
		assert.Equal(t, int64(1), m.FailedRequests)

		status, ok := h.manager.GetModelStatus("broken-1")
		require.True(t, ok)
		assert.Equal(t, 0, status.CurrentLoad, "model should be released after a failure")
	})

	t.Run("missing backend client releases the model", func(t *testing.T) {
		logger := logging.NewNoopLogger()
		collector := testCacheCollector()

		// The prober set knows the model but the serving source does not.
		probeSet := providers.NewSet(logger)
		probeSet.Register("local-1", localBackend("local-1"))

		manager := orchestration.NewManager(logger, collector, probeSet, orchestration.ManagerConfig{})
		require.NoError(t, manager.RegisterModel(context.Background(), modelConfig("local-1")))

		cache := NewResultCache(time.Hour, 100, logger, collector)
		service := NewService(manager, providers.NewSet(logger), cache, nil,
			ServiceConfig{CacheEnabled: true}, logger, collector)

		result, err := service.Generate(context.Background(), promptRequest("a card"))
		require.Error(t, err)
		assert.Nil(t, result)
		assert.True(t, errors.IsType(err, errors.ErrorTypeInternal))

		status, ok := manager.GetModelStatus("local-1")
		require.True(t, ok)
		assert.Equal(t, 0, status.CurrentLoad)
	})
}

func TestServiceGenerateCaching(t *testing.T) {
	t.Run("identical request is served from cache", func(t *testing.T) {
		h := newServiceHarness(t, map[string]providers.Provider{"local-1": localBackend("local-1")})

		first, err := h.service.Generate(context.Background(), promptRequest("a pricing table"))
		require.NoError(t, err)
		require.False(t, first.Cached)

		// Rewording by whitespace and case shares the fingerprint.
		second, err := h.service.Generate(context.Background(), promptRequest("  A   PRICING table "))
		require.NoError(t, err)

		assert.True(t, second.Cached)
		assert.Equal(t, first.Code, second.Code)
		assert.NotEqual(t, first.RequestID, second.RequestID,
			"cached result should carry the asking request's id")

		m, ok := h.manager.GetModelMetrics("local-1")
		require.True(t, ok)
		assert.Equal(t, int64(1), m.TotalRequests, "cache hit should not reach the backend")
	})

	t.Run("caching disabled always reaches the backend", func(t *testing.T) {
		h := newServiceHarness(t, map[string]providers.Provider{"local-1": localBackend("local-1")})
		h.service.cfg.CacheEnabled = false

		_, err := h.service.Generate(context.Background(), promptRequest("a footer"))
		require.NoError(t, err)
		result, err := h.service.Generate(context.Background(), promptRequest("a footer"))
		require.NoError(t, err)
		assert.False(t, result.Cached)

		m, ok := h.manager.GetModelMetrics("local-1")
		require.True(t, ok)
		assert.Equal(t, int64(2), m.TotalRequests)
	})
}

// fakeSharedTier is an in-memory SharedTier double
type fakeSharedTier struct {
	entries map[string]*types.GenerationResult
	sets    int
}

func newFakeSharedTier() *fakeSharedTier {
	return &fakeSharedTier{entries: map[string]*types.GenerationResult{}}
}

func (f *fakeSharedTier) Get(_ context.Context, fingerprint string) (*types.GenerationResult, error) {
	result, ok := f.entries[fingerprint]
	if !ok {
		return nil, nil
	}
	copied := *result
	copied.Cached = true
	return &copied, nil
}

func (f *fakeSharedTier) Set(_ context.Context, fingerprint string, result *types.GenerationResult, _ time.Duration) error {
	copied := *result
	f.entries[fingerprint] = &copied
	f.sets++
	return nil
}

func (f *fakeSharedTier) Close() error { return nil }

func TestServiceSharedTier(t *testing.T) {
	t.Run("successful results reach both tiers", func(t *testing.T) {
		h := newServiceHarness(t, map[string]providers.Provider{"local-1": localBackend("local-1")})
		shared := newFakeSharedTier()
		h.service.shared = shared

		_, err := h.service.Generate(context.Background(), promptRequest("a modal dialog"))
		require.NoError(t, err)
		assert.Equal(t, 1, shared.sets)
	})

	t.Run("shared hit is promoted to the local tier", func(t *testing.T) {
		h := newServiceHarness(t, map[string]providers.Provider{"local-1": localBackend("local-1")})
		shared := newFakeSharedTier()
		h.service.shared = shared

		req := promptRequest("a modal dialog")
		fingerprint := Fingerprint(req)
		shared.entries[fingerprint] = &types.GenerationResult{
			RequestID: "other-process",
			ModelID:   "local-1",
			Success:   true,
			Code:      "<dialog></dialog>",
		}

		result, err := h.service.Generate(context.Background(), req)
		require.NoError(t, err)
		assert.True(t, result.Cached)
		assert.Equal(t, "<dialog></dialog>", result.Code)

		m, ok := h.manager.GetModelMetrics("local-1")
		require.True(t, ok)
		assert.Zero(t, m.TotalRequests, "shared hit should not reach the backend")

		// Promotion makes the next lookup a local hit.
		local, ok := h.service.cache.Get(fingerprint, "req-next")
		require.True(t, ok)
		assert.Equal(t, "<dialog></dialog>", local.Code)
	})
}

func TestServiceGenerateStream(t *testing.T) {
	t.Run("streams content then completes", func(t *testing.T) {
		h := newServiceHarness(t, map[string]providers.Provider{"local-1": localBackend("local-1")})

		req := promptRequest("a navbar")
		stream, err := h.service.GenerateStream(context.Background(), req)
		require.NoError(t, err)

		var content string
		var last types.StreamChunk
		for chunk := range stream {
			if chunk.Type == types.ChunkTypeContent {
				content += chunk.Content
			}
			last = chunk
		}

		assert.Equal(t, types.ChunkTypeComplete, last.Type)
		assert.NotEmpty(t, content)

		m, ok := h.manager.GetModelMetrics("local-1")
		require.True(t, ok)
		assert.Equal(t, int64(1), m.SuccessfulRequests)

		status, ok := h.manager.GetModelStatus("local-1")
		require.True(t, ok)
		assert.Equal(t, 0, status.CurrentLoad)
	})

	t.Run("stream setup failure releases the model", func(t *testing.T) {
		h := newServiceHarness(t, map[string]providers.Provider{"broken-1": &failingProvider{}})

		stream, err := h.service.GenerateStream(context.Background(), promptRequest("a card"))
		require.Error(t, err)
		assert.Nil(t, stream)

		m, ok := h.manager.GetModelMetrics("broken-1")
		require.True(t, ok)
		assert.Equal(t, int64(1), m.FailedRequests)

		status, ok := h.manager.GetModelStatus("broken-1")
		require.True(t, ok)
		assert.Equal(t, 0, status.CurrentLoad)
	})
}
