package generation

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pixelforge/pixelforge/internal/observability/logging"
	"github.com/pixelforge/pixelforge/internal/observability/metrics"
	"github.com/pixelforge/pixelforge/internal/orchestration"
	"github.com/pixelforge/pixelforge/internal/providers"
	"github.com/pixelforge/pixelforge/pkg/errors"
	"github.com/pixelforge/pixelforge/pkg/types"
)

// ProviderSource resolves the backend client serving a model id
type ProviderSource interface {
	ProviderFor(modelID string) (providers.Provider, bool)
}

// ServiceConfig tunes the generation pipeline
type ServiceConfig struct {
	// CacheEnabled turns the result cache tiers on
	CacheEnabled bool

	// SharedTTL bounds shared-tier entry freshness
	SharedTTL time.Duration
}

// Service runs generation requests end to end: capability derivation,
// cache lookup, model acquisition, the backend round trip, and outcome
// tracking.
type Service struct {
	manager *orchestration.Manager
	source  ProviderSource
	cache   *ResultCache
	shared  SharedTier

	cfg       ServiceConfig
	logger    logging.Logger
	collector *metrics.Collector
}

// NewService assembles the generation pipeline. The shared tier may be
// nil; caching then uses the in-process tier only.
func NewService(manager *orchestration.Manager, source ProviderSource, cache *ResultCache, shared SharedTier, cfg ServiceConfig, logger logging.Logger, collector *metrics.Collector) *Service {
	if cfg.SharedTTL <= 0 {
		cfg.SharedTTL = time.Hour
	}
	return &Service{
		manager:   manager,
		source:    source,
		cache:     cache,
		shared:    shared,
		cfg:       cfg,
		logger:    logger,
		collector: collector,
	}
}

// Generate runs one request through the pipeline. On a backend failure
// the returned result carries the error code and message alongside the
// error itself.
func (s *Service) Generate(ctx context.Context, req *types.GenerationRequest) (*types.GenerationResult, error) {
	if err := s.prepare(req); err != nil {
		return nil, err
	}
	ctx = types.WithRequestID(types.WithUserID(ctx, req.UserID), req.ID)

	fingerprint := Fingerprint(req)
	if s.cfg.CacheEnabled {
		if cached := s.lookupCache(ctx, fingerprint, req.ID); cached != nil {
			return cached, nil
		}
	}

	required := DeriveCapabilities(req)
	modelID, ok := s.manager.GetModelForRequest(ctx, required, nil, nil, req.UserID)
	if !ok {
		return nil, errors.NoModelAvailableError().
			WithDetails("required_capabilities", capabilityStrings(required))
	}

	provider, found := s.source.ProviderFor(modelID)
	if !found {
		s.manager.ReleaseModel(modelID)
		return nil, errors.InternalError("selected model has no backend client").
			WithDetails("model_id", modelID)
	}

	s.manager.TrackRequest(modelID)
	start := time.Now()
	result, err := provider.GenerateCode(ctx, req)
	durationMs := float64(time.Since(start).Milliseconds())

	if err != nil {
		result = failureResult(req, modelID, err)
	}

	s.manager.TrackResponse(result, durationMs)
	s.manager.ReleaseModel(modelID)
	s.collector.ObserveHistogram("generation_duration_ms", durationMs,
		map[string]string{"model": modelID})

	if err != nil {
		s.logger.WithContext(ctx).Warn("generation failed",
			logging.String("model", modelID),
			logging.Error(err),
		)
		return result, err
	}

	if s.cfg.CacheEnabled {
		s.storeCache(ctx, fingerprint, result)
	}
	return result, nil
}

// GenerateStream runs one streaming request. Chunks pass through
// unbuffered; the terminal chunk triggers tracking and model release.
// Streamed results are not cached.
func (s *Service) GenerateStream(ctx context.Context, req *types.GenerationRequest) (<-chan types.StreamChunk, error) {
	if err := s.prepare(req); err != nil {
		return nil, err
	}
	ctx = types.WithRequestID(types.WithUserID(ctx, req.UserID), req.ID)

	required := DeriveCapabilities(req)
	modelID, ok := s.manager.GetModelForRequest(ctx, required, nil, nil, req.UserID)
	if !ok {
		return nil, errors.NoModelAvailableError().
			WithDetails("required_capabilities", capabilityStrings(required))
	}

	provider, found := s.source.ProviderFor(modelID)
	if !found {
		s.manager.ReleaseModel(modelID)
		return nil, errors.InternalError("selected model has no backend client").
			WithDetails("model_id", modelID)
	}

	s.manager.TrackRequest(modelID)
	start := time.Now()

	upstream, err := provider.GenerateCodeStream(ctx, req)
	if err != nil {
		durationMs := float64(time.Since(start).Milliseconds())
		s.manager.TrackResponse(failureResult(req, modelID, err), durationMs)
		s.manager.ReleaseModel(modelID)
		return nil, err
	}

	out := make(chan types.StreamChunk)
	go func() {
		defer close(out)

		var aggregated strings.Builder
		finished := false

		finish := func(success bool, failure error) {
			if finished {
				return
			}
			finished = true

			durationMs := float64(time.Since(start).Milliseconds())
			var result *types.GenerationResult
			if success {
				result = &types.GenerationResult{
					RequestID:   req.ID,
					ModelID:     modelID,
					Success:     true,
					Code:        aggregated.String(),
					GeneratedAt: time.Now(),
				}
			} else {
				result = failureResult(req, modelID, failure)
			}
			s.manager.TrackResponse(result, durationMs)
			s.manager.ReleaseModel(modelID)
			s.collector.ObserveHistogram("generation_duration_ms", durationMs,
				map[string]string{"model": modelID})
		}
		defer func() { finish(false, ctx.Err()) }()

		for chunk := range upstream {
			switch chunk.Type {
			case types.ChunkTypeContent:
				aggregated.WriteString(chunk.Content)
			case types.ChunkTypeComplete:
				finish(true, nil)
			case types.ChunkTypeError:
				finish(false, chunk.Err)
			}

			select {
			case out <- chunk:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

// prepare validates the request and fills defaulted identity fields
func (s *Service) prepare(req *types.GenerationRequest) error {
	if req == nil || (!req.HasPrompt() && !req.HasImage()) {
		return errors.Newf(errors.CodeRequestInvalid, errors.ErrorTypeValidation, 400,
			"request needs a prompt or an image")
	}

	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now()
	}
	return nil
}

// lookupCache checks the in-process tier, then the shared tier; shared
// hits are promoted into the in-process tier
func (s *Service) lookupCache(ctx context.Context, fingerprint, requestID string) *types.GenerationResult {
	if result, ok := s.cache.Get(fingerprint, requestID); ok {
		return result
	}

	if s.shared == nil {
		return nil
	}

	result, err := s.shared.Get(ctx, fingerprint)
	if err != nil {
		s.logger.WithContext(ctx).Warn("shared cache lookup failed", logging.Error(err))
		return nil
	}
	if result == nil {
		return nil
	}

	s.cache.Set(fingerprint, result)
	result.RequestID = requestID
	return result
}

// storeCache writes a successful result to both tiers
func (s *Service) storeCache(ctx context.Context, fingerprint string, result *types.GenerationResult) {
	s.cache.Set(fingerprint, result)

	if s.shared == nil {
		return
	}
	if err := s.shared.Set(ctx, fingerprint, result, s.cfg.SharedTTL); err != nil {
		s.logger.WithContext(ctx).Warn("shared cache store failed", logging.Error(err))
	}
}

func failureResult(req *types.GenerationRequest, modelID string, err error) *types.GenerationResult {
	code := errors.GetCode(err)
	message := ""
	if err != nil {
		message = err.Error()
	}

	return &types.GenerationResult{
		RequestID:    req.ID,
		ModelID:      modelID,
		Success:      false,
		ErrorCode:    code,
		ErrorMessage: message,
		GeneratedAt:  time.Now(),
	}
}

func capabilityStrings(caps []types.Capability) []string {
	out := make([]string, len(caps))
	for i, c := range caps {
		out[i] = c.String()
	}
	return out
}
