// Package providers implements the model backend clients: OpenAI and Azure
// via the go-openai SDK, Anthropic via its Messages API, and a local
// template backend for offline use. A Set maps registered model ids to
// their backend and doubles as the health prober for the orchestration
// core.
package providers

import (
	"context"
	"sync"
	"time"

	"github.com/pixelforge/pixelforge/internal/observability/logging"
	"github.com/pixelforge/pixelforge/pkg/errors"
	"github.com/pixelforge/pixelforge/pkg/types"
)

// defaultTimeout bounds backend calls when the model config gives none
const defaultTimeout = 60 * time.Second

// Provider is a model backend client bound to one registered model
type Provider interface {
	// Initialize prepares the client; called once before first use
	Initialize(ctx context.Context) error

	// GenerateCode performs one generation round trip
	GenerateCode(ctx context.Context, req *types.GenerationRequest) (*types.GenerationResult, error)

	// GenerateCodeStream performs a streaming generation. The returned
	// channel is closed after a terminal chunk (complete or error).
	GenerateCodeStream(ctx context.Context, req *types.GenerationRequest) (<-chan types.StreamChunk, error)

	// ValidateModel probes backend reachability for health checks
	ValidateModel(ctx context.Context) (bool, string)

	// Cleanup releases client resources
	Cleanup() error
}

// Options carries the per-model settings a backend needs
type Options struct {
	ModelID         string
	Provider        types.Provider
	ModelName       string
	APIKey          string
	BaseURL         string
	MaxTokens       int
	Temperature     float64
	Timeout         time.Duration
	CostPer1KTokens float64
}

func (o *Options) timeout() time.Duration {
	if o.Timeout <= 0 {
		return defaultTimeout
	}
	return o.Timeout
}

// New constructs the backend client for a model. Providers without a
// client implementation are rejected.
func New(opts Options, logger logging.Logger) (Provider, error) {
	switch opts.Provider {
	case types.ProviderOpenAI, types.ProviderAzure:
		return NewOpenAI(opts, logger), nil
	case types.ProviderAnthropic:
		return NewAnthropic(opts, logger), nil
	case types.ProviderLocal:
		return NewLocal(opts, logger), nil
	default:
		return nil, errors.Newf(errors.CodeProviderUnsupported, errors.ErrorTypeProvider, 400,
			"provider '%s' has no backend client", opts.Provider)
	}
}

// Set maps model ids to their backend clients. It implements the
// orchestration health prober.
type Set struct {
	mu        sync.RWMutex
	providers map[string]Provider
	logger    logging.Logger
}

// NewSet creates an empty provider set
func NewSet(logger logging.Logger) *Set {
	return &Set{
		providers: make(map[string]Provider),
		logger:    logger,
	}
}

// Register binds a model id to its backend client
func (s *Set) Register(modelID string, p Provider) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.providers[modelID] = p
}

// Unregister removes a model's backend client and cleans it up
func (s *Set) Unregister(modelID string) {
	s.mu.Lock()
	p, ok := s.providers[modelID]
	delete(s.providers, modelID)
	s.mu.Unlock()

	if ok {
		if err := p.Cleanup(); err != nil {
			s.logger.Warn("provider cleanup failed",
				logging.String("model", modelID),
				logging.Error(err),
			)
		}
	}
}

// ProviderFor resolves the backend client for a model id
func (s *Set) ProviderFor(modelID string) (Provider, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.providers[modelID]
	return p, ok
}

// Probe reports backend health for a model id. Unknown models probe
// unhealthy rather than erroring so the health loop keeps running.
func (s *Set) Probe(ctx context.Context, modelID string) (bool, string) {
	p, ok := s.ProviderFor(modelID)
	if !ok {
		return false, "no backend client registered"
	}
	return p.ValidateModel(ctx)
}

// InitializeAll initializes every registered client; the first failure
// aborts
func (s *Set) InitializeAll(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for id, p := range s.providers {
		if err := p.Initialize(ctx); err != nil {
			return errors.Wrap(err, errors.CodeProviderFailure, "initialize backend for "+id)
		}
	}
	return nil
}

// CleanupAll releases every registered client
func (s *Set) CleanupAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, p := range s.providers {
		if err := p.Cleanup(); err != nil {
			s.logger.Warn("provider cleanup failed",
				logging.String("model", id),
				logging.Error(err),
			)
		}
	}
	s.providers = make(map[string]Provider)
}
