// Candidate selection strategies, sliding-window rate limiting, and the
// acquire/release gate over model load.
package orchestration

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/pixelforge/pixelforge/internal/observability/logging"
	"github.com/pixelforge/pixelforge/internal/observability/metrics"
	"github.com/pixelforge/pixelforge/pkg/errors"
	"github.com/pixelforge/pixelforge/pkg/types"
)

// rateWindow tracks request timestamps for one (model, user) pair. The
// check-and-record sequence runs under the window's own lock so concurrent
// checks cannot both pass on the last budget slot.
type rateWindow struct {
	mu     sync.Mutex
	minute []time.Time
	hour   []time.Time
}

// LoadBalancer selects candidate models and enforces per-(model,user)
// rate limits and the per-model concurrency gate
type LoadBalancer struct {
	logger    logging.Logger
	collector *metrics.Collector

	registry *Registry
	tracker  *Tracker

	limiterMu sync.Mutex
	limiters  map[string]*rateWindow

	rrMu    sync.Mutex
	rrIndex int

	randMu sync.Mutex
	rand   *rand.Rand

	now func() time.Time
}

// NewLoadBalancer creates a load balancer over the given registry and tracker
func NewLoadBalancer(logger logging.Logger, collector *metrics.Collector, registry *Registry, tracker *Tracker) *LoadBalancer {
	return &LoadBalancer{
		logger:    logger,
		collector: collector,
		registry:  registry,
		tracker:   tracker,
		limiters:  make(map[string]*rateWindow),
		rand:      rand.New(rand.NewSource(time.Now().UnixNano())),
		now:       time.Now,
	}
}

// Candidates returns the available models matching the required
// capabilities, optionally narrowed by type and provider, in registration
// order
func (b *LoadBalancer) Candidates(required []types.Capability, modelType *types.ModelType, preferred *types.Provider) []*ModelConfiguration {
	matches := b.registry.FindByCapabilities(required, true)

	var out []*ModelConfiguration
	for _, cfg := range matches {
		if modelType != nil && cfg.Type != *modelType {
			continue
		}
		if preferred != nil && cfg.Provider != *preferred {
			continue
		}
		out = append(out, cfg)
	}
	return out
}

// SelectModel picks one candidate according to the strategy. It returns
// false when no candidate matches.
func (b *LoadBalancer) SelectModel(required []types.Capability, modelType *types.ModelType, preferred *types.Provider, strategy types.Strategy) (string, bool) {
	candidates := b.Candidates(required, modelType, preferred)
	if len(candidates) == 0 {
		return "", false
	}

	var selected *ModelConfiguration
	switch strategy {
	case types.StrategyRoundRobin:
		selected = b.pickRoundRobin(candidates)
	case types.StrategyLeastLoaded:
		selected = b.pickLeastLoaded(candidates)
	case types.StrategyRandom:
		selected = b.pickRandom(candidates)
	default:
		selected = b.pickByPerformance(candidates)
	}

	return selected.ID, true
}

// pickRoundRobin cycles the candidate list with a shared monotonic index
func (b *LoadBalancer) pickRoundRobin(candidates []*ModelConfiguration) *ModelConfiguration {
	b.rrMu.Lock()
	defer b.rrMu.Unlock()

	selected := candidates[b.rrIndex%len(candidates)]
	b.rrIndex++
	return selected
}

// pickLeastLoaded returns the non-overloaded candidate with the lowest
// load, falling back to the first candidate when all are overloaded
func (b *LoadBalancer) pickLeastLoaded(candidates []*ModelConfiguration) *ModelConfiguration {
	var best *ModelConfiguration
	bestLoad := -1

	for _, cfg := range candidates {
		status, ok := b.registry.GetStatus(cfg.ID)
		if !ok || status.IsOverloaded() {
			continue
		}
		if bestLoad < 0 || status.CurrentLoad < bestLoad {
			bestLoad = status.CurrentLoad
			best = cfg
		}
	}

	if best == nil {
		return candidates[0]
	}
	return best
}

// pickByPerformance ranks candidates by composite score and returns the
// first that is healthy and not overloaded, falling back to the first
// candidate when none qualify
func (b *LoadBalancer) pickByPerformance(candidates []*ModelConfiguration) *ModelConfiguration {
	ranked := make([]*ModelConfiguration, len(candidates))
	copy(ranked, candidates)

	scores := make(map[string]float64, len(candidates))
	for _, cfg := range candidates {
		scores[cfg.ID] = b.tracker.Score(cfg.ID)
	}
	// Stable sort keeps registration order among equals
	sortByScore(ranked, scores)

	for _, cfg := range ranked {
		status, ok := b.registry.GetStatus(cfg.ID)
		if !ok {
			continue
		}
		if status.IsHealthy && !status.IsOverloaded() {
			return cfg
		}
	}

	return candidates[0]
}

// pickRandom returns a uniformly random candidate
func (b *LoadBalancer) pickRandom(candidates []*ModelConfiguration) *ModelConfiguration {
	b.randMu.Lock()
	defer b.randMu.Unlock()
	return candidates[b.rand.Intn(len(candidates))]
}

// CheckRateLimit prunes the (model,user) windows to the last minute/hour
// and, when both budgets have room, records the current timestamp and
// accepts. Rejections leave the windows untouched.
func (b *LoadBalancer) CheckRateLimit(modelID, userID string) bool {
	cfg, ok := b.registry.Get(modelID)
	if !ok {
		return false
	}

	window := b.windowFor(modelID, userID)

	window.mu.Lock()
	defer window.mu.Unlock()

	now := b.now()
	window.minute = pruneBefore(window.minute, now.Add(-time.Minute))
	window.hour = pruneBefore(window.hour, now.Add(-time.Hour))

	if len(window.minute) >= cfg.RequestsPerMinute || len(window.hour) >= cfg.RequestsPerHour {
		b.collector.IncrementCounter("rate_limit_rejections_total", 1,
			map[string]string{"model": modelID})
		return false
	}

	window.minute = append(window.minute, now)
	window.hour = append(window.hour, now)
	return true
}

// AcquireModel gates a request: the rate budget first (RateLimitError on
// exhaustion), then the atomic availability/overload check-and-increment.
func (b *LoadBalancer) AcquireModel(modelID, userID string) (bool, error) {
	if !b.CheckRateLimit(modelID, userID) {
		return false, errors.RateLimitError(
			fmt.Sprintf("rate limit exceeded for model %s", modelID),
		).WithDetails("model_id", modelID).WithDetails("user_id", userID)
	}

	return b.registry.TryAcquireLoad(modelID), nil
}

// ReleaseModel decrements the model's load, flooring at zero
func (b *LoadBalancer) ReleaseModel(modelID string) {
	b.registry.DecrementLoad(modelID)
}

func (b *LoadBalancer) windowFor(modelID, userID string) *rateWindow {
	key := modelID + ":" + userID

	b.limiterMu.Lock()
	defer b.limiterMu.Unlock()

	window, exists := b.limiters[key]
	if !exists {
		window = &rateWindow{}
		b.limiters[key] = window
	}
	return window
}

// pruneBefore drops timestamps at or before cutoff; the slice is ordered
// oldest first
func pruneBefore(stamps []time.Time, cutoff time.Time) []time.Time {
	idx := 0
	for idx < len(stamps) && !stamps[idx].After(cutoff) {
		idx++
	}
	return stamps[idx:]
}

// sortByScore sorts configurations descending by score, stably
func sortByScore(configs []*ModelConfiguration, scores map[string]float64) {
	// Insertion sort: candidate lists are small and stability matters
	for i := 1; i < len(configs); i++ {
		j := i
		for j > 0 && scores[configs[j].ID] > scores[configs[j-1].ID] {
			configs[j], configs[j-1] = configs[j-1], configs[j]
			j--
		}
	}
}
