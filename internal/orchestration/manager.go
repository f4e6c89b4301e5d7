// The manager composes the registry, validator, tracker, and load
// balancer into the public orchestration API and runs the background
// health-check and metrics-cleanup loops.
package orchestration

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pixelforge/pixelforge/internal/observability/logging"
	"github.com/pixelforge/pixelforge/internal/observability/metrics"
	"github.com/pixelforge/pixelforge/pkg/errors"
	"github.com/pixelforge/pixelforge/pkg/types"
)

// iterationBackoff delays the next loop iteration after a failed one
const iterationBackoff = 5 * time.Second

// ManagerConfig tunes manager behavior
type ManagerConfig struct {
	// Strategy is the default selection strategy
	Strategy types.Strategy

	// HealthCheckInterval paces the health loop (default 60s)
	HealthCheckInterval time.Duration

	// CleanupInterval paces the metrics cleanup loop (default 1h)
	CleanupInterval time.Duration

	// MetricsIdleThreshold is how long a model's metrics may stay idle
	// before the cleanup loop resets them (default 24h)
	MetricsIdleThreshold time.Duration
}

func (c *ManagerConfig) applyDefaults() {
	if c.Strategy == "" {
		c.Strategy = types.StrategyPerformance
	}
	if c.HealthCheckInterval <= 0 {
		c.HealthCheckInterval = 60 * time.Second
	}
	if c.CleanupInterval <= 0 {
		c.CleanupInterval = time.Hour
	}
	if c.MetricsIdleThreshold <= 0 {
		c.MetricsIdleThreshold = 24 * time.Hour
	}
}

// Manager is the public orchestration API consumed by the outer system
type Manager struct {
	logger    logging.Logger
	collector *metrics.Collector

	registry  *Registry
	validator *Validator
	tracker   *Tracker
	balancer  *LoadBalancer

	cfg ManagerConfig

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
}

// NewManager constructs the orchestration core. The prober is the provider
// collaborator used for health validation.
func NewManager(logger logging.Logger, collector *metrics.Collector, prober HealthProber, cfg ManagerConfig) *Manager {
	cfg.applyDefaults()

	registry := NewRegistry(logger, collector)
	tracker := NewTracker(logger)

	return &Manager{
		logger:    logger,
		collector: collector,
		registry:  registry,
		validator: NewValidator(prober),
		tracker:   tracker,
		balancer:  NewLoadBalancer(logger, collector, registry, tracker),
		cfg:       cfg,
	}
}

// Registry exposes the registry for collaborators that resolve
// configurations (e.g. provider construction)
func (m *Manager) Registry() *Registry {
	return m.registry
}

// RegisterModel validates a configuration statically, probes its health,
// registers it, and seeds its status from the probe outcome. Validation
// failures surface as a ConfigurationError and nothing is registered.
func (m *Manager) RegisterModel(ctx context.Context, config *ModelConfiguration) error {
	valid, problems := m.validator.ValidateConfiguration(config)
	if !valid {
		err := errors.ConfigurationErrorf("model configuration rejected")
		for i, p := range problems {
			err = err.WithDetails(fmt.Sprintf("problem_%d", i), p)
		}
		return err
	}

	healthy, message := m.validator.ValidateHealth(ctx, config)

	if err := m.registry.Register(config); err != nil {
		return err
	}

	m.registry.UpdateStatus(config.ID, func(s *ModelStatus) {
		s.IsHealthy = healthy
		s.IsAvailable = healthy
		s.LastHealthCheckAt = time.Now()
		if !healthy {
			s.LastError = message
		}
	})

	if !healthy {
		m.logger.Warn("model registered unhealthy",
			logging.String("model", config.ID),
			logging.String("probe", message),
		)
	}

	return nil
}

// UnregisterModel removes a model; false when the id is unknown
func (m *Manager) UnregisterModel(id string) bool {
	m.tracker.ResetMetrics(id)
	return m.registry.Unregister(id)
}

// GetModelForRequest selects and acquires a model for the request. When
// the preferred candidate is rate-limited or cannot be acquired, the
// remaining capability-matching candidates are tried in order; exhaustion
// yields false, never an error.
func (m *Manager) GetModelForRequest(ctx context.Context, required []types.Capability, modelType *types.ModelType, preferred *types.Provider, userID string) (string, bool) {
	candidates := m.balancer.Candidates(required, modelType, preferred)
	if len(candidates) == 0 {
		m.recordSelection("none")
		return "", false
	}

	selected, _ := m.balancer.SelectModel(required, modelType, preferred, m.cfg.Strategy)

	ordered := make([]string, 0, len(candidates))
	ordered = append(ordered, selected)
	for _, cfg := range candidates {
		if cfg.ID != selected {
			ordered = append(ordered, cfg.ID)
		}
	}

	for _, id := range ordered {
		acquired, err := m.balancer.AcquireModel(id, userID)
		if err != nil {
			m.logger.WithContext(ctx).Debug("candidate rate limited",
				logging.String("model", id),
				logging.String("user", userID),
			)
			continue
		}
		if acquired {
			m.recordSelection("granted")
			return id, true
		}
	}

	m.recordSelection("exhausted")
	m.logger.WithContext(ctx).Warn("no model available",
		logging.Int("candidates", len(candidates)),
		logging.String("user", userID),
	)
	return "", false
}

// ReleaseModel returns a previously acquired slot
func (m *Manager) ReleaseModel(id string) {
	m.balancer.ReleaseModel(id)
}

// CheckRateLimit exposes the rate gate without acquiring
func (m *Manager) CheckRateLimit(modelID, userID string) bool {
	return m.balancer.CheckRateLimit(modelID, userID)
}

// TrackRequest forwards to the performance tracker
func (m *Manager) TrackRequest(modelID string) {
	m.tracker.TrackRequest(modelID)
}

// TrackResponse folds an outcome into the tracker and the registry: a
// success reinstates the model, a failure advances the error gate. The
// status mirror of average latency and success rate is refreshed from
// the tracker.
func (m *Manager) TrackResponse(result *types.GenerationResult, durationMs float64) {
	if result == nil || result.ModelID == "" {
		return
	}

	m.tracker.TrackResponse(result, durationMs)

	outcome := "success"
	if result.Success {
		m.registry.RecordSuccess(result.ModelID)
	} else {
		outcome = "failure"
		m.registry.RecordError(result.ModelID, result.ErrorMessage)
	}

	if perf, ok := m.tracker.GetMetrics(result.ModelID); ok {
		m.registry.UpdateStatus(result.ModelID, func(s *ModelStatus) {
			s.AvgResponseTimeMs = perf.AvgLatencyMs
			s.SuccessRate = perf.SuccessRate()
		})
	}

	m.collector.IncrementCounter("model_requests_total", 1,
		map[string]string{"model": result.ModelID, "outcome": outcome})
}

// ListModels returns registered configurations
func (m *Manager) ListModels(availableOnly bool) []*ModelConfiguration {
	return m.registry.ListModels(ListFilter{AvailableOnly: availableOnly})
}

// GetModelStatus returns a model's status snapshot
func (m *Manager) GetModelStatus(id string) (ModelStatus, bool) {
	return m.registry.GetStatus(id)
}

// GetModelMetrics returns a model's performance metrics
func (m *Manager) GetModelMetrics(id string) (PerformanceMetrics, bool) {
	return m.tracker.GetMetrics(id)
}

// GetAllMetrics returns every model's performance metrics
func (m *Manager) GetAllMetrics() map[string]PerformanceMetrics {
	return m.tracker.GetAllMetrics()
}

// GetRanking returns the tracker's composite ranking
func (m *Manager) GetRanking() []ModelScore {
	return m.tracker.GetRanking()
}

// Start launches the health-check and cleanup loops. Idempotent.
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.started = true

	m.wg.Add(2)
	go m.healthLoop(ctx)
	go m.cleanupLoop(ctx)

	m.logger.Info("orchestration manager started",
		logging.String("strategy", m.cfg.Strategy.String()),
		logging.Any("health_check_interval", m.cfg.HealthCheckInterval),
		logging.Any("cleanup_interval", m.cfg.CleanupInterval),
	)
}

// Stop cancels both loops and waits for them to exit. No shared state is
// mutated by the loops after Stop returns.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.started {
		return
	}

	m.cancel()
	m.wg.Wait()
	m.started = false

	m.logger.Info("orchestration manager stopped")
}

// healthLoop re-validates every model's health on a fixed interval
func (m *Manager) healthLoop(ctx context.Context) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.cfg.HealthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := m.safeIteration("health check", func() { m.runHealthCheck(ctx) }); err != nil {
				select {
				case <-ctx.Done():
					return
				case <-time.After(iterationBackoff):
				}
			}
		}
	}
}

// cleanupLoop resets metrics for models idle past the threshold
func (m *Manager) cleanupLoop(ctx context.Context) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := m.safeIteration("metrics cleanup", func() { m.runCleanup() }); err != nil {
				select {
				case <-ctx.Done():
					return
				case <-time.After(iterationBackoff):
				}
			}
		}
	}
}

// safeIteration isolates one loop iteration: a panic is recovered and
// logged, and the caller backs off before the next tick
func (m *Manager) safeIteration(name string, fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s iteration panicked: %v", name, r)
			m.logger.Error("background loop iteration failed",
				logging.String("loop", name),
				logging.Any("panic", r),
			)
		}
	}()

	fn()
	return nil
}

// runHealthCheck probes every registered model and updates its status
func (m *Manager) runHealthCheck(ctx context.Context) {
	for _, id := range m.registry.IDs() {
		config, ok := m.registry.Get(id)
		if !ok {
			continue
		}

		healthy, message := m.validator.ValidateHealth(ctx, config)

		var transitioned bool
		m.registry.UpdateStatus(id, func(s *ModelStatus) {
			transitioned = s.IsHealthy != healthy
			s.IsHealthy = healthy
			s.IsAvailable = healthy
			s.LastHealthCheckAt = time.Now()
			if !healthy {
				s.LastError = message
			}
		})

		if transitioned {
			to := "available"
			if !healthy {
				to = "unavailable"
			}
			m.collector.IncrementCounter("health_transitions_total", 1,
				map[string]string{"model": id, "to": to})
			m.logger.Info("model health transition",
				logging.String("model", id),
				logging.Bool("healthy", healthy),
				logging.String("probe", message),
			)
		}
	}
}

// runCleanup resets metrics for idle models
func (m *Manager) runCleanup() {
	reset := m.tracker.ResetIdle(m.cfg.MetricsIdleThreshold)
	if len(reset) > 0 {
		m.logger.Info("idle model metrics reset", logging.Strings("models", reset))
	}
}

func (m *Manager) recordSelection(outcome string) {
	m.collector.IncrementCounter("model_selection_total", 1,
		map[string]string{"strategy": m.cfg.Strategy.String(), "outcome": outcome})
}
