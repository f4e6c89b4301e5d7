// The model registry: authoritative store of configurations and live
// status, with capability/provider/type set indexes for candidate lookup.
package orchestration

import (
	"sync"
	"time"

	"github.com/pixelforge/pixelforge/internal/observability/logging"
	"github.com/pixelforge/pixelforge/internal/observability/metrics"
	"github.com/pixelforge/pixelforge/pkg/errors"
	"github.com/pixelforge/pixelforge/pkg/types"
)

// managedModel pairs a configuration with its status. The per-model mutex
// serializes status mutation so load accounting and health gating are
// atomic with respect to concurrent callers.
type managedModel struct {
	mu     sync.Mutex
	config *ModelConfiguration
	status *ModelStatus
}

// Registry is the authoritative store of model configurations and status
type Registry struct {
	logger    logging.Logger
	collector *metrics.Collector

	mu     sync.RWMutex
	models map[string]*managedModel

	// order preserves registration order; candidate lists and round-robin
	// cycling iterate in this order
	order []string

	byCapability map[types.Capability]map[string]struct{}
	byProvider   map[types.Provider]map[string]struct{}
	byType       map[types.ModelType]map[string]struct{}
}

// NewRegistry creates an empty registry
func NewRegistry(logger logging.Logger, collector *metrics.Collector) *Registry {
	return &Registry{
		logger:       logger,
		collector:    collector,
		models:       make(map[string]*managedModel),
		byCapability: make(map[types.Capability]map[string]struct{}),
		byProvider:   make(map[types.Provider]map[string]struct{}),
		byType:       make(map[types.ModelType]map[string]struct{}),
	}
}

// Register adds a configuration and seeds its status. It never partially
// registers: the indexes are only touched after the configuration is
// accepted.
func (r *Registry) Register(config *ModelConfiguration) error {
	if config == nil || config.ID == "" {
		return errors.ConfigurationError("model id is required")
	}
	if config.Provider == "" {
		return errors.ConfigurationError("model provider is required")
	}
	if config.Type == "" {
		return errors.ConfigurationError("model type is required")
	}
	if len(config.Capabilities) == 0 {
		return errors.ConfigurationError("model capabilities must not be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.models[config.ID]; exists {
		return errors.ConfigurationErrorf("model %s is already registered", config.ID)
	}

	maxConcurrent := config.MaxConcurrentRequests
	if maxConcurrent <= 0 {
		maxConcurrent = defaultMaxConcurrent
	}

	config.RegisteredAt = time.Now()

	r.models[config.ID] = &managedModel{
		config: config,
		status: &ModelStatus{
			ModelID:               config.ID,
			IsAvailable:           true,
			IsHealthy:             true,
			MaxConcurrentRequests: maxConcurrent,
			SuccessRate:           1.0,
		},
	}
	r.order = append(r.order, config.ID)

	for _, cap := range config.Capabilities {
		if r.byCapability[cap] == nil {
			r.byCapability[cap] = make(map[string]struct{})
		}
		r.byCapability[cap][config.ID] = struct{}{}
	}
	if r.byProvider[config.Provider] == nil {
		r.byProvider[config.Provider] = make(map[string]struct{})
	}
	r.byProvider[config.Provider][config.ID] = struct{}{}
	if r.byType[config.Type] == nil {
		r.byType[config.Type] = make(map[string]struct{})
	}
	r.byType[config.Type][config.ID] = struct{}{}

	r.collector.SetGauge("registered_models", float64(len(r.models)), nil)
	r.logger.Info("model registered",
		logging.String("model", config.ID),
		logging.String("provider", config.Provider.String()),
		logging.String("type", config.Type.String()),
		logging.Int("capabilities", len(config.Capabilities)),
	)

	return nil
}

// Unregister removes a model and its index entries
func (r *Registry) Unregister(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, exists := r.models[id]
	if !exists {
		return false
	}

	delete(r.models, id)
	for i, ordered := range r.order {
		if ordered == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	for _, cap := range m.config.Capabilities {
		delete(r.byCapability[cap], id)
	}
	delete(r.byProvider[m.config.Provider], id)
	delete(r.byType[m.config.Type], id)

	r.collector.SetGauge("registered_models", float64(len(r.models)), nil)
	r.logger.Info("model unregistered", logging.String("model", id))

	return true
}

// Get retrieves a configuration by id
func (r *Registry) Get(id string) (*ModelConfiguration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, exists := r.models[id]
	if !exists {
		return nil, false
	}
	return m.config, true
}

// GetStatus returns a snapshot of a model's status
func (r *Registry) GetStatus(id string) (ModelStatus, bool) {
	r.mu.RLock()
	m, exists := r.models[id]
	r.mu.RUnlock()

	if !exists {
		return ModelStatus{}, false
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.status, true
}

// IDs returns all model ids in registration order
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, len(r.order))
	copy(ids, r.order)
	return ids
}

// ListModels returns configurations matching the filter, in registration order
func (r *Registry) ListModels(filter ListFilter) []*ModelConfiguration {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*ModelConfiguration
	for _, id := range r.order {
		m := r.models[id]
		if filter.Provider != nil && m.config.Provider != *filter.Provider {
			continue
		}
		if filter.Type != nil && m.config.Type != *filter.Type {
			continue
		}
		if filter.AvailableOnly && !r.available(m) {
			continue
		}
		out = append(out, m.config)
	}
	return out
}

// FindByCapabilities returns the models whose capability set is a superset
// of required, computed as the intersection of the per-capability index
// sets. Registration order is preserved.
func (r *Registry) FindByCapabilities(required []types.Capability, availableOnly bool) []*ModelConfiguration {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*ModelConfiguration
	for _, id := range r.order {
		inAll := true
		for _, cap := range required {
			if _, ok := r.byCapability[cap][id]; !ok {
				inAll = false
				break
			}
		}
		if !inAll {
			continue
		}
		m := r.models[id]
		if availableOnly && !r.available(m) {
			continue
		}
		out = append(out, m.config)
	}
	return out
}

func (r *Registry) available(m *managedModel) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status.IsAvailable
}

// UpdateStatus applies a mutation to a model's status under its lock
func (r *Registry) UpdateStatus(id string, apply func(*ModelStatus)) bool {
	r.mu.RLock()
	m, exists := r.models[id]
	r.mu.RUnlock()

	if !exists {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	apply(m.status)
	return true
}

// IncrementLoad adds one in-flight request to the model
func (r *Registry) IncrementLoad(id string) bool {
	ok := r.UpdateStatus(id, func(s *ModelStatus) {
		s.CurrentLoad++
	})
	if ok {
		r.publishLoad(id)
	}
	return ok
}

// DecrementLoad removes one in-flight request, flooring at zero
func (r *Registry) DecrementLoad(id string) bool {
	ok := r.UpdateStatus(id, func(s *ModelStatus) {
		if s.CurrentLoad > 0 {
			s.CurrentLoad--
		}
	})
	if ok {
		r.publishLoad(id)
	}
	return ok
}

// TryAcquireLoad atomically checks availability and the overload gate and,
// when both pass, increments load. The check-and-increment runs under the
// per-model lock so concurrent acquisitions cannot exceed the bound.
func (r *Registry) TryAcquireLoad(id string) bool {
	r.mu.RLock()
	m, exists := r.models[id]
	r.mu.RUnlock()

	if !exists {
		return false
	}

	m.mu.Lock()
	acquired := m.status.IsAvailable && !m.status.IsOverloaded()
	if acquired {
		m.status.CurrentLoad++
	}
	m.mu.Unlock()

	if acquired {
		r.publishLoad(id)
	}
	return acquired
}

// RecordError increments the consecutive-error counter; at the gate
// threshold the model is forced unhealthy and unavailable.
func (r *Registry) RecordError(id string, message string) bool {
	var gated bool
	ok := r.UpdateStatus(id, func(s *ModelStatus) {
		s.ConsecutiveErrors++
		s.LastError = message
		if s.ConsecutiveErrors >= errorGateThreshold {
			gated = s.IsAvailable || s.IsHealthy
			s.IsHealthy = false
			s.IsAvailable = false
		}
	})
	if !ok {
		return false
	}

	if gated {
		r.collector.IncrementCounter("health_transitions_total", 1,
			map[string]string{"model": id, "to": "unavailable"})
		r.logger.Warn("model gated after consecutive errors",
			logging.String("model", id),
			logging.String("last_error", message),
		)
	}
	return true
}

// RecordSuccess zeroes the consecutive-error counter and restores the
// model healthy and available. A single success reinstates the model
// regardless of how deep the preceding failure streak was.
func (r *Registry) RecordSuccess(id string) bool {
	var reinstated bool
	ok := r.UpdateStatus(id, func(s *ModelStatus) {
		reinstated = !s.IsAvailable || !s.IsHealthy
		s.ConsecutiveErrors = 0
		s.IsHealthy = true
		s.IsAvailable = true
	})
	if !ok {
		return false
	}

	if reinstated {
		r.collector.IncrementCounter("health_transitions_total", 1,
			map[string]string{"model": id, "to": "available"})
		r.logger.Info("model reinstated after success", logging.String("model", id))
	}
	return true
}

func (r *Registry) publishLoad(id string) {
	if status, ok := r.GetStatus(id); ok {
		r.collector.SetGauge("model_current_load", float64(status.CurrentLoad),
			map[string]string{"model": id})
	}
}
