// Package metrics provides Prometheus metrics collection for the
// orchestration core: selection totals, rate-limit rejections, cache
// hit rates, health transitions, and per-model load.
package metrics

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector manages Prometheus metrics registration and recording
type Collector struct {
	registry  *prometheus.Registry
	namespace string

	counters   map[string]*prometheus.CounterVec
	gauges     map[string]*prometheus.GaugeVec
	histograms map[string]*prometheus.HistogramVec

	mu sync.RWMutex
}

// CollectorConfig defines collector construction options
type CollectorConfig struct {
	// Namespace prefixes every metric name
	Namespace string

	// EnableGoMetrics registers the default Go runtime collectors
	EnableGoMetrics bool

	// Registry overrides the default private registry (optional)
	Registry *prometheus.Registry
}

// NewCollector creates a metrics collector and registers the core
// orchestration metrics
func NewCollector(cfg CollectorConfig) *Collector {
	registry := cfg.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	if cfg.EnableGoMetrics {
		registry.MustRegister(prometheus.NewGoCollector())
		registry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	}

	c := &Collector{
		registry:   registry,
		namespace:  cfg.Namespace,
		counters:   make(map[string]*prometheus.CounterVec),
		gauges:     make(map[string]*prometheus.GaugeVec),
		histograms: make(map[string]*prometheus.HistogramVec),
	}

	c.registerCoreMetrics()

	return c
}

// registerCoreMetrics declares the metrics the orchestration core emits
func (c *Collector) registerCoreMetrics() {
	c.RegisterCounter("model_selection_total", "Model selections by strategy and outcome", []string{"strategy", "outcome"})
	c.RegisterCounter("rate_limit_rejections_total", "Rate-limit rejections by model", []string{"model"})
	c.RegisterCounter("model_requests_total", "Requests dispatched by model and outcome", []string{"model", "outcome"})
	c.RegisterCounter("health_transitions_total", "Model health transitions", []string{"model", "to"})
	c.RegisterCounter("generation_cache_events_total", "Result cache hits/misses/stores", []string{"event"})
	c.RegisterCounter("generation_cache_pruned_total", "Expired cache entries pruned", nil)
	c.RegisterGauge("model_current_load", "In-flight requests per model", []string{"model"})
	c.RegisterGauge("registered_models", "Number of registered models", nil)
	c.RegisterHistogram("generation_duration_ms", "Generation latency in milliseconds", []string{"model"},
		[]float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000})
}

// RegisterCounter registers a counter vector under the collector namespace
func (c *Collector) RegisterCounter(name, help string, labels []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.counters[name]; exists {
		return
	}

	vec := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: c.namespace,
		Name:      name,
		Help:      help,
	}, labels)

	c.registry.MustRegister(vec)
	c.counters[name] = vec
}

// RegisterGauge registers a gauge vector under the collector namespace
func (c *Collector) RegisterGauge(name, help string, labels []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.gauges[name]; exists {
		return
	}

	vec := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: c.namespace,
		Name:      name,
		Help:      help,
	}, labels)

	c.registry.MustRegister(vec)
	c.gauges[name] = vec
}

// RegisterHistogram registers a histogram vector under the collector namespace
func (c *Collector) RegisterHistogram(name, help string, labels []string, buckets []float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.histograms[name]; exists {
		return
	}

	vec := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: c.namespace,
		Name:      name,
		Help:      help,
		Buckets:   buckets,
	}, labels)

	c.registry.MustRegister(vec)
	c.histograms[name] = vec
}

// IncrementCounter adds delta to a registered counter
func (c *Collector) IncrementCounter(name string, delta float64, labels map[string]string) {
	c.mu.RLock()
	vec, exists := c.counters[name]
	c.mu.RUnlock()

	if exists {
		vec.With(labels).Add(delta)
	}
}

// SetGauge sets a registered gauge
func (c *Collector) SetGauge(name string, value float64, labels map[string]string) {
	c.mu.RLock()
	vec, exists := c.gauges[name]
	c.mu.RUnlock()

	if exists {
		vec.With(labels).Set(value)
	}
}

// ObserveHistogram records a histogram observation
func (c *Collector) ObserveHistogram(name string, value float64, labels map[string]string) {
	c.mu.RLock()
	vec, exists := c.histograms[name]
	c.mu.RUnlock()

	if exists {
		vec.With(labels).Observe(value)
	}
}

// Handler returns the Prometheus exposition handler
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Serve starts the metrics endpoint; it blocks until the listener fails
func (c *Collector) Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	if err := http.ListenAndServe(addr, mux); err != nil {
		return fmt.Errorf("metrics endpoint: %w", err)
	}
	return nil
}
