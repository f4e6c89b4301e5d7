// Rolling per-model performance metrics used to rank selection candidates.
package orchestration

import (
	"sort"
	"sync"
	"time"

	"github.com/pixelforge/pixelforge/internal/observability/logging"
	"github.com/pixelforge/pixelforge/pkg/types"
)

// rollingWindowCap bounds the recent-sample windows used for percentiles
const rollingWindowCap = 100

// Composite score weights: success rate, latency headroom, quality
const (
	scoreWeightSuccess = 0.4
	scoreWeightLatency = 0.3
	scoreWeightQuality = 0.3

	// latency at or beyond this contributes zero to the score
	scoreLatencyCeilingMs = 10000
)

// PerformanceMetrics aggregates per-model counters and derived statistics
type PerformanceMetrics struct {
	ModelID string `json:"model_id"`

	TotalRequests      int64 `json:"total_requests"`
	SuccessfulRequests int64 `json:"successful_requests"`
	FailedRequests     int64 `json:"failed_requests"`

	AvgLatencyMs float64 `json:"avg_latency_ms"`
	P95LatencyMs float64 `json:"p95_latency_ms"`
	P99LatencyMs float64 `json:"p99_latency_ms"`

	AvgQualityScore float64 `json:"avg_quality_score"`
	AvgConfidence   float64 `json:"avg_confidence"`

	TotalCostUSD          float64 `json:"total_cost_usd"`
	TotalPromptTokens     int64   `json:"total_prompt_tokens"`
	TotalCompletionTokens int64   `json:"total_completion_tokens"`

	LastUpdated time.Time `json:"last_updated"`
}

// SuccessRate is the fraction of responses that succeeded; 1.0 with no data
func (m *PerformanceMetrics) SuccessRate() float64 {
	responses := m.SuccessfulRequests + m.FailedRequests
	if responses == 0 {
		return 1.0
	}
	return float64(m.SuccessfulRequests) / float64(responses)
}

// ModelScore pairs a model id with its composite ranking score
type ModelScore struct {
	ModelID string  `json:"model_id"`
	Score   float64 `json:"score"`
}

// trackedModel holds the aggregate plus the bounded rolling windows and the
// sample counts backing the incremental averages
type trackedModel struct {
	metrics   PerformanceMetrics
	latencies []float64
	qualities []float64

	responseSamples   int64
	qualitySamples    int64
	confidenceSamples int64
}

// Tracker maintains rolling performance metrics per model
type Tracker struct {
	logger logging.Logger

	mu     sync.Mutex
	models map[string]*trackedModel

	now func() time.Time
}

// NewTracker creates an empty tracker
func NewTracker(logger logging.Logger) *Tracker {
	return &Tracker{
		logger: logger,
		models: make(map[string]*trackedModel),
		now:    time.Now,
	}
}

// TrackRequest records an outgoing request, lazily creating the model's metrics
func (t *Tracker) TrackRequest(modelID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	tm := t.getOrCreate(modelID)
	tm.metrics.TotalRequests++
	tm.metrics.LastUpdated = t.now()
}

// TrackResponse folds one response into the model's metrics. Latency feeds
// an incremental running average; quality and confidence only count on
// successful responses with a positive signal. Percentiles are recomputed
// by sorting a copy of the bounded window.
func (t *Tracker) TrackResponse(result *types.GenerationResult, durationMs float64) {
	if result == nil || result.ModelID == "" {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	tm := t.getOrCreate(result.ModelID)
	m := &tm.metrics

	if result.Success {
		m.SuccessfulRequests++
	} else {
		m.FailedRequests++
	}

	tm.responseSamples++
	m.AvgLatencyMs += (durationMs - m.AvgLatencyMs) / float64(tm.responseSamples)
	tm.latencies = appendBounded(tm.latencies, durationMs)

	if result.Success && result.QualityScore > 0 {
		tm.qualitySamples++
		m.AvgQualityScore += (result.QualityScore - m.AvgQualityScore) / float64(tm.qualitySamples)
		tm.qualities = appendBounded(tm.qualities, result.QualityScore)
	}
	if result.Success && result.Confidence > 0 {
		tm.confidenceSamples++
		m.AvgConfidence += (result.Confidence - m.AvgConfidence) / float64(tm.confidenceSamples)
	}

	m.TotalCostUSD += result.CostUSD
	m.TotalPromptTokens += int64(result.Usage.PromptTokens)
	m.TotalCompletionTokens += int64(result.Usage.CompletionTokens)

	m.P95LatencyMs = percentile(tm.latencies, 0.95)
	m.P99LatencyMs = percentile(tm.latencies, 0.99)

	m.LastUpdated = t.now()
}

// GetMetrics returns a snapshot of a model's metrics
func (t *Tracker) GetMetrics(modelID string) (PerformanceMetrics, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	tm, exists := t.models[modelID]
	if !exists {
		return PerformanceMetrics{}, false
	}
	return tm.metrics, true
}

// GetAllMetrics returns a snapshot of every model's metrics
func (t *Tracker) GetAllMetrics() map[string]PerformanceMetrics {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make(map[string]PerformanceMetrics, len(t.models))
	for id, tm := range t.models {
		out[id] = tm.metrics
	}
	return out
}

// ResetMetrics discards a model's metrics and windows
func (t *Tracker) ResetMetrics(modelID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.models, modelID)
}

// ResetIdle discards metrics for models whose window has been idle longer
// than threshold, returning the ids that were reset
func (t *Tracker) ResetIdle(threshold time.Duration) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := t.now().Add(-threshold)
	var reset []string
	for id, tm := range t.models {
		if tm.metrics.LastUpdated.Before(cutoff) {
			delete(t.models, id)
			reset = append(reset, id)
		}
	}
	return reset
}

// Score computes the composite ranking score for a model. Untracked models
// score as if they had a perfect success rate and no latency or quality data.
func (t *Tracker) Score(modelID string) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.scoreLocked(modelID)
}

func (t *Tracker) scoreLocked(modelID string) float64 {
	tm, exists := t.models[modelID]
	if !exists {
		return scoreWeightSuccess + scoreWeightLatency
	}
	m := &tm.metrics

	latencyPenalty := m.AvgLatencyMs / scoreLatencyCeilingMs
	if latencyPenalty > 1 {
		latencyPenalty = 1
	}

	return scoreWeightSuccess*m.SuccessRate() +
		scoreWeightLatency*(1-latencyPenalty) +
		scoreWeightQuality*m.AvgQualityScore
}

// GetRanking returns every tracked model with its composite score,
// descending
func (t *Tracker) GetRanking() []ModelScore {
	t.mu.Lock()
	defer t.mu.Unlock()

	ranking := make([]ModelScore, 0, len(t.models))
	for id := range t.models {
		ranking = append(ranking, ModelScore{ModelID: id, Score: t.scoreLocked(id)})
	}

	sort.SliceStable(ranking, func(i, j int) bool {
		if ranking[i].Score != ranking[j].Score {
			return ranking[i].Score > ranking[j].Score
		}
		return ranking[i].ModelID < ranking[j].ModelID
	})

	return ranking
}

func (t *Tracker) getOrCreate(modelID string) *trackedModel {
	tm, exists := t.models[modelID]
	if !exists {
		tm = &trackedModel{metrics: PerformanceMetrics{ModelID: modelID}}
		t.models[modelID] = tm
	}
	return tm
}

// appendBounded appends keeping at most rollingWindowCap recent samples
func appendBounded(window []float64, sample float64) []float64 {
	if len(window) >= rollingWindowCap {
		window = window[1:]
	}
	return append(window, sample)
}

// percentile sorts a copy of the window and picks the nearest-rank sample
func percentile(window []float64, p float64) float64 {
	if len(window) == 0 {
		return 0
	}

	sorted := make([]float64, len(window))
	copy(sorted, window)
	sort.Float64s(sorted)

	idx := int(float64(len(sorted)) * p)
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
