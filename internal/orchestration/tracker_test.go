package orchestration

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pixelforge/pixelforge/internal/observability/logging"
	"github.com/pixelforge/pixelforge/pkg/types"
)

func newTestTracker() *Tracker {
	return NewTracker(logging.NewNoopLogger())
}

func response(modelID string, success bool, quality float64) *types.GenerationResult {
	return &types.GenerationResult{
		RequestID:    "req",
		ModelID:      modelID,
		Success:      success,
		QualityScore: quality,
		Confidence:   quality,
	}
}

func TestTrackerCounts(t *testing.T) {
	tr := newTestTracker()

	tr.TrackRequest("m1")
	tr.TrackRequest("m1")
	tr.TrackResponse(response("m1", true, 0.9), 100)
	tr.TrackResponse(response("m1", false, 0), 200)

	m, ok := tr.GetMetrics("m1")
	require.True(t, ok)
	assert.Equal(t, int64(2), m.TotalRequests)
	assert.Equal(t, int64(1), m.SuccessfulRequests)
	assert.Equal(t, int64(1), m.FailedRequests)
	assert.InDelta(t, 0.5, m.SuccessRate(), 1e-9)
	assert.InDelta(t, 150, m.AvgLatencyMs, 1e-9)
}

func TestTrackerSuccessRateWithNoData(t *testing.T) {
	m := PerformanceMetrics{}
	assert.Equal(t, 1.0, m.SuccessRate())
}

func TestTrackerQualityOnlyOnSuccess(t *testing.T) {
	tr := newTestTracker()

	tr.TrackResponse(response("m1", true, 0.8), 100)
	tr.TrackResponse(response("m1", false, 0.2), 100)
	tr.TrackResponse(response("m1", true, 0), 100) // no signal

	m, _ := tr.GetMetrics("m1")
	assert.InDelta(t, 0.8, m.AvgQualityScore, 1e-9)
	assert.InDelta(t, 0.8, m.AvgConfidence, 1e-9)
}

func TestTrackerRollingWindowBound(t *testing.T) {
	tr := newTestTracker()

	// Fill beyond the window with high latencies, then flood with low
	// ones; the percentiles must forget the old samples.
	for i := 0; i < rollingWindowCap; i++ {
		tr.TrackResponse(response("m1", true, 0.5), 9000)
	}
	for i := 0; i < rollingWindowCap; i++ {
		tr.TrackResponse(response("m1", true, 0.5), 10)
	}

	m, _ := tr.GetMetrics("m1")
	assert.Equal(t, float64(10), m.P95LatencyMs)
	assert.Equal(t, float64(10), m.P99LatencyMs)
}

func TestTrackerPercentiles(t *testing.T) {
	tr := newTestTracker()
	for i := 1; i <= 100; i++ {
		tr.TrackResponse(response("m1", true, 0.5), float64(i))
	}

	m, _ := tr.GetMetrics("m1")
	assert.Equal(t, float64(96), m.P95LatencyMs)
	assert.Equal(t, float64(100), m.P99LatencyMs)
}

func TestTrackerScore(t *testing.T) {
	tr := newTestTracker()

	t.Run("untracked model gets optimistic default", func(t *testing.T) {
		assert.InDelta(t, 0.7, tr.Score("fresh"), 1e-9)
	})

	t.Run("perfect model approaches the ceiling", func(t *testing.T) {
		tr.TrackResponse(response("m1", true, 1.0), 0)
		assert.InDelta(t, 1.0, tr.Score("m1"), 1e-9)
	})

	t.Run("latency at the ceiling zeroes its term", func(t *testing.T) {
		tr.TrackResponse(response("slow", true, 1.0), scoreLatencyCeilingMs)
		assert.InDelta(t, 0.7, tr.Score("slow"), 1e-9)
	})

	t.Run("failures drag the score down", func(t *testing.T) {
		for i := 0; i < 10; i++ {
			tr.TrackResponse(response("flaky", false, 0), 100)
		}
		assert.Less(t, tr.Score("flaky"), tr.Score("m1"))
	})
}

func TestTrackerRanking(t *testing.T) {
	tr := newTestTracker()

	tr.TrackResponse(response("good", true, 1.0), 50)
	tr.TrackResponse(response("bad", false, 0), 5000)
	tr.TrackResponse(response("mid", true, 0.5), 2000)

	ranking := tr.GetRanking()
	require.Len(t, ranking, 3)
	assert.Equal(t, "good", ranking[0].ModelID)
	assert.Equal(t, "mid", ranking[1].ModelID)
	assert.Equal(t, "bad", ranking[2].ModelID)
}

func TestTrackerResetIdle(t *testing.T) {
	tr := newTestTracker()

	base := time.Now()
	tr.now = func() time.Time { return base }
	tr.TrackResponse(response("stale", true, 0.5), 100)

	tr.now = func() time.Time { return base.Add(25 * time.Hour) }
	tr.TrackResponse(response("active", true, 0.5), 100)

	reset := tr.ResetIdle(24 * time.Hour)
	assert.Equal(t, []string{"stale"}, reset)

	_, ok := tr.GetMetrics("stale")
	assert.False(t, ok)
	_, ok = tr.GetMetrics("active")
	assert.True(t, ok)
}

func TestTrackerResetMetrics(t *testing.T) {
	tr := newTestTracker()
	tr.TrackResponse(response("m1", true, 0.5), 100)

	tr.ResetMetrics("m1")
	_, ok := tr.GetMetrics("m1")
	assert.False(t, ok)
}

func TestTrackerIncrementalAverageMatchesBatch(t *testing.T) {
	tr := newTestTracker()

	var sum float64
	for i := 0; i < 250; i++ {
		latency := float64((i*37)%500 + 1)
		sum += latency
		tr.TrackResponse(response("m1", true, 0.5), latency)
	}

	m, _ := tr.GetMetrics("m1")
	assert.InDelta(t, sum/250, m.AvgLatencyMs, 1e-6,
		fmt.Sprintf("incremental average diverged: %f", m.AvgLatencyMs))
}
