package generation

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pixelforge/pixelforge/internal/observability/logging"
	"github.com/pixelforge/pixelforge/internal/observability/metrics"
	"github.com/pixelforge/pixelforge/pkg/types"
)

// Fingerprint derives a cache key from the request fields that determine
// the output. The prompt is normalized (trimmed, whitespace collapsed,
// lowercased) so trivially reworded requests share a key; request id and
// user id do not participate.
func Fingerprint(req *types.GenerationRequest) string {
	parts := []string{
		normalizePrompt(req.Prompt),
		req.ImageData,
		req.Framework,
		req.Quality,
		strconv.FormatBool(req.ResponsiveDesign),
		strconv.FormatBool(req.AccessibilityFeatures),
		strconv.FormatBool(req.DarkModeSupport),
	}

	sum := sha256.Sum256([]byte(strings.Join(parts, "\x1f")))
	return hex.EncodeToString(sum[:])
}

func normalizePrompt(prompt string) string {
	collapsed := strings.Join(strings.Fields(prompt), " ")
	return strings.ToLower(collapsed)
}

type cacheEntry struct {
	result    types.GenerationResult
	expiresAt time.Time
}

// ResultCache is the in-process result cache tier. Entries expire on a
// TTL; growth past the prune threshold removes expired entries only, so
// the cache can exceed the threshold while every entry is still live.
type ResultCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry

	ttl            time.Duration
	pruneThreshold int

	logger    logging.Logger
	collector *metrics.Collector

	now func() time.Time
}

// NewResultCache creates a result cache with the given TTL and prune
// threshold
func NewResultCache(ttl time.Duration, pruneThreshold int, logger logging.Logger, collector *metrics.Collector) *ResultCache {
	return &ResultCache{
		entries:        make(map[string]cacheEntry),
		ttl:            ttl,
		pruneThreshold: pruneThreshold,
		logger:         logger,
		collector:      collector,
		now:            time.Now,
	}
}

// Get returns the cached result for a fingerprint. Hits are stamped with
// the asking request's id and marked cached; expired entries are removed
// and report a miss.
func (c *ResultCache) Get(fingerprint, requestID string) (*types.GenerationResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[fingerprint]
	if !ok {
		c.event("miss")
		return nil, false
	}
	if c.now().After(entry.expiresAt) {
		delete(c.entries, fingerprint)
		c.event("expired")
		return nil, false
	}

	result := entry.result
	result.RequestID = requestID
	result.Cached = true
	c.event("hit")
	return &result, true
}

// Set stores a result under its fingerprint and prunes expired entries
// once the cache has grown past the threshold
func (c *ResultCache) Set(fingerprint string, result *types.GenerationResult) {
	if result == nil || !result.Success {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[fingerprint] = cacheEntry{
		result:    *result,
		expiresAt: c.now().Add(c.ttl),
	}

	if len(c.entries) > c.pruneThreshold {
		c.prune()
	}
}

// Len returns the current entry count
func (c *ResultCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// prune removes expired entries; caller holds the lock
func (c *ResultCache) prune() {
	now := c.now()
	removed := 0
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
			removed++
		}
	}

	if removed > 0 {
		c.collector.IncrementCounter("generation_cache_pruned_total", float64(removed), nil)
		c.logger.Debug("result cache pruned",
			logging.Int("removed", removed),
			logging.Int("remaining", len(c.entries)),
		)
	}
}

func (c *ResultCache) event(kind string) {
	c.collector.IncrementCounter("generation_cache_events_total", 1,
		map[string]string{"event": kind})
}
