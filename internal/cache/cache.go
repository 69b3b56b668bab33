// Package cache implements the semantic response cache (C4): classify the
// query, derive a content-addressed key folding in rolling conversation
// context, and apply category-specific TTLs. Grounded on the original
// LLMResponseCache (original_source/src/db/services/llm_service.py) and its
// key-derivation fingerprint, re-verified against
// original_source/scripts/test_cache_key_generator.py.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/jamesfry/footballgpt/internal/classifier"
	"github.com/jamesfry/footballgpt/internal/config"
	"github.com/jamesfry/footballgpt/internal/kvstore"
	"github.com/jamesfry/footballgpt/internal/observability"
)

// Record is the structured value stored for a cached response.
type Record struct {
	Response  string    `json:"response"`
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
	Context   string    `json:"context"`
	Category  string    `json:"category"`
	TTLHours  float64   `json:"ttl_hours"`
}

// DeriveKey computes the content-addressed cache key for (message,
// context, category). Exported so the fingerprint invariant (identical
// inputs yield identical keys, across categories never collide) is
// directly testable without a live store.
func DeriveKey(message, context, category string) string {
	sum := sha256.Sum256([]byte(message + "|" + context + "|" + category))
	return fmt.Sprintf("llm_cache_%s:%s", category, hex.EncodeToString(sum[:]))
}

// Stats are process-local cache counters.
type Stats struct {
	Hits     int64
	Misses   int64
	Saves    int64
	Errors   int64
	NoCache  int64
	Total    int64
	ByCat    map[string]int64
}

// Cache is the C4 response cache bound to a shared kvstore.Store.
type Cache struct {
	store kvstore.Store
	ttl   config.CacheTTLConfig

	mu      sync.Mutex
	hits    int64
	misses  int64
	saves   int64
	errs    int64
	noCache int64
	byCat   map[string]int64

	metrics *observability.Metrics
}

// New constructs a Cache using ttl for category-specific retention.
func New(store kvstore.Store, ttl config.CacheTTLConfig) *Cache {
	return &Cache{store: store, ttl: ttl, byCat: make(map[string]int64)}
}

// SetMetrics attaches an optional OTel metrics sink (nil is a valid,
// no-op sink), matching the teacher's WithMetrics injection pattern in
// internal/rag/service.
func (c *Cache) SetMetrics(m *observability.Metrics) {
	c.metrics = m
}

func (c *Cache) ttlFor(cat classifier.Category) time.Duration {
	switch cat {
	case classifier.CategoryFactual:
		return c.ttl.Factual
	case classifier.CategoryNews:
		return c.ttl.News
	case classifier.CategoryOpinion:
		return c.ttl.Opinion
	default:
		return 0
	}
}

// Get classifies message and, unless it classifies to no_cache, looks up
// the derived key. It returns the cached response, whether it was a hit,
// and the classified category.
func (c *Cache) Get(ctx context.Context, message, convContext string) (response string, hit bool, category classifier.Category) {
	cat := classifier.Classify(message)

	if cat == classifier.CategoryNoCache {
		c.mu.Lock()
		c.noCache++
		c.byCat[string(cat)+"_no_cache"]++
		c.mu.Unlock()
		c.metrics.IncCounter("cache_no_cache_total", map[string]string{"category": string(cat)})
		return "", false, cat
	}

	key := DeriveKey(message, convContext, string(cat))
	raw, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.mu.Lock()
		c.errs++
		c.mu.Unlock()
		c.metrics.IncCounter("cache_errors_total", map[string]string{"category": string(cat)})
		return "", false, cat
	}
	if !ok {
		c.mu.Lock()
		c.misses++
		c.byCat[string(cat)+"_miss"]++
		c.mu.Unlock()
		c.metrics.IncCounter("cache_misses_total", map[string]string{"category": string(cat)})
		return "", false, cat
	}

	var rec Record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		c.mu.Lock()
		c.errs++
		c.mu.Unlock()
		c.metrics.IncCounter("cache_errors_total", map[string]string{"category": string(cat)})
		return "", false, cat
	}

	c.mu.Lock()
	c.hits++
	c.byCat[string(cat)+"_hit"]++
	c.mu.Unlock()
	c.metrics.IncCounter("cache_hits_total", map[string]string{"category": string(cat)})
	return rec.Response, true, cat
}

// Set classifies message and stores response under the derived key with
// the category's TTL, unless the message classifies to no_cache.
func (c *Cache) Set(ctx context.Context, message, convContext, response string) error {
	cat := classifier.Classify(message)
	if cat == classifier.CategoryNoCache {
		return nil
	}

	ttl := c.ttlFor(cat)
	rec := Record{
		Response:  response,
		Timestamp: time.Now().UTC(),
		Message:   message,
		Context:   convContext,
		Category:  string(cat),
		TTLHours:  ttl.Hours(),
	}
	data, err := json.Marshal(rec)
	if err != nil {
		c.mu.Lock()
		c.errs++
		c.mu.Unlock()
		return fmt.Errorf("cache: marshal record: %w", err)
	}

	key := DeriveKey(message, convContext, string(cat))
	if err := c.store.SetEX(ctx, key, string(data), ttl); err != nil {
		c.mu.Lock()
		c.errs++
		c.mu.Unlock()
		return fmt.Errorf("cache: set %s: %w", key, err)
	}

	c.mu.Lock()
	c.saves++
	c.byCat[string(cat)+"_saved"]++
	c.mu.Unlock()
	c.metrics.IncCounter("cache_saves_total", map[string]string{"category": string(cat)})
	return nil
}

// Clear scans and deletes every key in every category's cache namespace.
func (c *Cache) Clear(ctx context.Context) error {
	for _, cat := range []classifier.Category{classifier.CategoryFactual, classifier.CategoryNews, classifier.CategoryOpinion} {
		pattern := "llm_cache_" + string(cat) + ":*"
		cursor := uint64(0)
		for {
			keys, next, err := c.store.Scan(ctx, cursor, pattern, 100)
			if err != nil {
				return fmt.Errorf("cache: clear scan %s: %w", pattern, err)
			}
			for _, k := range keys {
				if err := c.store.Del(ctx, k); err != nil {
					return fmt.Errorf("cache: clear del %s: %w", k, err)
				}
			}
			if next == 0 {
				break
			}
			cursor = next
		}
	}

	c.mu.Lock()
	c.hits = 0
	c.misses = 0
	c.saves = 0
	c.errs = 0
	c.noCache = 0
	c.byCat = make(map[string]int64)
	c.mu.Unlock()
	return nil
}

// Statistics returns a snapshot of process-local counters.
func (c *Cache) Statistics() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	byCat := make(map[string]int64, len(c.byCat))
	for k, v := range c.byCat {
		byCat[k] = v
	}
	return Stats{
		Hits:    c.hits,
		Misses:  c.misses,
		Saves:   c.saves,
		Errors:  c.errs,
		NoCache: c.noCache,
		Total:   c.hits + c.misses + c.noCache,
		ByCat:   byCat,
	}
}
