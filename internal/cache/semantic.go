// Package cache implements the semantic response cache: near-duplicate
// questions are answered from memory when their embeddings are close enough,
// skipping retrieval and generation entirely.
package cache

import (
	"log/slog"
	"sync"
	"time"

	"github.com/amoralesc/faq-assistant/internal/core/domain"
	"github.com/amoralesc/faq-assistant/internal/core/ports"
)

type Config struct {
	TTL       time.Duration
	Capacity  int
	Threshold float64
}

func DefaultConfig() Config {
	return Config{
		TTL:       time.Hour,
		Capacity:  1000,
		Threshold: 0.95,
	}
}

func (c Config) normalize() Config {
	out := c
	def := DefaultConfig()
	if out.TTL <= 0 {
		out.TTL = def.TTL
	}
	if out.Capacity <= 0 {
		out.Capacity = def.Capacity
	}
	if out.Threshold <= 0 || out.Threshold > 1 {
		out.Threshold = def.Threshold
	}
	return out
}

type entry struct {
	key           string
	embedding     []float32
	originalQuery string
	payload       domain.CachedAnswer
	touchedAt     time.Time
}

// Cache is shared mutable state: lookups take the read lock and upgrade only
// to refresh recency on a hit; stores, evictions and sweeps take the write
// lock. Only cosine similarity is authoritative for hits. The derived key
// exists to deduplicate stores, never to match lookups.
type Cache struct {
	cfg Config
	now func() time.Time

	mu      sync.RWMutex
	entries map[string]*entry
}

func New(cfg Config) *Cache {
	return &Cache{
		cfg:     cfg.normalize(),
		now:     time.Now,
		entries: make(map[string]*entry),
	}
}

// Lookup scans non-expired entries for one whose embedding is within the
// similarity threshold of the query. A hit refreshes the entry's recency.
// Faults never propagate: a malformed entry is skipped as a miss.
func (c *Cache) Lookup(rawQuery string, embedding []float32) (*domain.CachedAnswer, bool) {
	if len(embedding) == 0 {
		return nil, false
	}
	now := c.now()

	c.mu.RLock()
	var hit *entry
	var hitScore float64
	for _, e := range c.entries {
		if now.Sub(e.touchedAt) > c.cfg.TTL {
			continue
		}
		score := CosineSimilarity(embedding, e.embedding)
		if score >= c.cfg.Threshold {
			hit = e
			hitScore = score
			break
		}
	}
	c.mu.RUnlock()

	if hit == nil {
		return nil, false
	}

	c.mu.Lock()
	hit.touchedAt = now
	payload := hit.payload
	cachedQuery := hit.originalQuery
	c.mu.Unlock()

	slog.Debug("semantic_cache_hit",
		"query", truncateForLog(rawQuery),
		"cached_query", truncateForLog(cachedQuery),
		"similarity", hitScore,
	)
	return &payload, true
}

// Store inserts the answer unless it represents a failure, the key already
// exists, or the embedding is unusable. When full, the single oldest-touched
// entry is evicted first.
func (c *Cache) Store(rawQuery string, embedding []float32, payload domain.CachedAnswer) {
	if payload.Text == "" || len(embedding) == 0 {
		return
	}
	key := deriveKey(rawQuery, embedding)

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; exists {
		return
	}
	if len(c.entries) >= c.cfg.Capacity {
		c.evictOldestLocked()
	}
	c.entries[key] = &entry{
		key:           key,
		embedding:     embedding,
		originalQuery: rawQuery,
		payload:       payload,
		touchedAt:     c.now(),
	}
}

func (c *Cache) evictOldestLocked() {
	var oldestKey string
	var oldestTime time.Time
	first := true
	for key, e := range c.entries {
		if first || e.touchedAt.Before(oldestTime) {
			oldestKey = key
			oldestTime = e.touchedAt
			first = false
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
		slog.Debug("semantic_cache_evict", "key", oldestKey)
	}
}

// SweepExpired removes entries past the TTL and returns how many went.
func (c *Cache) SweepExpired() int {
	cutoff := c.now().Add(-c.cfg.TTL)
	removed := 0

	c.mu.Lock()
	for key, e := range c.entries {
		if e.touchedAt.Before(cutoff) {
			delete(c.entries, key)
			removed++
		}
	}
	c.mu.Unlock()

	if removed > 0 {
		slog.Debug("semantic_cache_sweep", "removed", removed)
	}
	return removed
}

// Stats reports entry counts without mutating anything.
func (c *Cache) Stats() ports.CacheStats {
	now := c.now()

	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := ports.CacheStats{Total: len(c.entries)}
	for _, e := range c.entries {
		if now.Sub(e.touchedAt) > c.cfg.TTL {
			stats.Expired++
		} else {
			stats.Active++
		}
	}
	return stats
}

func truncateForLog(s string) string {
	const max = 50
	if len(s) <= max {
		return s
	}
	return s[:max]
}
