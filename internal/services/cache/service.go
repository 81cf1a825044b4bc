// Package cache memoizes answers to first-turn questions.
package cache

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/ternarybob/arbor"

	"github.com/madhura1396/rocbot/internal/interfaces"
	"github.com/madhura1396/rocbot/internal/models"
)

// Fingerprint normalises a question (trimmed, lower-cased) and hashes it
func Fingerprint(question string) string {
	normalized := strings.ToLower(strings.TrimSpace(question))
	return strconv.FormatUint(xxhash.Sum64String(normalized), 16)
}

type entry struct {
	result   models.AnswerResult
	storedAt time.Time
}

// MemoryCache is a process-lifetime response cache guarded by a RWMutex.
// With ttl 0 entries never expire and the map grows without bound.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]entry
	ttl     time.Duration
	now     func() time.Time
	logger  arbor.ILogger
}

// NewMemoryCache creates an in-memory response cache
func NewMemoryCache(ttl time.Duration, logger arbor.ILogger) *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]entry),
		ttl:     ttl,
		now:     time.Now,
		logger:  logger,
	}
}

// Get returns a copy of the cached answer so callers cannot mutate the entry
func (c *MemoryCache) Get(ctx context.Context, fingerprint string) (*models.AnswerResult, bool) {
	c.mu.RLock()
	e, ok := c.entries[fingerprint]
	c.mu.RUnlock()

	if !ok || c.expired(e) {
		return nil, false
	}
	return cloneResult(&e.result), true
}

func (c *MemoryCache) Put(ctx context.Context, fingerprint string, result *models.AnswerResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[fingerprint] = entry{result: *cloneResult(result), storedAt: c.now()}
	return nil
}

// Prune drops expired entries
func (c *MemoryCache) Prune(ctx context.Context) (int, error) {
	if c.ttl <= 0 {
		return 0, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, e := range c.entries {
		if c.expired(e) {
			delete(c.entries, key)
			removed++
		}
	}

	if removed > 0 {
		c.logger.Debug().Int("removed", removed).Int("remaining", len(c.entries)).Msg("Pruned expired cached answers")
	}
	return removed, nil
}

func (c *MemoryCache) Len(ctx context.Context) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// expired checks the rolling window since the entry was stored
func (c *MemoryCache) expired(e entry) bool {
	return c.ttl > 0 && c.now().Sub(e.storedAt) >= c.ttl
}

func cloneResult(r *models.AnswerResult) *models.AnswerResult {
	clone := *r
	if r.Sources != nil {
		clone.Sources = make([]models.Citation, len(r.Sources))
		copy(clone.Sources, r.Sources)
	}
	return &clone
}

// Compile-time interface check
var _ interfaces.ResponseCache = (*MemoryCache)(nil)
