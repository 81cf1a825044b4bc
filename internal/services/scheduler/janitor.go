// Package scheduler runs periodic housekeeping on conversation and cache state.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/madhura1396/rocbot/internal/interfaces"
)

// DefaultSchedule runs the janitor every five minutes (seconds field first)
const DefaultSchedule = "0 */5 * * * *"

// SweepResult reports what one janitor pass removed
type SweepResult struct {
	Conversations int
	CacheEntries  int
}

// Janitor evicts idle conversations and expired cached answers on a cron schedule.
// A zero idleTTL leaves conversations alone; a nil cache skips cache pruning.
type Janitor struct {
	conversations interfaces.ConversationStore
	cache         interfaces.ResponseCache
	idleTTL       time.Duration
	cron          *cron.Cron
	mu            sync.Mutex
	running       bool
	logger        arbor.ILogger
}

// NewJanitor creates a janitor over the given stores
func NewJanitor(conversations interfaces.ConversationStore, cache interfaces.ResponseCache, idleTTL time.Duration, logger arbor.ILogger) *Janitor {
	return &Janitor{
		conversations: conversations,
		cache:         cache,
		idleTTL:       idleTTL,
		cron:          cron.New(cron.WithSeconds()),
		logger:        logger,
	}
}

// Start begins sweeping on schedule
func (j *Janitor) Start(schedule string) error {
	if schedule == "" {
		schedule = DefaultSchedule
	}

	if _, err := j.cron.AddFunc(schedule, j.runSweep); err != nil {
		return err
	}

	j.cron.Start()
	j.mu.Lock()
	j.running = true
	j.mu.Unlock()

	j.logger.Info().
		Str("schedule", schedule).
		Dur("idle_ttl", j.idleTTL).
		Msg("Janitor started")

	return nil
}

// Stop halts the schedule and waits for a running sweep to finish
func (j *Janitor) Stop() {
	j.mu.Lock()
	running := j.running
	j.running = false
	j.mu.Unlock()

	if !running {
		return
	}
	<-j.cron.Stop().Done()
	j.logger.Info().Msg("Janitor stopped")
}

// Sweep runs one housekeeping pass immediately
func (j *Janitor) Sweep(ctx context.Context) SweepResult {
	var result SweepResult

	if j.idleTTL > 0 && j.conversations != nil {
		result.Conversations = j.conversations.Prune(j.idleTTL)
	}

	if j.cache != nil {
		removed, err := j.cache.Prune(ctx)
		if err != nil {
			j.logger.Warn().Err(err).Msg("Cache prune failed")
		}
		result.CacheEntries = removed
	}

	return result
}

func (j *Janitor) runSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	result := j.Sweep(ctx)
	if result.Conversations > 0 || result.CacheEntries > 0 {
		j.logger.Info().
			Int("conversations", result.Conversations).
			Int("cache_entries", result.CacheEntries).
			Msg("Janitor sweep completed")
	}
}
