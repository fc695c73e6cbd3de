package service

import (
	"sync"
	"time"

	"stock-fundamentals/config"
	"stock-fundamentals/internal/dto"
	"stock-fundamentals/pkg/logger"
)

// StagingEntry holds one fetched-and-validated ticker awaiting persistence.
// Entries are transient: they expire or are cleared after a successful insert,
// never persisted themselves.
type StagingEntry struct {
	Fundamentals *dto.ExtractedFundamentals
	RawPayloads  dto.RawPayloads
	FetchedAt    time.Time
	SessionID    string
}

// StagingCache is the in-memory holding area between fetch and persistence,
// keyed by ticker. Expired entries are purged opportunistically on an
// interval, not on every operation, to bound overhead. The pipeline phases
// touching it run sequentially, but the mutex keeps it safe if a scheduler
// overlaps a manual run.
type StagingCache struct {
	mu              sync.Mutex
	entries         map[string]*StagingEntry
	ttl             time.Duration
	cleanupInterval time.Duration
	lastCleanup     time.Time
	log             *logger.Logger
	now             func() time.Time
}

func NewStagingCache(cfg *config.Config, log *logger.Logger) *StagingCache {
	ttl := cfg.Staging.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	interval := cfg.Staging.CleanupInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &StagingCache{
		entries:         make(map[string]*StagingEntry),
		ttl:             ttl,
		cleanupInterval: interval,
		lastCleanup:     time.Now(),
		log:             log,
		now:             time.Now,
	}
}

// Stage inserts or overwrites the entry for a ticker; latest wins.
func (c *StagingCache) Stage(ticker string, fundamentals *dto.ExtractedFundamentals, rawPayloads dto.RawPayloads, sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[ticker] = &StagingEntry{
		Fundamentals: fundamentals,
		RawPayloads:  rawPayloads,
		FetchedAt:    c.now(),
		SessionID:    sessionID,
	}
	c.log.Info("Data staged for insertion", logger.StringField("ticker", ticker))

	if c.cleanupDue() {
		c.removeExpired()
	}
}

// Drain returns a snapshot of the staged entries. The cache may change after
// the call; callers work off the snapshot.
func (c *StagingCache) Drain() map[string]*StagingEntry {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cleanupDue() {
		c.removeExpired()
	}

	snapshot := make(map[string]*StagingEntry, len(c.entries))
	for ticker, entry := range c.entries {
		snapshot[ticker] = entry
	}
	return snapshot
}

// Clear removes the entry for one ticker, typically after persistence.
func (c *StagingCache) Clear(ticker string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[ticker]; ok {
		delete(c.entries, ticker)
		c.log.Info("Staged data cleared", logger.StringField("ticker", ticker))
	}
}

// ClearAll empties the cache.
func (c *StagingCache) ClearAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	cleared := len(c.entries)
	c.entries = make(map[string]*StagingEntry)
	c.log.Info("All staged data cleared", logger.IntField("count", cleared))
}

// ForceCleanup purges expired entries immediately, regardless of the interval,
// and returns how many were removed.
func (c *StagingCache) ForceCleanup() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.removeExpired()
}

// Status describes the cache without triggering a cleanup pass.
func (c *StagingCache) Status() dto.StagingStatus {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	status := dto.StagingStatus{Size: len(c.entries)}

	for _, entry := range c.entries {
		if age := now.Sub(entry.FetchedAt); age > status.OldestEntryAge {
			status.OldestEntryAge = age
		}
	}

	nextCleanup := c.cleanupInterval - now.Sub(c.lastCleanup)
	if nextCleanup < 0 {
		nextCleanup = 0
	}
	status.NextCleanupIn = nextCleanup

	return status
}

// cleanupDue reports whether the opportunistic cleanup interval has elapsed.
// Callers must hold the mutex.
func (c *StagingCache) cleanupDue() bool {
	return c.now().Sub(c.lastCleanup) >= c.cleanupInterval
}

// removeExpired drops entries older than the TTL. Callers must hold the mutex.
// The cleanup clock advances even when the cache is empty, so an idle cache
// does not report a cleanup as permanently due.
func (c *StagingCache) removeExpired() int {
	now := c.now()
	c.lastCleanup = now
	if len(c.entries) == 0 {
		return 0
	}

	removed := 0
	for ticker, entry := range c.entries {
		if now.Sub(entry.FetchedAt) > c.ttl {
			delete(c.entries, ticker)
			removed++
		}
	}

	if removed > 0 {
		c.log.Info("Staging cleanup complete",
			logger.IntField("removed", removed),
			logger.IntField("remaining", len(c.entries)),
		)
	}
	return removed
}
