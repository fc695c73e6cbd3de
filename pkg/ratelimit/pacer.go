package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Pacer enforces a minimum interval between consecutive calls to an upstream
// API. The interval is scaled by a backoff multiplier that doubles on failure
// (capped) and resets to 1.0 on success, so a sequence of failing tickers
// slows the whole session down rather than hammering the API.
type Pacer struct {
	mu           sync.Mutex
	limiter      *rate.Limiter
	baseInterval time.Duration
	backoff      float64
	maxBackoff   float64
}

func NewPacer(baseInterval time.Duration, maxBackoff float64) *Pacer {
	if maxBackoff < 1.0 {
		maxBackoff = 1.0
	}
	return &Pacer{
		limiter:      rate.NewLimiter(rate.Every(baseInterval), 1),
		baseInterval: baseInterval,
		backoff:      1.0,
		maxBackoff:   maxBackoff,
	}
}

// Wait blocks until the next call is allowed under the current interval.
func (p *Pacer) Wait(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}

// Success resets the backoff multiplier to 1.0.
func (p *Pacer) Success() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.backoff != 1.0 {
		p.backoff = 1.0
		p.apply()
	}
}

// Failure doubles the backoff multiplier up to the configured maximum.
func (p *Pacer) Failure() {
	p.mu.Lock()
	defer p.mu.Unlock()
	next := p.backoff * 2.0
	if next > p.maxBackoff {
		next = p.maxBackoff
	}
	if next != p.backoff {
		p.backoff = next
		p.apply()
	}
}

// Backoff returns the current backoff multiplier.
func (p *Pacer) Backoff() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.backoff
}

// Interval returns the effective minimum interval between calls.
func (p *Pacer) Interval() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return time.Duration(float64(p.baseInterval) * p.backoff)
}

func (p *Pacer) apply() {
	p.limiter.SetLimit(rate.Every(time.Duration(float64(p.baseInterval) * p.backoff)))
}
