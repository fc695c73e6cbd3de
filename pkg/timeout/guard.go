package timeout

import (
	"os"
	"sync"
	"time"

	"stock-fundamentals/pkg/logger"
)

// Guard limits total program execution time. When the budget elapses, the
// process is terminated from a background timer. Remaining lets callers
// decide whether a costly phase still fits the budget before starting it.
type Guard struct {
	mu       sync.Mutex
	budget   time.Duration
	timer    *time.Timer
	started  time.Time
	active   bool
	log      *logger.Logger
	onExpire func()
}

func NewGuard(minutes int, log *logger.Logger) *Guard {
	g := &Guard{
		budget: time.Duration(minutes) * time.Minute,
		log:    log,
	}
	g.onExpire = g.terminate
	return g
}

func (g *Guard) Start() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.active {
		return
	}
	g.started = time.Now()
	g.timer = time.AfterFunc(g.budget, g.onExpire)
	g.active = true
	g.log.Info("Program timeout set", logger.Field("budget", g.budget))
}

func (g *Guard) Stop() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.timer != nil && g.active {
		g.timer.Stop()
		g.active = false
		g.log.Info("Program timeout cancelled")
	}
}

// Remaining returns the remaining budget, or false when no guard is active.
func (g *Guard) Remaining() (time.Duration, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.active {
		return 0, false
	}
	remaining := g.budget - time.Since(g.started)
	if remaining < 0 {
		remaining = 0
	}
	return remaining, true
}

func (g *Guard) terminate() {
	g.log.Warn("Program timed out", logger.Field("budget", g.budget))
	_ = g.log.Sync()
	os.Exit(0)
}
