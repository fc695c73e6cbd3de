package timeout

import (
	"testing"
	"time"

	"stock-fundamentals/pkg/logger"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func newTestGuard(minutes int) *Guard {
	return NewGuard(minutes, &logger.Logger{Logger: zap.NewNop()})
}

func TestGuard_RemainingInactive(t *testing.T) {
	g := newTestGuard(5)

	_, active := g.Remaining()
	assert.False(t, active)
}

func TestGuard_RemainingCountsDown(t *testing.T) {
	g := newTestGuard(5)
	g.Start()
	defer g.Stop()

	remaining, active := g.Remaining()
	assert.True(t, active)
	assert.Greater(t, remaining, 4*time.Minute)
	assert.LessOrEqual(t, remaining, 5*time.Minute)
}

func TestGuard_StopDeactivates(t *testing.T) {
	g := newTestGuard(5)
	g.Start()
	g.Stop()

	_, active := g.Remaining()
	assert.False(t, active)
}

func TestGuard_ExpiryFires(t *testing.T) {
	g := newTestGuard(0)
	fired := make(chan struct{})
	g.onExpire = func() { close(fired) }
	g.budget = 10 * time.Millisecond

	g.Start()
	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("expiry callback did not fire")
	}
}

func TestGuard_StartIsIdempotent(t *testing.T) {
	g := newTestGuard(5)
	g.Start()
	first := g.timer
	g.Start()
	assert.Same(t, first, g.timer)
	g.Stop()
}
