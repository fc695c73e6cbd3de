package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPacer_BackoffDoublesAndCaps(t *testing.T) {
	p := NewPacer(10*time.Second, 8.0)

	assert.Equal(t, 1.0, p.Backoff())
	assert.Equal(t, 10*time.Second, p.Interval())

	p.Failure()
	assert.Equal(t, 2.0, p.Backoff())
	assert.Equal(t, 20*time.Second, p.Interval())

	p.Failure()
	p.Failure()
	assert.Equal(t, 8.0, p.Backoff())

	// Further failures stay at the cap.
	p.Failure()
	assert.Equal(t, 8.0, p.Backoff())
	assert.Equal(t, 80*time.Second, p.Interval())
}

func TestPacer_SuccessResets(t *testing.T) {
	p := NewPacer(10*time.Second, 8.0)

	p.Failure()
	p.Failure()
	assert.Equal(t, 4.0, p.Backoff())

	p.Success()
	assert.Equal(t, 1.0, p.Backoff())
	assert.Equal(t, 10*time.Second, p.Interval())
}

func TestPacer_MaxBackoffFloor(t *testing.T) {
	p := NewPacer(time.Second, 0.5)

	p.Failure()
	assert.Equal(t, 1.0, p.Backoff(), "a cap below 1.0 is clamped to 1.0")
}

func TestPacer_WaitHonorsContext(t *testing.T) {
	p := NewPacer(time.Hour, 1.0)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	// First call consumes the initial token; the second would wait an hour.
	assert.NoError(t, p.Wait(context.Background()))
	assert.Error(t, p.Wait(ctx))
}
