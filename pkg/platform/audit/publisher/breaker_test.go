package publisher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCircuitBreaker(t *testing.T) {
	clock := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	newBreaker := func(threshold int) *circuitBreaker {
		cb := newCircuitBreaker(threshold, time.Minute)
		cb.now = func() time.Time { return clock }
		return cb
	}

	t.Run("opens at threshold", func(t *testing.T) {
		cb := newBreaker(2)
		assert.False(t, cb.failure())
		assert.True(t, cb.allow())
		assert.True(t, cb.failure())
		assert.Equal(t, stateOpen, cb.current())
		assert.False(t, cb.allow())
	})

	t.Run("success resets the count", func(t *testing.T) {
		cb := newBreaker(2)
		cb.failure()
		cb.success()
		assert.False(t, cb.failure())
		assert.Equal(t, stateClosed, cb.current())
	})

	t.Run("lets one probe through after cooldown", func(t *testing.T) {
		cb := newBreaker(1)
		start := clock
		defer func() { clock = start }()

		cb.failure()
		clock = clock.Add(time.Minute)
		assert.True(t, cb.allow())
		assert.Equal(t, stateHalfOpen, cb.current())
		assert.False(t, cb.allow(), "second caller waits for the probe")

		cb.success()
		assert.Equal(t, stateClosed, cb.current())
	})

	t.Run("failed probe reopens", func(t *testing.T) {
		cb := newBreaker(3)
		start := clock
		defer func() { clock = start }()

		for range 3 {
			cb.failure()
		}
		clock = clock.Add(time.Minute)
		assert.True(t, cb.allow())
		assert.True(t, cb.failure())
		assert.Equal(t, stateOpen, cb.current())
		assert.False(t, cb.allow())
	})

	t.Run("defaults non-positive settings", func(t *testing.T) {
		cb := newCircuitBreaker(0, 0)
		assert.Equal(t, 5, cb.threshold)
		assert.Equal(t, time.Minute, cb.cooldown)
	})
}
