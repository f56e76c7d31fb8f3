package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestLimiter(limit int, window time.Duration) (*Limiter, *time.Time) {
	limiter := NewLimiter(limit, window)
	current := time.Unix(1700000000, 0)
	limiter.now = func() time.Time { return current }
	return limiter, &current
}

func TestLimiterAdmitsUpToLimit(t *testing.T) {
	t.Parallel()
	limiter, _ := newTestLimiter(3, time.Minute)

	for i := range 3 {
		assert.True(t, limiter.Admit("1.2.3.4"), "call %d within limit", i+1)
	}
	assert.False(t, limiter.Admit("1.2.3.4"))
}

func TestLimiterWindowSlides(t *testing.T) {
	t.Parallel()
	limiter, current := newTestLimiter(2, time.Minute)

	assert.True(t, limiter.Admit("1.2.3.4"))

	*current = current.Add(30 * time.Second)
	assert.True(t, limiter.Admit("1.2.3.4"))
	assert.False(t, limiter.Admit("1.2.3.4"))

	// 61s after the first admission it has left the window; the second
	// (31s old) still counts.
	*current = current.Add(31 * time.Second)
	assert.True(t, limiter.Admit("1.2.3.4"))
	assert.False(t, limiter.Admit("1.2.3.4"))
}

func TestLimiterRejectionsDoNotExtendLockout(t *testing.T) {
	t.Parallel()
	limiter, current := newTestLimiter(1, time.Minute)

	assert.True(t, limiter.Admit("1.2.3.4"))

	// Hammering while locked out must not push the unlock time back.
	for range 10 {
		*current = current.Add(5 * time.Second)
		assert.False(t, limiter.Admit("1.2.3.4"))
	}

	*current = current.Add(11 * time.Second)
	assert.True(t, limiter.Admit("1.2.3.4"), "unlocks one window after the admitted call")
}

func TestLimiterTracksClientsIndependently(t *testing.T) {
	t.Parallel()
	limiter, _ := newTestLimiter(1, time.Minute)

	assert.True(t, limiter.Admit("1.2.3.4"))
	assert.False(t, limiter.Admit("1.2.3.4"))
	assert.True(t, limiter.Admit("5.6.7.8"), "one client's limit must not affect another")
}

func TestRetryAfterEqualsWindow(t *testing.T) {
	t.Parallel()
	limiter := NewLimiter(10, 60*time.Second)
	assert.Equal(t, 60*time.Second, limiter.RetryAfter())
}
