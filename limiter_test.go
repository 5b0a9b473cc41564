package pilotsite

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoginLimiterBlocksAfterMax(t *testing.T) {
	limiter := NewLoginLimiter(2, time.Minute)
	defer limiter.Stop()
	ip := "203.0.113.10"

	assert.True(t, limiter.Allow(ip), "first attempt")
	assert.True(t, limiter.Allow(ip), "second attempt")
	assert.False(t, limiter.Allow(ip), "third attempt should be blocked")
}

func TestLoginLimiterRefillsAfterWindow(t *testing.T) {
	limiter := NewLoginLimiter(1, time.Minute)
	defer limiter.Stop()
	now := time.Now()
	limiter.now = func() time.Time { return now }
	ip := "203.0.113.20"

	assert.True(t, limiter.Allow(ip))
	assert.False(t, limiter.Allow(ip))

	now = now.Add(61 * time.Second)
	assert.True(t, limiter.Allow(ip), "attempt after window")
}

func TestLoginLimiterIsPerIP(t *testing.T) {
	limiter := NewLoginLimiter(1, time.Minute)
	defer limiter.Stop()

	assert.True(t, limiter.Allow("203.0.113.30"))
	assert.True(t, limiter.Allow("203.0.113.31"), "second ip is independent")
	assert.False(t, limiter.Allow("203.0.113.30"))
}

func TestLoginLimiterCheckDoesNotConsume(t *testing.T) {
	limiter := NewLoginLimiter(2, time.Minute)
	defer limiter.Stop()
	ip := "203.0.113.40"

	for i := 0; i < 5; i++ {
		assert.True(t, limiter.Check(ip))
	}
	limiter.Record(ip)
	assert.True(t, limiter.Check(ip))
	limiter.Record(ip)
	assert.False(t, limiter.Check(ip))
}
