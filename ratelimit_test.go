package mvi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLimiter_Defaults(t *testing.T) {
	l := newLimiter(RateLimitConfig{}, defaultEventRate, defaultEventBurst)
	require.NotNil(t, l)
	assert.InDelta(t, defaultEventRate, float64(l.Limit()), 0.001)
	assert.Equal(t, defaultEventBurst, l.Burst())
}

func TestNewLimiter_CustomValues(t *testing.T) {
	l := newLimiter(RateLimitConfig{Rate: 5, Burst: 10}, defaultEventRate, defaultEventBurst)
	require.NotNil(t, l)
	assert.InDelta(t, 5.0, float64(l.Limit()), 0.001)
	assert.Equal(t, 10, l.Burst())
}

func TestNewLimiter_DisabledWithNegativeRate(t *testing.T) {
	l := newLimiter(RateLimitConfig{Rate: -1}, defaultEventRate, defaultEventBurst)
	assert.Nil(t, l)
}

func TestTokenBucket_AllowsBurstThenRejects(t *testing.T) {
	l := newLimiter(RateLimitConfig{Rate: 1, Burst: 3}, 1, 3)
	require.NotNil(t, l)

	for i := 0; i < 3; i++ {
		assert.True(t, l.Allow(), "request %d should be allowed within burst", i)
	}
	assert.False(t, l.Allow(), "request beyond burst should be rejected")
}

func TestRuntime_UsesConfiguredLimiter(t *testing.T) {
	a := newTestApp(Options{EventRateLimit: RateLimitConfig{Rate: 2, Burst: 4}})
	rt := newRuntime("rt-rl", a)
	defer rt.Dispose()

	require.NotNil(t, rt.eventLimiter)
	assert.InDelta(t, 2.0, float64(rt.eventLimiter.Limit()), 0.001)
	assert.Equal(t, 4, rt.eventLimiter.Burst())
}

func TestRuntime_LimiterDisabled(t *testing.T) {
	a := newTestApp(Options{EventRateLimit: RateLimitConfig{Rate: -1}})
	rt := newRuntime("rt-rl", a)
	defer rt.Dispose()
	assert.Nil(t, rt.eventLimiter)
}
