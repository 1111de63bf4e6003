package util

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiter(t *testing.T) {
	// 10 tokens per second, burst of 2
	l := NewLimiter(10, 2)

	assert.True(t, l.Allow(1), "first token")
	assert.True(t, l.Allow(1), "second token (burst)")
	assert.False(t, l.Allow(1), "burst exhausted")

	time.Sleep(150 * time.Millisecond)
	assert.True(t, l.Allow(1), "token refilled after wait")
}

func TestLimiterUnlimited(t *testing.T) {
	l := NewLimiter(0, 0)
	for i := 0; i < 100; i++ {
		require.True(t, l.Allow(1))
	}
}

func TestLimiterWait(t *testing.T) {
	l := NewLimiter(100, 1)
	l.Allow(1) // consume burst

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	require.NoError(t, l.Wait(ctx, 1))
	assert.GreaterOrEqual(t, time.Since(start), 5*time.Millisecond)
}

func TestLimiterSetLimit(t *testing.T) {
	l := NewLimiter(0.1, 1)
	require.True(t, l.Allow(1))
	require.False(t, l.Allow(1))

	l.SetLimit(0, 1)
	assert.True(t, l.Allow(1), "unlimited after reconfiguration")
}
