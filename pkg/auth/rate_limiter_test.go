package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

func TestTokenBucketLimiter_Refill(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)
	l := NewTokenBucketLimiter(2, 2, 0)
	l.now = func() time.Time { return now }

	allow := func() bool {
		ok, err := l.Allow(ctx, "k")
		assert.NoError(t, err)
		return ok
	}

	assert.True(t, allow())
	assert.True(t, allow())
	assert.False(t, allow())

	now = now.Add(500 * time.Millisecond)
	assert.True(t, allow())
	assert.False(t, allow())

	now = now.Add(10 * time.Second)
	assert.True(t, allow())
	assert.True(t, allow())
	assert.False(t, allow(), "refill is capped at burst")
}

func TestTokenBucketLimiter_KeysAreIndependent(t *testing.T) {
	ctx := context.Background()
	ip := NewIPRateLimiter(NewTokenBucketLimiter(0, 1, 0))

	ok, _ := ip.Allow(ctx, "10.0.0.1")
	assert.True(t, ok)
	ok, _ = ip.Allow(ctx, "10.0.0.1")
	assert.False(t, ok)
	ok, _ = ip.Allow(ctx, "10.0.0.2")
	assert.True(t, ok)
}

func TestTokenBucketLimiter_Reset(t *testing.T) {
	ctx := context.Background()
	l := NewTokenBucketLimiter(0, 1, 0)

	ok, _ := l.Allow(ctx, "k")
	assert.True(t, ok)
	assert.NoError(t, l.Reset(ctx, "k"))
	ok, _ = l.Allow(ctx, "k")
	assert.True(t, ok)
}

func TestTokenBucketLimiter_SweepsIdleBuckets(t *testing.T) {
	defer goleak.VerifyNone(t)

	now := time.Unix(1_700_000_000, 0)
	l := NewTokenBucketLimiter(1, 1, time.Hour)
	l.now = func() time.Time { return now }
	defer l.Close()

	_, _ = l.Allow(context.Background(), "stale")
	now = now.Add(2 * time.Hour)
	l.sweep()

	l.mu.Lock()
	assert.Empty(t, l.buckets)
	l.mu.Unlock()

	l.Close()
}
