package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/factflow-systems/factflow/ingest/internal/metrics"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func setupLimiter(t *testing.T, limit int, window time.Duration) (*RedisRateLimiter, *fakeClock, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	clock := &fakeClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	l := NewRedisRateLimiter(client, limit, window)
	l.now = clock.Now
	return l, clock, mr
}

func allowN(t *testing.T, l RateLimiter, source, ip string, n int) int {
	t.Helper()
	allowed := 0
	for i := 0; i < n; i++ {
		ok, err := l.Allow(context.Background(), source, ip)
		require.NoError(t, err)
		if ok {
			allowed++
		}
	}
	return allowed
}

func TestNoOpRateLimiter(t *testing.T) {
	assert.Equal(t, 100, allowN(t, NoOpRateLimiter{}, "aloware", "", 100))
}

func TestRedisRateLimiter_Limit(t *testing.T) {
	l, _, _ := setupLimiter(t, 5, time.Second)
	before := testutil.ToFloat64(metrics.RateLimitHits.WithLabelValues("aloware"))

	assert.Equal(t, 5, allowN(t, l, "aloware", "10.0.0.1", 7))
	assert.Equal(t, before+2, testutil.ToFloat64(metrics.RateLimitHits.WithLabelValues("aloware")))
}

func TestRedisRateLimiter_IndependentKeys(t *testing.T) {
	l, _, _ := setupLimiter(t, 2, time.Second)

	assert.Equal(t, 2, allowN(t, l, "aloware", "10.0.0.1", 3))
	assert.Equal(t, 2, allowN(t, l, "aloware", "10.0.0.2", 3))
	assert.Equal(t, 2, allowN(t, l, "hubspot", "10.0.0.1", 3))
}

func TestRedisRateLimiter_SlidingWindow(t *testing.T) {
	l, clock, _ := setupLimiter(t, 3, 2*time.Second)

	assert.Equal(t, 2, allowN(t, l, "aloware", "ip", 2))

	clock.Advance(1100 * time.Millisecond)
	assert.Equal(t, 1, allowN(t, l, "aloware", "ip", 2), "one slot left mid-window")

	clock.Advance(1000 * time.Millisecond)
	assert.Equal(t, 2, allowN(t, l, "aloware", "ip", 3), "first two requests left the window")
}

func TestRedisRateLimiter_KeyExpires(t *testing.T) {
	l, _, mr := setupLimiter(t, 1, time.Minute)

	allowN(t, l, "aloware", "ip", 1)
	key := l.Key("aloware", "ip")
	assert.True(t, mr.Exists(key))
	assert.Equal(t, time.Minute, mr.TTL(key))

	mr.FastForward(time.Minute + time.Second)
	assert.False(t, mr.Exists(key))
}

func TestRedisRateLimiter_RedisDown(t *testing.T) {
	l, _, mr := setupLimiter(t, 1, time.Second)
	mr.Close()

	_, err := l.Allow(context.Background(), "aloware", "ip")
	assert.Error(t, err)
}

func TestRedisRateLimiter_ContextCancellation(t *testing.T) {
	l, _, _ := setupLimiter(t, 10, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := l.Allow(ctx, "aloware", "ip")
	assert.Error(t, err)
}
