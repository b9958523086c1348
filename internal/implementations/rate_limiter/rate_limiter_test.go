package ratelimiter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	ratelimiter "remindbot/internal/core/domain/rate_limiter"
)

func TestWindowKey(t *testing.T) {
	now := time.Date(2024, 1, 1, 13, 7, 30, 0, time.UTC)
	cases := []struct {
		interval ratelimiter.Interval
		key      string
		ttl      time.Duration
	}{
		{interval: ratelimiter.Minute, key: "updates::1::m7", ttl: time.Minute},
		{interval: ratelimiter.Hour, key: "updates::1::h13", ttl: time.Hour},
	}

	for _, testcase := range cases {
		t.Run(testcase.interval.String(), func(t *testing.T) {
			key, ttl := windowKey(ratelimiter.UpdatesKey(1), testcase.interval, now)

			require.Equal(t, testcase.key, key)
			require.Equal(t, testcase.ttl, ttl)
		})
	}
}

func TestMemoryLimiter(t *testing.T) {
	now := time.Date(2024, 1, 1, 13, 7, 30, 0, time.UTC)
	limiter := NewMemory(func() time.Time { return now })
	limit := ratelimiter.Limit{Value: 2, Interval: ratelimiter.Minute}
	ctx := context.Background()

	assert := require.New(t)
	assert.True(limiter.CheckLimit(ctx, "a", limit).IsAllowed)
	assert.True(limiter.CheckLimit(ctx, "a", limit).IsAllowed)
	assert.False(limiter.CheckLimit(ctx, "a", limit).IsAllowed)
	assert.True(limiter.CheckLimit(ctx, "b", limit).IsAllowed)

	now = now.Add(time.Minute)
	assert.True(limiter.CheckLimit(ctx, "a", limit).IsAllowed)
}
