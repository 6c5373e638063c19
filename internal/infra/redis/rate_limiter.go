package redis

import (
	"context"
	"strings"
	"time"
)

// RateLimiter is a fixed-window counter keyed by caller.
type RateLimiter struct {
	client RedisClient
}

func NewRateLimiter(client RedisClient) *RateLimiter {
	return &RateLimiter{client: client}
}

// Allow counts one hit against key and reports whether the window still has room.
// The counter and its expiry are set together, so a key never outlives its window.
func (r *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	count, err := r.client.IncrWithTTL(ctx, key, window)
	if err != nil {
		return false, err
	}

	if count > int64(limit) {
		return false, nil
	}

	return true, nil
}

// VerifyKey buckets public certificate lookups per client address.
func VerifyKey(remoteIP string) string {
	ip := strings.TrimSpace(remoteIP)
	if ip == "" {
		ip = "unknown"
	}
	return "rate_limit:verify:" + ip
}
