package redis

import (
	"context"
	"time"
)

// Each script touches a single key so it stays cluster-safe.
const (
	// windowCountScript increments the counter and starts its window on the
	// first hit, in one round trip.
	windowCountScript = `local n = redis.call("INCR", KEYS[1])
if n == 1 then redis.call("PEXPIRE", KEYS[1], ARGV[1]) end
return n`

	// The owner scripts return 1 only while KEYS[1] still holds ARGV[1].
	compareAndDeleteScript = `if redis.call("GET", KEYS[1]) == ARGV[1] then return redis.call("DEL", KEYS[1]) end return 0`
	compareAndExpireScript = `if redis.call("GET", KEYS[1]) == ARGV[1] then return redis.call("PEXPIRE", KEYS[1], ARGV[2]) end return 0`
)

func (c *Client) evalInt(ctx context.Context, script, key string, args ...any) (int64, error) {
	if c.cmd == nil {
		return 0, ErrNotInitialized
	}
	return c.cmd.Eval(ctx, script, []string{key}, args...).Int64()
}

// FixedWindowAllow counts a hit for scope and reports whether the count is
// still within limit for the current window.
func (c *Client) FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error) {
	n, err := c.evalInt(ctx, windowCountScript, c.RateLimitKey(scope), window.Milliseconds())
	if err != nil {
		return false, 0, err
	}
	return n <= limit, n, nil
}

// CompareAndDelete removes key only while it still holds expected.
func (c *Client) CompareAndDelete(ctx context.Context, key, expected string) (bool, error) {
	n, err := c.evalInt(ctx, compareAndDeleteScript, key, expected)
	return n == 1, err
}

// CompareAndExpire resets the TTL of key only while it still holds expected.
func (c *Client) CompareAndExpire(ctx context.Context, key, expected string, ttl time.Duration) (bool, error) {
	n, err := c.evalInt(ctx, compareAndExpireScript, key, expected, ttl.Milliseconds())
	return n == 1, err
}
