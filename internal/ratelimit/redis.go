package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/equinox/fleet-inspections/internal/logger"
)

// fixedWindowScript increments the counter and opens the window on the
// first hit. It returns the new count and the window's remaining time in
// milliseconds.
var fixedWindowScript = redis.NewScript(`
local count = redis.call('INCR', KEYS[1])
if count == 1 then
    redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
local ttl = redis.call('PTTL', KEYS[1])
if ttl < 0 then
    redis.call('PEXPIRE', KEYS[1], ARGV[1])
    ttl = tonumber(ARGV[1])
end
return { count, ttl }
`)

// Redis is a fixed-window limiter whose counters live in Redis so that
// every instance behind a load balancer shares them. It fails open: when
// Redis cannot be reached the request is allowed and a warning is logged.
type Redis struct {
	rdb    redis.Scripter
	prefix string
	log    *logger.Logger
	now    func() time.Time
}

// NewRedis returns a Redis limiter storing keys under prefix.
func NewRedis(rdb redis.Scripter, prefix string, log *logger.Logger) *Redis {
	return &Redis{rdb: rdb, prefix: prefix, log: log, now: time.Now}
}

// Check implements Limiter.
func (r *Redis) Check(ctx context.Context, identifier string, maxRequests int, window time.Duration) Result {
	now := r.now()
	key := r.prefix + ":" + identifier

	vals, err := fixedWindowScript.Run(ctx, r.rdb, []string{key}, window.Milliseconds()).Slice()
	if err != nil {
		r.log.Warn("rate limit store unavailable, allowing request", "key", key, "error", err)
		return Result{Allowed: true, Remaining: max(maxRequests-1, 0), ResetTime: now.Add(window)}
	}
	if len(vals) != 2 {
		r.log.Warn("unexpected rate limit script result", "key", key, "result", fmt.Sprint(vals))
		return Result{Allowed: true, Remaining: max(maxRequests-1, 0), ResetTime: now.Add(window)}
	}

	count := asInt64(vals[0])
	ttl := time.Duration(asInt64(vals[1])) * time.Millisecond
	res := Result{ResetTime: now.Add(ttl)}
	if count <= int64(maxRequests) {
		res.Allowed = true
		res.Remaining = maxRequests - int(count)
	}
	return res
}

func asInt64(v interface{}) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case float64:
		return int64(t)
	case string:
		if n, err := strconv.ParseInt(t, 10, 64); err == nil {
			return n
		}
	}
	return 0
}
