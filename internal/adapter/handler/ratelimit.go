package handler

import (
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/srgjo27/fair_ticket/internal/platform/metrics"
)

// rateLimitScript is a token bucket refilled one token per interval.
// KEYS[1]: ratelimit:{user|ip}:{id}
// ARGV[1]: now (ms)  ARGV[2]: capacity  ARGV[3]: refill interval (ms)  ARGV[4]: ttl (s)
// Returns: {allowed, tokens left, retry after (ms)}
var rateLimitScript = redis.NewScript(`
	local now = tonumber(ARGV[1])
	local capacity = tonumber(ARGV[2])
	local interval = tonumber(ARGV[3])

	local state = redis.call('HMGET', KEYS[1], 'tokens', 'refilled_at')
	local tokens = tonumber(state[1])
	local refilled = tonumber(state[2])
	if tokens == nil or refilled == nil then
		tokens = capacity
		refilled = now
	end

	local steps = math.floor(math.max(0, now - refilled) / interval)
	if steps > 0 then
		tokens = math.min(capacity, tokens + steps)
		refilled = refilled + steps * interval
	end

	local allowed = 0
	local retry = 0
	if tokens > 0 then
		allowed = 1
		tokens = tokens - 1
	else
		retry = math.max(0, interval - (now - refilled))
	end

	redis.call('HSET', KEYS[1], 'tokens', tokens, 'refilled_at', refilled)
	redis.call('EXPIRE', KEYS[1], ARGV[4])

	return {allowed, tokens, retry}
`)

type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

// RateLimit allows each caller cfg.Requests per cfg.Window, keyed by the
// authenticated user or, before authentication, the client IP. Redis errors
// let the request through.
func RateLimit(rdb redis.Scripter, cfg RateLimitConfig, logger *slog.Logger) echo.MiddlewareFunc {
	if cfg.Requests <= 0 || cfg.Window <= 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}

	interval := max(cfg.Window/time.Duration(cfg.Requests), time.Millisecond)
	ttl := int64(math.Ceil(cfg.Window.Seconds())) + 1

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := rateLimitKey(c)

			vals, err := rateLimitScript.Run(c.Request().Context(), rdb, []string{key},
				time.Now().UnixMilli(), cfg.Requests, interval.Milliseconds(), ttl,
			).Int64Slice()
			if err != nil || len(vals) != 3 {
				logger.Warn("rate limit check failed", "key", key, "error", err)
				return next(c)
			}

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Requests))
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(vals[1], 10))

			if vals[0] != 1 {
				metrics.RateLimited.Inc()
				h.Set("Retry-After", strconv.FormatInt(int64(math.Ceil(float64(vals[2])/1000)), 10))
				return c.JSON(http.StatusTooManyRequests, echo.Map{"error": "too many requests"})
			}

			return next(c)
		}
	}
}

func rateLimitKey(c echo.Context) string {
	if id := currentUser(c); id > 0 {
		return fmt.Sprintf("ratelimit:user:%d", id)
	}

	return "ratelimit:ip:" + c.RealIP()
}
