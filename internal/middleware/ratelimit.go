package middleware

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/iliyamo/aupoz/internal/apperr"
	"github.com/iliyamo/aupoz/internal/config"
	"github.com/iliyamo/aupoz/internal/metrics"
)

// takeToken refills the bucket in whole intervals and then tries to take
// one token.  Reply: {allowed (0/1), tokens left, ms until next refill}.
var takeToken = redis.NewScript(`
local now      = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local refill   = tonumber(ARGV[3])
local interval = tonumber(ARGV[4])
local ttl_ms   = tonumber(ARGV[5])

local b = redis.call('HMGET', KEYS[1], 'tokens', 'stamp')
local tokens = tonumber(b[1]) or capacity
local stamp  = tonumber(b[2]) or now

local steps = math.floor(math.max(0, now - stamp) / interval)
if steps > 0 then
	tokens = math.min(capacity, tokens + steps * refill)
	stamp = stamp + steps * interval
end

local ok, wait = 0, 0
if tokens >= 1 then
	ok = 1
	tokens = tokens - 1
else
	wait = math.max(0, interval - (now - stamp))
end

redis.call('HSET', KEYS[1], 'tokens', tokens, 'stamp', stamp)
redis.call('PEXPIRE', KEYS[1], ttl_ms)
return {ok, tokens, wait}
`)

// bucketReply is the decoded script result.
type bucketReply struct {
	allowed   bool
	remaining int64
	wait      time.Duration
}

func parseBucketReply(v any) (bucketReply, bool) {
	arr, ok := v.([]any)
	if !ok || len(arr) != 3 {
		return bucketReply{}, false
	}
	return bucketReply{
		allowed:   asInt64(arr[0]) == 1,
		remaining: asInt64(arr[1]),
		wait:      time.Duration(asInt64(arr[2])) * time.Millisecond,
	}, true
}

// NewTokenBucket throttles requests per key (see buildRateKey) with a
// bucket kept in redis, so every API replica shares the same budget.
// Routes listed in cfg.SkipPaths are never counted.  When redis is
// missing or failing the request goes through.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client, log zerolog.Logger) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	log = log.With().Str("component", "ratelimit").Logger()
	skip := make(map[string]bool, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		if p = strings.TrimSpace(p); p != "" {
			skip[p] = true
		}
	}
	limit := strconv.Itoa(cfg.Capacity)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if skip[c.Path()] {
				return next(c)
			}
			key := buildRateKey(cfg, c)
			raw, err := takeToken.Run(c.Request().Context(), rdb, []string{key},
				time.Now().UnixMilli(),
				cfg.Capacity,
				cfg.RefillTokens,
				cfg.RefillInterval.Milliseconds(),
				cfg.TTL.Milliseconds(),
			).Result()
			if err != nil {
				log.Warn().Err(err).Str("key", key).Msg("redis error, allowing request")
				return next(c)
			}
			reply, ok := parseBucketReply(raw)
			if !ok {
				log.Warn().Str("key", key).Interface("reply", raw).Msg("unexpected script reply, allowing request")
				return next(c)
			}

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", limit)
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(reply.remaining, 10))
			if cfg.Debug {
				h.Set("X-RateLimit-Key", key)
			}
			if reply.allowed {
				return next(c)
			}

			secs := int(math.Ceil(reply.wait.Seconds()))
			h.Set("Retry-After", strconv.Itoa(secs))
			metrics.RecordRateLimited(c.Path())
			log.Debug().Str("key", key).Dur("wait", reply.wait).Msg("request throttled")

			meta := apperr.MetadataFor(apperr.CodeRateLimited)
			return c.JSON(meta.HTTPStatus, map[string]any{
				"error":   meta.PublicMessage,
				"details": map[string]int{"retryAfter": secs},
			})
		}
	}
}

func asInt64(v any) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case float64:
		return int64(t)
	case string:
		n, _ := strconv.ParseInt(t, 10, 64)
		return n
	}
	return 0
}

// buildRateKey composes the bucket key from the configured strategy.  The
// route is echo's pattern (e.g. "/calendar/:id") so ids do not split one
// endpoint into many buckets.
func buildRateKey(cfg config.RateLimitConfig, c echo.Context) string {
	ip := c.RealIP()
	if ip == "" {
		ip = "unknown"
	}
	route := c.Request().Method + " " + c.Path()

	parts := []string{cfg.Prefix}
	for _, dim := range strings.Split(strings.ToLower(cfg.KeyStrategy), "_") {
		switch dim {
		case "ip":
			parts = append(parts, "ip", ip)
		case "user":
			parts = append(parts, "user", userID(c))
		case "route":
			parts = append(parts, "route", route)
		}
	}
	if len(parts) == 1 {
		parts = append(parts, "ip", ip, "user", userID(c), "route", route)
	}
	return strings.Join(parts, ":")
}
