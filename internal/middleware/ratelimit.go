package middleware

import (
	"content-storefront/internal/dto"
	"content-storefront/internal/model"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// RedisLimiter is a fixed-window counter per key.
type RedisLimiter struct {
	client *redis.Client
	prefix string
	max    int
	window time.Duration
}

func NewRedisLimiter(client *redis.Client, prefix string, max int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{client: client, prefix: prefix, max: max, window: window}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := l.prefix + key

	var incr *redis.IntCmd
	_, err := l.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		incr = p.Incr(ctx, redisKey)
		p.ExpireNX(ctx, redisKey, l.window)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("redis rate limit %s: %w", redisKey, err)
	}

	return incr.Val() <= int64(l.max), nil
}

// RedeemRateLimit throttles link redemption per client IP. Throttled calls
// get the usual consume envelope with RATE_LIMITED. Limiter errors let the
// request through.
func RedeemRateLimit(limiter Limiter, logger *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ip := c.RealIP()
			allowed, err := limiter.Allow(c.Request().Context(), ip)
			if err != nil {
				logger.Warn("redeem rate limiter unavailable", zap.String("ip", ip), zap.Error(err))
				return next(c)
			}
			if !allowed {
				return c.JSON(http.StatusOK, dto.ConsumeFailure(model.CodeRateLimited))
			}
			return next(c)
		}
	}
}
