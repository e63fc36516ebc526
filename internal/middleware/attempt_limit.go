package middleware

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// AttemptLimit caps requests per browser session (falling back to the client
// IP) within a one minute window. It is a no-op without Redis and fails open
// on cache errors.
func AttemptLimit(cache *redis.Client, scope string, maxPerMin int, logger *slog.Logger) fiber.Handler {
	if maxPerMin <= 0 {
		maxPerMin = 5
	}
	return func(c *fiber.Ctx) error {
		if cache == nil {
			return c.Next()
		}
		who := GetSessionID(c)
		if who == "" {
			who = c.IP()
		}
		key := fmt.Sprintf("onboarding:rl:%s:%s", scope, who)

		ctx := c.UserContext()
		cnt, err := cache.Incr(ctx, key).Result()
		if err != nil {
			logger.Warn("attempt limiter unavailable", slog.String("scope", scope), slog.Any("error", err))
			return c.Next()
		}
		if cnt == 1 {
			cache.Expire(ctx, key, time.Minute)
		}
		if cnt > int64(maxPerMin) {
			return fiber.NewError(fiber.StatusTooManyRequests, "Too many attempts. Please wait a minute and try again.")
		}
		return c.Next()
	}
}
