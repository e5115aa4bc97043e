package middleware

import (
	"math"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/smartcity/civicdash/internal/pkg/ratelimit"
	icuser "github.com/smartcity/civicdash/internal/pkg/usercontext"
)

// IssueRateLimit counts issue reports per caller. It must run after RequireAuth.
func IssueRateLimit(limiter ratelimit.Limiter) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := icuser.GetUserID(c)
		decision, err := limiter.Allow(c.UserContext(), userID)
		if err != nil {
			// A broken counter should not stop citizens from reporting.
			log.Errorf("[RateLimit] %v", err)
			return c.Next()
		}

		c.Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
		if !decision.Allowed {
			seconds := int(math.Ceil(decision.RetryAfter.Seconds()))
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(seconds))
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":       "rate_limited",
				"message":     "daily issue limit reached",
				"retry_after": seconds,
			})
		}
		return c.Next()
	}
}
