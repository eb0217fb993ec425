package middleware

import (
	"dimos-fixit/internal/adapters/quota"
	"dimos-fixit/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// IssueQuota caps how many issues one user may report per day.
// Must run after AuthMiddleware. A failing quota store lets the request through.
func IssueQuota(limiter quota.Limiter, log *zap.SugaredLogger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, ok := c.Locals(LocalUserID).(uint)
		if !ok {
			return response.Unauthorized(c, "Unauthorized")
		}

		allowed, err := limiter.Allow(c.UserContext(), userID)
		if err != nil {
			log.Warnw("issue quota check failed", "userId", userID, "error", err)
			return c.Next()
		}
		if !allowed {
			return response.Error(c, fiber.StatusTooManyRequests, "Daily issue limit reached, try again tomorrow")
		}
		return c.Next()
	}
}
