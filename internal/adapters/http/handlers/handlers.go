package handlers

import (
	"strconv"

	"dimos-fixit/internal/adapters/http/middleware"
	"dimos-fixit/internal/core/domain"
	"dimos-fixit/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// fail writes err as an envelope; internal errors are logged first
func fail(c *fiber.Ctx, log *zap.SugaredLogger, err error) error {
	if domain.KindOf(err) == domain.KindInternal {
		log.Errorw("request failed", "method", c.Method(), "path", c.Path(), "error", err)
	}
	return response.FromError(c, err)
}

// pathID parses a numeric route parameter
func pathID(c *fiber.Ctx, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 32)
	if err != nil || id == 0 {
		return 0, domain.FieldError(name, "Invalid "+name)
	}
	return uint(id), nil
}

// actor returns the authenticated caller or an Unauthenticated error
func actor(c *fiber.Ctx) (domain.Actor, error) {
	a, ok := middleware.CurrentActor(c)
	if !ok {
		return domain.Actor{}, domain.Unauthenticated("Unauthorized")
	}
	return a, nil
}
