package middleware

import (
	"strings"

	"dimos-fixit/internal/adapters/persistence/models"
	"dimos-fixit/internal/core/domain"
	"dimos-fixit/internal/core/services"
	"dimos-fixit/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// Locals keys set by AuthMiddleware
const (
	LocalUser   = "user"
	LocalUserID = "userID"
	LocalRole   = "role"
)

// AuthMiddleware resolves the bearer token to an active user
func AuthMiddleware(authService *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		accessToken := bearerToken(c)
		if accessToken == "" {
			return response.Unauthorized(c, "Access token required")
		}

		user, err := authService.Authenticate(c.UserContext(), accessToken)
		if err != nil {
			return response.FromError(c, err)
		}

		c.Locals(LocalUser, user)
		c.Locals(LocalUserID, user.ID)
		c.Locals(LocalRole, user.Role)

		return c.Next()
	}
}

// RoleMiddleware creates role-based authorization middleware
func RoleMiddleware(allowedRoles ...domain.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role, ok := c.Locals(LocalRole).(string)
		if !ok {
			return response.Unauthorized(c, "Unauthorized")
		}

		for _, allowedRole := range allowedRoles {
			if domain.Role(role) == allowedRole {
				return c.Next()
			}
		}

		return response.Forbidden(c, "You don't have permission to access this resource")
	}
}

// AdminOnly middleware allows only ADMIN role
func AdminOnly() fiber.Handler {
	return RoleMiddleware(domain.RoleAdmin)
}

// StaffOnly allows OFFICE, SUPERVISOR and ADMIN
func StaffOnly() fiber.Handler {
	return RoleMiddleware(domain.RoleOffice, domain.RoleSupervisor, domain.RoleAdmin)
}

// CurrentUser returns the authenticated user stored by AuthMiddleware
func CurrentUser(c *fiber.Ctx) (*models.User, bool) {
	user, ok := c.Locals(LocalUser).(*models.User)
	return user, ok && user != nil
}

// CurrentActor returns the authenticated caller as a policy actor
func CurrentActor(c *fiber.Ctx) (domain.Actor, bool) {
	user, ok := CurrentUser(c)
	if !ok {
		return domain.Actor{}, false
	}
	return user.Actor(), true
}

func bearerToken(c *fiber.Ctx) string {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
}
